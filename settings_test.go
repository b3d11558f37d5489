package main

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySetting(t *testing.T) {
	s := GameSettings{}

	applySetting(&s, "tap_reward", "3")
	assert.Equal(t, 3, s.TapReward)

	applySetting(&s, "max_energy", "1000")
	assert.Equal(t, 1000, s.MaxEnergy)

	applySetting(&s, "gifts_enabled", "false")
	assert.False(t, s.GiftsEnabled)
	applySetting(&s, "GIFTS_ENABLED", "yes")
	assert.True(t, s.GiftsEnabled)

	// Invalid values leave the current value alone.
	applySetting(&s, "tap_reward", "zero")
	assert.Equal(t, 3, s.TapReward)
	applySetting(&s, "max_energy", "-5")
	assert.Equal(t, 1000, s.MaxEnergy)

	// Unknown keys are ignored.
	applySetting(&s, "mystery_knob", "11")
	assert.Equal(t, GameSettings{TapReward: 3, MaxEnergy: 1000, GiftsEnabled: true}, s)
}

func TestUpdateGameSettingsKeepsCacheOnWriteFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	before := GetGameSettings()

	mock.ExpectExec("INSERT INTO global_settings").
		WillReturnError(errors.New("connection reset by peer"))

	_, err = UpdateGameSettings(db, map[string]string{"tap_reward": "99"})
	require.Error(t, err)

	// The cache still matches what global_settings actually holds.
	assert.Equal(t, before, GetGameSettings())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParseBool(t *testing.T) {
	for _, raw := range []string{"true", "1", "yes", "on", " TRUE "} {
		v, err := parseBool(raw)
		assert.NoError(t, err)
		assert.True(t, v, raw)
	}
	for _, raw := range []string{"false", "0", "no", "off"} {
		v, err := parseBool(raw)
		assert.NoError(t, err)
		assert.False(t, v, raw)
	}
	_, err := parseBool("maybe")
	assert.Error(t, err)
}
