package main

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegeneratedEnergy(t *testing.T) {
	settings := GameSettings{MaxEnergy: 500, EnergyRegenSeconds: 2}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// 10 seconds at one unit per 2s regenerates 5.
	assert.Equal(t, 105, regeneratedEnergy(100, now.Add(-10*time.Second), now, settings))

	// Capped at MaxEnergy.
	assert.Equal(t, 500, regeneratedEnergy(499, now.Add(-time.Hour), now, settings))

	// Clock skew never drains energy.
	assert.Equal(t, 100, regeneratedEnergy(100, now.Add(time.Minute), now, settings))

	// Disabled regen snaps to full.
	assert.Equal(t, 500, regeneratedEnergy(3, now, now, GameSettings{MaxEnergy: 500}))
}

func TestEnergyCheckpointKeepsRemainder(t *testing.T) {
	settings := GameSettings{MaxEnergy: 500, EnergyRegenSeconds: 2}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// 5 seconds credits two whole intervals; the odd second stays banked
	// for the next batch instead of resetting to now.
	since := now.Add(-5 * time.Second)
	assert.Equal(t, since.Add(4*time.Second), energyCheckpoint(100, since, now, settings))

	// A full bar has nothing left to accrue.
	assert.Equal(t, now, energyCheckpoint(499, now.Add(-time.Hour), now, settings))

	// Clock skew and disabled regen both pin to now.
	assert.Equal(t, now, energyCheckpoint(100, now.Add(time.Minute), now, settings))
	assert.Equal(t, now, energyCheckpoint(3, now.Add(-5*time.Second), now, GameSettings{MaxEnergy: 500}))
}

func TestApplyTapsClampsToEnergy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// 3 energy left and no time elapsed: a 50-tap batch only lands 3.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT energy, last_energy_at FROM players").
		WillReturnRows(sqlmock.NewRows([]string{"energy", "last_energy_at"}).AddRow(3, time.Now().UTC()))
	mock.ExpectExec("UPDATE players SET energy").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT coins, lifetime_earned FROM players").
		WillReturnRows(sqlmock.NewRows([]string{"coins", "lifetime_earned"}).AddRow(100, 100))
	mock.ExpectExec("UPDATE players SET coins").
		WithArgs("player-1", int64(103), int64(103)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	granted, energyLeft, coins, err := ApplyTaps(db, "player-1", 50)
	require.NoError(t, err)
	assert.Equal(t, int64(3), granted)
	assert.Equal(t, 0, energyLeft)
	assert.Equal(t, int64(103), coins)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTapsNoEnergyCommitsWithoutCredit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT energy, last_energy_at FROM players").
		WillReturnRows(sqlmock.NewRows([]string{"energy", "last_energy_at"}).AddRow(0, time.Now().UTC()))
	mock.ExpectCommit()

	granted, energyLeft, coins, err := ApplyTaps(db, "player-1", 50)
	require.NoError(t, err)
	assert.Zero(t, granted)
	assert.Zero(t, energyLeft)
	assert.Zero(t, coins)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTapsRejectsNonPositive(t *testing.T) {
	granted, energyLeft, coins, err := ApplyTaps(nil, "player-1", 0)
	require.NoError(t, err)
	assert.Zero(t, granted)
	assert.Zero(t, energyLeft)
	assert.Zero(t, coins)
}

func TestApplyTapsUnknownPlayer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT energy, last_energy_at FROM players").
		WillReturnRows(sqlmock.NewRows([]string{"energy", "last_energy_at"}))
	mock.ExpectRollback()

	_, _, _, err = ApplyTaps(db, "ghost", 10)
	assert.ErrorIs(t, err, errUserNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
