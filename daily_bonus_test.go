package main

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimDailyBonusFirstClaim(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT last_claim_at FROM claim_cooldowns").
		WillReturnRows(sqlmock.NewRows([]string{"last_claim_at"}))
	mock.ExpectExec("INSERT INTO claim_cooldowns").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT coins, lifetime_earned FROM players").
		WillReturnRows(sqlmock.NewRows([]string{"coins", "lifetime_earned"}).AddRow(100, 100))
	mock.ExpectExec("UPDATE players SET coins").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reward, coins, remaining, err := ClaimDailyBonus(db, "player-1")
	require.NoError(t, err)
	assert.Equal(t, int64(GetGameSettings().DailyBonusReward), reward)
	assert.Equal(t, int64(100+GetGameSettings().DailyBonusReward), coins)
	assert.Zero(t, remaining)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimDailyBonusOnCooldown(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	lastClaim := time.Now().UTC().Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT last_claim_at FROM claim_cooldowns").
		WillReturnRows(sqlmock.NewRows([]string{"last_claim_at"}).AddRow(lastClaim))
	mock.ExpectRollback()

	_, _, remaining, err := ClaimDailyBonus(db, "player-1")
	assert.ErrorIs(t, err, errCooldown)
	assert.Greater(t, remaining, time.Duration(0))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCanClaimCooldownNeverClaimed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT last_claim_at FROM claim_cooldowns").
		WillReturnRows(sqlmock.NewRows([]string{"last_claim_at"}))

	can, remaining, err := CanClaimCooldown(db, "player-1", CooldownDailyBonus, 20*time.Hour)
	require.NoError(t, err)
	assert.True(t, can)
	assert.Zero(t, remaining)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCanClaimCooldownElapsed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT last_claim_at FROM claim_cooldowns").
		WillReturnRows(sqlmock.NewRows([]string{"last_claim_at"}).AddRow(time.Now().UTC().Add(-25 * time.Hour)))

	can, remaining, err := CanClaimCooldown(db, "player-1", CooldownDailyBonus, 20*time.Hour)
	require.NoError(t, err)
	assert.True(t, can)
	assert.Zero(t, remaining)

	require.NoError(t, mock.ExpectationsWereMet())
}
