package main

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimMilestoneHappyPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT threshold, reward FROM milestones").
		WillReturnRows(sqlmock.NewRows([]string{"threshold", "reward"}).AddRow(1000, 250))
	mock.ExpectQuery("SELECT coins, lifetime_earned FROM players").
		WillReturnRows(sqlmock.NewRows([]string{"coins", "lifetime_earned"}).AddRow(300, 1500))
	mock.ExpectExec("INSERT INTO player_milestones").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT coins, lifetime_earned FROM players").
		WillReturnRows(sqlmock.NewRows([]string{"coins", "lifetime_earned"}).AddRow(300, 1500))
	mock.ExpectExec("UPDATE players SET coins").
		WithArgs("player-1", int64(550), int64(1750)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	coins, lifetime, err := ClaimMilestone(db, "player-1", "getting-going")
	require.NoError(t, err)
	assert.Equal(t, int64(550), coins)
	assert.Equal(t, int64(1750), lifetime)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimMilestoneNotReady(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT threshold, reward FROM milestones").
		WillReturnRows(sqlmock.NewRows([]string{"threshold", "reward"}).AddRow(10000, 1500))
	mock.ExpectQuery("SELECT coins, lifetime_earned FROM players").
		WillReturnRows(sqlmock.NewRows([]string{"coins", "lifetime_earned"}).AddRow(300, 1500))
	mock.ExpectRollback()

	_, _, err = ClaimMilestone(db, "player-1", "grinder")
	assert.ErrorIs(t, err, errMilestoneNotReady)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimMilestoneTwiceRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT threshold, reward FROM milestones").
		WillReturnRows(sqlmock.NewRows([]string{"threshold", "reward"}).AddRow(1000, 250))
	mock.ExpectQuery("SELECT coins, lifetime_earned FROM players").
		WillReturnRows(sqlmock.NewRows([]string{"coins", "lifetime_earned"}).AddRow(300, 1500))
	mock.ExpectExec("INSERT INTO player_milestones").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, _, err = ClaimMilestone(db, "player-1", "getting-going")
	assert.ErrorIs(t, err, errAlreadyClaimed)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimMilestoneUnknownTier(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT threshold, reward FROM milestones").
		WillReturnRows(sqlmock.NewRows([]string{"threshold", "reward"}))
	mock.ExpectRollback()

	_, _, err = ClaimMilestone(db, "player-1", "nope")
	assert.ErrorIs(t, err, errDocMissing)

	require.NoError(t, mock.ExpectationsWereMet())
}
