package main

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCoinsOverwritesBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT coins, lifetime_earned FROM players").
		WillReturnRows(sqlmock.NewRows([]string{"coins", "lifetime_earned"}).AddRow(900, 12_000))
	mock.ExpectExec("UPDATE players SET coins").
		WithArgs("player-1", int64(50)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	coins, lifetime, err := setCoins(db, "player-1", 50)
	require.NoError(t, err)
	assert.Equal(t, int64(50), coins)
	assert.Equal(t, int64(12_000), lifetime)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCoinsUnknownPlayerRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT coins, lifetime_earned FROM players").
		WillReturnRows(sqlmock.NewRows([]string{"coins", "lifetime_earned"}))
	mock.ExpectRollback()

	_, _, err = setCoins(db, "ghost", 50)
	assert.ErrorIs(t, err, errUserNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantCoinsRaisesLifetime(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT coins, lifetime_earned FROM players").
		WillReturnRows(sqlmock.NewRows([]string{"coins", "lifetime_earned"}).AddRow(100, 1_000))
	mock.ExpectExec("UPDATE players SET coins").
		WithArgs("player-1", int64(600), int64(1_500)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	coins, lifetime, err := grantCoins(db, "player-1", 500)
	require.NoError(t, err)
	assert.Equal(t, int64(600), coins)
	assert.Equal(t, int64(1_500), lifetime)

	require.NoError(t, mock.ExpectationsWereMet())
}
