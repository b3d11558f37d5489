package main

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuyMintHappyPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT edition_size, price FROM mints").
		WillReturnRows(sqlmock.NewRows([]string{"edition_size", "price"}).AddRow(100, 600))
	mock.ExpectQuery("FROM player_mints WHERE mint_id").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))
	mock.ExpectExec("INSERT INTO player_mints").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT coins, lifetime_earned FROM players").
		WillReturnRows(sqlmock.NewRows([]string{"coins", "lifetime_earned"}).AddRow(1000, 9000))
	mock.ExpectExec("UPDATE players SET coins").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO purchase_log").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	instance, coinsAfter, err := BuyMint(db, "player-1", "golden-gear")
	require.NoError(t, err)
	assert.Equal(t, "golden-gear", instance.MintID)
	assert.Equal(t, 42, instance.CopyNumber)
	assert.NotEmpty(t, instance.InstanceID)
	assert.Equal(t, int64(400), coinsAfter)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuyMintSoldOut(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT edition_size, price FROM mints").
		WillReturnRows(sqlmock.NewRows([]string{"edition_size", "price"}).AddRow(10, 600))
	mock.ExpectQuery("FROM player_mints WHERE mint_id").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectRollback()

	_, _, err = BuyMint(db, "player-1", "void-relic")
	assert.ErrorIs(t, err, errSoldOut)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuyMintCountsPendingGiftsAgainstEdition(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Nine copies in inventories plus one riding a pending gift: the
	// edition of ten is spoken for, even though player_mints only holds 9.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT edition_size, price FROM mints").
		WillReturnRows(sqlmock.NewRows([]string{"edition_size", "price"}).AddRow(10, 600))
	mock.ExpectQuery("FROM gifts WHERE mint_id").
		WillReturnRows(sqlmock.NewRows([]string{"issued"}).AddRow(10))
	mock.ExpectRollback()

	_, _, err = BuyMint(db, "player-1", "void-relic")
	assert.ErrorIs(t, err, errSoldOut)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuyMintInsufficientFundsRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT edition_size, price FROM mints").
		WillReturnRows(sqlmock.NewRows([]string{"edition_size", "price"}).AddRow(100, 600))
	mock.ExpectQuery("FROM player_mints WHERE mint_id").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO player_mints").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT coins, lifetime_earned FROM players").
		WillReturnRows(sqlmock.NewRows([]string{"coins", "lifetime_earned"}).AddRow(100, 9000))
	mock.ExpectRollback()

	_, _, err = BuyMint(db, "player-1", "golden-gear")
	assert.ErrorIs(t, err, errInsufficientFunds)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuyMintUnknownMint(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT edition_size, price FROM mints").
		WillReturnRows(sqlmock.NewRows([]string{"edition_size", "price"}))
	mock.ExpectRollback()

	_, _, err = BuyMint(db, "player-1", "nope")
	assert.ErrorIs(t, err, errDocMissing)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuySkinAlreadyOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT price FROM skins").
		WillReturnRows(sqlmock.NewRows([]string{"price"}).AddRow(2000))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err = BuySkin(db, "player-1", "midnight")
	assert.ErrorIs(t, err, errSkinOwned)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectSkinNotOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err = SelectSkin(db, "player-1", "aurora")
	assert.ErrorIs(t, err, errNotOwned)

	require.NoError(t, mock.ExpectationsWereMet())
}
