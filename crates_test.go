package main

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCrateNotOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM player_crates").
		WillReturnRows(sqlmock.NewRows([]string{"crate_id"}))
	mock.ExpectRollback()

	_, err = OpenCrate(db, "player-1", "inst-404")
	assert.ErrorIs(t, err, errNotOwned)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenCrateEmptyPool(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM player_crates").
		WillReturnRows(sqlmock.NewRows([]string{"crate_id"}).AddRow("starter-crate"))
	mock.ExpectQuery("SELECT mint_id FROM crate_pool").
		WillReturnRows(sqlmock.NewRows([]string{"mint_id"}))
	mock.ExpectRollback()

	_, err = OpenCrate(db, "player-1", "inst-1")
	assert.ErrorIs(t, err, errEmptyCratePool)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenCrateGrantsFromPool(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM player_crates").
		WithArgs("inst-1", "player-1").
		WillReturnRows(sqlmock.NewRows([]string{"crate_id"}).AddRow("starter-crate"))
	// Single-entry pool makes the draw deterministic.
	mock.ExpectQuery("SELECT mint_id FROM crate_pool").
		WillReturnRows(sqlmock.NewRows([]string{"mint_id"}).AddRow("copper-coin"))
	mock.ExpectQuery("SELECT edition_size, price FROM mints").
		WillReturnRows(sqlmock.NewRows([]string{"edition_size", "price"}).AddRow(5000, 250))
	mock.ExpectQuery("FROM player_mints WHERE mint_id").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectExec("INSERT INTO player_mints").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	instance, err := OpenCrate(db, "player-1", "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "copper-coin", instance.MintID)
	assert.Equal(t, 13, instance.CopyNumber)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenCrateSoldOutEditionRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM player_crates").
		WillReturnRows(sqlmock.NewRows([]string{"crate_id"}).AddRow("vault-crate"))
	mock.ExpectQuery("SELECT mint_id FROM crate_pool").
		WillReturnRows(sqlmock.NewRows([]string{"mint_id"}).AddRow("void-relic"))
	mock.ExpectQuery("SELECT edition_size, price FROM mints").
		WillReturnRows(sqlmock.NewRows([]string{"edition_size", "price"}).AddRow(10, 150000))
	mock.ExpectQuery("FROM player_mints WHERE mint_id").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectRollback()

	_, err = OpenCrate(db, "player-1", "inst-1")
	assert.ErrorIs(t, err, errSoldOut)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDrawUniformStaysInBounds(t *testing.T) {
	pool := []string{"a", "b", "c"}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		picked, err := drawUniform(pool)
		require.NoError(t, err)
		assert.Contains(t, pool, picked)
		seen[picked] = true
	}
	// 200 draws over 3 entries miss one with probability ~1e-35.
	assert.Len(t, seen, 3)
}
