package main

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMint(t *testing.T) {
	valid := Mint{MintID: "golden-gear", Name: "Golden Gear", RarityPercent: 10, EditionSize: 250, Price: 6000}
	assert.NoError(t, validateMint(valid))

	cases := map[string]Mint{
		"missing id":      {Name: "X", RarityPercent: 10, EditionSize: 1, Price: 1},
		"blank name":      {MintID: "x", Name: "  ", RarityPercent: 10, EditionSize: 1, Price: 1},
		"negative price":  {MintID: "x", Name: "X", RarityPercent: 10, EditionSize: 1, Price: -1},
		"zero edition":    {MintID: "x", Name: "X", RarityPercent: 10, EditionSize: 0, Price: 1},
		"zero rarity":     {MintID: "x", Name: "X", RarityPercent: 0, EditionSize: 1, Price: 1},
		"rarity over 100": {MintID: "x", Name: "X", RarityPercent: 101, EditionSize: 1, Price: 1},
	}
	for name, m := range cases {
		assert.ErrorIs(t, validateMint(m), errMalformedCatalogRow, name)
	}
}

func TestValidateCrateAndSkin(t *testing.T) {
	assert.NoError(t, validateCrate(Crate{CrateID: "c", Name: "Crate", Price: 0}))
	assert.ErrorIs(t, validateCrate(Crate{Name: "Crate"}), errMalformedCatalogRow)
	assert.ErrorIs(t, validateCrate(Crate{CrateID: "c", Name: "Crate", Price: -1}), errMalformedCatalogRow)

	assert.NoError(t, validateSkin(Skin{SkinID: "s", Name: "Skin", Price: 0}))
	assert.ErrorIs(t, validateSkin(Skin{SkinID: "s"}), errMalformedCatalogRow)
	assert.ErrorIs(t, validateSkin(Skin{SkinID: "s", Name: "Skin", Price: -1}), errMalformedCatalogRow)
}

func TestListMintsSkipsMalformedRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM mints").
		WillReturnRows(sqlmock.NewRows([]string{"mint_id", "name", "rarity_percent", "edition_size", "price", "media_url", "count"}).
			AddRow("golden-gear", "Golden Gear", 10.0, 250, 6000, "", 12).
			AddRow("broken", "", 0.0, 0, -5, "", 0).
			AddRow("copper-coin", "Copper Coin", 60.0, 5000, 250, "", 99))

	mints, err := ListMints(db)
	require.NoError(t, err)
	require.Len(t, mints, 2)
	assert.Equal(t, "golden-gear", mints[0].MintID)
	assert.Equal(t, 12, mints[0].MintedCount)
	assert.Equal(t, "copper-coin", mints[1].MintID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSkinRefusesDefault(t *testing.T) {
	err := DeleteSkin(nil, DefaultSkinID)
	assert.ErrorIs(t, err, errMalformedCatalogRow)
}

func TestLoadMintMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM mints").
		WillReturnRows(sqlmock.NewRows([]string{"mint_id", "name", "rarity_percent", "edition_size", "price", "media_url"}))

	_, err = LoadMint(db, "nope")
	assert.ErrorIs(t, err, errDocMissing)

	require.NoError(t, mock.ExpectationsWereMet())
}
