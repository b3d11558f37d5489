package main

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultSkinID is unlocked and active for every new player.
const DefaultSkinID = "classic"

type Mint struct {
	MintID        string  `json:"mintId"`
	Name          string  `json:"name"`
	RarityPercent float64 `json:"rarityPercent"`
	EditionSize   int     `json:"editionSize"`
	Price         int64   `json:"price"`
	MediaURL      string  `json:"mediaUrl"`
	MintedCount   int     `json:"mintedCount"`
}

type Crate struct {
	CrateID  string   `json:"crateId"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	MediaURL string   `json:"mediaUrl"`
	Pool     []string `json:"pool,omitempty"`
}

type Skin struct {
	SkinID   string `json:"skinId"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	MediaURL string `json:"mediaUrl"`
}

var errMalformedCatalogRow = errors.New("MALFORMED_CATALOG_ROW")

// validateMint guards the store boundary: rows missing required fields are
// rejected before their values can leak into price or rarity math.
func validateMint(m Mint) error {
	if strings.TrimSpace(m.MintID) == "" || strings.TrimSpace(m.Name) == "" {
		return errMalformedCatalogRow
	}
	if m.Price < 0 || m.EditionSize <= 0 {
		return errMalformedCatalogRow
	}
	if m.RarityPercent <= 0 || m.RarityPercent > 100 {
		return errMalformedCatalogRow
	}
	return nil
}

func validateCrate(c Crate) error {
	if strings.TrimSpace(c.CrateID) == "" || strings.TrimSpace(c.Name) == "" {
		return errMalformedCatalogRow
	}
	if c.Price < 0 {
		return errMalformedCatalogRow
	}
	return nil
}

func validateSkin(s Skin) error {
	if strings.TrimSpace(s.SkinID) == "" || strings.TrimSpace(s.Name) == "" {
		return errMalformedCatalogRow
	}
	if s.Price < 0 {
		return errMalformedCatalogRow
	}
	return nil
}

func ListMints(db *sql.DB) ([]Mint, error) {
	rows, err := db.Query(`
		SELECT m.mint_id, m.name, m.rarity_percent, m.edition_size, m.price, COALESCE(m.media_url, ''),
			COUNT(pm.instance_id)
		FROM mints m
		LEFT JOIN player_mints pm ON pm.mint_id = m.mint_id
		GROUP BY m.mint_id, m.name, m.rarity_percent, m.edition_size, m.price, m.media_url
		ORDER BY m.price ASC, m.mint_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mints := []Mint{}
	for rows.Next() {
		var m Mint
		if err := rows.Scan(&m.MintID, &m.Name, &m.RarityPercent, &m.EditionSize, &m.Price, &m.MediaURL, &m.MintedCount); err != nil {
			return nil, err
		}
		if err := validateMint(m); err != nil {
			logrus.WithField("mintId", m.MintID).Warn("skipping malformed mint row")
			continue
		}
		mints = append(mints, m)
	}
	return mints, rows.Err()
}

func LoadMint(db *sql.DB, mintID string) (*Mint, error) {
	var m Mint
	err := db.QueryRow(`
		SELECT mint_id, name, rarity_percent, edition_size, price, COALESCE(media_url, '')
		FROM mints
		WHERE mint_id = $1
	`, mintID).Scan(&m.MintID, &m.Name, &m.RarityPercent, &m.EditionSize, &m.Price, &m.MediaURL)
	if err == sql.ErrNoRows {
		return nil, errDocMissing
	}
	if err != nil {
		return nil, err
	}
	if err := validateMint(m); err != nil {
		return nil, err
	}
	return &m, nil
}

func ListCrates(db *sql.DB) ([]Crate, error) {
	rows, err := db.Query(`
		SELECT crate_id, name, price, COALESCE(media_url, '')
		FROM crates
		ORDER BY price ASC, crate_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	crates := []Crate{}
	for rows.Next() {
		var c Crate
		if err := rows.Scan(&c.CrateID, &c.Name, &c.Price, &c.MediaURL); err != nil {
			return nil, err
		}
		if err := validateCrate(c); err != nil {
			logrus.WithField("crateId", c.CrateID).Warn("skipping malformed crate row")
			continue
		}
		crates = append(crates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	poolRows, err := db.Query(`
		SELECT crate_id, mint_id
		FROM crate_pool
		ORDER BY crate_id ASC, mint_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer poolRows.Close()

	pools := map[string][]string{}
	for poolRows.Next() {
		var crateID, mintID string
		if err := poolRows.Scan(&crateID, &mintID); err != nil {
			return nil, err
		}
		pools[crateID] = append(pools[crateID], mintID)
	}
	for i := range crates {
		crates[i].Pool = pools[crates[i].CrateID]
	}
	return crates, poolRows.Err()
}

func ListSkins(db *sql.DB) ([]Skin, error) {
	rows, err := db.Query(`
		SELECT skin_id, name, price, COALESCE(media_url, '')
		FROM skins
		ORDER BY price ASC, skin_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	skins := []Skin{}
	for rows.Next() {
		var s Skin
		if err := rows.Scan(&s.SkinID, &s.Name, &s.Price, &s.MediaURL); err != nil {
			return nil, err
		}
		if err := validateSkin(s); err != nil {
			logrus.WithField("skinId", s.SkinID).Warn("skipping malformed skin row")
			continue
		}
		skins = append(skins, s)
	}
	return skins, rows.Err()
}

/* ======================
   Owner-role catalog writes
   ====================== */

func CreateMint(db *sql.DB, m Mint) (string, error) {
	if m.MintID == "" {
		m.MintID = uuid.NewString()
	}
	if err := validateMint(m); err != nil {
		return "", err
	}
	_, err := db.Exec(`
		INSERT INTO mints (mint_id, name, rarity_percent, edition_size, price, media_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, m.MintID, m.Name, m.RarityPercent, m.EditionSize, m.Price, m.MediaURL)
	if isUniqueViolation(err) {
		return "", errDuplicateID
	}
	return m.MintID, err
}

func DeleteMint(db *sql.DB, mintID string) error {
	result, err := db.Exec(`
		DELETE FROM mints
		WHERE mint_id = $1
	`, mintID)
	if err != nil {
		return err
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return errDocMissing
	}
	return nil
}

func CreateCrate(db *sql.DB, c Crate) (string, error) {
	if c.CrateID == "" {
		c.CrateID = uuid.NewString()
	}
	if err := validateCrate(c); err != nil {
		return "", err
	}

	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO crates (crate_id, name, price, media_url, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, c.CrateID, c.Name, c.Price, c.MediaURL)
	if err != nil {
		if isUniqueViolation(err) {
			return "", errDuplicateID
		}
		return "", err
	}

	for _, mintID := range c.Pool {
		_, err = tx.Exec(`
			INSERT INTO crate_pool (crate_id, mint_id)
			VALUES ($1, $2)
			ON CONFLICT (crate_id, mint_id) DO NOTHING
		`, c.CrateID, mintID)
		if err != nil {
			return "", err
		}
	}

	return c.CrateID, tx.Commit()
}

func DeleteCrate(db *sql.DB, crateID string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		DELETE FROM crate_pool
		WHERE crate_id = $1
	`, crateID)
	if err != nil {
		return err
	}

	result, err := tx.Exec(`
		DELETE FROM crates
		WHERE crate_id = $1
	`, crateID)
	if err != nil {
		return err
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return errDocMissing
	}

	return tx.Commit()
}

func CreateSkin(db *sql.DB, s Skin) (string, error) {
	if s.SkinID == "" {
		s.SkinID = uuid.NewString()
	}
	if err := validateSkin(s); err != nil {
		return "", err
	}
	_, err := db.Exec(`
		INSERT INTO skins (skin_id, name, price, media_url, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, s.SkinID, s.Name, s.Price, s.MediaURL)
	if isUniqueViolation(err) {
		return "", errDuplicateID
	}
	return s.SkinID, err
}

func DeleteSkin(db *sql.DB, skinID string) error {
	if skinID == DefaultSkinID {
		return errMalformedCatalogRow
	}
	result, err := db.Exec(`
		DELETE FROM skins
		WHERE skin_id = $1
	`, skinID)
	if err != nil {
		return err
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return errDocMissing
	}
	return nil
}
