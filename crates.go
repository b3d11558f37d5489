package main

import (
	"crypto/rand"
	"database/sql"
	"math/big"
)

// OpenCrate consumes an owned crate instance and grants one mint drawn
// uniformly from the crate's pool. Consumption, draw, and grant share one
// transaction: if the grant fails, the rollback leaves the crate instance
// owned and re-openable, and no crate ever yields more than one item.
func OpenCrate(db *sql.DB, playerID string, crateInstanceID string) (*MintInstance, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Consuming the instance is also the ownership check: the conditional
	// DELETE only matches a crate the player still holds, so a concurrent
	// double-open loses here rather than against cached client state.
	var crateID string
	err = tx.QueryRow(`
		DELETE FROM player_crates
		WHERE instance_id = $1 AND player_id = $2
		RETURNING crate_id
	`, crateInstanceID, playerID).Scan(&crateID)
	if err == sql.ErrNoRows {
		return nil, errNotOwned
	}
	if err != nil {
		return nil, err
	}

	pool, err := crateMintPoolTx(tx, crateID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, errEmptyCratePool
	}

	mintID, err := drawUniform(pool)
	if err != nil {
		return nil, err
	}

	instance, _, err := grantMintInstanceTx(tx, playerID, mintID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	cratesOpenedTotal.Inc()
	return instance, nil
}

func crateMintPoolTx(tx *sql.Tx, crateID string) ([]string, error) {
	rows, err := tx.Query(`
		SELECT mint_id
		FROM crate_pool
		WHERE crate_id = $1
		ORDER BY mint_id ASC
	`, crateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pool := []string{}
	for rows.Next() {
		var mintID string
		if err := rows.Scan(&mintID); err != nil {
			return nil, err
		}
		pool = append(pool, mintID)
	}
	return pool, rows.Err()
}

func drawUniform(pool []string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
	if err != nil {
		return "", err
	}
	return pool[n.Int64()], nil
}

func ListPlayerCrates(db *sql.DB, playerID string) ([]CrateInstance, error) {
	rows, err := db.Query(`
		SELECT instance_id, crate_id, purchased_at
		FROM player_crates
		WHERE player_id = $1
		ORDER BY purchased_at ASC
	`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	crates := []CrateInstance{}
	for rows.Next() {
		var c CrateInstance
		if err := rows.Scan(&c.InstanceID, &c.CrateID, &c.PurchasedAt); err != nil {
			return nil, err
		}
		crates = append(crates, c)
	}
	return crates, rows.Err()
}

func ListPlayerMints(db *sql.DB, playerID string) ([]MintInstance, error) {
	rows, err := db.Query(`
		SELECT instance_id, mint_id, copy_number, acquired_at
		FROM player_mints
		WHERE player_id = $1
		ORDER BY acquired_at ASC
	`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mints := []MintInstance{}
	for rows.Next() {
		var m MintInstance
		if err := rows.Scan(&m.InstanceID, &m.MintID, &m.CopyNumber, &m.AcquiredAt); err != nil {
			return nil, err
		}
		mints = append(mints, m)
	}
	return mints, rows.Err()
}

func ListPlayerSkins(db *sql.DB, playerID string) ([]string, error) {
	rows, err := db.Query(`
		SELECT skin_id
		FROM player_skins
		WHERE player_id = $1
		ORDER BY unlocked_at ASC
	`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	skins := []string{}
	for rows.Next() {
		var skinID string
		if err := rows.Scan(&skinID); err != nil {
			return nil, err
		}
		skins = append(skins, skinID)
	}
	return skins, rows.Err()
}
