package main

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type MintInstance struct {
	InstanceID string    `json:"instanceId"`
	MintID     string    `json:"mintId"`
	CopyNumber int       `json:"copyNumber"`
	AcquiredAt time.Time `json:"acquiredAt"`
}

type CrateInstance struct {
	InstanceID  string    `json:"instanceId"`
	CrateID     string    `json:"crateId"`
	PurchasedAt time.Time `json:"purchasedAt"`
}

// grantMintInstanceTx issues the next copy of a mint to a player. The mint
// row is locked so concurrent grants (purchases and crate draws) serialize
// on copy numbering and the edition cap. A copy sitting in a pending gift
// has left the sender's inventory but still exists, so it counts against the
// edition and keeps its copy number reserved.
func grantMintInstanceTx(tx *sql.Tx, playerID string, mintID string) (*MintInstance, int64, error) {
	var editionSize int
	var price int64
	err := tx.QueryRow(`
		SELECT edition_size, price
		FROM mints
		WHERE mint_id = $1
		FOR UPDATE
	`, mintID).Scan(&editionSize, &price)
	if err == sql.ErrNoRows {
		return nil, 0, errDocMissing
	}
	if err != nil {
		return nil, 0, err
	}

	var issued int
	if err := tx.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM player_mints WHERE mint_id = $1) +
			(SELECT COUNT(*) FROM gifts WHERE mint_id = $1 AND status = 'pending')
	`, mintID).Scan(&issued); err != nil {
		return nil, 0, err
	}
	if issued >= editionSize {
		return nil, 0, errSoldOut
	}

	instance := &MintInstance{
		InstanceID: uuid.NewString(),
		MintID:     mintID,
		CopyNumber: issued + 1,
		AcquiredAt: time.Now().UTC(),
	}
	_, err = tx.Exec(`
		INSERT INTO player_mints (instance_id, player_id, mint_id, copy_number, acquired_at)
		VALUES ($1, $2, $3, $4, $5)
	`, instance.InstanceID, playerID, instance.MintID, instance.CopyNumber, instance.AcquiredAt)
	if err != nil {
		return nil, 0, err
	}
	return instance, price, nil
}

// BuyMint purchases a fresh copy of a mint. Balance is re-read under lock
// inside the transaction; the caller's idea of the balance is irrelevant.
func BuyMint(db *sql.DB, playerID string, mintID string) (*MintInstance, int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	instance, price, err := grantMintInstanceTx(tx, playerID, mintID)
	if err != nil {
		return nil, 0, err
	}

	coinsAfter, err := debitPlayerTx(tx, playerID, price)
	if err != nil {
		return nil, 0, err
	}

	if err := logPurchaseTx(tx, playerID, "mint", mintID, price, coinsAfter+price, coinsAfter); err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	purchasesTotal.WithLabelValues("mint").Inc()
	return instance, coinsAfter, nil
}

func BuyCrate(db *sql.DB, playerID string, crateID string) (*CrateInstance, int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	var price int64
	err = tx.QueryRow(`
		SELECT price
		FROM crates
		WHERE crate_id = $1
	`, crateID).Scan(&price)
	if err == sql.ErrNoRows {
		return nil, 0, errDocMissing
	}
	if err != nil {
		return nil, 0, err
	}

	coinsAfter, err := debitPlayerTx(tx, playerID, price)
	if err != nil {
		return nil, 0, err
	}

	instance := &CrateInstance{
		InstanceID:  uuid.NewString(),
		CrateID:     crateID,
		PurchasedAt: time.Now().UTC(),
	}
	_, err = tx.Exec(`
		INSERT INTO player_crates (instance_id, player_id, crate_id, purchased_at)
		VALUES ($1, $2, $3, $4)
	`, instance.InstanceID, playerID, instance.CrateID, instance.PurchasedAt)
	if err != nil {
		return nil, 0, err
	}

	if err := logPurchaseTx(tx, playerID, "crate", crateID, price, coinsAfter+price, coinsAfter); err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	purchasesTotal.WithLabelValues("crate").Inc()
	return instance, coinsAfter, nil
}

func BuySkin(db *sql.DB, playerID string, skinID string) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var price int64
	err = tx.QueryRow(`
		SELECT price
		FROM skins
		WHERE skin_id = $1
	`, skinID).Scan(&price)
	if err == sql.ErrNoRows {
		return 0, errDocMissing
	}
	if err != nil {
		return 0, err
	}

	var owned bool
	if err := tx.QueryRow(`
		SELECT EXISTS (
			SELECT 1
			FROM player_skins
			WHERE player_id = $1 AND skin_id = $2
		)
	`, playerID, skinID).Scan(&owned); err != nil {
		return 0, err
	}
	if owned {
		return 0, errSkinOwned
	}

	coinsAfter, err := debitPlayerTx(tx, playerID, price)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(`
		INSERT INTO player_skins (player_id, skin_id, unlocked_at)
		VALUES ($1, $2, NOW())
	`, playerID, skinID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, errSkinOwned
		}
		return 0, err
	}

	if err := logPurchaseTx(tx, playerID, "skin", skinID, price, coinsAfter+price, coinsAfter); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	purchasesTotal.WithLabelValues("skin").Inc()
	return coinsAfter, nil
}

// SelectSkin marks one unlocked skin active. The active skin lives on the
// player row, so exactly one is active at any time.
func SelectSkin(db *sql.DB, playerID string, skinID string) error {
	var owned bool
	if err := db.QueryRow(`
		SELECT EXISTS (
			SELECT 1
			FROM player_skins
			WHERE player_id = $1 AND skin_id = $2
		)
	`, playerID, skinID).Scan(&owned); err != nil {
		return err
	}
	if !owned {
		return errNotOwned
	}

	_, err := db.Exec(`
		UPDATE players
		SET active_skin = $2,
			updated_at = NOW()
		WHERE player_id = $1
	`, playerID, skinID)
	return err
}
