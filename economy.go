package main

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors for the economy protocol. Handlers map these to wire codes
// via errorCode; anything unrecognized becomes INTERNAL_ERROR.
var (
	errInsufficientFunds = errors.New("NOT_ENOUGH_COINS")
	errNotOwned          = errors.New("NOT_OWNED")
	errAlreadyClaimed    = errors.New("ALREADY_CLAIMED")
	errSelfGift          = errors.New("SELF_GIFT")
	errHandleTaken       = errors.New("USERNAME_TAKEN")
	errUserNotFound      = errors.New("USER_NOT_FOUND")
	errGiftNotFound      = errors.New("GIFT_NOT_FOUND")
	errSoldOut           = errors.New("EDITION_SOLD_OUT")
	errEmptyCratePool    = errors.New("EMPTY_CRATE_POOL")
	errMilestoneNotReady = errors.New("MILESTONE_NOT_READY")
	errSkinOwned         = errors.New("SKIN_ALREADY_OWNED")
	errCooldown          = errors.New("COOLDOWN")
	errGiftsDisabled     = errors.New("GIFTS_DISABLED")

	errDocMissing  = errors.New("NOT_FOUND")
	errDuplicateID = errors.New("DUPLICATE_ID")

	errInvalidUsername    = errors.New("INVALID_USERNAME")
	errInvalidPassword    = errors.New("INVALID_PASSWORD")
	errInvalidDisplayName = errors.New("INVALID_DISPLAY_NAME")
	errInvalidCredentials = errors.New("INVALID_CREDENTIALS")
	errSessionExpired     = errors.New("SESSION_EXPIRED")
	errResetInvalid       = errors.New("INVALID_RESET_TOKEN")
)

var knownErrors = []error{
	errInsufficientFunds,
	errNotOwned,
	errAlreadyClaimed,
	errSelfGift,
	errHandleTaken,
	errUserNotFound,
	errGiftNotFound,
	errSoldOut,
	errEmptyCratePool,
	errMilestoneNotReady,
	errSkinOwned,
	errCooldown,
	errGiftsDisabled,
	errDocMissing,
	errDuplicateID,
	errMalformedCatalogRow,
	errInvalidUsername,
	errInvalidPassword,
	errInvalidDisplayName,
	errInvalidCredentials,
	errSessionExpired,
	errResetInvalid,
}

func errorCode(err error) string {
	for _, known := range knownErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "INTERNAL_ERROR"
}

// lockPlayerCoins re-reads a player's balance inside the caller's transaction.
// Every debit and credit starts here; cached balances are never trusted.
func lockPlayerCoins(tx *sql.Tx, playerID string) (coins int64, lifetime int64, err error) {
	err = tx.QueryRow(`
		SELECT coins, lifetime_earned
		FROM players
		WHERE player_id = $1
		FOR UPDATE
	`, playerID).Scan(&coins, &lifetime)
	if err == sql.ErrNoRows {
		return 0, 0, errUserNotFound
	}
	return coins, lifetime, err
}

// debitPlayerTx deducts price from a locked player row. The balance check
// happens here, against the row just read under the lock. lifetime_earned is
// untouched: spending never reduces it.
func debitPlayerTx(tx *sql.Tx, playerID string, price int64) (coinsAfter int64, err error) {
	coins, _, err := lockPlayerCoins(tx, playerID)
	if err != nil {
		return 0, err
	}
	if coins < price {
		return coins, errInsufficientFunds
	}

	coinsAfter = coins - price
	_, err = tx.Exec(`
		UPDATE players
		SET coins = $2,
			updated_at = NOW()
		WHERE player_id = $1
	`, playerID, coinsAfter)
	return coinsAfter, err
}

// creditPlayerTx adds earned coins to a locked player row. Earnings always
// raise lifetime_earned alongside the balance.
func creditPlayerTx(tx *sql.Tx, playerID string, amount int64) (coinsAfter int64, lifetimeAfter int64, err error) {
	coins, lifetime, err := lockPlayerCoins(tx, playerID)
	if err != nil {
		return 0, 0, err
	}

	coinsAfter = coins + amount
	lifetimeAfter = lifetime + amount
	_, err = tx.Exec(`
		UPDATE players
		SET coins = $2,
			lifetime_earned = $3,
			updated_at = NOW()
		WHERE player_id = $1
	`, playerID, coinsAfter, lifetimeAfter)
	return coinsAfter, lifetimeAfter, err
}

func logPurchaseTx(tx *sql.Tx, playerID string, kind string, refID string, price int64, coinsBefore int64, coinsAfter int64) error {
	_, err := tx.Exec(`
		INSERT INTO purchase_log (
			player_id,
			kind,
			ref_id,
			price,
			coins_before,
			coins_after,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, playerID, kind, refID, price, coinsBefore, coinsAfter)
	return err
}

// isUniqueViolation reports whether err is a Postgres duplicate-key error,
// used to map races on unique indexes (usernames, claimed milestones) to
// typed protocol errors instead of 500s.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
