package main

import (
	"database/sql"
	"time"
)

const CooldownDailyBonus = "daily_bonus"

func CanClaimCooldown(db *sql.DB, playerID string, key string, cooldown time.Duration) (bool, time.Duration, error) {
	var lastClaim time.Time

	err := db.QueryRow(`
		SELECT last_claim_at
		FROM claim_cooldowns
		WHERE player_id = $1 AND claim_key = $2
	`, playerID, key).Scan(&lastClaim)

	if err == sql.ErrNoRows {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, err
	}

	now := time.Now().UTC()
	next := lastClaim.Add(cooldown)
	if !now.Before(next) {
		return true, 0, nil
	}

	return false, next.Sub(now), nil
}

// ClaimDailyBonus grants the daily reward once per cooldown window. The
// cooldown row is re-checked under lock in the same transaction as the
// credit, so hammering the endpoint cannot double-grant.
func ClaimDailyBonus(db *sql.DB, playerID string) (reward int64, coins int64, remaining time.Duration, err error) {
	settings := GetGameSettings()
	cooldown := time.Duration(settings.DailyBonusCooldownHours) * time.Hour
	reward = int64(settings.DailyBonusReward)
	now := time.Now().UTC()

	tx, err := db.Begin()
	if err != nil {
		return 0, 0, 0, err
	}
	defer tx.Rollback()

	var lastClaim time.Time
	err = tx.QueryRow(`
		SELECT last_claim_at
		FROM claim_cooldowns
		WHERE player_id = $1 AND claim_key = $2
		FOR UPDATE
	`, playerID, CooldownDailyBonus).Scan(&lastClaim)
	if err != nil && err != sql.ErrNoRows {
		return 0, 0, 0, err
	}
	if err == nil {
		next := lastClaim.Add(cooldown)
		if now.Before(next) {
			return 0, 0, next.Sub(now), errCooldown
		}
	}

	_, err = tx.Exec(`
		INSERT INTO claim_cooldowns (player_id, claim_key, last_claim_at, claim_count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (player_id, claim_key)
		DO UPDATE SET
			last_claim_at = EXCLUDED.last_claim_at,
			claim_count = claim_cooldowns.claim_count + 1
	`, playerID, CooldownDailyBonus, now)
	if err != nil {
		return 0, 0, 0, err
	}

	coins, _, err = creditPlayerTx(tx, playerID, reward)
	if err != nil {
		return 0, 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, 0, err
	}
	return reward, coins, 0, nil
}
