package main

import (
	"database/sql"
	"strconv"
	"strings"
	"sync"
)

type GameSettings struct {
	TapReward               int
	MaxEnergy               int
	EnergyRegenSeconds      int
	DailyBonusReward        int
	DailyBonusCooldownHours int
	ReferralBonus           int
	ReferralWelcomeBonus    int
	GiftsEnabled            bool
}

var (
	settingsMu     sync.RWMutex
	cachedSettings = GameSettings{
		TapReward:               1,
		MaxEnergy:               500,
		EnergyRegenSeconds:      2,
		DailyBonusReward:        200,
		DailyBonusCooldownHours: 20,
		ReferralBonus:           500,
		ReferralWelcomeBonus:    250,
		GiftsEnabled:            true,
	}
)

func LoadGameSettings(db *sql.DB) error {
	rows, err := db.Query(`
		SELECT key, value
		FROM global_settings
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	settingsMu.Lock()
	defer settingsMu.Unlock()

	for rows.Next() {
		var key string
		var value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		applySetting(&cachedSettings, key, value)
	}
	return rows.Err()
}

func GetGameSettings() GameSettings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return cachedSettings
}

func UpdateGameSettings(db *sql.DB, updates map[string]string) (GameSettings, error) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	for key, value := range updates {
		// Persist first. The cache only ever reflects rows that made it
		// into global_settings, so a failed write cannot leave the two
		// disagreeing until restart.
		_, err := db.Exec(`
			INSERT INTO global_settings (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, key, value)
		if err != nil {
			return cachedSettings, err
		}
		applySetting(&cachedSettings, key, value)
	}
	return cachedSettings, nil
}

func applySetting(target *GameSettings, key string, value string) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "tap_reward":
		if v, err := strconv.Atoi(value); err == nil && v > 0 {
			target.TapReward = v
		}
	case "max_energy":
		if v, err := strconv.Atoi(value); err == nil && v > 0 {
			target.MaxEnergy = v
		}
	case "energy_regen_seconds":
		if v, err := strconv.Atoi(value); err == nil && v > 0 {
			target.EnergyRegenSeconds = v
		}
	case "daily_bonus_reward":
		if v, err := strconv.Atoi(value); err == nil && v >= 0 {
			target.DailyBonusReward = v
		}
	case "daily_bonus_cooldown_hours":
		if v, err := strconv.Atoi(value); err == nil && v > 0 {
			target.DailyBonusCooldownHours = v
		}
	case "referral_bonus":
		if v, err := strconv.Atoi(value); err == nil && v >= 0 {
			target.ReferralBonus = v
		}
	case "referral_welcome_bonus":
		if v, err := strconv.Atoi(value); err == nil && v >= 0 {
			target.ReferralWelcomeBonus = v
		}
	case "gifts_enabled":
		if v, err := parseBool(value); err == nil {
			target.GiftsEnabled = v
		}
	}
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, strconv.ErrSyntax
	}
}
