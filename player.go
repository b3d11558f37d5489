package main

import (
	"database/sql"
	"time"
)

type Player struct {
	PlayerID       string
	Coins          int64
	LifetimeEarned int64
	Energy         int
	ActiveSkin     string
	LastEnergyAt   time.Time
}

func CreatePlayer(tx *sql.Tx, playerID string) error {
	_, err := tx.Exec(`
		INSERT INTO players (
			player_id,
			coins,
			lifetime_earned,
			energy,
			last_energy_at,
			active_skin,
			created_at,
			last_active_at,
			updated_at
		)
		VALUES ($1, 0, 0, $2, NOW(), $3, NOW(), NOW(), NOW())
	`, playerID, GetGameSettings().MaxEnergy, DefaultSkinID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO player_skins (player_id, skin_id, unlocked_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (player_id, skin_id) DO NOTHING
	`, playerID, DefaultSkinID)
	return err
}

func LoadPlayer(db *sql.DB, playerID string) (*Player, error) {
	var p Player
	var storedEnergy int

	err := db.QueryRow(`
		SELECT player_id, coins, lifetime_earned, energy, active_skin, last_energy_at
		FROM players
		WHERE player_id = $1
	`, playerID).Scan(&p.PlayerID, &p.Coins, &p.LifetimeEarned, &storedEnergy, &p.ActiveSkin, &p.LastEnergyAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	settings := GetGameSettings()
	p.Energy = regeneratedEnergy(storedEnergy, p.LastEnergyAt, time.Now().UTC(), settings)

	_, _ = db.Exec(`
		UPDATE players
		SET last_active_at = NOW()
		WHERE player_id = $1
	`, playerID)

	return &p, nil
}

// regeneratedEnergy applies the fixed-interval regeneration counter: one unit
// of energy per EnergyRegenSeconds elapsed since the stored checkpoint,
// capped at MaxEnergy.
func regeneratedEnergy(stored int, since time.Time, now time.Time, settings GameSettings) int {
	if settings.EnergyRegenSeconds <= 0 {
		return settings.MaxEnergy
	}
	elapsed := now.Sub(since)
	if elapsed < 0 {
		elapsed = 0
	}
	regen := int(elapsed / (time.Duration(settings.EnergyRegenSeconds) * time.Second))

	energy := stored + regen
	if energy > settings.MaxEnergy {
		energy = settings.MaxEnergy
	}
	if energy < 0 {
		energy = 0
	}
	return energy
}

// energyCheckpoint advances the stored regeneration timestamp by the whole
// intervals actually credited, so the fractional remainder keeps accruing
// across tap batches instead of being thrown away. Once the bar is full the
// remainder carries no value and the checkpoint snaps to now.
func energyCheckpoint(stored int, since time.Time, now time.Time, settings GameSettings) time.Time {
	if settings.EnergyRegenSeconds <= 0 || since.After(now) {
		return now
	}
	interval := time.Duration(settings.EnergyRegenSeconds) * time.Second
	regen := int(now.Sub(since) / interval)
	if stored+regen >= settings.MaxEnergy {
		return now
	}
	return since.Add(time.Duration(regen) * interval)
}
