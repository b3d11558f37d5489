package main

import (
	"database/sql"
	"time"
)

const maxTapsPerRequest = 200

// ApplyTaps credits a batch of taps. Energy is the only throttle: it
// regenerates at a fixed interval and each tap spends one unit. The batch is
// clamped to whatever energy is actually available under the row lock, so a
// stale client can never overdraw, only earn less than it hoped.
func ApplyTaps(db *sql.DB, playerID string, taps int) (granted int64, energyLeft int, coins int64, err error) {
	if taps <= 0 {
		return 0, 0, 0, nil
	}
	if taps > maxTapsPerRequest {
		taps = maxTapsPerRequest
	}

	settings := GetGameSettings()
	now := time.Now().UTC()

	tx, err := db.Begin()
	if err != nil {
		return 0, 0, 0, err
	}
	defer tx.Rollback()

	var storedEnergy int
	var lastEnergyAt time.Time
	err = tx.QueryRow(`
		SELECT energy, last_energy_at
		FROM players
		WHERE player_id = $1
		FOR UPDATE
	`, playerID).Scan(&storedEnergy, &lastEnergyAt)
	if err == sql.ErrNoRows {
		return 0, 0, 0, errUserNotFound
	}
	if err != nil {
		return 0, 0, 0, err
	}

	energy := regeneratedEnergy(storedEnergy, lastEnergyAt, now, settings)
	checkpoint := energyCheckpoint(storedEnergy, lastEnergyAt, now, settings)
	if taps > energy {
		taps = energy
	}
	if taps == 0 {
		return 0, energy, 0, tx.Commit()
	}

	energyLeft = energy - taps
	_, err = tx.Exec(`
		UPDATE players
		SET energy = $2,
			last_energy_at = $3,
			last_active_at = NOW()
		WHERE player_id = $1
	`, playerID, energyLeft, checkpoint)
	if err != nil {
		return 0, 0, 0, err
	}

	granted = int64(taps) * int64(settings.TapReward)
	coins, _, err = creditPlayerTx(tx, playerID, granted)
	if err != nil {
		return 0, 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, 0, err
	}
	tapsTotal.Add(float64(taps))
	return granted, energyLeft, coins, nil
}
