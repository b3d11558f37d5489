package main

import (
	"database/sql"
	"time"
)

type Milestone struct {
	TierID    string `json:"tierId"`
	Threshold int64  `json:"threshold"`
	Reward    int64  `json:"reward"`
}

type MilestoneProgress struct {
	LifetimeEarned int64       `json:"lifetimeEarned"`
	Unclaimed      []Milestone `json:"unclaimed"`
	Claimed        []Milestone `json:"claimed"`
	Locked         []Milestone `json:"locked"`
}

func ListMilestones(db *sql.DB) ([]Milestone, error) {
	rows, err := db.Query(`
		SELECT tier_id, threshold, reward
		FROM milestones
		ORDER BY threshold ASC, tier_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tiers := []Milestone{}
	for rows.Next() {
		var m Milestone
		if err := rows.Scan(&m.TierID, &m.Threshold, &m.Reward); err != nil {
			return nil, err
		}
		tiers = append(tiers, m)
	}
	return tiers, rows.Err()
}

// LoadMilestoneProgress splits the tier catalog into claimed, completed-but-
// unclaimed, and locked for one player. The claimed set is the stored truth;
// unclaimed is derived from lifetime earnings, so the two can never overlap.
func LoadMilestoneProgress(db *sql.DB, playerID string) (*MilestoneProgress, error) {
	var lifetime int64
	err := db.QueryRow(`
		SELECT lifetime_earned
		FROM players
		WHERE player_id = $1
	`, playerID).Scan(&lifetime)
	if err == sql.ErrNoRows {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, err
	}

	tiers, err := ListMilestones(db)
	if err != nil {
		return nil, err
	}

	claimed := map[string]bool{}
	rows, err := db.Query(`
		SELECT tier_id
		FROM player_milestones
		WHERE player_id = $1
	`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var tierID string
		if err := rows.Scan(&tierID); err != nil {
			return nil, err
		}
		claimed[tierID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	progress := &MilestoneProgress{
		LifetimeEarned: lifetime,
		Unclaimed:      []Milestone{},
		Claimed:        []Milestone{},
		Locked:         []Milestone{},
	}
	for _, tier := range tiers {
		switch {
		case claimed[tier.TierID]:
			progress.Claimed = append(progress.Claimed, tier)
		case tier.Threshold <= lifetime:
			progress.Unclaimed = append(progress.Unclaimed, tier)
		default:
			progress.Locked = append(progress.Locked, tier)
		}
	}
	return progress, nil
}

// ClaimMilestone moves a tier into the claimed set and pays its reward, in
// one transaction. The claimed set is append-only: the insert is guarded by
// the primary key, so a tier can never be claimed twice nor leave the set.
func ClaimMilestone(db *sql.DB, playerID string, tierID string) (int64, int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	var threshold int64
	var reward int64
	err = tx.QueryRow(`
		SELECT threshold, reward
		FROM milestones
		WHERE tier_id = $1
	`, tierID).Scan(&threshold, &reward)
	if err == sql.ErrNoRows {
		return 0, 0, errDocMissing
	}
	if err != nil {
		return 0, 0, err
	}

	_, lifetime, err := lockPlayerCoins(tx, playerID)
	if err != nil {
		return 0, 0, err
	}
	if lifetime < threshold {
		return 0, 0, errMilestoneNotReady
	}

	_, err = tx.Exec(`
		INSERT INTO player_milestones (player_id, tier_id, claimed_at)
		VALUES ($1, $2, $3)
	`, playerID, tierID, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, 0, errAlreadyClaimed
		}
		return 0, 0, err
	}

	coinsAfter, lifetimeAfter, err := creditPlayerTx(tx, playerID, reward)
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return coinsAfter, lifetimeAfter, nil
}

func CreateMilestone(db *sql.DB, m Milestone) error {
	if m.TierID == "" || m.Threshold < 0 || m.Reward < 0 {
		return errMalformedCatalogRow
	}
	_, err := db.Exec(`
		INSERT INTO milestones (tier_id, threshold, reward)
		VALUES ($1, $2, $3)
	`, m.TierID, m.Threshold, m.Reward)
	if isUniqueViolation(err) {
		return errDuplicateID
	}
	return err
}

func DeleteMilestone(db *sql.DB, tierID string) error {
	result, err := db.Exec(`
		DELETE FROM milestones
		WHERE tier_id = $1
	`, tierID)
	if err != nil {
		return err
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return errDocMissing
	}
	return nil
}
