package main

import (
	"crypto/rand"
	"database/sql"
	"time"
)

const referralCodeLength = 8

const referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newReferralCode() (string, error) {
	buf := make([]byte, referralCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = referralCodeAlphabet[int(b)%len(referralCodeAlphabet)]
	}
	return string(buf), nil
}

type ReferralRecord struct {
	ReferredAccountID string    `json:"-"`
	ReferredName      string    `json:"referredName"`
	Bonus             int64     `json:"bonus"`
	Awarded           bool      `json:"awarded"`
	CreatedAt         time.Time `json:"createdAt"`
}

type ReferralStatus struct {
	Code          string           `json:"code"`
	Referred      []ReferralRecord `json:"referred"`
	PendingBonus  int64            `json:"pendingBonus"`
	AwardedBonus  int64            `json:"awardedBonus"`
	ReferredCount int              `json:"referredCount"`
}

// ClaimReferralBonuses pays out every unawarded referral record for the
// account in one transaction. The scan locks and excludes awarded rows, so a
// repeat invocation after partial prior success finds nothing and awards
// zero; record-level idempotence falls out of the awarded flag.
func ClaimReferralBonuses(db *sql.DB, account *Account) (int64, int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	rows, err := tx.Query(`
		SELECT referred_account_id, bonus
		FROM referral_records
		WHERE referrer_account_id = $1 AND awarded = FALSE
		FOR UPDATE
	`, account.AccountID)
	if err != nil {
		return 0, 0, err
	}

	var total int64
	var count int
	referred := []string{}
	for rows.Next() {
		var referredID string
		var bonus int64
		if err := rows.Scan(&referredID, &bonus); err != nil {
			rows.Close()
			return 0, 0, err
		}
		total += bonus
		count++
		referred = append(referred, referredID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, 0, err
	}
	rows.Close()

	if count == 0 {
		return 0, 0, tx.Commit()
	}

	if _, _, err := creditPlayerTx(tx, account.PlayerID, total); err != nil {
		return 0, 0, err
	}

	for _, referredID := range referred {
		_, err = tx.Exec(`
			UPDATE referral_records
			SET awarded = TRUE,
				awarded_at = NOW()
			WHERE referrer_account_id = $1 AND referred_account_id = $2
		`, account.AccountID, referredID)
		if err != nil {
			return 0, 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return total, count, nil
}

func LoadReferralStatus(db *sql.DB, account *Account) (*ReferralStatus, error) {
	status := &ReferralStatus{
		Code:     account.ReferralCode,
		Referred: []ReferralRecord{},
	}

	rows, err := db.Query(`
		SELECT r.referred_account_id, COALESCE(a.display_name, ''), r.bonus, r.awarded, r.created_at
		FROM referral_records r
		LEFT JOIN accounts a ON a.account_id = r.referred_account_id
		WHERE r.referrer_account_id = $1
		ORDER BY r.created_at ASC
	`, account.AccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var record ReferralRecord
		if err := rows.Scan(&record.ReferredAccountID, &record.ReferredName, &record.Bonus, &record.Awarded, &record.CreatedAt); err != nil {
			return nil, err
		}
		if record.Awarded {
			status.AwardedBonus += record.Bonus
		} else {
			status.PendingBonus += record.Bonus
		}
		status.Referred = append(status.Referred, record)
		status.ReferredCount++
	}
	return status, rows.Err()
}
