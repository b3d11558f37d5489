package main

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const (
	GiftStatusPending = "pending"
	GiftStatusClaimed = "claimed"
)

type Gift struct {
	GiftID            string     `json:"giftId"`
	SenderPlayerID    string     `json:"-"`
	SenderName        string     `json:"senderName,omitempty"`
	RecipientPlayerID string     `json:"-"`
	RecipientName     string     `json:"recipientName,omitempty"`
	InstanceID        string     `json:"instanceId"`
	MintID            string     `json:"mintId"`
	CopyNumber        int        `json:"copyNumber"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"createdAt"`
	ClaimedAt         *time.Time `json:"claimedAt,omitempty"`
}

// SendGift moves a mint instance out of the sender's inventory and into a
// pending gift record, in one transaction. The recipient handle is resolved
// first, outside the transaction: the lookup is read-only and needs no
// atomicity with the mutation. Ownership, however, is re-verified inside the
// transaction by the conditional DELETE itself, so a double-send racing on
// stale client state loses cleanly with NOT_OWNED.
func SendGift(db *sql.DB, sender *Account, instanceID string, recipientUsername string) (*Gift, error) {
	if !GetGameSettings().GiftsEnabled {
		return nil, errGiftsDisabled
	}

	recipient, err := findAccountByUsername(db, recipientUsername)
	if err != nil {
		return nil, err
	}
	if recipient.AccountID == sender.AccountID {
		return nil, errSelfGift
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var mintID string
	var copyNumber int
	err = tx.QueryRow(`
		DELETE FROM player_mints
		WHERE instance_id = $1 AND player_id = $2
		RETURNING mint_id, copy_number
	`, instanceID, sender.PlayerID).Scan(&mintID, &copyNumber)
	if err == sql.ErrNoRows {
		return nil, errNotOwned
	}
	if err != nil {
		return nil, err
	}

	gift := &Gift{
		GiftID:            uuid.NewString(),
		SenderPlayerID:    sender.PlayerID,
		RecipientPlayerID: recipient.PlayerID,
		InstanceID:        instanceID,
		MintID:            mintID,
		CopyNumber:        copyNumber,
		Status:            GiftStatusPending,
		CreatedAt:         time.Now().UTC(),
	}
	_, err = tx.Exec(`
		INSERT INTO gifts (
			gift_id,
			sender_player_id,
			recipient_player_id,
			instance_id,
			mint_id,
			copy_number,
			status,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7)
	`, gift.GiftID, gift.SenderPlayerID, gift.RecipientPlayerID, gift.InstanceID, gift.MintID, gift.CopyNumber, gift.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	giftsSentTotal.Inc()
	notifyGiftReceived(db, recipient.PlayerID, sender.DisplayName, mintID)
	return gift, nil
}

// ClaimGift appends the gifted instance to the recipient's inventory and
// marks the record claimed, atomically. The pending check runs against the
// locked row at write time, so claiming an already-claimed gift is rejected
// without touching any inventory.
func ClaimGift(db *sql.DB, recipientPlayerID string, giftID string) (*MintInstance, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var gift Gift
	err = tx.QueryRow(`
		SELECT gift_id, sender_player_id, recipient_player_id, instance_id, mint_id, copy_number, status
		FROM gifts
		WHERE gift_id = $1
		FOR UPDATE
	`, giftID).Scan(&gift.GiftID, &gift.SenderPlayerID, &gift.RecipientPlayerID, &gift.InstanceID, &gift.MintID, &gift.CopyNumber, &gift.Status)
	if err == sql.ErrNoRows {
		return nil, errGiftNotFound
	}
	if err != nil {
		return nil, err
	}

	if gift.RecipientPlayerID != recipientPlayerID {
		return nil, errNotOwned
	}
	if gift.Status != GiftStatusPending {
		return nil, errAlreadyClaimed
	}

	instance := &MintInstance{
		InstanceID: gift.InstanceID,
		MintID:     gift.MintID,
		CopyNumber: gift.CopyNumber,
		AcquiredAt: time.Now().UTC(),
	}
	_, err = tx.Exec(`
		INSERT INTO player_mints (instance_id, player_id, mint_id, copy_number, acquired_at)
		VALUES ($1, $2, $3, $4, $5)
	`, instance.InstanceID, recipientPlayerID, instance.MintID, instance.CopyNumber, instance.AcquiredAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		UPDATE gifts
		SET status = 'claimed',
			claimed_at = NOW()
		WHERE gift_id = $1
	`, giftID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	giftsClaimedTotal.Inc()
	return instance, nil
}

func ListIncomingGifts(db *sql.DB, playerID string) ([]Gift, error) {
	rows, err := db.Query(`
		SELECT g.gift_id, g.instance_id, g.mint_id, g.copy_number, g.status, g.created_at,
			COALESCE(a.display_name, '')
		FROM gifts g
		LEFT JOIN accounts a ON a.player_id = g.sender_player_id
		WHERE g.recipient_player_id = $1 AND g.status = 'pending'
		ORDER BY g.created_at ASC
	`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gifts := []Gift{}
	for rows.Next() {
		var g Gift
		if err := rows.Scan(&g.GiftID, &g.InstanceID, &g.MintID, &g.CopyNumber, &g.Status, &g.CreatedAt, &g.SenderName); err != nil {
			return nil, err
		}
		gifts = append(gifts, g)
	}
	return gifts, rows.Err()
}

func ListSentGifts(db *sql.DB, playerID string, limit int) ([]Gift, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT g.gift_id, g.instance_id, g.mint_id, g.copy_number, g.status, g.created_at, g.claimed_at,
			COALESCE(a.display_name, '')
		FROM gifts g
		LEFT JOIN accounts a ON a.player_id = g.recipient_player_id
		WHERE g.sender_player_id = $1
		ORDER BY g.created_at DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gifts := []Gift{}
	for rows.Next() {
		var g Gift
		var claimedAt sql.NullTime
		if err := rows.Scan(&g.GiftID, &g.InstanceID, &g.MintID, &g.CopyNumber, &g.Status, &g.CreatedAt, &claimedAt, &g.RecipientName); err != nil {
			return nil, err
		}
		if claimedAt.Valid {
			t := claimedAt.Time
			g.ClaimedAt = &t
		}
		gifts = append(gifts, g)
	}
	return gifts, rows.Err()
}

func countPendingGifts(db *sql.DB, playerID string) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*)
		FROM gifts
		WHERE recipient_player_id = $1 AND status = 'pending'
	`, playerID).Scan(&count)
	return count, err
}
