package main

import (
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"
)

const notificationRetention = 30 * 24 * time.Hour

type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Category  string    `json:"category"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

func emitNotification(db *sql.DB, playerID string, category string, message string) {
	_, err := db.Exec(`
		INSERT INTO notifications (player_id, category, message, is_read, created_at)
		VALUES ($1, $2, $3, FALSE, NOW())
	`, playerID, category, message)
	if err != nil {
		logrus.WithError(err).Warn("notification insert failed")
	}
}

func notifyGiftReceived(db *sql.DB, recipientPlayerID string, senderName string, mintID string) {
	emitNotification(db, recipientPlayerID, "gifts", senderName+" sent you a collectible: "+mintID)
}

func ListNotifications(db *sql.DB, playerID string, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, message, category, is_read, created_at
		FROM notifications
		WHERE player_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Message, &n.Category, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func MarkNotificationsRead(db *sql.DB, playerID string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		_, err := db.Exec(`
			UPDATE notifications
			SET is_read = TRUE
			WHERE id = $1 AND player_id = $2
		`, id, playerID)
		if err != nil {
			return err
		}
	}
	return nil
}

func pruneNotifications(db *sql.DB) {
	_, err := db.Exec(`
		DELETE FROM notifications
		WHERE created_at < NOW() - ($1 * INTERVAL '1 second')
	`, int(notificationRetention.Seconds()))
	if err != nil {
		logrus.WithError(err).Warn("notification prune failed")
	}
}
