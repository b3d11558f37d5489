package main

import (
	"database/sql"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const telemetryRetention = 14 * 24 * time.Hour

var allowedTelemetryEvents = map[string]bool{
	"page_view":      true,
	"tap_burst":      true,
	"shop_open":      true,
	"crate_reveal":   true,
	"gift_modal":     true,
	"milestone_view": true,
}

// recordTelemetry stores a client-reported event. Unknown event names are
// dropped rather than rejected so old clients never see errors here.
func recordTelemetry(db *sql.DB, playerID string, event string, detail string) {
	event = strings.TrimSpace(event)
	if !allowedTelemetryEvents[event] {
		return
	}
	if len(detail) > 500 {
		detail = detail[:500]
	}
	_, err := db.Exec(`
		INSERT INTO player_telemetry (player_id, event, detail, created_at)
		VALUES ($1, $2, $3, NOW())
	`, playerID, event, detail)
	if err != nil {
		logrus.WithError(err).Warn("telemetry insert failed")
	}
}

func pruneTelemetry(db *sql.DB) {
	_, err := db.Exec(`
		DELETE FROM player_telemetry
		WHERE created_at < NOW() - ($1 * INTERVAL '1 second')
	`, int(telemetryRetention.Seconds()))
	if err != nil {
		logrus.WithError(err).Warn("telemetry prune failed")
	}
}
