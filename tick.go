package main

import (
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"
)

const maintenanceInterval = 5 * time.Minute

// runMaintenanceLoop owns the periodic housekeeping: expired sessions and
// reset tokens, stale rate-limit windows, old notifications and telemetry,
// and the metrics gauges. Only the instance holding the startup lock runs it.
func runMaintenanceLoop(db *sql.DB) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	runMaintenancePass(db)
	for range ticker.C {
		runMaintenancePass(db)
	}
}

func runMaintenancePass(db *sql.DB) {
	pruneExpiredSessions(db)
	prunePasswordResets(db)
	pruneAuthRateLimits(db)
	pruneNotifications(db)
	pruneTelemetry(db)
	tapLimits.prune(time.Hour)
	refreshMetricsGauges(db)
}

func pruneExpiredSessions(db *sql.DB) {
	result, err := db.Exec(`
		DELETE FROM sessions
		WHERE expires_at < NOW()
	`)
	if err != nil {
		logrus.WithError(err).Warn("session prune failed")
		return
	}
	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		logrus.WithField("count", rows).Debug("pruned expired sessions")
	}
}

func prunePasswordResets(db *sql.DB) {
	_, err := db.Exec(`
		DELETE FROM password_resets
		WHERE expires_at < NOW() OR used_at IS NOT NULL
	`)
	if err != nil {
		logrus.WithError(err).Warn("password reset prune failed")
	}
}
