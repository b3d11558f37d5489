package main

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

const startupAdvisoryLockID int64 = 551380217

var startupLockConn *sql.Conn

// acquireStartupLock takes a session-level advisory lock so that exactly one
// instance runs the startup maintenance loops. The dedicated connection is
// held open for the lifetime of the process; losing it releases the lock and
// another instance can take over after a restart.
func acquireStartupLock(ctx context.Context, db *sql.DB) (*sql.Conn, bool, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, false, err
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, startupAdvisoryLockID).Scan(&acquired); err != nil {
		_ = conn.Close()
		return nil, false, err
	}
	if !acquired {
		_ = conn.Close()
		return nil, false, nil
	}
	return conn, true, nil
}

// ensureOwnerAccount creates the bootstrap owner on first start. The
// serializable transaction plus the sealed flag guarantee the owner is
// created exactly once even if several instances race through startup.
func ensureOwnerAccount(ctx context.Context, db *sql.DB, cfg Config) error {
	const username = "owner"
	const displayName = "Owner"

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	bootstrapComplete := false
	var bootstrapValue string
	if err := tx.QueryRowContext(ctx, `
		SELECT value
		FROM global_settings
		WHERE key = 'owner_bootstrap_complete'
		FOR UPDATE
	`).Scan(&bootstrapValue); err == nil {
		bootstrapComplete = strings.ToLower(strings.TrimSpace(bootstrapValue)) == "true"
	} else if err != sql.ErrNoRows {
		return err
	}

	var ownerAccountID string
	ownerErr := tx.QueryRowContext(ctx, `
		SELECT account_id
		FROM accounts
		WHERE role = 'owner'
		LIMIT 1
		FOR UPDATE
	`).Scan(&ownerAccountID)
	if ownerErr == nil {
		if !bootstrapComplete {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO global_settings (key, value, updated_at)
				VALUES ('owner_bootstrap_complete', 'true', NOW())
				ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
			`); err != nil {
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		logrus.Info("owner bootstrap: owner already exists, skipping")
		return nil
	}
	if ownerErr != sql.ErrNoRows {
		return ownerErr
	}
	if bootstrapComplete {
		return errors.New("owner bootstrap sealed but no owner exists; refuse to start")
	}

	password := strings.TrimSpace(cfg.OwnerBootstrapPassword)
	if password == "" {
		return errors.New("OWNER_BOOTSTRAP_PASSWORD required for first start")
	}
	if len(password) < 8 || len(password) > 128 {
		return errors.New("OWNER_BOOTSTRAP_PASSWORD must be 8-128 characters")
	}

	accountID, err := randomToken(16)
	if err != nil {
		return err
	}
	playerID, err := randomToken(16)
	if err != nil {
		return err
	}
	referralCode, err := newReferralCode()
	if err != nil {
		return err
	}
	passwordHash, err := hashPassword(password)
	if err != nil {
		return err
	}

	if err := CreatePlayer(tx, playerID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (
			account_id,
			username,
			password_hash,
			display_name,
			player_id,
			referral_code,
			role,
			created_at,
			last_login_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, 'owner', NOW(), NOW())
	`, accountID, username, passwordHash, displayName, playerID, referralCode); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO global_settings (key, value, updated_at)
		VALUES ('owner_bootstrap_complete', 'true', NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	logrus.Info("owner bootstrap: created owner account")
	return nil
}
