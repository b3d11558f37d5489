package main

import (
	"database/sql"
	"strings"
	"time"
)

const passwordResetTTL = time.Hour

// createPasswordReset files a reset token for the account behind an email
// address. The caller gets errUserNotFound for unknown addresses and decides
// whether to surface that or answer uniformly.
func createPasswordReset(db *sql.DB, email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", errUserNotFound
	}

	var accountID string
	err := db.QueryRow(`
		SELECT account_id
		FROM accounts
		WHERE email = $1
	`, email).Scan(&accountID)
	if err == sql.ErrNoRows {
		return "", errUserNotFound
	}
	if err != nil {
		return "", err
	}

	token, err := randomToken(24)
	if err != nil {
		return "", err
	}

	_, err = db.Exec(`
		INSERT INTO password_resets (token, account_id, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
	`, token, accountID, time.Now().UTC().Add(passwordResetTTL))
	if err != nil {
		return "", err
	}
	return token, nil
}

// resetPassword consumes a token and replaces the password. The token row is
// locked so a token can only be spent once; all existing sessions for the
// account are dropped.
func resetPassword(db *sql.DB, token string, newPassword string) error {
	if len(newPassword) < 8 || len(newPassword) > 128 {
		return errInvalidPassword
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var accountID string
	var expiresAt time.Time
	var usedAt sql.NullTime
	err = tx.QueryRow(`
		SELECT account_id, expires_at, used_at
		FROM password_resets
		WHERE token = $1
		FOR UPDATE
	`, token).Scan(&accountID, &expiresAt, &usedAt)
	if err == sql.ErrNoRows {
		return errResetInvalid
	}
	if err != nil {
		return err
	}
	if usedAt.Valid || time.Now().UTC().After(expiresAt) {
		return errResetInvalid
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`
		UPDATE accounts
		SET password_hash = $2
		WHERE account_id = $1
	`, accountID, hash); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		UPDATE password_resets
		SET used_at = NOW()
		WHERE token = $1
	`, token); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		DELETE FROM sessions
		WHERE account_id = $1
	`, accountID); err != nil {
		return err
	}

	return tx.Commit()
}

// updateAccountProfile sets the mutable profile fields. Empty strings clear
// avatar and email; display name must stay valid.
func updateAccountProfile(db *sql.DB, accountID string, displayName string, avatarURL string, email string) error {
	if !isValidDisplayName(displayName) {
		return errInvalidDisplayName
	}
	email = strings.TrimSpace(strings.ToLower(email))

	_, err := db.Exec(`
		UPDATE accounts
		SET display_name = $2,
			avatar_url = NULLIF($3, ''),
			email = NULLIF($4, '')
		WHERE account_id = $1
	`, accountID, displayName, avatarURL, email)
	if isUniqueViolation(err) {
		return errDuplicateID
	}
	return err
}
