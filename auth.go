package main

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const sessionTTL = 7 * 24 * time.Hour

const (
	RoleUser  = "user"
	RoleOwner = "owner"
)

type Account struct {
	AccountID    string
	Username     string
	DisplayName  string
	AvatarURL    string
	PlayerID     string
	ReferralCode string
	Role         string
}

// createAccount registers an identity and its player record in one
// transaction. A valid referral code credits the new player with the welcome
// bonus and files a pending referral record for the referrer; the referrer's
// bonus is only paid out later through ClaimReferralBonuses.
func createAccount(db *sql.DB, username string, password string, displayName string, referralCode string) (*Account, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if !isValidUsername(username) {
		return nil, errInvalidUsername
	}
	if len(password) < 8 || len(password) > 128 {
		return nil, errInvalidPassword
	}
	if displayName == "" {
		displayName = username
	}
	if !isValidDisplayName(displayName) {
		return nil, errInvalidDisplayName
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	accountID, err := randomToken(16)
	if err != nil {
		return nil, err
	}
	playerID, err := randomToken(16)
	if err != nil {
		return nil, err
	}
	ownCode, err := newReferralCode()
	if err != nil {
		return nil, err
	}

	settings := GetGameSettings()

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var referrerAccountID sql.NullString
	referralCode = strings.TrimSpace(strings.ToUpper(referralCode))
	if referralCode != "" {
		err := tx.QueryRow(`
			SELECT account_id
			FROM accounts
			WHERE referral_code = $1
		`, referralCode).Scan(&referrerAccountID.String)
		if err == sql.ErrNoRows {
			return nil, errUserNotFound
		}
		if err != nil {
			return nil, err
		}
		referrerAccountID.Valid = true
	}

	if err := CreatePlayer(tx, playerID); err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		INSERT INTO accounts (
			account_id,
			username,
			password_hash,
			display_name,
			player_id,
			referral_code,
			referred_by,
			role,
			created_at,
			last_login_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'user', NOW(), NOW())
	`, accountID, username, hash, displayName, playerID, ownCode, referrerAccountID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errHandleTaken
		}
		return nil, err
	}

	if referrerAccountID.Valid {
		_, err = tx.Exec(`
			INSERT INTO referral_records (
				referrer_account_id,
				referred_account_id,
				bonus,
				awarded,
				created_at
			)
			VALUES ($1, $2, $3, FALSE, NOW())
		`, referrerAccountID.String, accountID, settings.ReferralBonus)
		if err != nil {
			return nil, err
		}

		if settings.ReferralWelcomeBonus > 0 {
			if _, _, err := creditPlayerTx(tx, playerID, int64(settings.ReferralWelcomeBonus)); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Account{
		AccountID:    accountID,
		Username:     username,
		DisplayName:  displayName,
		PlayerID:     playerID,
		ReferralCode: ownCode,
		Role:         RoleUser,
	}, nil
}

func authenticate(db *sql.DB, username string, password string) (*Account, error) {
	username = strings.TrimSpace(strings.ToLower(username))

	var account Account
	var hash string
	var avatar sql.NullString
	if err := db.QueryRow(`
		SELECT account_id, username, display_name, avatar_url, player_id, referral_code, password_hash, role
		FROM accounts
		WHERE username = $1
	`, username).Scan(&account.AccountID, &account.Username, &account.DisplayName, &avatar, &account.PlayerID, &account.ReferralCode, &hash, &account.Role); err != nil {
		if err == sql.ErrNoRows {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if avatar.Valid {
		account.AvatarURL = avatar.String
	}
	account.Role = normalizeRole(account.Role)

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, errInvalidCredentials
	}

	_, _ = db.Exec(`
		UPDATE accounts
		SET last_login_at = NOW()
		WHERE account_id = $1
	`, account.AccountID)

	return &account, nil
}

func findAccountByUsername(db *sql.DB, username string) (*Account, error) {
	username = strings.TrimSpace(strings.ToLower(username))

	var account Account
	var avatar sql.NullString
	err := db.QueryRow(`
		SELECT account_id, username, display_name, avatar_url, player_id, referral_code, role
		FROM accounts
		WHERE username = $1
	`, username).Scan(&account.AccountID, &account.Username, &account.DisplayName, &avatar, &account.PlayerID, &account.ReferralCode, &account.Role)
	if err == sql.ErrNoRows {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if avatar.Valid {
		account.AvatarURL = avatar.String
	}
	account.Role = normalizeRole(account.Role)
	return &account, nil
}

func createSession(db *sql.DB, accountID string) (string, time.Time, error) {
	sessionID, err := randomToken(24)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Now().UTC().Add(sessionTTL)
	_, err = db.Exec(`
		INSERT INTO sessions (session_id, account_id, expires_at)
		VALUES ($1, $2, $3)
	`, sessionID, accountID, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}

	return sessionID, expiresAt, nil
}

func clearSession(db *sql.DB, sessionID string) {
	_, _ = db.Exec(`
		DELETE FROM sessions
		WHERE session_id = $1
	`, sessionID)
}

func getSessionAccount(db *sql.DB, r *http.Request) (*Account, string, error) {
	cookie, err := r.Cookie("session_id")
	if err != nil {
		return nil, "", err
	}

	var account Account
	var avatar sql.NullString
	var expiresAt time.Time
	if err := db.QueryRow(`
		SELECT a.account_id, a.username, a.display_name, a.avatar_url, a.player_id, a.referral_code, a.role, s.expires_at
		FROM sessions s
		JOIN accounts a ON a.account_id = s.account_id
		WHERE s.session_id = $1
	`, cookie.Value).Scan(&account.AccountID, &account.Username, &account.DisplayName, &avatar, &account.PlayerID, &account.ReferralCode, &account.Role, &expiresAt); err != nil {
		return nil, "", err
	}
	if avatar.Valid {
		account.AvatarURL = avatar.String
	}
	account.Role = normalizeRole(account.Role)

	if time.Now().UTC().After(expiresAt) {
		clearSession(db, cookie.Value)
		return nil, "", errSessionExpired
	}

	return &account, cookie.Value, nil
}

func writeSessionCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session_id",
		Value:    sessionID,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session_id",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func randomToken(bytesLen int) (string, error) {
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func normalizeRole(role string) string {
	switch strings.ToLower(role) {
	case RoleOwner:
		return RoleOwner
	default:
		return RoleUser
	}
}
