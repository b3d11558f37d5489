package main

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

func signupHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !getFeatureFlags().SignupsOpen {
			writeJSON(w, AuthResponse{OK: false, Error: "SIGNUPS_CLOSED"})
			return
		}

		limit, window := authRateLimitConfig("signup")
		allowed, retryAfter, err := checkAuthRateLimit(db, getClientIP(r), "signup", limit, window)
		if err != nil {
			logrus.WithError(err).Warn("signup rate limit check failed")
		} else if !allowed {
			w.WriteHeader(http.StatusTooManyRequests)
			writeJSON(w, AuthResponse{OK: false, Error: "RATE_LIMITED", RetryAfterSeconds: retryAfter})
			return
		}

		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, AuthResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		account, err := createAccount(db, req.Username, req.Password, req.DisplayName, req.ReferralCode)
		if err != nil {
			writeJSON(w, AuthResponse{OK: false, Error: errorCode(err)})
			return
		}

		sessionID, expiresAt, err := createSession(db, account.AccountID)
		if err != nil {
			writeJSON(w, AuthResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		writeSessionCookie(w, sessionID, expiresAt)

		logrus.WithField("username", account.Username).Info("account created")
		writeJSON(w, AuthResponse{
			OK:           true,
			Username:     account.Username,
			DisplayName:  account.DisplayName,
			PlayerID:     account.PlayerID,
			ReferralCode: account.ReferralCode,
			Role:         account.Role,
		})
	}
}

func loginHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, window := authRateLimitConfig("login")
		allowed, retryAfter, err := checkAuthRateLimit(db, getClientIP(r), "login", limit, window)
		if err != nil {
			logrus.WithError(err).Warn("login rate limit check failed")
		} else if !allowed {
			w.WriteHeader(http.StatusTooManyRequests)
			writeJSON(w, AuthResponse{OK: false, Error: "RATE_LIMITED", RetryAfterSeconds: retryAfter})
			return
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, AuthResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		account, err := authenticate(db, req.Username, req.Password)
		if err != nil {
			writeJSON(w, AuthResponse{OK: false, Error: errorCode(err)})
			return
		}

		sessionID, expiresAt, err := createSession(db, account.AccountID)
		if err != nil {
			writeJSON(w, AuthResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		writeSessionCookie(w, sessionID, expiresAt)

		writeJSON(w, AuthResponse{
			OK:           true,
			Username:     account.Username,
			DisplayName:  account.DisplayName,
			PlayerID:     account.PlayerID,
			ReferralCode: account.ReferralCode,
			Role:         account.Role,
		})
	}
}

func logoutHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("session_id"); err == nil {
			clearSession(db, cookie.Value)
		}
		clearSessionCookie(w)
		writeJSON(w, SimpleResponse{OK: true})
	}
}

func meHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, _, err := getSessionAccount(db, r)
		if err != nil {
			writeJSON(w, AuthResponse{OK: false, Error: "UNAUTHORIZED"})
			return
		}
		writeJSON(w, AuthResponse{
			OK:           true,
			Username:     account.Username,
			DisplayName:  account.DisplayName,
			PlayerID:     account.PlayerID,
			ReferralCode: account.ReferralCode,
			Role:         account.Role,
			AvatarURL:    account.AvatarURL,
		})
	}
}

func profileUpdateHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		var req ProfileUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}
		if req.DisplayName == "" {
			req.DisplayName = account.DisplayName
		}

		if err := updateAccountProfile(db, account.AccountID, req.DisplayName, req.AvatarURL, req.Email); err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, SimpleResponse{OK: true})
	}
}

func requestPasswordResetHandler(db *sql.DB, cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PasswordResetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		token, err := createPasswordReset(db, req.Email)
		if err == nil {
			if mailErr := sendPasswordResetEmail(cfg, req.Email, token); mailErr != nil {
				logrus.WithError(mailErr).Warn("password reset email failed")
			}
		} else if err != errUserNotFound {
			logrus.WithError(err).Warn("password reset request failed")
		}

		// Uniform answer; the response never reveals whether the address exists.
		writeJSON(w, SimpleResponse{OK: true})
	}
}

func resetPasswordHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PasswordResetConfirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		if err := resetPassword(db, req.Token, req.NewPassword); err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, SimpleResponse{OK: true})
	}
}
