package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// requireOwner resolves the session and rejects anyone below the owner role.
func requireOwner(db *sql.DB, w http.ResponseWriter, r *http.Request) (*Account, bool) {
	account, _, err := getSessionAccount(db, r)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, SimpleResponse{OK: false, Error: "UNAUTHORIZED"})
		return nil, false
	}
	if account.Role != RoleOwner {
		w.WriteHeader(http.StatusForbidden)
		writeJSON(w, SimpleResponse{OK: false, Error: "FORBIDDEN"})
		return nil, false
	}
	return account, true
}

/* ======================
   Catalog management
   ====================== */

func adminCreateMintHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireOwner(db, w, r)
		if !ok {
			return
		}

		var req Mint
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, AdminCreateResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		id, err := CreateMint(db, req)
		if err != nil {
			writeJSON(w, AdminCreateResponse{OK: false, Error: errorCode(err)})
			return
		}
		logrus.WithFields(logrus.Fields{"owner": account.Username, "mintId": id}).Info("mint created")
		writeJSON(w, AdminCreateResponse{OK: true, ID: id})
	}
}

func adminDeleteMintHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireOwner(db, w, r); !ok {
			return
		}
		if err := DeleteMint(db, mux.Vars(r)["id"]); err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, SimpleResponse{OK: true})
	}
}

func adminCreateCrateHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireOwner(db, w, r); !ok {
			return
		}

		var req Crate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, AdminCreateResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		id, err := CreateCrate(db, req)
		if err != nil {
			writeJSON(w, AdminCreateResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, AdminCreateResponse{OK: true, ID: id})
	}
}

func adminDeleteCrateHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireOwner(db, w, r); !ok {
			return
		}
		if err := DeleteCrate(db, mux.Vars(r)["id"]); err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, SimpleResponse{OK: true})
	}
}

func adminCreateSkinHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireOwner(db, w, r); !ok {
			return
		}

		var req Skin
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, AdminCreateResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		id, err := CreateSkin(db, req)
		if err != nil {
			writeJSON(w, AdminCreateResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, AdminCreateResponse{OK: true, ID: id})
	}
}

func adminDeleteSkinHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireOwner(db, w, r); !ok {
			return
		}
		if err := DeleteSkin(db, mux.Vars(r)["id"]); err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, SimpleResponse{OK: true})
	}
}

func adminCreateMilestoneHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireOwner(db, w, r); !ok {
			return
		}

		var req Milestone
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, AdminCreateResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		if err := CreateMilestone(db, req); err != nil {
			writeJSON(w, AdminCreateResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, AdminCreateResponse{OK: true, ID: req.TierID})
	}
}

func adminDeleteMilestoneHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireOwner(db, w, r); !ok {
			return
		}
		if err := DeleteMilestone(db, mux.Vars(r)["id"]); err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, SimpleResponse{OK: true})
	}
}

/* ======================
   Settings and player controls
   ====================== */

func adminSettingsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireOwner(db, w, r); !ok {
			return
		}

		if r.Method == http.MethodGet {
			writeJSON(w, AdminSettingsResponse{OK: true, Settings: GetGameSettings()})
			return
		}

		var updates map[string]string
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			writeJSON(w, AdminSettingsResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		settings, err := UpdateGameSettings(db, updates)
		if err != nil {
			writeJSON(w, AdminSettingsResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		writeJSON(w, AdminSettingsResponse{OK: true, Settings: settings})
	}
}

func adminGrantCoinsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireOwner(db, w, r)
		if !ok {
			return
		}

		var req AdminGrantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, AdminGrantResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}
		if req.Amount <= 0 {
			writeJSON(w, AdminGrantResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		target, err := findAccountByUsername(db, req.Username)
		if err != nil {
			writeJSON(w, AdminGrantResponse{OK: false, Error: errorCode(err)})
			return
		}

		coins, lifetime, err := grantCoins(db, target.PlayerID, req.Amount)
		if err != nil {
			writeJSON(w, AdminGrantResponse{OK: false, Error: errorCode(err)})
			return
		}

		logrus.WithFields(logrus.Fields{
			"owner":  account.Username,
			"target": target.Username,
			"amount": req.Amount,
		}).Info("owner coin grant")
		writeJSON(w, AdminGrantResponse{OK: true, Coins: coins, LifetimeEarned: lifetime})
	}
}

func adminSetCoinsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireOwner(db, w, r)
		if !ok {
			return
		}

		var req AdminGrantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, AdminGrantResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}
		if req.Amount < 0 {
			writeJSON(w, AdminGrantResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		target, err := findAccountByUsername(db, req.Username)
		if err != nil {
			writeJSON(w, AdminGrantResponse{OK: false, Error: errorCode(err)})
			return
		}

		coins, lifetime, err := setCoins(db, target.PlayerID, req.Amount)
		if err != nil {
			writeJSON(w, AdminGrantResponse{OK: false, Error: errorCode(err)})
			return
		}

		logrus.WithFields(logrus.Fields{
			"owner":  account.Username,
			"target": target.Username,
			"coins":  req.Amount,
		}).Info("owner coin set")
		writeJSON(w, AdminGrantResponse{OK: true, Coins: coins, LifetimeEarned: lifetime})
	}
}

// setCoins overwrites the spendable balance. Lifetime earnings stay put so
// leaderboard and milestone progress are unaffected.
func setCoins(db *sql.DB, playerID string, value int64) (int64, int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	_, lifetime, err := lockPlayerCoins(tx, playerID)
	if err != nil {
		return 0, 0, err
	}
	if _, err := tx.Exec(`
		UPDATE players
		SET coins = $2, updated_at = NOW()
		WHERE player_id = $1
	`, playerID, value); err != nil {
		return 0, 0, err
	}
	return value, lifetime, tx.Commit()
}

func grantCoins(db *sql.DB, playerID string, amount int64) (int64, int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	coins, lifetime, err := creditPlayerTx(tx, playerID, amount)
	if err != nil {
		return 0, 0, err
	}
	return coins, lifetime, tx.Commit()
}

func adminPlayerSearchHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireOwner(db, w, r); !ok {
			return
		}

		query := r.URL.Query().Get("q")
		rows, err := db.Query(`
			SELECT a.username, a.display_name, a.role, p.player_id, p.coins, p.lifetime_earned, p.last_active_at
			FROM accounts a
			JOIN players p ON p.player_id = a.player_id
			WHERE a.username ILIKE $1 OR a.display_name ILIKE $1
			ORDER BY a.username ASC
			LIMIT 50
		`, "%"+query+"%")
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		defer rows.Close()

		results := []AdminPlayerSearchEntry{}
		for rows.Next() {
			var e AdminPlayerSearchEntry
			if err := rows.Scan(&e.Username, &e.DisplayName, &e.Role, &e.PlayerID, &e.Coins, &e.LifetimeEarned, &e.LastActiveAt); err != nil {
				continue
			}
			results = append(results, e)
		}
		writeJSON(w, AdminPlayerSearchResponse{OK: true, Results: results})
	}
}

func adminPurchaseLogHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireOwner(db, w, r); !ok {
			return
		}

		playerID := r.URL.Query().Get("player")
		if playerID != "" && !isValidPlayerID(playerID) {
			writeJSON(w, SimpleResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}
		limit := parsePositiveInt(r.URL.Query().Get("limit"), 100)
		if limit > 500 {
			limit = 500
		}

		var (
			rows *sql.Rows
			err  error
		)
		if playerID != "" {
			rows, err = db.Query(`
				SELECT player_id, kind, ref_id, price, coins_before, coins_after, created_at
				FROM purchase_log
				WHERE player_id = $1
				ORDER BY created_at DESC
				LIMIT $2
			`, playerID, limit)
		} else {
			rows, err = db.Query(`
				SELECT player_id, kind, ref_id, price, coins_before, coins_after, created_at
				FROM purchase_log
				ORDER BY created_at DESC
				LIMIT $1
			`, limit)
		}
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		defer rows.Close()

		entries := []AdminPurchaseLogEntry{}
		for rows.Next() {
			var e AdminPurchaseLogEntry
			var createdAt time.Time
			if err := rows.Scan(&e.PlayerID, &e.Kind, &e.RefID, &e.Price, &e.CoinsBefore, &e.CoinsAfter, &createdAt); err != nil {
				continue
			}
			e.CreatedAt = createdAt.UTC()
			entries = append(entries, e)
		}
		writeJSON(w, AdminPurchaseLogResponse{OK: true, Entries: entries})
	}
}

func adminTelemetryHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireOwner(db, w, r); !ok {
			return
		}

		rows, err := db.Query(`
			SELECT event, COUNT(*)
			FROM player_telemetry
			WHERE created_at > NOW() - INTERVAL '24 hours'
			GROUP BY event
			ORDER BY COUNT(*) DESC
		`)
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		defer rows.Close()

		counts := map[string]int64{}
		for rows.Next() {
			var event string
			var count int64
			if err := rows.Scan(&event, &count); err != nil {
				continue
			}
			counts[event] = count
		}
		writeJSON(w, AdminTelemetryResponse{OK: true, EventCounts: counts})
	}
}
