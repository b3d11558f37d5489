package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// requireAccount resolves the session or writes the error response itself.
func requireAccount(db *sql.DB, w http.ResponseWriter, r *http.Request) (*Account, bool) {
	account, _, err := getSessionAccount(db, r)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, SimpleResponse{OK: false, Error: "UNAUTHORIZED"})
		return nil, false
	}
	return account, true
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("db down"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

func stateHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		player, err := LoadPlayer(db, account.PlayerID)
		if err != nil || player == nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}

		pendingGifts, _ := countPendingGifts(db, account.PlayerID)
		referrals, err := LoadReferralStatus(db, account)
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}

		settings := GetGameSettings()
		cooldown := time.Duration(settings.DailyBonusCooldownHours) * time.Hour
		dailyReady, wait, err := CanClaimCooldown(db, account.PlayerID, CooldownDailyBonus, cooldown)
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}

		response := StateResponse{
			OK:                      true,
			Coins:                   player.Coins,
			LifetimeEarned:          player.LifetimeEarned,
			Energy:                  player.Energy,
			MaxEnergy:               settings.MaxEnergy,
			ActiveSkin:              player.ActiveSkin,
			League:                  LeagueFor(player.LifetimeEarned),
			NextLeague:              NextLeague(player.LifetimeEarned),
			PendingGifts:            pendingGifts,
			PendingReferralBonus:    referrals.PendingBonus,
			DailyBonusReady:         dailyReady,
			NextDailyClaimInSeconds: int64(wait.Seconds()),
		}
		writeJSON(w, response)
	}
}

func tapHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}
		if !tapLimits.Allow(account.PlayerID) {
			w.WriteHeader(http.StatusTooManyRequests)
			writeJSON(w, SimpleResponse{OK: false, Error: "RATE_LIMITED"})
			return
		}

		var req TapRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, TapResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		granted, energy, coins, err := ApplyTaps(db, account.PlayerID, req.Taps)
		if err != nil {
			logrus.WithError(err).Warn("tap failed")
			writeJSON(w, TapResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, TapResponse{OK: true, Granted: granted, Energy: energy, Coins: coins})
	}
}

func dailyClaimHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		reward, coins, remaining, err := ClaimDailyBonus(db, account.PlayerID)
		if err == errCooldown {
			writeJSON(w, DailyClaimResponse{
				OK:                     false,
				Error:                  errorCode(err),
				NextAvailableInSeconds: int64(remaining.Seconds()),
			})
			return
		}
		if err != nil {
			writeJSON(w, DailyClaimResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, DailyClaimResponse{OK: true, Reward: reward, Coins: coins})
	}
}

/* ======================
   Shop
   ====================== */

func mintsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mints, err := ListMints(db)
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		writeJSON(w, MintsResponse{OK: true, Mints: mints})
	}
}

func cratesHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		crates, err := ListCrates(db)
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		writeJSON(w, CratesResponse{OK: true, Crates: crates})
	}
}

func skinsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skins, err := ListSkins(db)
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		writeJSON(w, SkinsResponse{OK: true, Skins: skins})
	}
}

func leaguesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !getFeatureFlags().LeaguesEnabled {
			writeJSON(w, SimpleResponse{OK: false, Error: "FEATURE_DISABLED"})
			return
		}
		writeJSON(w, LeaguesResponse{OK: true, Leagues: AllLeagues()})
	}
}

func milestonesHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}
		progress, err := LoadMilestoneProgress(db, account.PlayerID)
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, MilestonesResponse{OK: true, Progress: progress})
	}
}

func mintDetailHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mint, err := LoadMint(db, mux.Vars(r)["id"])
		if err != nil {
			writeJSON(w, MintResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, MintResponse{OK: true, Mint: mint})
	}
}

func buyMintHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		var req BuyMintRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, BuyMintResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		instance, coins, err := BuyMint(db, account.PlayerID, req.MintID)
		if err != nil {
			writeJSON(w, BuyMintResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, BuyMintResponse{OK: true, Instance: instance, Coins: coins})
	}
}

func buyCrateHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !getFeatureFlags().CratesEnabled {
			writeJSON(w, BuyCrateResponse{OK: false, Error: "FEATURE_DISABLED"})
			return
		}
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		var req BuyCrateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, BuyCrateResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		instance, coins, err := BuyCrate(db, account.PlayerID, req.CrateID)
		if err != nil {
			writeJSON(w, BuyCrateResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, BuyCrateResponse{OK: true, Instance: instance, Coins: coins})
	}
}

func openCrateHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !getFeatureFlags().CratesEnabled {
			writeJSON(w, OpenCrateResponse{OK: false, Error: "FEATURE_DISABLED"})
			return
		}
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		var req OpenCrateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, OpenCrateResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		mint, err := OpenCrate(db, account.PlayerID, req.InstanceID)
		if err != nil {
			writeJSON(w, OpenCrateResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, OpenCrateResponse{OK: true, Mint: mint})
	}
}

func buySkinHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		var req BuySkinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, BuySkinResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		coins, err := BuySkin(db, account.PlayerID, req.SkinID)
		if err != nil {
			writeJSON(w, BuySkinResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, BuySkinResponse{OK: true, Coins: coins})
	}
}

func selectSkinHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		var req SelectSkinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		if err := SelectSkin(db, account.PlayerID, req.SkinID); err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, SimpleResponse{OK: true})
	}
}

/* ======================
   Inventory
   ====================== */

func inventoryHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		mints, err := ListPlayerMints(db, account.PlayerID)
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		crates, err := ListPlayerCrates(db, account.PlayerID)
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		skins, err := ListPlayerSkins(db, account.PlayerID)
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		writeJSON(w, InventoryResponse{OK: true, Mints: mints, Crates: crates, Skins: skins})
	}
}

/* ======================
   Gifts
   ====================== */

func sendGiftHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		var req SendGiftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, SendGiftResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		gift, err := SendGift(db, account, req.InstanceID, req.Recipient)
		if err != nil {
			writeJSON(w, SendGiftResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, SendGiftResponse{OK: true, Gift: gift})
	}
}

func claimGiftHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		var req ClaimGiftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, ClaimGiftResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		mint, err := ClaimGift(db, account.PlayerID, req.GiftID)
		if err != nil {
			writeJSON(w, ClaimGiftResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, ClaimGiftResponse{OK: true, Mint: mint})
	}
}

func giftsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		incoming, err := ListIncomingGifts(db, account.PlayerID)
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		sent, err := ListSentGifts(db, account.PlayerID, 50)
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		writeJSON(w, GiftsResponse{OK: true, Incoming: incoming, Sent: sent})
	}
}

/* ======================
   Referrals and milestones
   ====================== */

func referralStatusHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		status, err := LoadReferralStatus(db, account)
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		writeJSON(w, ReferralStatusResponse{OK: true, Status: status})
	}
}

func claimReferralsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		total, count, err := ClaimReferralBonuses(db, account)
		if err != nil {
			writeJSON(w, ReferralClaimResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, ReferralClaimResponse{OK: true, Total: total, Count: count})
	}
}

func claimMilestoneHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		var req MilestoneClaimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, MilestoneClaimResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		coins, lifetime, err := ClaimMilestone(db, account.PlayerID, req.TierID)
		if err != nil {
			writeJSON(w, MilestoneClaimResponse{OK: false, Error: errorCode(err)})
			return
		}
		writeJSON(w, MilestoneClaimResponse{OK: true, Coins: coins, LifetimeEarned: lifetime})
	}
}

/* ======================
   Notifications and telemetry
   ====================== */

func notificationsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		items, err := ListNotifications(db, account.PlayerID, parsePositiveInt(r.URL.Query().Get("limit"), 50))
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		writeJSON(w, NotificationsResponse{OK: true, Notifications: items})
	}
}

func notificationsAckHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		var req NotificationAckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		if err := MarkNotificationsRead(db, account.PlayerID, req.IDs); err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		writeJSON(w, SimpleResponse{OK: true})
	}
}

func telemetryHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !getFeatureFlags().TelemetryOpen {
			writeJSON(w, SimpleResponse{OK: true})
			return
		}
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		var req TelemetryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		recordTelemetry(db, account.PlayerID, req.Event, req.Detail)
		writeJSON(w, SimpleResponse{OK: true})
	}
}

/* ======================
   Purchase history
   ====================== */

func purchaseHistoryHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := requireAccount(db, w, r)
		if !ok {
			return
		}

		limit := parsePositiveInt(r.URL.Query().Get("limit"), 50)
		if limit > 200 {
			limit = 200
		}

		rows, err := db.Query(`
			SELECT kind, ref_id, price, coins_before, coins_after, created_at
			FROM purchase_log
			WHERE player_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, account.PlayerID, limit)
		if err != nil {
			writeJSON(w, SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		defer rows.Close()

		entries := []PurchaseLogEntry{}
		for rows.Next() {
			var e PurchaseLogEntry
			var createdAt time.Time
			if err := rows.Scan(&e.Kind, &e.RefID, &e.Price, &e.CoinsBefore, &e.CoinsAfter, &createdAt); err != nil {
				continue
			}
			e.CreatedAt = createdAt.UTC()
			entries = append(entries, e)
		}
		writeJSON(w, PurchaseHistoryResponse{OK: true, Entries: entries})
	}
}
