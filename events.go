package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

type liveSnapshot struct {
	ServerTime    string `json:"serverTime"`
	Authenticated bool   `json:"authenticated"`
	Players       int64  `json:"players"`
	Coins         int64  `json:"coins,omitempty"`
	Energy        int    `json:"energy,omitempty"`
	PendingGifts  int    `json:"pendingGifts,omitempty"`
	League        string `json:"league,omitempty"`
}

func buildLiveSnapshot(db *sql.DB, r *http.Request) liveSnapshot {
	now := time.Now().UTC()

	snapshot := liveSnapshot{
		ServerTime: now.Format(time.RFC3339),
	}
	_ = db.QueryRow(`SELECT COUNT(*) FROM players`).Scan(&snapshot.Players)

	if account, _, err := getSessionAccount(db, r); err == nil && account != nil {
		snapshot.Authenticated = true
		if player, err := LoadPlayer(db, account.PlayerID); err == nil && player != nil {
			snapshot.Coins = player.Coins
			snapshot.Energy = player.Energy
			snapshot.League = LeagueFor(player.LifetimeEarned).LeagueID
		}
		if pending, err := countPendingGifts(db, account.PlayerID); err == nil {
			snapshot.PendingGifts = pending
		}
	}

	return snapshot
}

func eventsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		sendSnapshot := func() bool {
			payload, err := json.Marshal(buildLiveSnapshot(db, r))
			if err != nil {
				return false
			}
			if _, err := w.Write([]byte("event: snapshot\n")); err != nil {
				return false
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return false
			}
			if _, err := w.Write(payload); err != nil {
				return false
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return false
			}
			flusher.Flush()
			return true
		}

		if !sendSnapshot() {
			return
		}

		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !sendSnapshot() {
					return
				}
			}
		}
	}
}
