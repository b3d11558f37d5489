package main

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coindrop_purchases_total",
		Help: "Committed purchases by kind.",
	}, []string{"kind"})

	giftsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coindrop_gifts_sent_total",
		Help: "Gift records created.",
	})

	giftsClaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coindrop_gifts_claimed_total",
		Help: "Gift records claimed.",
	})

	cratesOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coindrop_crates_opened_total",
		Help: "Crates consumed for a draw.",
	})

	tapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coindrop_taps_total",
		Help: "Taps credited to players.",
	})

	playersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coindrop_players",
		Help: "Registered players.",
	})

	pendingGiftsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coindrop_pending_gifts",
		Help: "Gift records currently pending.",
	})
)

func refreshMetricsGauges(db *sql.DB) {
	var players int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM players`).Scan(&players); err == nil {
		playersGauge.Set(float64(players))
	}

	var pending int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM gifts WHERE status = 'pending'`).Scan(&pending); err == nil {
		pendingGiftsGauge.Set(float64(pending))
	}
}
