package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

/* ======================
   Request / Response Types
   ====================== */

type SimpleResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type SignupRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	DisplayName  string `json:"displayName,omitempty"`
	ReferralCode string `json:"referralCode,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	OK                bool   `json:"ok"`
	Error             string `json:"error,omitempty"`
	Username          string `json:"username,omitempty"`
	DisplayName       string `json:"displayName,omitempty"`
	PlayerID          string `json:"playerId,omitempty"`
	ReferralCode      string `json:"referralCode,omitempty"`
	Role              string `json:"role,omitempty"`
	AvatarURL         string `json:"avatarUrl,omitempty"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

type StateResponse struct {
	OK                      bool    `json:"ok"`
	Error                   string  `json:"error,omitempty"`
	Coins                   int64   `json:"coins"`
	LifetimeEarned          int64   `json:"lifetimeEarned"`
	Energy                  int     `json:"energy"`
	MaxEnergy               int     `json:"maxEnergy"`
	ActiveSkin              string  `json:"activeSkin"`
	League                  League  `json:"league"`
	NextLeague              *League `json:"nextLeague,omitempty"`
	PendingGifts            int     `json:"pendingGifts"`
	PendingReferralBonus    int64   `json:"pendingReferralBonus"`
	DailyBonusReady         bool    `json:"dailyBonusReady"`
	NextDailyClaimInSeconds int64   `json:"nextDailyClaimInSeconds,omitempty"`
}

type TapRequest struct {
	Taps int `json:"taps"`
}

type TapResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Granted int64  `json:"granted"`
	Energy  int    `json:"energy"`
	Coins   int64  `json:"coins"`
}

type DailyClaimResponse struct {
	OK                     bool   `json:"ok"`
	Error                  string `json:"error,omitempty"`
	Reward                 int64  `json:"reward,omitempty"`
	Coins                  int64  `json:"coins,omitempty"`
	NextAvailableInSeconds int64  `json:"nextAvailableInSeconds,omitempty"`
}

type MintsResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Mints []Mint `json:"mints"`
}

type MintResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Mint  *Mint  `json:"mint,omitempty"`
}

type CratesResponse struct {
	OK     bool    `json:"ok"`
	Error  string  `json:"error,omitempty"`
	Crates []Crate `json:"crates"`
}

type SkinsResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Skins []Skin `json:"skins"`
}

type LeaguesResponse struct {
	OK      bool     `json:"ok"`
	Leagues []League `json:"leagues"`
}

type MilestonesResponse struct {
	OK       bool               `json:"ok"`
	Error    string             `json:"error,omitempty"`
	Progress *MilestoneProgress `json:"progress,omitempty"`
}

type BuyMintRequest struct {
	MintID string `json:"mintId"`
}

type BuyMintResponse struct {
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Instance *MintInstance `json:"instance,omitempty"`
	Coins    int64         `json:"coins,omitempty"`
}

type BuyCrateRequest struct {
	CrateID string `json:"crateId"`
}

type BuyCrateResponse struct {
	OK       bool           `json:"ok"`
	Error    string         `json:"error,omitempty"`
	Instance *CrateInstance `json:"instance,omitempty"`
	Coins    int64          `json:"coins,omitempty"`
}

type OpenCrateRequest struct {
	InstanceID string `json:"instanceId"`
}

type OpenCrateResponse struct {
	OK    bool          `json:"ok"`
	Error string        `json:"error,omitempty"`
	Mint  *MintInstance `json:"mint,omitempty"`
}

type BuySkinRequest struct {
	SkinID string `json:"skinId"`
}

type BuySkinResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Coins int64  `json:"coins,omitempty"`
}

type SelectSkinRequest struct {
	SkinID string `json:"skinId"`
}

type InventoryResponse struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Mints  []MintInstance  `json:"mints"`
	Crates []CrateInstance `json:"crates"`
	Skins  []string        `json:"skins"`
}

type SendGiftRequest struct {
	InstanceID string `json:"instanceId"`
	Recipient  string `json:"recipient"`
}

type SendGiftResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Gift  *Gift  `json:"gift,omitempty"`
}

type ClaimGiftRequest struct {
	GiftID string `json:"giftId"`
}

type ClaimGiftResponse struct {
	OK    bool          `json:"ok"`
	Error string        `json:"error,omitempty"`
	Mint  *MintInstance `json:"mint,omitempty"`
}

type GiftsResponse struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Incoming []Gift `json:"incoming"`
	Sent     []Gift `json:"sent"`
}

type ReferralStatusResponse struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Status *ReferralStatus `json:"status,omitempty"`
}

type ReferralClaimResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Total int64  `json:"total"`
	Count int    `json:"count"`
}

type MilestoneClaimRequest struct {
	TierID string `json:"tierId"`
}

type MilestoneClaimResponse struct {
	OK             bool   `json:"ok"`
	Error          string `json:"error,omitempty"`
	Coins          int64  `json:"coins,omitempty"`
	LifetimeEarned int64  `json:"lifetimeEarned,omitempty"`
}

type NotificationsResponse struct {
	OK            bool           `json:"ok"`
	Error         string         `json:"error,omitempty"`
	Notifications []Notification `json:"notifications"`
}

type NotificationAckRequest struct {
	IDs []int64 `json:"ids"`
}

type TelemetryRequest struct {
	Event  string `json:"event"`
	Detail string `json:"detail,omitempty"`
}

type PurchaseLogEntry struct {
	Kind        string    `json:"kind"`
	RefID       string    `json:"refId"`
	Price       int64     `json:"price"`
	CoinsBefore int64     `json:"coinsBefore"`
	CoinsAfter  int64     `json:"coinsAfter"`
	CreatedAt   time.Time `json:"createdAt"`
}

type PurchaseHistoryResponse struct {
	OK      bool               `json:"ok"`
	Error   string             `json:"error,omitempty"`
	Entries []PurchaseLogEntry `json:"entries"`
}

type ProfileUpdateRequest struct {
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Email       string `json:"email,omitempty"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type AdminCreateResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	ID    string `json:"id,omitempty"`
}

type AdminSettingsResponse struct {
	OK       bool         `json:"ok"`
	Error    string       `json:"error,omitempty"`
	Settings GameSettings `json:"settings"`
}

type AdminGrantRequest struct {
	Username string `json:"username"`
	Amount   int64  `json:"amount"`
}

type AdminGrantResponse struct {
	OK             bool   `json:"ok"`
	Error          string `json:"error,omitempty"`
	Coins          int64  `json:"coins,omitempty"`
	LifetimeEarned int64  `json:"lifetimeEarned,omitempty"`
}

type AdminPlayerSearchEntry struct {
	Username       string    `json:"username"`
	DisplayName    string    `json:"displayName"`
	Role           string    `json:"role"`
	PlayerID       string    `json:"playerId"`
	Coins          int64     `json:"coins"`
	LifetimeEarned int64     `json:"lifetimeEarned"`
	LastActiveAt   time.Time `json:"lastActiveAt"`
}

type AdminPlayerSearchResponse struct {
	OK      bool                     `json:"ok"`
	Error   string                   `json:"error,omitempty"`
	Results []AdminPlayerSearchEntry `json:"results"`
}

type AdminPurchaseLogEntry struct {
	PlayerID    string    `json:"playerId"`
	Kind        string    `json:"kind"`
	RefID       string    `json:"refId"`
	Price       int64     `json:"price"`
	CoinsBefore int64     `json:"coinsBefore"`
	CoinsAfter  int64     `json:"coinsAfter"`
	CreatedAt   time.Time `json:"createdAt"`
}

type AdminPurchaseLogResponse struct {
	OK      bool                    `json:"ok"`
	Error   string                  `json:"error,omitempty"`
	Entries []AdminPurchaseLogEntry `json:"entries"`
}

type AdminTelemetryResponse struct {
	OK          bool             `json:"ok"`
	Error       string           `json:"error,omitempty"`
	EventCounts map[string]int64 `json:"eventCounts"`
}

/* ======================
   main()
   ====================== */

func main() {
	cfg, err := loadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("config load failed")
	}
	configureLogging(cfg)
	logrus.WithField("env", cfg.Env).Info("starting coindrop")

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open database")
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("failed to ping database")
	}
	logrus.Info("connected to PostgreSQL")

	if err := runMigrations(db); err != nil {
		logrus.WithError(err).Fatal("migrations failed")
	}

	ctx := context.Background()
	lockConn, acquired, err := acquireStartupLock(ctx, db)
	if err != nil {
		logrus.WithError(err).Fatal("failed to acquire startup lock")
	}
	if acquired {
		startupLockConn = lockConn
		logrus.Info("startup lock acquired; running leader-only initialization")
		if err := ensureOwnerAccount(ctx, db, cfg); err != nil {
			logrus.WithError(err).Fatal("owner bootstrap failed")
		}
	} else {
		logrus.Info("startup lock held by another instance; skipping leader-only initialization")
	}

	if err := LoadGameSettings(db); err != nil {
		logrus.WithError(err).Warn("failed to load game settings; using defaults")
	}

	if acquired {
		go runMaintenanceLoop(db)
	}

	router := mux.NewRouter()
	registerRoutes(router, db, cfg)

	addr := "0.0.0.0:" + cfg.Port
	logrus.WithField("addr", addr).Info("listening")
	if err := http.ListenAndServe(addr, router); err != nil {
		logrus.WithError(err).Fatal("server failed")
	}
}

/* ======================
   Routes
   ====================== */

func registerRoutes(router *mux.Router, db *sql.DB, cfg Config) {
	router.HandleFunc("/health", healthHandler(db)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/events", eventsHandler(db)).Methods(http.MethodGet)

	router.HandleFunc("/auth/signup", signupHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", loginHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/auth/logout", logoutHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/auth/me", meHandler(db)).Methods(http.MethodGet)
	router.HandleFunc("/auth/request-reset", requestPasswordResetHandler(db, cfg)).Methods(http.MethodPost)
	router.HandleFunc("/auth/reset-password", resetPasswordHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/profile", profileUpdateHandler(db)).Methods(http.MethodPost)

	router.HandleFunc("/state", stateHandler(db)).Methods(http.MethodGet)
	router.HandleFunc("/tap", tapHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/claim-daily", dailyClaimHandler(db)).Methods(http.MethodPost)

	router.HandleFunc("/shop/mints", mintsHandler(db)).Methods(http.MethodGet)
	router.HandleFunc("/shop/mints/{id}", mintDetailHandler(db)).Methods(http.MethodGet)
	router.HandleFunc("/shop/crates", cratesHandler(db)).Methods(http.MethodGet)
	router.HandleFunc("/shop/skins", skinsHandler(db)).Methods(http.MethodGet)
	router.HandleFunc("/shop/buy-mint", buyMintHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/shop/buy-crate", buyCrateHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/shop/buy-skin", buySkinHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/crates/open", openCrateHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/skins/select", selectSkinHandler(db)).Methods(http.MethodPost)

	router.HandleFunc("/inventory", inventoryHandler(db)).Methods(http.MethodGet)
	router.HandleFunc("/purchases", purchaseHistoryHandler(db)).Methods(http.MethodGet)

	router.HandleFunc("/gifts", giftsHandler(db)).Methods(http.MethodGet)
	router.HandleFunc("/gifts/send", sendGiftHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/gifts/claim", claimGiftHandler(db)).Methods(http.MethodPost)

	router.HandleFunc("/referrals", referralStatusHandler(db)).Methods(http.MethodGet)
	router.HandleFunc("/referrals/claim", claimReferralsHandler(db)).Methods(http.MethodPost)

	router.HandleFunc("/milestones", milestonesHandler(db)).Methods(http.MethodGet)
	router.HandleFunc("/milestones/claim", claimMilestoneHandler(db)).Methods(http.MethodPost)

	router.HandleFunc("/leagues", leaguesHandler()).Methods(http.MethodGet)
	router.HandleFunc("/leaderboard", leaderboardHandler(db)).Methods(http.MethodGet)

	router.HandleFunc("/notifications", notificationsHandler(db)).Methods(http.MethodGet)
	router.HandleFunc("/notifications/ack", notificationsAckHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/telemetry", telemetryHandler(db)).Methods(http.MethodPost)

	router.HandleFunc("/admin/mints", adminCreateMintHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/admin/mints/{id}", adminDeleteMintHandler(db)).Methods(http.MethodDelete)
	router.HandleFunc("/admin/crates", adminCreateCrateHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/admin/crates/{id}", adminDeleteCrateHandler(db)).Methods(http.MethodDelete)
	router.HandleFunc("/admin/skins", adminCreateSkinHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/admin/skins/{id}", adminDeleteSkinHandler(db)).Methods(http.MethodDelete)
	router.HandleFunc("/admin/milestones", adminCreateMilestoneHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/admin/milestones/{id}", adminDeleteMilestoneHandler(db)).Methods(http.MethodDelete)
	router.HandleFunc("/admin/settings", adminSettingsHandler(db)).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/admin/grant-coins", adminGrantCoinsHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/admin/set-coins", adminSetCoinsHandler(db)).Methods(http.MethodPost)
	router.HandleFunc("/admin/player-search", adminPlayerSearchHandler(db)).Methods(http.MethodGet)
	router.HandleFunc("/admin/purchases", adminPurchaseLogHandler(db)).Methods(http.MethodGet)
	router.HandleFunc("/admin/telemetry", adminTelemetryHandler(db)).Methods(http.MethodGet)
}
