package main

import (
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Env         string `env:"APP_ENV,default=local"`
	Port        string `env:"PORT,default=8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	DevMode     bool   `env:"DEV_MODE,default=false"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	BaseURL     string `env:"BASE_URL,default=http://localhost:8080"`

	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=5"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`

	OwnerBootstrapPassword string `env:"OWNER_BOOTSTRAP_PASSWORD,default="`

	SMTPHost string `env:"SMTP_HOST,default="`
	SMTPPort int    `env:"SMTP_PORT,default=587"`
	SMTPUser string `env:"SMTP_USER,default="`
	SMTPPass string `env:"SMTP_PASS,default="`
	SMTPFrom string `env:"SMTP_FROM,default="`
}

func loadConfig() (Config, error) {
	// .env is optional; deployments set real environment variables.
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	return cfg, nil
}

func configureLogging(cfg Config) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.DevMode {
		logrus.Warn("dev mode enabled")
	}
}
