package main

import (
	"os"
	"strings"
	"sync"
)

// Feature flags come from the environment and are fixed for the lifetime of
// the process. Runtime-tunable knobs live in GameSettings instead.
type FeatureFlags struct {
	SignupsOpen    bool
	CratesEnabled  bool
	LeaguesEnabled bool
	TelemetryOpen  bool
}

var (
	flagsOnce sync.Once
	flags     FeatureFlags
)

func getFeatureFlags() FeatureFlags {
	flagsOnce.Do(func() {
		flags = FeatureFlags{
			SignupsOpen:    envFlag("FEATURE_SIGNUPS_OPEN", true),
			CratesEnabled:  envFlag("FEATURE_CRATES", true),
			LeaguesEnabled: envFlag("FEATURE_LEAGUES", true),
			TelemetryOpen:  envFlag("FEATURE_TELEMETRY", true),
		}
	})
	return flags
}

func envFlag(key string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch raw {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
