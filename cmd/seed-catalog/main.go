// Command seed-catalog loads a demo catalog into the database: a handful of
// mints, two crates, and a few skins. Safe to re-run; existing rows are left
// alone.
package main

import (
	"database/sql"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type mintSeed struct {
	ID      string
	Name    string
	Rarity  float64
	Edition int
	Price   int64
}

type crateSeed struct {
	ID    string
	Name  string
	Price int64
	Pool  []string
}

type skinSeed struct {
	ID    string
	Name  string
	Price int64
}

var mints = []mintSeed{
	{"copper-coin", "Copper Coin", 60, 5000, 250},
	{"silver-sigil", "Silver Sigil", 25, 1000, 1200},
	{"golden-gear", "Golden Gear", 10, 250, 6000},
	{"prism-shard", "Prism Shard", 4, 50, 30000},
	{"void-relic", "Void Relic", 1, 10, 150000},
}

var crates = []crateSeed{
	{"starter-crate", "Starter Crate", 500, []string{"copper-coin", "silver-sigil"}},
	{"vault-crate", "Vault Crate", 5000, []string{"silver-sigil", "golden-gear", "prism-shard", "void-relic"}},
}

var skins = []skinSeed{
	{"classic", "Classic", 0},
	{"midnight", "Midnight", 2000},
	{"aurora", "Aurora", 10000},
	{"solar-flare", "Solar Flare", 50000},
}

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logrus.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	for _, m := range mints {
		_, err := db.Exec(`
			INSERT INTO mints (mint_id, name, rarity_percent, edition_size, price, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (mint_id) DO NOTHING
		`, m.ID, m.Name, m.Rarity, m.Edition, m.Price)
		if err != nil {
			logrus.WithError(err).WithField("mintId", m.ID).Fatal("mint seed failed")
		}
	}

	for _, c := range crates {
		_, err := db.Exec(`
			INSERT INTO crates (crate_id, name, price, created_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (crate_id) DO NOTHING
		`, c.ID, c.Name, c.Price)
		if err != nil {
			logrus.WithError(err).WithField("crateId", c.ID).Fatal("crate seed failed")
		}
		for _, mintID := range c.Pool {
			_, err := db.Exec(`
				INSERT INTO crate_pool (crate_id, mint_id)
				VALUES ($1, $2)
				ON CONFLICT (crate_id, mint_id) DO NOTHING
			`, c.ID, mintID)
			if err != nil {
				logrus.WithError(err).WithField("crateId", c.ID).Fatal("crate pool seed failed")
			}
		}
	}

	for _, s := range skins {
		_, err := db.Exec(`
			INSERT INTO skins (skin_id, name, price, created_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (skin_id) DO NOTHING
		`, s.ID, s.Name, s.Price)
		if err != nil {
			logrus.WithError(err).WithField("skinId", s.ID).Fatal("skin seed failed")
		}
	}

	logrus.Info("catalog seeded")
}
