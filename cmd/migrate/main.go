// Package main provides a database migration runner for round history.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cory-johannsen/wordrace/internal/config"
	"github.com/cory-johannsen/wordrace/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty uses defaults and environment")
	source := flag.String("source", "", "golang-migrate source URL such as file://migrations; empty uses the embedded migrations")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	dsn := cfg.Database.DSN()
	var m *postgres.Migrator
	if *source == "" {
		m, err = postgres.NewMigrator(dsn)
	} else {
		m, err = postgres.NewMigratorFromURL(*source, dsn)
	}
	if err != nil {
		log.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()

	var changed bool
	switch *direction {
	case "up":
		changed, err = m.Up(*steps)
	case "down":
		changed, err = m.Down(*steps)
	default:
		log.Fatalf("invalid direction %q: must be 'up' or 'down'", *direction)
	}
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	version, dirty, _ := m.Version()
	elapsed := time.Since(start)

	if !changed {
		fmt.Fprintf(os.Stdout, "no changes (version=%d dirty=%v) [%s]\n", version, dirty, elapsed)
	} else {
		fmt.Fprintf(os.Stdout, "migrated %s to version=%d dirty=%v [%s]\n", *direction, version, dirty, elapsed)
	}
}
