package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"wave-platform/internal/config"
	"wave-platform/pkg/database"
	"wave-platform/pkg/logging"
	"wave-platform/pkg/metrics"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("wave-migrate", "1.0.0", logging.InfoLevel)
	metricsCollector := metrics.NewCollector("wave_migrate")

	// Connect to database
	db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("Connected to %s database successfully\n", db.Driver())

	for _, m := range database.Migrations {
		fmt.Printf("Running migration: %03d_%s (%s)\n", m.Version, m.Name, *direction)
	}

	if err := db.Migrate(context.Background(), *direction); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
		db.Close()
		os.Exit(1)
	}

	fmt.Println("Migration completed successfully")
}
