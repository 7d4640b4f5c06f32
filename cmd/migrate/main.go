package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/steemit/securehide/internal/db"
	"github.com/steemit/securehide/pkg/config"
	"github.com/steemit/securehide/pkg/logging"
)

func main() {
	hostTables := flag.Bool("host-tables", false, "also create users, posts and post_actions (local development)")
	timeout := flag.Duration("timeout", 5*time.Minute, "migration timeout")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.WithComponent("migrate")

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	withHost := *hostTables || cfg.Database.MigrateHostTables
	logger.Info("Running migrations", zap.Bool("host_tables", withHost))

	if err := database.Migrate(ctx, withHost); err != nil {
		logger.Error("Migration failed", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Migrations complete")
}
