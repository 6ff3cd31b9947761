package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"taxlot-matcher-go/internal/cli"
	"taxlot-matcher-go/internal/config"
	"taxlot-matcher-go/internal/database"
	"taxlot-matcher-go/internal/logger"
)

func main() {
	// Load application configuration
	configDir := os.Getenv("TAXLOTS_CONFIG_DIR")
	if configDir == "" {
		configDir = "./configs"
	}
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(2)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not create logger: %v\n", err)
		os.Exit(2)
	}
	defer log.Sync()

	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	log.Debug("Database opened and schema migrated", zap.String("dsn", cfg.Database.DSN))

	// Setup context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp(&cfg, log, database.NewStore(db))
	if err := cli.NewRootCmd(app).ExecuteContext(ctx); err != nil {
		log.Error("Command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		_ = log.Sync()
		os.Exit(1)
	}
}
