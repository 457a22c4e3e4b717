package main

import (
	"log"

	"go.uber.org/zap"

	"ReceiptPoll/internal/config"
	"ReceiptPoll/internal/db"
	"ReceiptPoll/internal/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if cfg.DB.DSN == "" {
		log.Fatal("db.dsn is required for migrations")
	}

	lg, err := logger.New(cfg.Log.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	applied, err := db.MigrateUp(cfg.DB.DSN, cfg.DB.MigrationsPath)
	if err != nil {
		lg.Fatal("migrate failed", zap.String("dir", cfg.DB.MigrationsPath), zap.Error(err))
	}
	if !applied {
		lg.Info("schema already current", zap.String("dir", cfg.DB.MigrationsPath))
		return
	}
	lg.Info("migrations applied", zap.String("dir", cfg.DB.MigrationsPath))
}
