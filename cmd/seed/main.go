// Command seed ensures the canonical lifecycle statuses exist. Safe to run
// repeatedly; existing rows are left untouched.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"xdial-backend/internal/catalog"
	"xdial-backend/internal/config"
	"xdial-backend/pkg/logger"
	"xdial-backend/pkg/utils"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	db, err := utils.OpenPostgres(ctx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := catalog.NewService(catalog.NewPgRepo(db))
	if err := svc.SeedStatuses(ctx, log); err != nil {
		log.Error("status seed failed", "err", err)
		os.Exit(1)
	}
	log.Info("status seed complete")
}
