package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xdial-backend/internal/association"
	"xdial-backend/internal/audit"
	"xdial-backend/internal/auth"
	"xdial-backend/internal/calls"
	"xdial-backend/internal/catalog"
	"xdial-backend/internal/clients"
	"xdial-backend/internal/config"
	"xdial-backend/internal/dialer"
	"xdial-backend/internal/httpapi"
	"xdial-backend/internal/identity"
	"xdial-backend/internal/recordings"
	"xdial-backend/internal/status"
	"xdial-backend/pkg/logger"
	"xdial-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	mapping, err := calls.LoadMapping(cfg.Categories.MapPath)
	if err != nil {
		log.Error("category map load failed", "err", err)
		os.Exit(1)
	}
	log.Info("category map loaded", "version", mapping.Version(), "path", cfg.Categories.MapPath)

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	catalogRepo := catalog.NewPgRepo(db)
	dialerRepo := dialer.NewPgRepo(db)

	h := httpapi.Handlers{
		Auth:         authManager,
		Identity:     identity.NewService(identity.NewPgStore(db)),
		Associations: association.NewService(association.NewPgRepo(db), clients.NewPgRepo(db)),
		Status:       status.NewEngine(db),
		Calls: calls.NewService(
			calls.NewPgRepo(db),
			catalogRepo,
			mapping,
			calls.NewCountsCache(rdb, time.Minute),
		),
		Catalog:    catalog.NewService(catalogRepo),
		Dialer:     dialerRepo,
		Recordings: recordings.NewService(dialerRepo, cfg.Recordings.FetchTimeout, rdb, cfg.Recordings.MaxConcurrentPerSrv),
		Audit:      audit.NewRecorder(audit.NewPgRepo(db)),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second, // recordings proxy can be slow upstream
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
