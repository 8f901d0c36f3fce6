// Package app wires configuration, storage, the billing engine and the HTTP
// surface into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/rockyway/rephlo-sites-sub016/internal/billing"
	"github.com/rockyway/rephlo-sites-sub016/internal/config"
	"github.com/rockyway/rephlo-sites-sub016/internal/db"
	"github.com/rockyway/rephlo-sites-sub016/internal/http/api"
	"github.com/rockyway/rephlo-sites-sub016/internal/logging"
	"github.com/rockyway/rephlo-sites-sub016/internal/rates"
	"github.com/rockyway/rephlo-sites-sub016/internal/settings"
)

// Run boots the billing service and blocks until the context is cancelled.
func Run(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(configPath)
	if errLoad != nil {
		return errLoad
	}
	logging.Setup(cfg.Logging)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := settings.Refresh(ctx, conn); errRefresh != nil {
		return fmt.Errorf("refresh settings: %w", errRefresh)
	}

	var repo billing.RateRepository = rates.NewGormRateRepository(conn)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		repo = rates.NewCachedRateRepository(repo, rdb, time.Duration(cfg.Redis.TTLSeconds)*time.Second)
		log.WithField("addr", cfg.Redis.Addr).Info("app: rate lookup cache enabled")
	}

	baseCfg := cfg.EngineConfig()
	engine, errEngine := billing.NewEngine(repo, conn, settings.EngineConfig(baseCfg))
	if errEngine != nil {
		return errEngine
	}

	router := api.NewRouter(conn, engine, baseCfg)
	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("listen", cfg.Server.Listen).Info("app: billing service listening")
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			log.WithError(errShutdown).Warn("app: shutdown did not complete cleanly")
		}
		return nil
	case errServe := <-errCh:
		return errServe
	}
}

// MigrateOnly opens the database, runs migrations and exits.
func MigrateOnly(configPath string) error {
	cfg, errLoad := config.Load(configPath)
	if errLoad != nil {
		return errLoad
	}
	logging.Setup(cfg.Logging)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}
