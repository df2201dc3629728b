package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"inventoryledger/backend/internal/cache"
	"inventoryledger/backend/internal/config"
	"inventoryledger/backend/internal/httpapi"
	"inventoryledger/backend/internal/logger"
	"inventoryledger/backend/internal/service"
	"inventoryledger/backend/internal/store"
	"inventoryledger/backend/internal/store/memory"
	pgstore "inventoryledger/backend/internal/store/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}

	zlog, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	zap.ReplaceGlobals(zlog)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			zlog.Fatal("postgres unavailable and LEDGER_DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		if err := pg.Migrate(ctx); err != nil {
			zlog.Fatal("apply schema", zap.Error(err))
		}
		repo = pg
		closers = append(closers, pg.Close)
		zlog.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		zlog.Info("repository: in-memory")
	}

	studies := cache.StudyCache(cache.NoopStudyCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisStudyCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			zlog.Warn("redis unavailable, using noop study cache", zap.Error(err))
		} else {
			studies = redisCache
			closers = append(closers, redisCache.Close)
			zlog.Info("cache: redis", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		zlog.Info("cache: noop")
	}

	svc := service.New(repo, studies, service.Options{
		TaxRatePercent: cfg.TaxRatePercent,
		StudyCacheTTL:  cfg.StudyCacheTTL,
		Logger:         zlog,
	})
	auth, err := httpapi.NewAuthManager(ctx, cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	if err != nil {
		zlog.Fatal("init auth", zap.Error(err))
	}
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, zlog)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zlog.Info("inventory ledger listening", zap.String("addr", cfg.Address()), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			zlog.Error("close error", zap.Error(err))
		}
	}

	zlog.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("LEDGER_AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.Production() && (cfg.AllowedOrigin == "" || cfg.AllowedOrigin == "*") {
		return fmt.Errorf("LEDGER_ALLOWED_ORIGIN must name a concrete origin in production")
	}
	return nil
}
