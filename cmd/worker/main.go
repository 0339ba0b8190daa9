// worker prunes expired email verification tokens on an interval.
// Set DATABASE_URL; PRUNE_INTERVAL controls the cadence (default 1h).
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tenant-admin-plane/internal/config"
	"tenant-admin-plane/internal/db"
	identityrepo "tenant-admin-plane/internal/identity/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}
	defer conn.Close()

	identities := identityrepo.NewPostgresRepository(conn)
	interval := cfg.PruneIntervalDuration()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("worker shutting down")
		cancel()
	}()

	logger.Info("worker pruning expired verification tokens", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		pruneCtx, pruneCancel := context.WithTimeout(ctx, 30*time.Second)
		n, err := identities.DeleteExpiredVerificationTokens(pruneCtx, time.Now().UTC())
		pruneCancel()
		if err != nil {
			logger.Error("prune failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("pruned expired verification tokens", zap.Int64("count", n))
		}

		select {
		case <-ctx.Done():
			logger.Info("worker stopped")
			return
		case <-ticker.C:
		}
	}
}
