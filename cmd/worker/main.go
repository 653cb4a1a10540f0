package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tripplanner/backend/internal/config"
	"github.com/tripplanner/backend/internal/db"
	"github.com/tripplanner/backend/internal/events"
	"github.com/tripplanner/backend/internal/repositories"
	"github.com/tripplanner/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, db.PoolSettings{MaxConns: cfg.PGMaxConns, MinConns: cfg.PGMinConns}, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	forensicsService := services.NewForensicsService(
		repositories.NewAuditRepo(pool),
		repositories.NewArchiveRepo(pool),
		publisher, cfg, log,
	)
	job := &archiveJob{
		archiver: forensicsService,
		lock:     newRedisLock(rdb),
		window:   cfg.ArchiveWindow,
		lockTTL:  cfg.ArchiveInterval,
		log:      log,
	}

	log.Info("worker started",
		zap.Duration("archive_interval", cfg.ArchiveInterval),
		zap.Duration("archive_window", cfg.ArchiveWindow),
	)

	archiveTicker := time.NewTicker(cfg.ArchiveInterval)
	defer archiveTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	job.run(ctx, time.Now())
	for {
		select {
		case now := <-archiveTicker.C:
			job.run(ctx, now)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
