package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PoolSettings struct {
	MaxConns int
	MinConns int
}

func NewPostgresPool(ctx context.Context, dsn string, settings PoolSettings, log *zap.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 20
	if settings.MaxConns > 0 {
		cfg.MaxConns = int32(settings.MaxConns)
	}
	cfg.MinConns = 2
	if settings.MinConns >= 0 && int32(settings.MinConns) <= cfg.MaxConns {
		cfg.MinConns = int32(settings.MinConns)
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("postgres pool created", zap.Int32("max_conns", cfg.MaxConns), zap.Int32("min_conns", cfg.MinConns))
	return pool, nil
}
