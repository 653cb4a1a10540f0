package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tripplanner/backend/internal/models"
	"github.com/tripplanner/backend/internal/services"
	"go.uber.org/zap"
)

const archiveLockKey = "lock:forensics_archive"

type archiver interface {
	Archive(ctx context.Context, actor *services.Actor, windowStart, windowEnd time.Time) (*models.ForensicsArchive, bool, error)
}

type locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// redisLock is a SETNX lock holding a random token so only the owner
// releases it.
type redisLock struct {
	rdb *redis.Client
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func newRedisLock(rdb *redis.Client) *redisLock {
	return &redisLock{rdb: rdb}
}

func (l *redisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return func() {}, false, err
	}
	return func() {
		_ = releaseScript.Run(context.Background(), l.rdb, []string{key}, token).Err()
	}, true, nil
}

type archiveJob struct {
	archiver archiver
	lock     locker
	window   time.Duration
	lockTTL  time.Duration
	log      *zap.Logger
}

// archiveWindow returns the most recent closed window of the given size,
// aligned to the size.
func archiveWindow(now time.Time, size time.Duration) (time.Time, time.Time) {
	end := now.UTC().Truncate(size)
	return end.Add(-size), end
}

func (j *archiveJob) run(ctx context.Context, now time.Time) {
	release, ok, err := j.lock.Acquire(ctx, archiveLockKey, j.lockTTL)
	if err != nil {
		j.log.Error("failed to acquire archive lock", zap.Error(err))
		return
	}
	if !ok {
		j.log.Debug("archive lock held elsewhere")
		return
	}
	defer release()

	start, end := archiveWindow(now, j.window)
	archive, created, err := j.archiver.Archive(ctx, nil, start, end)
	if err != nil {
		j.log.Error("failed to archive window", zap.Time("window_start", start), zap.Error(err))
		return
	}
	if created {
		j.log.Info("archived window",
			zap.Time("window_start", start),
			zap.Time("window_end", end),
			zap.Int("events", archive.EventCount),
		)
	}
}
