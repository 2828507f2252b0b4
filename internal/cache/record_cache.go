// Package cache keeps recently read player records in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"super_clicker/internal/domain"
	"super_clicker/internal/logger"
	"super_clicker/internal/store"

	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "player:"

// NewRedisClient connects to addr. It returns nil when addr is empty or the
// server does not answer, and callers then run without a cache.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, running without it", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// RecordStore is a read-through cache in front of another store.Store.
// Redis errors never fail a request; they fall through to the backing store.
type RecordStore struct {
	next   store.Store
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewRecordStore(next store.Store, client *redis.Client, ttl time.Duration) *RecordStore {
	return &RecordStore{next: next, client: client, ttl: ttl, log: logger.Component("cache")}
}

func key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

func (c *RecordStore) Fetch(ctx context.Context, userID int64) (*domain.PlayerRecord, error) {
	if c.client != nil {
		data, err := c.client.Get(ctx, key(userID)).Bytes()
		switch {
		case err == nil:
			var rec domain.PlayerRecord
			if jerr := json.Unmarshal(data, &rec); jerr == nil {
				return &rec, nil
			}
		case !errors.Is(err, redis.Nil):
			c.log.Warn("cache read failed", "user_id", userID, "error", err)
		}
	}

	rec, err := c.next.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, rec)
	return rec, nil
}

func (c *RecordStore) Store(ctx context.Context, rec *domain.PlayerRecord) error {
	if err := c.next.Store(ctx, rec); err != nil {
		c.Invalidate(ctx, rec.UserID)
		return err
	}
	c.put(ctx, rec)
	return nil
}

// Invalidate drops the cached copy of a record.
func (c *RecordStore) Invalidate(ctx context.Context, userID int64) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key(userID)).Err(); err != nil {
		c.log.Warn("cache invalidate failed", "user_id", userID, "error", err)
	}
}

func (c *RecordStore) put(ctx context.Context, rec *domain.PlayerRecord) {
	if c.client == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(rec.UserID), data, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", "user_id", rec.UserID, "error", err)
	}
}
