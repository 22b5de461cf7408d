package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"paybridge/internal/domain/flow"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis stores the resume record as a single JSON value. GETDEL makes the
// read-then-clear atomic across concurrent external-return deliveries.
type Redis struct {
	rdb *redis.Client
	key string
}

// NewRedis creates a Redis-backed store. keyPrefix namespaces the single
// pending-flow key per installation.
func NewRedis(rdb *redis.Client, keyPrefix string) *Redis {
	return &Redis{rdb: rdb, key: keyPrefix + ":pending_flow"}
}

// MustOpenRedis connects and pings, failing fast on startup like the rest
// of the wiring.
func MustOpenRedis(ctx context.Context, addr string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis connect fail")
	}
	return rdb
}

func (r *Redis) Write(ctx context.Context, rec flow.ResumeRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal resume record: %w", err)
	}
	// No TTL: the external UI owns the timeout, not this store.
	return r.rdb.Set(ctx, r.key, b, 0).Err()
}

func (r *Redis) ReadAndClear(ctx context.Context) (*flow.ResumeRecord, error) {
	b, err := r.rdb.GetDel(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read resume record: %w", err)
	}
	var rec flow.ResumeRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		// The record is already gone at this point; the caller decides how
		// to surface an unreadable one.
		return nil, fmt.Errorf("parse resume record: %w", err)
	}
	return &rec, nil
}

func (r *Redis) Clear(ctx context.Context) error {
	return r.rdb.Del(ctx, r.key).Err()
}
