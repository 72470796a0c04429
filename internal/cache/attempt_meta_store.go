// Package cache holds the Redis-backed attempt session store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sodiqdevpython/quizcore-backend/internal/config"
	"github.com/sodiqdevpython/quizcore-backend/internal/model"
)

// AttemptMetaStore keeps per-attempt session metadata (secret, salts,
// question order, progress) in an expiring Redis entry. Absence of an entry
// is not an error: eviction or a restart simply degrades the attempt to
// "expired" on the next access.
type AttemptMetaStore struct {
	rdb *redis.Client
}

// NewAttemptMetaStore creates a new AttemptMetaStore.
func NewAttemptMetaStore(rdb *redis.Client) *AttemptMetaStore {
	return &AttemptMetaStore{rdb: rdb}
}

// Put stores the metadata under the attempt's key with the given TTL.
func (s *AttemptMetaStore) Put(ctx context.Context, attemptID uuid.UUID, meta *model.AttemptMeta, ttl time.Duration) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal attempt meta: %w", err)
	}
	key := config.CacheKey.AttemptMetaKey(attemptID.String())
	if err := s.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set attempt meta: %w", err)
	}
	return nil
}

// Get retrieves the metadata for an attempt. Returns (nil, nil) when the
// entry is absent or expired.
func (s *AttemptMetaStore) Get(ctx context.Context, attemptID uuid.UUID) (*model.AttemptMeta, error) {
	key := config.CacheKey.AttemptMetaKey(attemptID.String())
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attempt meta: %w", err)
	}

	var meta model.AttemptMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal attempt meta: %w", err)
	}
	return &meta, nil
}

// Delete removes the metadata entry. Deleting a missing entry is a no-op.
func (s *AttemptMetaStore) Delete(ctx context.Context, attemptID uuid.UUID) error {
	key := config.CacheKey.AttemptMetaKey(attemptID.String())
	return s.rdb.Del(ctx, key).Err()
}
