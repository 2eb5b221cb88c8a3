package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/ficha-clinica-api/internal/models"
	appErrors "github.com/noah-isme/ficha-clinica-api/pkg/errors"
)

// CacheRepository caches session aggregates in Redis for read-heavy
// consumers (export, aggregate endpoints). A nil client degrades to a
// pass-through so Redis stays optional.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger, ttl time.Duration) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CacheRepository{client: client, logger: logger, ttl: ttl}
}

func aggregateKey(sessionID string) string {
	return "session_aggregate:" + sessionID
}

// GetAggregate retrieves a cached aggregate, ErrCacheMiss when absent.
func (r *CacheRepository) GetAggregate(ctx context.Context, sessionID string) (*models.SessionAggregate, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, aggregateKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", sessionID, err)
	}

	var aggregate models.SessionAggregate
	if err := json.Unmarshal(raw, &aggregate); err != nil {
		return nil, fmt.Errorf("unmarshal cached aggregate %s: %w", sessionID, err)
	}
	return &aggregate, nil
}

// SetAggregate stores an aggregate snapshot with the configured TTL.
func (r *CacheRepository) SetAggregate(ctx context.Context, aggregate *models.SessionAggregate) error {
	if r.client == nil || aggregate == nil {
		return nil
	}

	payload, err := json.Marshal(aggregate)
	if err != nil {
		return fmt.Errorf("marshal aggregate %s: %w", aggregate.Session.ID, err)
	}

	if err := r.client.Set(ctx, aggregateKey(aggregate.Session.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", aggregate.Session.ID, err)
	}
	return nil
}

// Invalidate drops the cached aggregate after any session write.
func (r *CacheRepository) Invalidate(ctx context.Context, sessionID string) {
	if r.client == nil || sessionID == "" {
		return
	}
	if err := r.client.Del(ctx, aggregateKey(sessionID)).Err(); err != nil {
		r.logger.Sugar().Warnw("failed to invalidate aggregate cache", "session_id", sessionID, "error", err)
	}
}
