package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"idswyft/internal/threshold/models"
	id "idswyft/pkg/domain"
)

const thresholdKeyPrefix = "thresholds:tenant:"

// Redis is a Redis-backed threshold cache for multi-instance deployments.
// Cache failures degrade to store reads, they never fail a resolve.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

func (c *Redis) Get(ctx context.Context, tenantID id.TenantID) (*models.ThresholdSet, bool) {
	raw, err := c.client.Get(ctx, thresholdKeyPrefix+tenantID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("threshold cache read failed", "tenant_id", tenantID, "error", err)
		return nil, false
	}

	var set models.ThresholdSet
	if err := json.Unmarshal(raw, &set); err != nil {
		c.logger.Warn("threshold cache entry corrupt, dropping", "tenant_id", tenantID, "error", err)
		_ = c.client.Del(ctx, thresholdKeyPrefix+tenantID.String()).Err()
		return nil, false
	}
	return &set, true
}

func (c *Redis) Set(ctx context.Context, tenantID id.TenantID, set *models.ThresholdSet) {
	raw, err := json.Marshal(set)
	if err != nil {
		c.logger.Warn("threshold cache encode failed", "tenant_id", tenantID, "error", err)
		return
	}
	if err := c.client.Set(ctx, thresholdKeyPrefix+tenantID.String(), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("threshold cache write failed", "tenant_id", tenantID, "error", err)
	}
}

func (c *Redis) Invalidate(ctx context.Context, tenantID id.TenantID) {
	if err := c.client.Del(ctx, thresholdKeyPrefix+tenantID.String()).Err(); err != nil {
		c.logger.Warn("threshold cache invalidation failed", "tenant_id", tenantID, "error", err)
	}
}
