package ledger

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"cardprint-backend/internal/models"
)

const (
	keyPrefix = "webhook_event:"
	cacheTTL  = 7 * 24 * time.Hour
)

// CacheAside answers repeated deliveries from Redis and keeps the durable
// ledger as the source of truth. Cache failures never fail a lookup.
type CacheAside struct {
	Ledger
	redis  *redis.Client
	logger zerolog.Logger
}

func NewCacheAside(store Ledger, client *redis.Client, logger zerolog.Logger) *CacheAside {
	return &CacheAside{Ledger: store, redis: client, logger: logger}
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (c *CacheAside) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := c.redis.Exists(ctx, keyPrefix+eventID).Result()
	if err == nil && n > 0 {
		return true, nil
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("event_id", eventID).Msg("Ledger cache lookup failed")
	}

	processed, err := c.Ledger.IsProcessed(ctx, eventID)
	if err != nil {
		return false, err
	}
	if processed {
		c.remember(ctx, eventID)
	}
	return processed, nil
}

func (c *CacheAside) MarkProcessed(ctx context.Context, event models.WebhookEvent) error {
	if err := c.Ledger.MarkProcessed(ctx, event); err != nil {
		return err
	}
	c.remember(ctx, event.ID)
	return nil
}

func (c *CacheAside) remember(ctx context.Context, eventID string) {
	if err := c.redis.Set(ctx, keyPrefix+eventID, 1, cacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("event_id", eventID).Msg("Ledger cache write failed")
	}
}
