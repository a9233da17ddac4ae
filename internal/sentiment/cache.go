package sentiment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/raaihank/pii-anonymizer/internal/config"
	"github.com/raaihank/pii-anonymizer/internal/logger"
	"go.uber.org/zap"
)

// KV is the subset of the Redis client used by CachedScorer
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedScorer memoizes another Scorer in Redis. Cache failures are logged
// and fall through to the wrapped scorer.
type CachedScorer struct {
	next   Scorer
	kv     KV
	ttl    time.Duration
	prefix string
	logger *logger.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg *config.CacheConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewCachedScorer wraps next with a Redis cache
func NewCachedScorer(next Scorer, kv KV, cfg *config.CacheConfig, log *logger.Logger) *CachedScorer {
	log = log.WithComponent("sentiment_cache")
	log.Info("Sentiment cache initialized",
		zap.String("addr", cfg.Addr),
		zap.Duration("ttl", cfg.TTL),
	)
	return &CachedScorer{
		next:   next,
		kv:     kv,
		ttl:    cfg.TTL,
		prefix: cfg.Prefix,
		logger: log,
	}
}

// Score implements Scorer
func (c *CachedScorer) Score(ctx context.Context, text string) (*Result, error) {
	key := c.key(text)

	if cached, ok := c.lookup(ctx, key); ok {
		c.hits.Add(1)
		return cached, nil
	}
	c.misses.Add(1)

	result, err := c.next.Score(ctx, text)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(result)
	if err == nil {
		err = c.kv.Set(ctx, key, data, c.ttl).Err()
	}
	if err != nil {
		c.logger.Warn("Failed to cache sentiment", zap.Error(err))
	}

	return result, nil
}

func (c *CachedScorer) lookup(ctx context.Context, key string) (*Result, bool) {
	data, err := c.kv.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Cache lookup failed", zap.Error(err))
		return nil, false
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("Discarding corrupt cache entry", zap.Error(err))
		return nil, false
	}
	result.Cached = true
	return &result, true
}

// Stats returns hit and miss counters
func (c *CachedScorer) Stats() CacheStats {
	stats := CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// key hashes the text so the cache never stores it in clear
func (c *CachedScorer) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}
