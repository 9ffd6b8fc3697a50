package respcache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kerjago/kerjago/pkg/logger"
	"github.com/kerjago/kerjago/pkg/metrics"
)

// Config describes response cache settings loadable from the environment.
// When Enabled is false, or the backend is unreachable, every operation
// degrades to a transparent pass-through.
type Config struct {
	Enabled   bool          `env:"CACHE_ENABLED" envDefault:"false"`
	TTL       time.Duration `env:"CACHE_TTL" envDefault:"300s"`
	KeyPrefix string        `env:"CACHE_KEY_PREFIX" envDefault:"kerjago:cache"`
	OpTimeout time.Duration `env:"CACHE_OP_TIMEOUT" envDefault:"500ms"`
}

// entry is the serialized form of a cached response.
type entry struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Cache is a namespaced read-through cache for GET responses backed by
// Redis. Cache failures are logged and swallowed; they never surface to the
// request path or the triggering write.
type Cache struct {
	client *redis.Client // nil when caching is disabled
	cfg    Config
	logger *slog.Logger
}

// New creates a response cache. Passing a nil client disables caching
// entirely, which is the degraded mode for an absent or unreachable backend.
func New(client *redis.Client, cfg Config, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 300 * time.Second
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 500 * time.Millisecond
	}
	if !cfg.Enabled {
		client = nil
	}
	return &Cache{client: client, cfg: cfg, logger: log}
}

// Enabled reports whether the cache has a usable backend.
func (c *Cache) Enabled() bool {
	return c.client != nil
}

func (c *Cache) get(ctx context.Context, key string) (*entry, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed, passing through", logger.Error(err), slog.String("key", key))
		}
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.logger.Warn("cache entry corrupted, dropping", logger.Error(err), slog.String("key", key))
		return nil, false
	}
	return &e, true
}

func (c *Cache) set(ctx context.Context, key string, e entry) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()

	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.cfg.TTL).Err(); err != nil {
		c.logger.Warn("cache write failed", logger.Error(err), slog.String("key", key))
	}
}

// Invalidate purges every cached entry in the namespace. Invalidation is
// coarse: list and detail views of a namespace share the prefix, so one call
// after any write clears both. Failures are logged and swallowed; cache
// correctness is secondary to write availability.
func (c *Cache) Invalidate(ctx context.Context, namespace string) {
	if c.client == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*c.cfg.OpTimeout)
	defer cancel()

	pattern := c.cfg.KeyPrefix + ":" + namespace + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.Warn("cache invalidation failed", logger.Error(err), slog.String("namespace", namespace))
				return
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("cache scan failed", logger.Error(err), slog.String("namespace", namespace))
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.Warn("cache invalidation failed", logger.Error(err), slog.String("namespace", namespace))
			return
		}
	}

	metrics.CacheInvalidations.WithLabelValues(namespace).Inc()
}
