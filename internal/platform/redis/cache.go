// Package redis caches match analyses and embeddings in Redis.
//
// The cache is strictly best effort: every read or write failure is logged
// and reported as a miss, so an unavailable Redis only costs extra vendor
// calls.
package redis

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/redact"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// TTLs and cache names.
const (
	MatchTTL     = 7 * 24 * time.Hour
	EmbeddingTTL = time.Hour

	matchCache     = "matching"
	embeddingCache = "embedding"
)

// Observer is notified of every lookup.
type Observer interface {
	ObserveCache(cache string, hit bool)
}

type nopObserver struct{}

func (nopObserver) ObserveCache(string, bool) {}

// Cache wraps a go-redis client.
type Cache struct {
	client   *goredis.Client
	logger   *slog.Logger
	observer Observer
}

// Open parses a redis:// URL and returns a cache. The connection is checked
// with PING so a bad URL fails at startup instead of on every request.
func Open(ctx context.Context, url string, logger *slog.Logger, observer Observer) (*Cache, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return New(client, logger, observer), nil
}

// New wraps an existing client.
func New(client *goredis.Client, logger *slog.Logger, observer Observer) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Cache{
		client:   client,
		logger:   logger.With("component", "redis_cache"),
		observer: observer,
	}
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// MatchKey is the cache key of a company/announcement analysis.
func MatchKey(companyID, announcementID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", matchCache, companyID, announcementID)
}

// EmbeddingKey is the cache key of the embedding of text.
func EmbeddingKey(text string) string {
	sum := md5.Sum([]byte(text))
	return embeddingCache + ":" + hex.EncodeToString(sum[:])
}

// GetMatch returns a cached match, or false on a miss or any error.
func (c *Cache) GetMatch(ctx context.Context, companyID, announcementID uuid.UUID) (*domain.Match, bool) {
	var m domain.Match
	if !c.get(ctx, matchCache, MatchKey(companyID, announcementID), &m) {
		return nil, false
	}
	return &m, true
}

// SetMatch stores a match for MatchTTL.
func (c *Cache) SetMatch(ctx context.Context, m *domain.Match) {
	c.set(ctx, MatchKey(m.CompanyID, m.AnnouncementID), m, MatchTTL)
}

// GetEmbedding returns a cached vector for text.
func (c *Cache) GetEmbedding(ctx context.Context, text string) ([]float32, bool) {
	var vec []float32
	if !c.get(ctx, embeddingCache, EmbeddingKey(text), &vec) || len(vec) == 0 {
		return nil, false
	}
	return vec, true
}

// SetEmbedding stores the vector for text for EmbeddingTTL.
func (c *Cache) SetEmbedding(ctx context.Context, text string, vec []float32) {
	c.set(ctx, EmbeddingKey(text), vec, EmbeddingTTL)
}

func (c *Cache) get(ctx context.Context, cache, key string, dst any) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.WarnContext(ctx, "cache read failed", "key", key, "error", redact.Error(err))
		}
		c.observer.ObserveCache(cache, false)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.WarnContext(ctx, "cache entry corrupt", "key", key, "error", err)
		c.observer.ObserveCache(cache, false)
		return false
	}
	c.observer.ObserveCache(cache, true)
	return true
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache write failed", "key", key, "error", redact.Error(err))
	}
}
