package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/foxxcyber/meal-basket/internal/embedding"
	"github.com/foxxcyber/meal-basket/internal/metrics"
)

const embeddingKeyPrefix = "meal-basket:emb:"

// VectorCache stores vectors by key. GetVectors returns nil entries for
// misses.
type VectorCache interface {
	GetVectors(ctx context.Context, keys []string) ([][]float32, error)
	SetVectors(ctx context.Context, keys []string, vectors [][]float32, ttl time.Duration) error
}

// RedisVectorCache keeps vectors in redis as packed float32 strings
type RedisVectorCache struct {
	client redis.UniversalClient
}

// NewRedisVectorCache connects to the redis at redisURL.
func NewRedisVectorCache(redisURL string) (*RedisVectorCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return &RedisVectorCache{client: redis.NewClient(opt)}, nil
}

// NewRedisVectorCacheFromClient wraps an existing client.
func NewRedisVectorCacheFromClient(client redis.UniversalClient) *RedisVectorCache {
	return &RedisVectorCache{client: client}
}

// Ping checks the redis connection.
func (r *RedisVectorCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *RedisVectorCache) Close() error {
	return r.client.Close()
}

// GetVectors implements VectorCache.
func (r *RedisVectorCache) GetVectors(ctx context.Context, keys []string) ([][]float32, error) {
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached vectors: %w", err)
	}

	vectors := make([][]float32, len(keys))
	for i, v := range values {
		if s, ok := v.(string); ok {
			vectors[i] = embedding.DecodeVector([]byte(s))
		}
	}
	return vectors, nil
}

// SetVectors implements VectorCache.
func (r *RedisVectorCache) SetVectors(ctx context.Context, keys []string, vectors [][]float32, ttl time.Duration) error {
	pipe := r.client.Pipeline()
	for i, key := range keys {
		pipe.Set(ctx, key, embedding.EncodeVector(vectors[i]), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache vectors: %w", err)
	}
	return nil
}

// CachedEmbedder serves repeated texts from a VectorCache and embeds the
// rest with the wrapped embedder. Cache failures fall through to the
// embedder.
type CachedEmbedder struct {
	next    embedding.Embedder
	cache   VectorCache
	model   string
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCachedEmbedder wraps next. model scopes the cache keys so vectors
// from different models never mix.
func NewCachedEmbedder(next embedding.Embedder, cache VectorCache, model string, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		next:    next,
		cache:   cache,
		model:   model,
		ttl:     ttl,
		logger:  logger.Named("embedding-cache"),
		metrics: m,
	}
}

// CacheKey is the cache key of text under model.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return embeddingKeyPrefix + model + ":" + hex.EncodeToString(sum[:])
}

// Embed implements embedding.Embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = CacheKey(c.model, text)
	}

	vectors, err := c.cache.GetVectors(ctx, keys)
	if err != nil || len(vectors) != len(texts) {
		if err != nil {
			c.logger.Warn("embedding cache unavailable", zap.Error(err))
		}
		vectors = make([][]float32, len(texts))
	}

	var missIdx []int
	var missTexts []string
	for i, v := range vectors {
		if len(v) == 0 {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	c.metrics.CacheLookup(len(texts)-len(missIdx), len(missIdx))
	if len(missIdx) == 0 {
		return vectors, nil
	}

	fresh, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrEmbeddingCount, len(fresh), len(missTexts))
	}

	missKeys := make([]string, len(missIdx))
	for j, i := range missIdx {
		vectors[i] = fresh[j]
		missKeys[j] = keys[i]
	}
	if err := c.cache.SetVectors(ctx, missKeys, fresh, c.ttl); err != nil {
		c.logger.Warn("failed to cache embeddings", zap.Int("count", len(missKeys)), zap.Error(err))
	}
	return vectors, nil
}
