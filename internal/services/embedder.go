package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/foxxcyber/meal-basket/internal/config"
	"github.com/foxxcyber/meal-basket/internal/embedding"
	"github.com/foxxcyber/meal-basket/internal/metrics"
)

var ErrUnknownEmbeddingProvider = errors.New("unknown embedding provider")

// NewEmbedder builds the embedder selected by EMBEDDING_PROVIDER. When
// REDIS_URL is set and reachable the embedder is wrapped in a vector cache.
// The returned cleanup releases the cache connection.
func NewEmbedder(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (embedding.Embedder, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() {}

	var (
		base  embedding.Embedder
		model string
	)
	switch cfg.EmbeddingProvider {
	case "hash", "":
		base = embedding.NewHashingEmbedder(cfg.EmbeddingDim)
		model = fmt.Sprintf("hash-%d", cfg.EmbeddingDim)
	case "ollama":
		base = NewOllamaEmbedder(cfg.OllamaHost, cfg.OllamaModel, cfg.OllamaTimeout, logger, m)
		model = cfg.OllamaModel
	default:
		return nil, noop, fmt.Errorf("%w: %s", ErrUnknownEmbeddingProvider, cfg.EmbeddingProvider)
	}

	if cfg.RedisURL == "" {
		return base, noop, nil
	}

	cache, err := NewRedisVectorCache(cfg.RedisURL)
	if err != nil {
		logger.Warn("embedding cache disabled", zap.Error(err))
		return base, noop, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := cache.Ping(pingCtx); err != nil {
		logger.Warn("embedding cache unreachable, continuing without it", zap.Error(err))
		cache.Close()
		return base, noop, nil
	}

	logger.Info("embedding cache enabled", zap.String("model", model), zap.Duration("ttl", cfg.EmbeddingCacheTTL))
	cleanup := func() {
		if err := cache.Close(); err != nil {
			logger.Warn("failed to close embedding cache", zap.Error(err))
		}
	}
	return NewCachedEmbedder(base, cache, model, cfg.EmbeddingCacheTTL, logger, m), cleanup, nil
}
