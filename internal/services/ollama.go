package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/foxxcyber/meal-basket/internal/metrics"
)

var ErrEmbeddingCount = errors.New("embedding count does not match input")

// OllamaEmbedder embeds texts with a local Ollama server
type OllamaEmbedder struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewOllamaEmbedder creates an embedder for model served at baseURL.
func NewOllamaEmbedder(baseURL, model string, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *OllamaEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	logger.Info("Ollama embedder initialized",
		zap.String("base_url", baseURL),
		zap.String("model", model),
		zap.Duration("timeout", timeout))

	return &OllamaEmbedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client: &http.Client{
			Timeout: timeout,
		},
		logger:  logger.Named("ollama"),
		metrics: m,
	}
}

// Model is the embedding model name.
func (o *OllamaEmbedder) Model() string {
	return o.model
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed implements embedding.Embedder.
func (o *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := o.embed(ctx, texts)
	o.metrics.EmbeddingRequest("ollama", err)
	if err != nil {
		o.logger.Warn("embedding request failed", zap.Int("texts", len(texts)), zap.Error(err))
		return nil, err
	}
	return vectors, nil
}

func (o *OllamaEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	jsonBody, err := json.Marshal(embedRequest{Model: o.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var embedResp embedResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(embedResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrEmbeddingCount, len(embedResp.Embeddings), len(texts))
	}
	return embedResp.Embeddings, nil
}
