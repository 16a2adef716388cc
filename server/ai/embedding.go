// Package ai provides the injected capabilities the memory service depends
// on: text embedding generation and the image analysis collaborator.
package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	storeerrors "github.com/memora/memora/internal/errors"
	"github.com/memora/memora/internal/profile"
	"github.com/memora/memora/store"
)

// EmbeddingService converts text to vector embeddings.
// Implementations: Provider (OpenAI-compatible API), MockEmbedder (demo/tests).
type EmbeddingService interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Config holds the embedding provider configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	MaxRetries int
	Timeout    time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.openai.com/v1",
		Model:      "text-embedding-3-small",
		Dimensions: store.TextVectorSize,
		MaxRetries: 3,
		Timeout:    30 * time.Second,
	}
}

// NewConfigFromProfile builds the embedding config from the server profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := DefaultConfig()
	if p.AIBaseURL != "" {
		cfg.BaseURL = p.AIBaseURL
	}
	cfg.APIKey = p.AIAPIKey
	if p.AIEmbeddingModel != "" {
		cfg.Model = p.AIEmbeddingModel
	}
	return cfg
}

// Provider generates embeddings through an OpenAI-compatible API, with a
// small in-process cache so repeated queries (the common search pattern)
// skip the network round-trip.
type Provider struct {
	client *openai.Client
	config *Config
	cache  *ristretto.Cache
}

// NewProvider creates a new embedding provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = store.TextVectorSize
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     16 << 20, // 16 MiB of cached vectors
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}

	return &Provider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		cache:  cache,
	}, nil
}

// Embed generates an embedding vector for the given text. Failures are
// surfaced as EMBEDDING_FAILED: substituting a placeholder vector would
// silently corrupt every later similarity ranking.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if cached, ok := p.cache.Get(key); ok {
		if vector, ok := cached.([]float32); ok {
			return vector, nil
		}
	}

	var result []float32
	err := p.doWithRetry(ctx, func() error {
		req := openai.EmbeddingRequest{
			Input:      []string{text},
			Model:      openai.EmbeddingModel(p.config.Model),
			Dimensions: p.config.Dimensions,
		}

		resp, err := p.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("empty embedding response")
		}
		result = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, storeerrors.EmbeddingFailed(err)
	}

	p.cache.Set(key, result, int64(len(result)*4))
	return result, nil
}

// Dimensions returns the embedding vector size.
func (p *Provider) Dimensions() int {
	return p.config.Dimensions
}

// EmbedBatch generates embeddings for multiple texts with bounded
// concurrency, preserving input order. The first failure cancels the rest.
func EmbedBatch(ctx context.Context, svc EmbeddingService, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(3) // avoid overwhelming the API
	for i, text := range texts {
		g.Go(func() error {
			vector, err := svc.Embed(ctx, text)
			if err != nil {
				return err
			}
			vectors[i] = vector
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// doWithRetry executes a function with exponential backoff retry.
func (p *Provider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < p.config.MaxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				slog.Debug("embedding request failed, retrying",
					"attempt", attempt+1,
					"wait_time", waitTime,
					"error", err)
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Ensure Provider implements EmbeddingService.
var _ EmbeddingService = (*Provider)(nil)
