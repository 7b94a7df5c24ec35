// Package embedding maps text chunks to sentence embedding vectors.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	// ProviderHash is the offline hashing embedder, meant for local runs and tests.
	ProviderHash = "hash"

	// DefaultDimensions matches the vector index the chunks are searched with.
	DefaultDimensions = 384
)

// Embedder converts text into a fixed-length vector. Blank text yields an
// empty vector and no provider call.
type Embedder interface {
	Name() string
	Dimensions() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config selects and configures an embedding provider.
type Config struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	BaseURL    string `mapstructure:"base-url"`
	APIKey     string `mapstructure:"api-key"`
}

// New builds the configured provider once; the result is shared by all requests.
// geminiKey is used by the gemini provider when Config.APIKey is empty.
func New(ctx context.Context, cfg *Config, geminiKey string, logger *zap.Logger) (Embedder, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dims := cfg.Dimensions
	if dims < 0 {
		return nil, fmt.Errorf("embedding dimensions must not be negative: %d", dims)
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", ProviderGemini:
		key := strings.TrimSpace(cfg.APIKey)
		if key == "" {
			key = geminiKey
		}
		if dims == 0 {
			dims = DefaultDimensions
		}
		return NewGemini(ctx, key, cfg.Model, dims, logger)
	case ProviderOpenAI:
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, dims, logger), nil
	case ProviderHash:
		if dims == 0 {
			dims = DefaultDimensions
		}
		return NewHash(dims), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
