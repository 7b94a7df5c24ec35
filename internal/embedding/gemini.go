package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-embedding-001"

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Gemini embeds text with the Gemini API embedding models.
type Gemini struct {
	models contentEmbedder
	model  string
	dims   int
	logger *zap.Logger
}

// NewGemini creates an embedder on the Gemini API backend.
func NewGemini(ctx context.Context, apiKey, model string, dims int, logger *zap.Logger) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required for embeddings")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gemini{
		models: client.Models,
		model:  model,
		dims:   dims,
		logger: logger.With(zap.String("embedder", ProviderGemini), zap.String("model", model)),
	}, nil
}

func (g *Gemini) Name() string { return ProviderGemini + "/" + g.model }

func (g *Gemini) Dimensions() int { return g.dims }

func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	cfg := &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"}
	if g.dims > 0 {
		dims := int32(g.dims)
		cfg.OutputDimensionality = &dims
	}

	resp, err := g.models.EmbedContent(ctx, g.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		g.logger.Debug("gemini returned no embedding", zap.Int("text_length", len(text)))
		return nil, nil
	}

	return resp.Embeddings[0].Values, nil
}
