package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

const (
	defaultOpenAIBaseURL = "http://localhost:11434/v1"
	defaultOpenAIModel   = "all-minilm"
)

type embeddingsAPI interface {
	New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

// OpenAI embeds text through any OpenAI-compatible embeddings endpoint,
// such as a local Ollama serving a MiniLM sentence model.
type OpenAI struct {
	api    embeddingsAPI
	model  string
	dims   int
	logger *zap.Logger
}

// NewOpenAI creates an embedder for an OpenAI-compatible endpoint. dims is sent
// to the endpoint only when positive.
func NewOpenAI(baseURL, apiKey, model string, dims int, logger *zap.Logger) *OpenAI {
	if baseURL = strings.TrimSpace(baseURL); baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultOpenAIModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	if key := strings.TrimSpace(apiKey); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	} else {
		// local servers ignore the key but the client insists on one
		opts = append(opts, option.WithAPIKey("unused"))
	}

	client := openai.NewClient(opts...)

	return &OpenAI{
		api:    &client.Embeddings,
		model:  model,
		dims:   dims,
		logger: logger.With(zap.String("embedder", ProviderOpenAI), zap.String("model", model), zap.String("base_url", baseURL)),
	}
}

func (o *OpenAI) Name() string { return ProviderOpenAI + "/" + o.model }

func (o *OpenAI) Dimensions() int { return o.dims }

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	}
	if o.dims > 0 {
		params.Dimensions = openai.Int(int64(o.dims))
	}

	resp, err := o.api.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}

	if resp == nil || len(resp.Data) == 0 {
		o.logger.Debug("endpoint returned no embedding", zap.Int("text_length", len(text)))
		return nil, nil
	}

	values := resp.Data[0].Embedding
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}

	return out, nil
}
