package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.EmbeddingModelTextEmbedding3Small

var openAIModelDims = map[string]int{
	openai.EmbeddingModelTextEmbedding3Small: 1536,
	openai.EmbeddingModelTextEmbedding3Large: 3072,
	openai.EmbeddingModelTextEmbeddingAda002: 1536,
}

// OpenAIConfig configures the OpenAI (or OpenAI-compatible) embedding provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimensions requests shortened embeddings from text-embedding-3 models.
	// Zero uses the model's native size.
	Dimensions int
	// FixedDimensions reports Dimensions as the model's size and never asks
	// the server to shorten vectors.
	FixedDimensions bool
	// Options are appended to the client options, mainly for tests.
	Options []option.RequestOption
}

// OpenAIEmbedder embeds text with the OpenAI Embeddings API.
type OpenAIEmbedder struct {
	client        openai.Client
	model         string
	dims          int
	requestedDims bool
}

// NewOpenAIEmbedder creates an embedding provider for OpenAI. If APIKey is
// empty, OPENAI_API_KEY is used.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, errors.New("OpenAI API key is required")
		}
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	dims := cfg.Dimensions
	requested := dims > 0 && !cfg.FixedDimensions && model != openai.EmbeddingModelTextEmbeddingAda002
	if dims <= 0 {
		known, ok := openAIModelDims[model]
		if !ok {
			return nil, fmt.Errorf("dimensions must be configured for OpenAI model %q", model)
		}
		dims = known
	}

	// Failures are surfaced once; the breaker decides when to try again.
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, cfg.Options...)

	return &OpenAIEmbedder{
		client:        openai.NewClient(opts...),
		model:         model,
		dims:          dims,
		requestedDims: requested,
	}, nil
}

// Embed sends all texts in one Embeddings request and returns vectors in input order.
func (p *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if p.requestedDims {
		params.Dimensions = openai.Int(int64(p.dims))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: openai: %v", ErrEmbeddingFailed, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai returned %d embeddings for %d texts", ErrEmbeddingFailed, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) || out[d.Index] != nil {
			return nil, fmt.Errorf("%w: openai returned invalid index %d", ErrEmbeddingFailed, d.Index)
		}
		// OpenAI returns []float64; convert to []float32
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}

// Dimensions returns the model's (or requested) embedding size.
func (p *OpenAIEmbedder) Dimensions() int { return p.dims }

// Name returns "openai".
func (p *OpenAIEmbedder) Name() string { return "openai" }

// Close is a no-op.
func (p *OpenAIEmbedder) Close() error { return nil }
