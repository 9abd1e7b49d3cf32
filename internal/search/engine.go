// Package search binds an embedding provider to the similarity core: it
// embeds text, ranks chunks against a query and compares raw vectors.
package search

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/hyperjump/sentembed/internal/embedding"
	"github.com/hyperjump/sentembed/internal/models"
	"github.com/hyperjump/sentembed/internal/similarity"
	"github.com/hyperjump/sentembed/internal/tracing"
)

// Engine runs embedding and similarity operations. It is safe for concurrent
// use when its provider is.
type Engine struct {
	provider embedding.Provider
	logger   *zap.Logger
}

// NewEngine creates an engine. logger may be nil.
func NewEngine(provider embedding.Provider, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{provider: provider, logger: logger}
}

// Dimensions returns the provider's embedding dimension.
func (e *Engine) Dimensions() int { return e.provider.Dimensions() }

// Info describes the provider chain.
func (e *Engine) Info() embedding.Info { return embedding.Describe(e.provider) }

// Close closes the provider.
func (e *Engine) Close() error { return e.provider.Close() }

// Embed returns one vector per text, in order.
func (e *Engine) Embed(ctx context.Context, texts []string) (vecs similarity.VectorSet, err error) {
	const op = "embed"
	ctx, span := tracing.StartSpan(ctx, "engine.embed", attribute.Int("texts", len(texts)))
	defer func() { tracing.End(span, err) }()

	if err := validateTexts(op, "texts", texts); err != nil {
		return nil, err
	}
	return e.embed(ctx, op, texts)
}

// Rank embeds query and chunks and returns every chunk (or the best topK)
// ordered by cosine similarity to the query, highest first. Ties keep input order.
func (e *Engine) Rank(ctx context.Context, query string, chunks []string, topK int) (ranked []models.RankedChunk, err error) {
	const op = "similarity"
	ctx, span := tracing.StartSpan(ctx, "engine.rank",
		attribute.Int("chunks", len(chunks)),
		attribute.Int("top_k", topK),
	)
	defer func() { tracing.End(span, err) }()

	if query == "" {
		return nil, similarity.Validationf(op, "query is required")
	}
	if err := validateTexts(op, "chunks", chunks); err != nil {
		return nil, err
	}
	if topK < 0 {
		return nil, similarity.Validationf(op, "top_k must not be negative, got %d", topK)
	}

	texts := make([]string, 0, len(chunks)+1)
	texts = append(texts, query)
	texts = append(texts, chunks...)
	vecs, err := e.embed(ctx, op, texts)
	if err != nil {
		return nil, err
	}

	scored, err := similarity.Rank(vecs[0], vecs[1:])
	if err != nil {
		return nil, err
	}
	if topK > 0 && topK < len(scored) {
		scored = scored[:topK]
	}
	ranked = make([]models.RankedChunk, len(scored))
	for i, s := range scored {
		ranked[i] = models.RankedChunk{Chunk: chunks[s.Index], Score: s.Score, Index: s.Index}
	}
	e.logger.Debug("ranked chunks", zap.Int("chunks", len(chunks)), zap.Int("returned", len(ranked)))
	return ranked, nil
}

// Compare computes cosine similarities between two vector sets. The
// provider is not involved, so any consistent dimension is accepted.
func (e *Engine) Compare(ctx context.Context, a, b similarity.VectorSet, mode similarity.Mode) (res *similarity.Result, err error) {
	_, span := tracing.StartSpan(ctx, "engine.compare",
		attribute.Int("vectors_a", len(a)),
		attribute.Int("vectors_b", len(b)),
		attribute.String("requested_mode", mode.String()),
	)
	defer func() { tracing.End(span, err) }()

	res, err = similarity.CompareMode(a, b, mode)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("mode", res.Mode.String()))
	return res, nil
}

func (e *Engine) embed(ctx context.Context, op string, texts []string) (similarity.VectorSet, error) {
	raw, err := e.provider.Embed(ctx, texts)
	if err != nil {
		e.logger.Error("embedding failed", zap.String("provider", e.provider.Name()), zap.Int("texts", len(texts)), zap.Error(err))
		return nil, similarity.ProviderErr(op, err)
	}
	if err := checkShape(raw, len(texts), e.provider.Dimensions()); err != nil {
		e.logger.Error("unexpected embedding shape", zap.String("provider", e.provider.Name()), zap.Error(err))
		return nil, similarity.ProviderErr(op, err)
	}
	return similarity.SetFromFloat32(raw), nil
}

func validateTexts(op, field string, texts []string) error {
	if len(texts) == 0 {
		return similarity.Validationf(op, "%s must contain at least one string", field)
	}
	for i, t := range texts {
		if t == "" {
			return similarity.Validationf(op, "%s[%d] is empty", field, i)
		}
	}
	return nil
}

func checkShape(vecs [][]float32, n, dims int) error {
	if len(vecs) != n {
		return fmt.Errorf("unexpected shape: %d embeddings for %d texts", len(vecs), n)
	}
	for i, v := range vecs {
		if len(v) != dims {
			return fmt.Errorf("unexpected shape: embedding %d has %d dimensions, want %d", i, len(v), dims)
		}
		for _, x := range v {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return fmt.Errorf("embedding %d has a non-finite component", i)
			}
		}
	}
	return nil
}
