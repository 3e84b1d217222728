package paralegal

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/paralegal/internal/domain"
)

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
// Optional: if the provided Embedder also implements BatchEmbedder,
// ingestion uses it for significantly better throughput.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// Generator produces an answer from a rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// BatchEmbed uses the public batch call when available.
func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		return domain.BatchFallback(ctx, a, texts)
	}
	r, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// generatorAdapter wraps public Generator to satisfy internal domain.Generator.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	text, err := a.inner.Generate(ctx, req.Prompt, req.MaxTokens, req.Temperature)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("generate: %w", err)
	}
	return domain.GenerationResult{Text: text}, nil
}

var (
	errNoEmbedder  = errors.New("paralegal: embedder not configured (use WithOpenAIEmbedding or WithEmbedder)")
	errNoGenerator = errors.New("paralegal: generator not configured (use WithOpenAIGeneration or WithGenerator)")
)

// noopEmbedder fails every call. Chat degrades to keyword-only retrieval.
type noopEmbedder struct{}

func (noopEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, errNoEmbedder)
}

// noopGenerator fails every call. Chat still returns sources with a fallback answer.
type noopGenerator struct{}

func (noopGenerator) Generate(context.Context, domain.GenerationRequest) (domain.GenerationResult, error) {
	return domain.GenerationResult{}, fmt.Errorf("%w: %w", domain.ErrGenerationProviderError, errNoGenerator)
}
