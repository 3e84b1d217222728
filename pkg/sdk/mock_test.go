package paralegal

import (
	"context"
	"io"

	"github.com/kailas-cloud/paralegal/internal/domain/namespace"
	chatuc "github.com/kailas-cloud/paralegal/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/paralegal/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/paralegal/internal/usecase/ingest"
)

// --- chatUseCase mock ---

type mockChatUC struct {
	chatFn       func(ctx context.Context, raw string) (chatuc.Response, error)
	namespacesFn func(ctx context.Context) ([]namespace.Namespace, error)
}

func (m *mockChatUC) Chat(ctx context.Context, raw string) (chatuc.Response, error) {
	return m.chatFn(ctx, raw)
}

func (m *mockChatUC) Namespaces(ctx context.Context) ([]namespace.Namespace, error) {
	return m.namespacesFn(ctx)
}

// --- ingestUseCase mock ---

type mockIngestUC struct {
	ingestFn func(ctx context.Context, ns string, r io.Reader) (ingestuc.Result, error)
}

func (m *mockIngestUC) Ingest(ctx context.Context, ns string, r io.Reader) (ingestuc.Result, error) {
	return m.ingestFn(ctx, ns, r)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report {
	return m.report
}

// --- public Embedder mocks ---

type fixedEmbedder struct {
	calls int
}

func (e *fixedEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	e.calls++
	return EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: 1}, nil
}

type batchingEmbedder struct {
	fixedEmbedder
	batches int
}

func (e *batchingEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	e.batches++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

// --- helpers ---

func testClient(chat chatUseCase, ingest ingestUseCase, health healthUseCase) *Client {
	return &Client{
		chatSvc:   chat,
		ingestSvc: ingest,
		healthSvc: health,
	}
}
