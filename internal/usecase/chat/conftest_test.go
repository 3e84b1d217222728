package chat

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/domain/chunk"
	"github.com/kailas-cloud/paralegal/internal/domain/namespace"
	"github.com/kailas-cloud/paralegal/internal/domain/search/result"
	"github.com/kailas-cloud/paralegal/internal/metrics"
	"github.com/kailas-cloud/paralegal/internal/usecase/classify"
	"github.com/kailas-cloud/paralegal/internal/usecase/compose"
	"github.com/kailas-cloud/paralegal/internal/usecase/expand"
	"github.com/kailas-cloud/paralegal/internal/usecase/keyword"
	"github.com/kailas-cloud/paralegal/internal/usecase/prompt"
	"github.com/kailas-cloud/paralegal/internal/usecase/strategy"
)

func TestMain(m *testing.M) {
	metrics.RegisterRetrievalMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockNamespaces struct {
	nss []namespace.Namespace
	err error
}

func (m *mockNamespaces) ListNamespaces(_ context.Context) ([]namespace.Namespace, error) {
	return m.nss, m.err
}

// memSource serves one page of chunks per namespace.
type memSource struct {
	chunks map[string][]chunk.Chunk
	errs   map[string]error
	block  map[string]bool
}

func (m *memSource) Enumerate(ctx context.Context, ns string, _ chunk.Cursor, _ int) (chunk.Page, error) {
	if m.block[ns] {
		<-ctx.Done()
		return chunk.Page{}, ctx.Err()
	}
	if err := m.errs[ns]; err != nil {
		return chunk.Page{}, err
	}
	return chunk.Page{Chunks: m.chunks[ns], Done: true}, nil
}

type mockVector struct {
	results  []result.Result
	failures []domain.NamespaceFailure
	err      error
	query    string
}

func (m *mockVector) Search(_ context.Context, q string, _ []string, _ int) ([]result.Result, []domain.NamespaceFailure, error) {
	m.query = q
	return m.results, m.failures, m.err
}

type mockGenerator struct {
	mu   sync.Mutex
	text string
	err  error
	reqs []domain.GenerationRequest
}

func (m *mockGenerator) Generate(_ context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	if m.err != nil {
		return domain.GenerationResult{}, m.err
	}
	return domain.GenerationResult{Text: m.text}, nil
}

type fixture struct {
	svc       *Service
	nss       *mockNamespaces
	src       *memSource
	vec       *mockVector
	generator *mockGenerator
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		nss: &mockNamespaces{nss: []namespace.Namespace{{Name: "doc1", VectorCount: 2}, {Name: "doc2", VectorCount: 1}}},
		src: &memSource{chunks: map[string][]chunk.Chunk{
			"doc1": {
				{ID: "doc1-pdf-3-c0", Namespace: "doc1", Source: "doc1.pdf", Page: 3,
					Text: "The respondent filed a motion to dismiss on jurisdictional grounds."},
				{ID: "doc1-pdf-4-c0", Namespace: "doc1", Source: "doc1.pdf", Page: 4,
					Text: "Costs were awarded to the petitioner."},
			},
			"doc2": {
				{ID: "doc2-pdf-1-c0", Namespace: "doc2", Source: "doc2.pdf", Page: 1,
					Text: "The court considered the grounds of appeal."},
			},
		}},
		vec:       &mockVector{},
		generator: &mockGenerator{text: "The motion was filed on jurisdictional grounds [Doc 1 · Excerpt 1]."},
	}
	f.svc = New(Deps{
		Classifier: classify.New(),
		Expander:   expand.New(),
		Namespaces: f.nss,
		Keyword:    keyword.New(f.src, 0),
		Vector:     f.vec,
		Selector:   strategy.New(""),
		Composer:   compose.New(nil, 0),
		Prompts:    prompt.MustNew(),
		Generator:  f.generator,
	}, opts)
	return f
}

func vectorResult(id, ns string, score float64) result.Result {
	return result.NewVector(result.Passage{ID: id, Namespace: ns, Source: ns + ".pdf", Page: 9, Text: "semantic " + id}, score, "semantic "+id)
}
