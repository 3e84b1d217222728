package vector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/domain/chunk"
	"github.com/kailas-cloud/paralegal/internal/domain/search/result"
)

// --- Mocks ---

type mockEmbedder struct {
	err   error
	calls atomic.Int32
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}, TotalTokens: 4}, nil
}

type mockIndex struct {
	mu      sync.Mutex
	byNS    map[string][]chunk.Scored
	errs    map[string]error
	block   map[string]bool // wait for ctx.Done
	topKs   []int
	running atomic.Int32
	peak    atomic.Int32
}

func (m *mockIndex) Query(ctx context.Context, ns string, _ []float32, topK int) ([]chunk.Scored, error) {
	n := m.running.Add(1)
	defer m.running.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	m.mu.Lock()
	m.topKs = append(m.topKs, topK)
	m.mu.Unlock()

	if m.block[ns] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	time.Sleep(time.Millisecond)
	if err := m.errs[ns]; err != nil {
		return nil, err
	}
	return m.byNS[ns], nil
}

func scored(id, text string, score float64) chunk.Scored {
	return chunk.Scored{Chunk: chunk.Chunk{ID: id, Source: id + ".pdf", Page: 1, Text: text}, Score: score}
}

func ids(rs []result.Result) string {
	out := make([]string, len(rs))
	for i := range rs {
		out[i] = rs[i].ID()
	}
	return strings.Join(out, ",")
}

// --- Tests ---

func TestSearch_AggregatesAndSorts(t *testing.T) {
	emb := &mockEmbedder{}
	idx := &mockIndex{byNS: map[string][]chunk.Scored{
		"a": {scored("a1", "alpha", 0.9), scored("a2", "alpha two", 0.4)},
		"b": {scored("b1", "beta", 0.7), scored("b2", "beta two", 0.0), scored("b3", "beta three", -0.2)},
	}}

	results, failures, err := New(emb, idx, Options{}).Search(context.Background(), "q", []string{"a", "b"}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(failures) != 0 {
		t.Errorf("unexpected failures: %v", failures)
	}
	if got := ids(results); got != "a1,b1,a2" {
		t.Errorf("results = %s, want a1,b1,a2", got)
	}
	if emb.calls.Load() != 1 {
		t.Errorf("query embedded %d times, want once", emb.calls.Load())
	}
	for _, k := range idx.topKs {
		if k != 3 {
			t.Errorf("namespace queried with topK %d", k)
		}
	}

	r := results[1]
	if r.MatchType() != result.MatchVector || r.Namespace() != "b" {
		t.Errorf("unexpected result %s/%s", r.MatchType(), r.Namespace())
	}
	if terms := r.MatchingTerms(); len(terms) != 1 || terms[0] != result.SemanticMatch {
		t.Errorf("MatchingTerms = %q", terms)
	}
}

func TestSearch_RecordsEmbeddingUsage(t *testing.T) {
	ctx, usage := domain.NewContextWithUsage(context.Background())
	idx := &mockIndex{byNS: map[string][]chunk.Scored{"a": {scored("a1", "alpha", 0.5)}}}

	if _, _, err := New(&mockEmbedder{}, idx, Options{}).Search(ctx, "q", []string{"a"}, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, used := usage.Tokens(); n != 4 || !used {
		t.Errorf("usage = %d, %v; want 4, true", n, used)
	}
}

func TestSearch_DiscardsNonPositive(t *testing.T) {
	idx := &mockIndex{byNS: map[string][]chunk.Scored{
		"a": {scored("zero", "z", 0), scored("neg", "n", -0.5)},
	}}

	results, _, err := New(&mockEmbedder{}, idx, Options{}).Search(context.Background(), "q", []string{"a"}, 5)
	if err != nil || len(results) != 0 {
		t.Errorf("expected no results, got %d (%v)", len(results), err)
	}
}

func TestSearch_TruncatesContext(t *testing.T) {
	long := strings.Repeat("ж", MaxContextChars+10)
	idx := &mockIndex{byNS: map[string][]chunk.Scored{
		"a": {scored("long", long, 0.5), scored("short", "brief text", 0.4)},
	}}

	results, _, _ := New(&mockEmbedder{}, idx, Options{}).Search(context.Background(), "q", []string{"a"}, 5)

	want := strings.Repeat("ж", MaxContextChars) + "..."
	if got := results[0].Contexts()[0]; got != want {
		t.Errorf("long context not cut at %d characters (len %d)", MaxContextChars, len([]rune(got)))
	}
	if results[0].Text() != long {
		t.Error("full text must be kept on the result")
	}
	if got := results[1].Contexts()[0]; got != "brief text" {
		t.Errorf("short context = %q", got)
	}
}

func TestSearch_NamespaceFailureIsolated(t *testing.T) {
	boom := errors.New("index missing")
	idx := &mockIndex{
		byNS: map[string][]chunk.Scored{"ok": {scored("x", "text", 0.8)}},
		errs: map[string]error{"bad": boom},
	}

	results, failures, err := New(&mockEmbedder{}, idx, Options{}).
		Search(context.Background(), "q", []string{"bad", "ok"}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids(results) != "x" {
		t.Errorf("results = %s, want x", ids(results))
	}
	if len(failures) != 1 || failures[0].Namespace != "bad" || failures[0].Source != SourceName {
		t.Fatalf("failures = %+v", failures)
	}
	if !errors.Is(failures[0], boom) {
		t.Errorf("failure should wrap the cause")
	}
}

func TestSearch_NamespaceTimeout(t *testing.T) {
	idx := &mockIndex{
		byNS:  map[string][]chunk.Scored{"fast": {scored("f", "text", 0.6)}},
		block: map[string]bool{"slow": true},
	}

	start := time.Now()
	results, failures, err := New(&mockEmbedder{}, idx, Options{QueryTimeout: 20 * time.Millisecond}).
		Search(context.Background(), "q", []string{"slow", "fast"}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("slow namespace blocked the request")
	}
	if ids(results) != "f" {
		t.Errorf("results = %s, want f", ids(results))
	}
	if len(failures) != 1 || !errors.Is(failures[0], context.DeadlineExceeded) {
		t.Errorf("expected a deadline failure for slow, got %+v", failures)
	}
}

func TestSearch_BoundedParallelism(t *testing.T) {
	idx := &mockIndex{byNS: map[string][]chunk.Scored{}}
	nss := []string{"a", "b", "c", "d", "e", "f"}

	if _, _, err := New(&mockEmbedder{}, idx, Options{MaxParallelism: 2}).
		Search(context.Background(), "q", nss, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p := idx.peak.Load(); p > 2 {
		t.Errorf("peak concurrency %d exceeds limit 2", p)
	}
	if len(idx.topKs) != len(nss) {
		t.Errorf("queried %d namespaces, want %d", len(idx.topKs), len(nss))
	}
}

func TestSearch_EmbedError(t *testing.T) {
	idx := &mockIndex{}
	_, _, err := New(&mockEmbedder{err: domain.ErrInvalidCredentials}, idx, Options{}).
		Search(context.Background(), "q", []string{"a"}, 5)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(idx.topKs) != 0 {
		t.Error("namespaces must not be queried without an embedding")
	}
}

func TestSearch_ParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	idx := &mockIndex{block: map[string]bool{"a": true, "b": true}}

	done := make(chan struct{})
	var failures []domain.NamespaceFailure
	go func() {
		_, failures, _ = New(&mockEmbedder{}, idx, Options{}).Search(ctx, "q", []string{"a", "b"}, 5)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("search did not stop on cancellation")
	}
	if len(failures) != 2 {
		t.Errorf("expected both namespaces to fail, got %d", len(failures))
	}
}

func TestSearch_NoNamespaces(t *testing.T) {
	emb := &mockEmbedder{}
	results, failures, err := New(emb, &mockIndex{}, Options{}).Search(context.Background(), "q", nil, 5)
	if results != nil || failures != nil || err != nil {
		t.Error("expected empty outcome")
	}
	if emb.calls.Load() != 0 {
		t.Error("nothing to search, embedding must be skipped")
	}
}
