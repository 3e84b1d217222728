package compose

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/paralegal/internal/domain/search/result"
)

// wordCounter counts whitespace-separated words.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func kw(id, source, ns string, page int, terms, contexts []string) result.Result {
	return result.NewKeyword(result.Passage{ID: id, Namespace: ns, Source: source, Page: page}, 1, terms, contexts)
}

func TestCompose_Headers(t *testing.T) {
	results := []result.Result{
		kw("a", "case-a.pdf", "case-a", 3, []string{"bail", "surety"}, []string{"first window", "second window"}),
		result.NewVector(result.Passage{ID: "b", Namespace: "case-b", Source: "case-b.pdf"}, 0.7, "semantic text"),
	}

	p := New(nil, 0).Compose(results, "bail surety")

	want := "[Doc 1 · Excerpt 1] case-a.pdf (namespace: case-a, page: 3) — matched: bail, surety\nfirst window\n\n" +
		"[Doc 1 · Excerpt 2] case-a.pdf (namespace: case-a, page: 3) — matched: bail, surety\nsecond window\n\n" +
		"[Doc 2 · Excerpt 1] case-b.pdf (namespace: case-b, page: unknown) — matched: semantic match\nsemantic text"
	if p.Text != want {
		t.Errorf("Text =\n%s\nwant\n%s", p.Text, want)
	}
	if len(p.Contexts) != 3 || p.Contexts[2] != "semantic text" {
		t.Errorf("Contexts = %q", p.Contexts)
	}
	if p.Truncated || p.Empty() {
		t.Error("unexpected truncation")
	}
}

func TestCompose_CitationsDeduplicated(t *testing.T) {
	results := []result.Result{
		kw("a1", "act.pdf", "act", 1, []string{"x"}, []string{"c1"}),
		kw("b1", "order.pdf", "order", 2, []string{"x"}, []string{"c2"}),
		kw("a2", "act.pdf", "act", 7, []string{"x"}, []string{"c3"}),
		kw("c1", "act.pdf", "act-copy", 1, []string{"x"}, []string{"c4"}),
	}

	p := New(nil, 0).Compose(results, "x")

	want := []Citation{
		{Source: "act.pdf", Namespace: "act", Page: 1},
		{Source: "order.pdf", Namespace: "order", Page: 2},
		{Source: "act.pdf", Namespace: "act-copy", Page: 1},
	}
	if len(p.Citations) != len(want) {
		t.Fatalf("Citations = %+v", p.Citations)
	}
	for i := range want {
		if p.Citations[i] != want[i] {
			t.Errorf("[%d] = %+v, want %+v", i, p.Citations[i], want[i])
		}
	}
}

func TestCompose_TokenBudget(t *testing.T) {
	results := []result.Result{
		kw("a", "a.pdf", "a", 1, []string{"t"}, []string{"one two three"}),
		kw("b", "b.pdf", "b", 1, []string{"t"}, []string{"four five six"}),
	}
	// Each block is a 13-word header plus 3 words; the query is 2 words.
	p := New(wordCounter{}, 2+16+5).Compose(results, "two words")

	if len(p.Contexts) != 1 || !p.Truncated {
		t.Fatalf("expected one excerpt and truncation, got %d (%v)", len(p.Contexts), p.Truncated)
	}
	if len(p.Citations) != 1 || p.Citations[0].Source != "a.pdf" {
		t.Errorf("only included sources are cited, got %+v", p.Citations)
	}
	if strings.Contains(p.Text, "four five six") {
		t.Error("over-budget excerpt included")
	}
}

func TestCompose_Empty(t *testing.T) {
	p := New(wordCounter{}, 100).Compose(nil, "q")
	if !p.Empty() || p.Text != "" || p.Citations != nil {
		t.Errorf("expected empty payload, got %+v", p)
	}
}
