package prompt

import (
	"strings"
	"testing"

	domstrategy "github.com/kailas-cloud/paralegal/internal/domain/strategy"
)

func TestRender_EveryStyle(t *testing.T) {
	r := MustNew()

	seen := map[string]domstrategy.SummaryStyle{}
	for _, style := range domstrategy.Styles {
		out, err := r.Render(domstrategy.Decision{Strategy: domstrategy.Summarize, Style: style}, "summarize the order", "[Doc 1 · Excerpt 1] ctx")
		if err != nil {
			t.Fatalf("%s: %v", style, err)
		}
		if !strings.Contains(out, "summarize the order") || !strings.Contains(out, "[Doc 1 · Excerpt 1] ctx") {
			t.Errorf("%s: query or context missing:\n%s", style, out)
		}
		if other, dup := seen[out]; dup {
			t.Errorf("%s renders the same prompt as %s", style, other)
		}
		seen[out] = style
	}
}

func TestRender_Answer(t *testing.T) {
	out, err := MustNew().Render(domstrategy.Decision{Strategy: domstrategy.Answer}, "What is bail?", "ctx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Question: What is bail?") {
		t.Errorf("answer prompt missing question:\n%s", out)
	}
}

func TestRender_UnknownStyleFallsBack(t *testing.T) {
	r := MustNew()
	got, err := r.Render(domstrategy.Decision{Strategy: domstrategy.Summarize, Style: "poetic"}, "q", "c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := r.Render(domstrategy.Decision{Strategy: domstrategy.Summarize, Style: domstrategy.StyleStandard}, "q", "c")
	if got != want {
		t.Error("unknown style should render the standard template")
	}
}

func TestRender_NoEscaping(t *testing.T) {
	out, _ := MustNew().Render(domstrategy.Decision{Strategy: domstrategy.Answer}, `Is "A & B" <valid>?`, "c")
	if !strings.Contains(out, `Is "A & B" <valid>?`) {
		t.Error("query must be rendered verbatim")
	}
}
