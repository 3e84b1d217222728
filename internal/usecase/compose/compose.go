// Package compose builds the citation-tagged context handed to generation.
package compose

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/paralegal/internal/domain/search/result"
)

// TokenCounter measures text in model tokens.
type TokenCounter interface {
	Count(text string) int
}

// Citation is a source document that contributed at least one excerpt.
type Citation struct {
	Source    string
	Namespace string
	Page      int // page of the first excerpt taken from the source
}

// Payload is the composed generation context.
type Payload struct {
	Text      string
	Citations []Citation
	Contexts  []string
	// Truncated is set when the token budget cut excerpts.
	Truncated bool
}

// Empty reports whether no excerpt was included.
func (p Payload) Empty() bool { return len(p.Contexts) == 0 }

// Composer renders fused results into a Payload. Safe for concurrent use
// when the counter is.
type Composer struct {
	counter   TokenCounter
	maxTokens int
}

// New creates a composer. maxTokens <= 0 or a nil counter disables the budget.
func New(counter TokenCounter, maxTokens int) *Composer {
	if counter == nil {
		maxTokens = 0
	}
	return &Composer{counter: counter, maxTokens: maxTokens}
}

// Compose emits one labeled excerpt per (result, context) pair in result order.
// The query counts against the token budget.
func (c *Composer) Compose(results []result.Result, query string) Payload {
	var (
		p     Payload
		b     strings.Builder
		used  int
		cited = make(map[[2]string]struct{})
	)
	if c.maxTokens > 0 {
		used = c.counter.Count(query)
	}

outer:
	for i := range results {
		r := &results[i]
		for j, ctx := range r.Contexts() {
			block := header(i+1, j+1, r) + "\n" + ctx + "\n\n"
			if c.maxTokens > 0 {
				n := c.counter.Count(block)
				if used+n > c.maxTokens {
					p.Truncated = true
					break outer
				}
				used += n
			}
			b.WriteString(block)
			p.Contexts = append(p.Contexts, ctx)

			key := [2]string{r.Source(), r.Namespace()}
			if _, ok := cited[key]; !ok {
				cited[key] = struct{}{}
				p.Citations = append(p.Citations, Citation{Source: r.Source(), Namespace: r.Namespace(), Page: r.Page()})
			}
		}
	}

	p.Text = strings.TrimRight(b.String(), "\n")
	return p
}

func header(doc, excerpt int, r *result.Result) string {
	page := "unknown"
	if r.Page() > 0 {
		page = strconv.Itoa(r.Page())
	}
	return fmt.Sprintf("[Doc %d · Excerpt %d] %s (namespace: %s, page: %s) — matched: %s",
		doc, excerpt, r.Source(), r.Namespace(), page, strings.Join(r.MatchingTerms(), ", "))
}
