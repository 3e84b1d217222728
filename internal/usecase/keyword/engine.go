// Package keyword scores passages by term overlap over a full namespace scan.
package keyword

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/kailas-cloud/paralegal/internal/domain/chunk"
	"github.com/kailas-cloud/paralegal/internal/domain/search/result"
)

const (
	// DefaultBatchSize is the enumeration page size.
	DefaultBatchSize = 3000
	// ContextRadius is the number of characters kept on each side of a match.
	ContextRadius = 200
)

// Engine is a substring-overlap keyword search. Safe for concurrent use.
type Engine struct {
	src       ChunkSource
	batchSize int
}

// New creates a keyword engine. batchSize <= 0 selects DefaultBatchSize.
func New(src ChunkSource, batchSize int) *Engine {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Engine{src: src, batchSize: batchSize}
}

// Search scores every chunk of ns by the share of terms it contains and returns
// the topK best, highest score first. Enumeration errors fail the whole namespace.
func (e *Engine) Search(ctx context.Context, terms []string, ns string, topK int) ([]result.Result, error) {
	needles := prepareTerms(terms)
	if len(needles) == 0 || topK <= 0 {
		return nil, nil
	}

	var (
		results []result.Result
		cursor  chunk.Cursor
		seen    = make(map[string]struct{})
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("enumerate %s: %w", ns, err)
		}
		page, err := e.src.Enumerate(ctx, ns, cursor, e.batchSize)
		if err != nil {
			return nil, fmt.Errorf("enumerate %s: %w", ns, err)
		}

		for _, c := range page.Chunks {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			if r, ok := match(c, needles); ok {
				results = append(results, r)
			}
		}

		if page.Done {
			break
		}
		cursor = page.Next
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score() > results[j].Score()
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

type needle struct {
	term  string
	runes []rune
}

// prepareTerms lower-cases terms and drops blanks and duplicates.
func prepareTerms(terms []string) []needle {
	seen := make(map[string]struct{}, len(terms))
	out := make([]needle, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		lower := lowerRunes(t)
		key := string(lower)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, needle{term: key, runes: lower})
	}
	return out
}

func match(c chunk.Chunk, needles []needle) (result.Result, bool) {
	if c.Text == "" {
		return result.Result{}, false
	}
	text := []rune(c.Text)
	lower := lowerRunes(c.Text)

	var matched, contexts []string
	for _, n := range needles {
		hits := occurrences(lower, n.runes)
		if len(hits) == 0 {
			continue
		}
		matched = append(matched, n.term)
		for _, pos := range hits {
			start := max(0, pos-ContextRadius)
			end := min(len(text), pos+len(n.runes)+ContextRadius)
			contexts = append(contexts, string(text[start:end]))
		}
	}
	if len(matched) == 0 {
		return result.Result{}, false
	}

	score := float64(len(matched)) / float64(len(needles))
	return result.NewKeyword(result.Passage{
		ID:        c.ID,
		Namespace: c.Namespace,
		Source:    c.Source,
		Page:      c.Page,
		Text:      c.Text,
	}, score, matched, contexts), true
}

// lowerRunes lower-cases rune by rune so offsets map back onto the original text.
func lowerRunes(s string) []rune {
	r := []rune(s)
	for i, c := range r {
		r[i] = unicode.ToLower(c)
	}
	return r
}

// occurrences returns the start offsets of non-overlapping matches of needle in hay.
func occurrences(hay, needle []rune) []int {
	var out []int
	for i := 0; i+len(needle) <= len(hay); {
		if runesEqual(hay[i:i+len(needle)], needle) {
			out = append(out, i)
			i += len(needle)
			continue
		}
		i++
	}
	return out
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
