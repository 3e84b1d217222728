// Package expand derives bounded query variants to widen lexical recall.
package expand

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxVariants  = 5
	maxKeywords  = 5
	longQuery    = 10 // tokens; longer queries take the reduced path
	stripBelow   = 6  // tokens; interrogatives are stripped only from shorter queries
	maxBigrams   = 2
	minWordRunes = 3
)

// Expanded is the outcome of expanding one query.
type Expanded struct {
	// Variants holds at most five query strings, the raw query first.
	Variants []string
	// Keywords are the top important words by frequency.
	Keywords []string
	// Terms is the ordered distinct set of lower-cased non-stopword tokens,
	// keywords first. It is the term set of the keyword engine.
	Terms []string
}

// Expander is deterministic and holds no state.
type Expander struct{}

// New creates an expander.
func New() *Expander { return &Expander{} }

// Expand returns the variants of raw. The result is a pure function of raw.
func (Expander) Expand(raw string) Expanded {
	tokens := strings.Fields(raw)
	keywords := topKeywords(tokens)
	out := Expanded{
		Variants: []string{raw},
		Keywords: keywords,
		Terms:    terms(tokens, keywords),
	}
	joined := strings.Join(keywords, " ")

	if len(tokens) > longQuery {
		if len(keywords) > 3 {
			out.Variants = append(out.Variants, joined)
		}
		return out
	}

	if joined != "" && joined != strings.ToLower(strings.TrimSpace(raw)) {
		out.Variants = appendNew(out.Variants, joined)
	}

	if len(tokens) > 1 && len(tokens) < stripBelow && isInterrogative(clean(tokens[0])) {
		out.Variants = appendNew(out.Variants, strings.Join(tokens[1:], " "))
	}

	if n := len(keywords); n >= 2 && n <= maxKeywords {
		added := 0
	pairs:
		for i := 0; i < min(3, n); i++ {
			for j := i + 1; j < min(4, n); j++ {
				before := len(out.Variants)
				out.Variants = appendNew(out.Variants, keywords[i]+" "+keywords[j])
				if len(out.Variants) > before {
					added++
				}
				if added == maxBigrams {
					break pairs
				}
			}
		}
	}

	if len(out.Variants) > maxVariants {
		out.Variants = out.Variants[:maxVariants]
	}
	return out
}

// topKeywords ranks important words by frequency, first occurrence breaking ties.
func topKeywords(tokens []string) []string {
	counts := make(map[string]int)
	var order []string
	for _, t := range tokens {
		w := clean(t)
		if utf8.RuneCountInString(w) < minWordRunes || IsStopword(w) {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	// Insertion sort keeps first-occurrence order among equal counts.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && counts[order[j]] > counts[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	return order
}

func terms(tokens, keywords []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	add := func(w string) {
		if w == "" || IsStopword(w) {
			return
		}
		if _, ok := seen[w]; ok {
			return
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	for _, k := range keywords {
		add(k)
	}
	for _, t := range tokens {
		add(clean(t))
	}
	return out
}

// clean lower-cases a token and trims surrounding punctuation.
func clean(token string) string {
	return strings.TrimFunc(strings.ToLower(token), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isInterrogative(w string) bool {
	for _, q := range interrogatives {
		if w == q {
			return true
		}
	}
	return false
}

func appendNew(variants []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return variants
	}
	for _, existing := range variants {
		if strings.EqualFold(existing, v) {
			return variants
		}
	}
	return append(variants, v)
}
