// Package prompt renders the generation prompt for a strategy decision.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	domstrategy "github.com/kailas-cloud/paralegal/internal/domain/strategy"
)

// Data is the template input.
type Data struct {
	Query   string
	Context string
}

// Renderer maps decisions onto parsed templates. Safe for concurrent use.
type Renderer struct {
	answer    *template.Template
	summaries map[domstrategy.SummaryStyle]*template.Template
}

// New parses every template.
func New() (*Renderer, error) {
	r := &Renderer{summaries: make(map[domstrategy.SummaryStyle]*template.Template)}

	var err error
	if r.answer, err = template.New("answer").Parse(answerTmpl); err != nil {
		return nil, fmt.Errorf("parse answer template: %w", err)
	}
	for style, src := range map[domstrategy.SummaryStyle]string{
		domstrategy.StyleStandard:     standardTmpl,
		domstrategy.StyleExtractive:   extractiveTmpl,
		domstrategy.StyleAbstractive:  abstractiveTmpl,
		domstrategy.StyleHybrid:       hybridTmpl,
		domstrategy.StyleQueryFocused: queryFocusedTmpl,
	} {
		t, err := template.New(string(style)).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", style, err)
		}
		r.summaries[style] = t
	}
	return r, nil
}

// MustNew is New for package-level use; it panics on a template error.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Render returns the prompt for d. Summaries with an unknown style fall back to standard.
func (r *Renderer) Render(d domstrategy.Decision, query, context string) (string, error) {
	t := r.answer
	if d.Strategy == domstrategy.Summarize {
		var ok bool
		if t, ok = r.summaries[d.Style]; !ok {
			t = r.summaries[domstrategy.StyleStandard]
		}
	}

	var b strings.Builder
	if err := t.Execute(&b, Data{Query: query, Context: context}); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return b.String(), nil
}
