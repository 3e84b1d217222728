// Package strategy decides between answering and summarizing.
package strategy

import (
	"regexp"
	"strings"

	domstrategy "github.com/kailas-cloud/paralegal/internal/domain/strategy"
)

var summaryKeywords = []string{
	"summarize", "summary", "brief", "tl;dr", "synopsis", "condense", "recap", "overview", "digest",
}

var summaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(give|provide|show|write|get)\s+(me\s+)?(a|an|the)?\s*(short\s+|quick\s+|brief\s+)?summary\b`),
	regexp.MustCompile(`\b(summari[sz]e|sum\s+up|condense)\b`),
	regexp.MustCompile(`\bin\s+(short|brief|a\s+nutshell)\b`),
}

// Style cues in priority order; the first matching style wins.
var styleCues = []struct {
	style domstrategy.SummaryStyle
	cues  []string
}{
	{domstrategy.StyleHybrid, []string{"both extractive and abstractive", "hybrid"}},
	{domstrategy.StyleExtractive, []string{"key points", "bullet", "extract", "verbatim", "quote"}},
	{domstrategy.StyleAbstractive, []string{"in your own words", "paraphrase", "abstractive"}},
	{domstrategy.StyleQueryFocused, []string{"focus on", "focusing on", "focused on"}},
}

// Selector is a pure function of the query and its default style.
type Selector struct {
	defaultStyle domstrategy.SummaryStyle
}

// New creates a selector. An empty defaultStyle selects StyleStandard.
func New(defaultStyle domstrategy.SummaryStyle) *Selector {
	if defaultStyle == "" {
		defaultStyle = domstrategy.StyleStandard
	}
	return &Selector{defaultStyle: defaultStyle}
}

// Select returns Summarize with a style when the query asks for a summary, Answer otherwise.
func (s *Selector) Select(query string) domstrategy.Decision {
	q := strings.ToLower(strings.TrimSpace(query))
	if !wantsSummary(q) {
		return domstrategy.Decision{Strategy: domstrategy.Answer}
	}
	return domstrategy.Decision{Strategy: domstrategy.Summarize, Style: s.style(q)}
}

func wantsSummary(q string) bool {
	for _, k := range summaryKeywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	for _, p := range summaryPatterns {
		if p.MatchString(q) {
			return true
		}
	}
	return false
}

func (s *Selector) style(q string) domstrategy.SummaryStyle {
	for _, sc := range styleCues {
		for _, cue := range sc.cues {
			if strings.Contains(q, cue) {
				return sc.style
			}
		}
	}
	return s.defaultStyle
}
