package strategy

import "fmt"

// Strategy is the kind of generation a query needs.
type Strategy string

const (
	Answer    Strategy = "answer"
	Summarize Strategy = "summarize"
)

// SummaryStyle selects a summarization template.
type SummaryStyle string

const (
	StyleStandard     SummaryStyle = "standard"
	StyleExtractive   SummaryStyle = "extractive"
	StyleAbstractive  SummaryStyle = "abstractive"
	StyleHybrid       SummaryStyle = "hybrid"
	StyleQueryFocused SummaryStyle = "query-focused"
)

// Styles lists every summary style.
var Styles = []SummaryStyle{StyleStandard, StyleExtractive, StyleAbstractive, StyleHybrid, StyleQueryFocused}

// ParseStyle validates a style name.
func ParseStyle(s string) (SummaryStyle, error) {
	for _, st := range Styles {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown summary style %q", s)
}

// Decision is the selector output. Style is set only for Summarize.
type Decision struct {
	Strategy Strategy
	Style    SummaryStyle
}
