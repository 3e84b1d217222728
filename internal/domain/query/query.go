package query

import "strings"

// Query is a user question as received and its normalized form.
type Query struct {
	Raw   string
	Lower string
}

// New normalizes raw. Raw is kept verbatim.
func New(raw string) Query {
	return Query{Raw: raw, Lower: strings.ToLower(strings.TrimSpace(raw))}
}

// Empty reports whether the query carries no text.
func (q Query) Empty() bool { return q.Lower == "" }
