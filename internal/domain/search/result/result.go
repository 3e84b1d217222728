package result

// MatchType identifies the engine that produced a result.
type MatchType string

const (
	// MatchKeyword marks results from term-overlap scoring.
	MatchKeyword MatchType = "keyword"
	// MatchVector marks results from embedding similarity.
	MatchVector MatchType = "vector"
)

// SemanticMatch is the only matching term of a vector result.
const SemanticMatch = "semantic match"

// Result is a single scored passage.
type Result struct {
	id            string
	namespace     string
	source        string
	page          int
	text          string
	score         float64
	matchingTerms []string
	contexts      []string
	matchType     MatchType
}

// Passage identifies the chunk behind a result.
type Passage struct {
	ID        string
	Namespace string
	Source    string
	Page      int
	Text      string
}

// NewKeyword creates a keyword result. Duplicate terms and contexts are dropped, order kept.
func NewKeyword(p Passage, score float64, terms, contexts []string) Result {
	return Result{
		id: p.ID, namespace: p.Namespace, source: p.Source, page: p.Page, text: p.Text,
		score:         score,
		matchingTerms: dedupe(terms),
		contexts:      dedupe(contexts),
		matchType:     MatchKeyword,
	}
}

// NewVector creates a vector result with a single context.
func NewVector(p Passage, score float64, context string) Result {
	return Result{
		id: p.ID, namespace: p.Namespace, source: p.Source, page: p.Page, text: p.Text,
		score:         score,
		matchingTerms: []string{SemanticMatch},
		contexts:      []string{context},
		matchType:     MatchVector,
	}
}

// ID returns the chunk identifier.
func (r *Result) ID() string { return r.id }

// Namespace returns the namespace the chunk lives in.
func (r *Result) Namespace() string { return r.namespace }

// Source returns the originating file name.
func (r *Result) Source() string { return r.source }

// Page returns the page number, 0 when unknown.
func (r *Result) Page() int { return r.page }

// Text returns the full chunk text.
func (r *Result) Text() string { return r.text }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// MatchingTerms returns the terms that justified inclusion.
func (r *Result) MatchingTerms() []string { return r.matchingTerms }

// Contexts returns the extracted passages, without duplicates.
func (r *Result) Contexts() []string { return r.contexts }

// MatchType returns the producing engine.
func (r *Result) MatchType() MatchType { return r.matchType }

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
