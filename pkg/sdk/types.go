package paralegal

import "time"

// Source is a document cited by an answer.
type Source struct {
	File      string
	Namespace string
	Page      int // 0 when unknown
}

// ChatResponse is the outcome of one question.
type ChatResponse struct {
	Answer   string
	Sources  []Source
	Contexts []string // excerpts handed to the model, in citation order

	// General is set for greetings and other conversational input answered without retrieval.
	General  bool
	Category string
	Strategy string // "answer" or "summarize"
	Style    string
	Variants []string
	// Warnings name namespaces whose retrieval failed; the answer was built without them.
	Warnings []string
}

// Partial reports whether some namespaces failed to contribute.
func (r ChatResponse) Partial() bool { return len(r.Warnings) > 0 }

// Namespace is a searchable document collection.
type Namespace struct {
	Name        string
	VectorCount int64
}

// IngestResult summarizes one Ingest call.
type IngestResult struct {
	Namespace       string
	Processed       int64
	Failed          int64
	Skipped         int64
	// EmbeddingTokens is the provider-reported token count; cache hits add none.
	EmbeddingTokens int
	Duration        time.Duration
}
