package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// PageQuery reads one window of an index's documents in index order.
// An empty Query matches every document.
type PageQuery struct {
	IndexName    string
	Query        string
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// Score is cosine similarity (1 - distance), clamped at 0.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
