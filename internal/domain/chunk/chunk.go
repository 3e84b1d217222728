package chunk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/paralegal/internal/domain"
)

// Stored hash fields.
const (
	FieldText        = "text"
	FieldSource      = "source"
	FieldPage        = "page"
	FieldChunkID     = "chunk_id"
	FieldOCR         = "ocr"
	FieldContentType = "content_type"
	FieldVector      = "vector"
)

// Legacy text fields, tried in order when FieldText is absent.
var textFallbacks = []string{"page_content", "content"}

// ContentTypePDF is the only content type produced by ingestion.
const ContentTypePDF = "pdf"

// Chunk is a unit of ingested document text. Read-only to retrieval.
type Chunk struct {
	ID          string
	Namespace   string
	Source      string
	Page        int
	Index       int
	Text        string
	OCR         bool
	ContentType string
}

// BuildID returns the ingestion id: {source}-pdf-{page}-c{index}.
func BuildID(source string, page, index int) string {
	return fmt.Sprintf("%s-pdf-%d-c%d", source, page, index)
}

// FromFields hydrates a chunk from stored metadata.
// When the text field is missing the first non-empty legacy field is used and a
// *domain.MalformedMetadataError is returned alongside the chunk. Text is empty
// only if no field carried any.
func FromFields(id, namespace string, fields map[string]string) (Chunk, error) {
	c := Chunk{
		ID:          id,
		Namespace:   namespace,
		Source:      fields[FieldSource],
		Text:        fields[FieldText],
		ContentType: fields[FieldContentType],
	}
	if c.Source == "" {
		c.Source = namespace
	}
	c.Page = atoi(fields[FieldPage])
	c.Index = atoi(fields[FieldChunkID])
	c.OCR, _ = strconv.ParseBool(fields[FieldOCR])

	if c.Text != "" {
		return c, nil
	}
	for _, f := range textFallbacks {
		if v := fields[f]; v != "" {
			c.Text = v
			return c, &domain.MalformedMetadataError{ChunkID: id, Fallback: f}
		}
	}
	return c, &domain.MalformedMetadataError{ChunkID: id}
}

// Fields returns the metadata stored for the chunk, without the vector.
func (c Chunk) Fields() map[string]string {
	ct := c.ContentType
	if ct == "" {
		ct = ContentTypePDF
	}
	return map[string]string{
		FieldText:        c.Text,
		FieldSource:      c.Source,
		FieldPage:        strconv.Itoa(c.Page),
		FieldChunkID:     strconv.Itoa(c.Index),
		FieldOCR:         strconv.FormatBool(c.OCR),
		FieldContentType: ct,
	}
}

// Page numbers are stored as ints by ingestion but older writers used floats.
func atoi(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// Cursor is an opaque enumeration position. The zero value starts a scan.
type Cursor string

// Page is one batch of an enumeration.
type Page struct {
	Chunks []Chunk
	Next   Cursor
	Done   bool
}

// Scored is a chunk returned by a similarity query.
type Scored struct {
	Chunk Chunk
	Score float64
}
