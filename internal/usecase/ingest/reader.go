package ingest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kailas-cloud/paralegal/internal/domain/chunk"
)

// maxLineBytes bounds one JSONL record. OCR pages can be long.
const maxLineBytes = 4 << 20

// Record is one pre-chunked passage as written by the extraction pipeline.
type Record struct {
	Source  string `json:"source"`
	Page    int    `json:"page"`
	ChunkID int    `json:"chunk_id"`
	Text    string `json:"text"`
	OCR     bool   `json:"ocr"`
}

// ErrInvalidRecord marks a JSONL line that cannot be ingested.
var ErrInvalidRecord = errors.New("invalid record")

// toChunk validates r and builds the stored chunk. source defaults to the namespace.
func (r Record) toChunk(ns string) (chunk.Chunk, error) {
	if strings.TrimSpace(r.Text) == "" {
		return chunk.Chunk{}, fmt.Errorf("%w: empty text", ErrInvalidRecord)
	}
	if r.Page < 0 || r.ChunkID < 0 {
		return chunk.Chunk{}, fmt.Errorf("%w: negative page or chunk_id", ErrInvalidRecord)
	}
	src := r.Source
	if src == "" {
		src = ns
	}
	return chunk.Chunk{
		ID:          chunk.BuildID(src, r.Page, r.ChunkID),
		Namespace:   ns,
		Source:      src,
		Page:        r.Page,
		Index:       r.ChunkID,
		Text:        r.Text,
		OCR:         r.OCR,
		ContentType: chunk.ContentTypePDF,
	}, nil
}

// readRecordsCallback is called per line. line is 1-based. Returning false stops reading.
type readRecordsCallback func(rec Record, line int, err error) bool

// readRecords streams JSONL from r. Blank lines are ignored; undecodable lines
// are passed to cb with an error so the caller can count them.
func readRecords(r io.Reader, cb readRecordsCallback) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var rec Record
		var err error
		if jerr := json.Unmarshal([]byte(raw), &rec); jerr != nil {
			err = fmt.Errorf("%w: line %d: %w", ErrInvalidRecord, line, jerr)
		}
		if !cb(rec, line, err) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read records: %w", err)
	}
	return nil
}
