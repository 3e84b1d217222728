package compose

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding matches the tokenizer of current chat models closely enough for budgeting.
const DefaultEncoding = "cl100k_base"

// TiktokenCounter counts tokens with a BPE encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding. The first load may fetch the
// vocabulary unless TIKTOKEN_CACHE_DIR holds it.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (t *TiktokenCounter) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}
