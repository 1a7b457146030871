// Package tokenizer counts and encodes text in a fixed model token unit.
//
// The chunking pipeline sizes its output in tokens, so one encoding scheme
// is used for the whole deployment to keep chunk sizes comparable across
// documents.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding matches the tokenization of the default embedding models.
const DefaultEncoding = "cl100k_base"

// Tokenizer wraps one tiktoken encoding.
type Tokenizer struct {
	encoding string
	tk       *tiktoken.Tiktoken
}

// New creates a Tokenizer for the named encoding. Construction failure is
// fatal for the deployment; there is no fallback encoding.
func New(encoding string) (*Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	tk, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %q: %w", encoding, err)
	}
	return &Tokenizer{encoding: encoding, tk: tk}, nil
}

// Encoding returns the name of the encoding in use.
func (t *Tokenizer) Encoding() string {
	return t.encoding
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.Encode(text))
}

// Encode converts text to token ids.
func (t *Tokenizer) Encode(text string) []int {
	return t.tk.Encode(text, nil, nil)
}

// Decode converts token ids back to text. Decode(Encode(s)) == s for any
// text expressible in the encoding's vocabulary.
func (t *Tokenizer) Decode(tokens []int) string {
	return t.tk.Decode(tokens)
}
