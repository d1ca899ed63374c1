package normalize

import (
	"fmt"
	"strings"

	"github.com/go-ego/gse"
)

// Tokenizer segments cleaned text into tokens with a dictionary-based
// CJK word segmenter. The dictionary and stopword set load once at
// construction and are immutable afterwards.
type Tokenizer struct {
	seg  gse.Segmenter
	stop map[string]struct{}
}

// NewTokenizer loads the segmenter's embedded dictionary and indexes the
// stopword set.
func NewTokenizer(stopwords []string) (*Tokenizer, error) {
	t := &Tokenizer{stop: make(map[string]struct{}, len(stopwords))}
	if err := t.seg.LoadDict(); err != nil {
		return nil, fmt.Errorf("load segmenter dict: %w", err)
	}
	for _, w := range stopwords {
		t.stop[w] = struct{}{}
	}
	return t, nil
}

// Tokenize segments text, dropping stopwords and blank tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	var tokens []string
	for _, tok := range t.seg.Cut(text, true) {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		if _, stopped := t.stop[tok]; stopped {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}
