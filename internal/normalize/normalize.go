package normalize

import (
	"go.uber.org/zap"

	"weibo-harvest/internal/harvest"
)

// Stage is the normalization pass applied once to each record before
// persistence. Text and date fields mutate in place; tokens and the
// content hash are derived from the cleaned text.
type Stage struct {
	tokenizer *Tokenizer
	dates     *DateParser
	logger    *zap.Logger
}

// NewStage wires the tokenizer and date parser together.
func NewStage(tokenizer *Tokenizer, dates *DateParser, logger *zap.Logger) *Stage {
	return &Stage{tokenizer: tokenizer, dates: dates, logger: logger}
}

// Apply normalizes one record in place.
func (s *Stage) Apply(record *harvest.Record) {
	record.Text = CleanText(record.Text)
	if record.Text == "" {
		record.Tokens = nil
		record.TextHash = ""
	} else {
		record.Tokens = s.tokenizer.Tokenize(record.Text)
		record.TextHash = TextHash(record.Text)
	}

	if record.PublishedAt != "" {
		record.PublishedAt = s.dates.Parse(record.PublishedAt)
	}

	for i, src := range record.ImageURLs {
		if len(src) > 1 && src[0] == '/' && src[1] == '/' {
			record.ImageURLs[i] = "http:" + src
		}
	}
}
