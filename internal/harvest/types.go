// Package harvest defines core types shared across subsystems.
package harvest

import "time"

// FetchMode selects how a target URL is fetched and which extractor
// handles the resulting payload.
type FetchMode string

// Fetch modes supported by the pipeline.
const (
	ModeAPI        FetchMode = "api"
	ModeDetailPage FetchMode = "detail_page"
)

// AuthorUnknown is stored when the source exposes no display name.
const AuthorUnknown = "unknown"

// DateUnknown is the sentinel emitted when every date fallback comes up empty.
const DateUnknown = "unknown time"

// Metrics holds the engagement counters attached to a post.
type Metrics struct {
	Reposts  int `bson:"reposts" json:"reposts"`
	Comments int `bson:"comments" json:"comments"`
	Likes    int `bson:"likes" json:"likes"`
}

// Record is the canonical post representation carried end to end through
// the pipeline. It is created by extraction, mutated in place by the
// normalization stage, and handed once to the store.
type Record struct {
	Text        string    `bson:"text" json:"text"`
	Tokens      []string  `bson:"tokens" json:"tokens"`
	Author      string    `bson:"author" json:"author"`
	PublishedAt string    `bson:"published_at,omitempty" json:"published_at,omitempty"`
	Metrics     Metrics   `bson:"metrics" json:"metrics"`
	ImageURLs   []string  `bson:"image_urls,omitempty" json:"image_urls,omitempty"`
	Images      []string  `bson:"images,omitempty" json:"images,omitempty"`
	SourceURL   string    `bson:"source_url,omitempty" json:"source_url,omitempty"`
	Keyword     string    `bson:"keyword,omitempty" json:"keyword,omitempty"`
	TextHash    string    `bson:"text_hash,omitempty" json:"text_hash,omitempty"`
	FetchedAt   time.Time `bson:"fetched_at" json:"fetched_at"`
}

// WellFormed reports whether the record may be persisted. Records whose
// text is empty after cleaning are dropped.
func (r Record) WellFormed() bool {
	return r.Text != ""
}

// FetchRequest captures everything needed to fetch one target.
type FetchRequest struct {
	URL     string
	Mode    FetchMode
	Keyword string
}

// FetchResult is the raw payload produced by a Fetcher.
type FetchResult struct {
	Body     string
	FinalURL string
	Duration time.Duration
}
