package harvest

import (
	"context"
	"time"
)

// Fetcher retrieves the rendered payload for a target URL.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResult, error)
}

// RecordStore durably persists normalized records. Saving a record that
// shares a source URL with a stored one replaces it rather than
// duplicating it.
type RecordStore interface {
	Save(ctx context.Context, record Record) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
