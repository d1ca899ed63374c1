package harvest

import (
	"errors"
	"fmt"
)

// Unit-scoped failures. Each terminates processing of a single in-flight
// fetch or record and is reported; none aborts the coordinator's loop.
var (
	// ErrFetchTimeout indicates the per-fetch deadline elapsed.
	ErrFetchTimeout = errors.New("fetch timed out")
	// ErrAuthExpired indicates the fetch was redirected to a login page.
	ErrAuthExpired = errors.New("authenticated session expired")
	// ErrNoJSON indicates the API payload contained no parseable JSON.
	ErrNoJSON = errors.New("no JSON found in payload")
	// ErrEmptyResult indicates the API answered successfully with no cards.
	ErrEmptyResult = errors.New("empty result set")
	// ErrMalformedCard indicates a card lacked its embedded post object.
	ErrMalformedCard = errors.New("malformed card")
)

// APIError carries the upstream message returned when the listing API
// reports failure (ok != 1).
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "api reported failure"
	}
	return fmt.Sprintf("api reported failure: %s", e.Message)
}

// StorageWriteError wraps a store failure together with the natural key
// of the offending record.
type StorageWriteError struct {
	Key string
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("storage write failed for %q: %v", e.Key, e.Err)
}

func (e *StorageWriteError) Unwrap() error {
	return e.Err
}

// ErrorKind maps a pipeline error onto its taxonomy name for logs,
// metrics and dead-letter entries.
func ErrorKind(err error) string {
	var apiErr *APIError
	var storeErr *StorageWriteError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFetchTimeout):
		return "FetchTimeout"
	case errors.Is(err, ErrAuthExpired):
		return "AuthExpired"
	case errors.Is(err, ErrNoJSON):
		return "NoJSONFound"
	case errors.Is(err, ErrEmptyResult):
		return "EmptyResult"
	case errors.Is(err, ErrMalformedCard):
		return "MalformedCard"
	case errors.As(err, &apiErr):
		return "APIError"
	case errors.As(err, &storeErr):
		return "StorageWriteFailed"
	default:
		return "Unknown"
	}
}
