package scan

import (
	"context"
	"errors"
	"time"
)

// Store errors shared by all implementations.
var (
	ErrNotFound      = errors.New("scan not found")
	ErrAlreadyExists = errors.New("scan already exists")
)

// Store persists scan records.
//
// Update is a full-record replace keyed by scan ID: concurrent readers observe
// either the pre- or post-update record, never a partial one.
type Store interface {
	Create(ctx context.Context, s Scan) error
	Get(ctx context.Context, id string) (Scan, error)
	Update(ctx context.Context, s Scan) error
	Stats(ctx context.Context, dayStart time.Time) (Stats, error)
	Close() error
}

// FetchResult carries a fetched document back to the pipeline.
type FetchResult struct {
	Body       []byte
	FinalURL   string
	StatusCode int
}

// Fetcher retrieves a document over HTTP.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// IDGenerator creates opaque scan identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock abstracts time.Now for testability.
type Clock interface {
	Now() time.Time
}
