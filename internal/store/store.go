package store

import (
	"context"
	"time"

	"github.com/shortontech/botmeter/internal/record"
)

// Store is the persistence boundary for classified log records. Failures
// surface to the caller with their cause; the core never retries.
type Store interface {
	EnsureSchema(ctx context.Context) error
	InsertBatch(ctx context.Context, records []record.Record) error
	// RecentBySite returns the most recent records for a site since the
	// given time, newest first, capped at limit.
	RecentBySite(ctx context.Context, site string, since time.Time, limit int) ([]record.Record, error)
	Close() error
}
