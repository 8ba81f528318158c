package publish

import (
	"context"

	"github.com/shortontech/botmeter/internal/record"
)

// Publisher forwards newly ingested classified records to subscribers. The
// core treats publish failure like any collaborator failure: wrapped and
// surfaced, never retried.
type Publisher interface {
	Start(ctx context.Context) error
	Publish(ctx context.Context, r record.Record) error
	Close() error
	Name() string
}
