// Package record holds the classified log record shared by the store and
// the live-update publishers.
package record

import (
	"time"

	"github.com/google/uuid"

	"github.com/shortontech/botmeter/internal/detect"
	"github.com/shortontech/botmeter/internal/logparse"
)

// Record is one normalized log entry joined with its classification. A
// detection result is never persisted apart from its source entry.
type Record struct {
	ID         string         `json:"id"`
	Site       string         `json:"site"`
	Entry      logparse.Entry `json:"entry"`
	Result     detect.Result  `json:"result"`
	IngestedAt time.Time      `json:"ingested_at"`
}

// New stamps a fresh record with an ID and ingest time.
func New(site string, entry logparse.Entry, result detect.Result) Record {
	return Record{
		ID:         uuid.NewString(),
		Site:       site,
		Entry:      entry,
		Result:     result,
		IngestedAt: time.Now().UTC(),
	}
}
