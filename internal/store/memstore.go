package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shortontech/botmeter/internal/record"
)

// MemStore keeps records in memory. It backs dev setups without a database
// and doubles as the test store.
type MemStore struct {
	mu      sync.RWMutex
	records []record.Record
}

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) EnsureSchema(ctx context.Context) error { return nil }

func (s *MemStore) InsertBatch(ctx context.Context, records []record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

func (s *MemStore) RecentBySite(ctx context.Context, site string, since time.Time, limit int) ([]record.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []record.Record
	for _, r := range s.records {
		if r.Site == site && !r.Entry.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Entry.Timestamp.After(out[j].Entry.Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) Close() error { return nil }
