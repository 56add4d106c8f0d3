package memory

import (
	"context"
	"sync"
	"time"

	"github.com/daniu006/qrgate/internal/qrgate/store"
)

// AccessLogStore is an in-memory append-only audit log for tests and dev.
type AccessLogStore struct {
	mu   sync.Mutex
	recs []store.AccessLogRecord
}

func NewAccessLogStore() *AccessLogStore {
	return &AccessLogStore{}
}

func (s *AccessLogStore) Append(_ context.Context, rec store.AccessLogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = int64(len(s.recs) + 1)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.recs = append(s.recs, rec)
	return nil
}

func (s *AccessLogStore) Recent(_ context.Context, limit int) ([]store.AccessLogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.recs) {
		limit = len(s.recs)
	}
	out := make([]store.AccessLogRecord, 0, limit)
	for i := len(s.recs) - 1; i >= len(s.recs)-limit; i-- {
		out = append(out, s.recs[i])
	}
	return out, nil
}

func (s *AccessLogStore) Stats(_ context.Context) (store.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st store.Stats
	for _, r := range s.recs {
		st.Total++
		if r.AccessGranted {
			st.Granted++
		} else {
			st.Denied++
		}
	}
	return st, nil
}

// Records returns a copy of all appended records.  Test-only helper.
func (s *AccessLogStore) Records() []store.AccessLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AccessLogRecord, len(s.recs))
	copy(out, s.recs)
	return out
}
