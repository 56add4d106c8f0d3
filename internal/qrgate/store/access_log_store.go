package store

import (
	"context"
	"time"
)

// AccessLogRecord is one row of the append-only audit log: the outcome of a
// single processed (non-deduped) scan.
type AccessLogRecord struct {
	ID              int64
	Timestamp       time.Time
	Payload         string
	ResultKind      string // terminal pipeline state, e.g. "ATTENDANCE_RECORDED"
	AccessGranted   bool
	ResponsePayload string // serialized remote response or error document; empty if none
	CreatedAt       time.Time
}

// Stats summarizes the audit log for the shutdown report.
type Stats struct {
	Total   int64
	Granted int64
	Denied  int64
}

// AccessLogStore persists scan outcomes as an append-only audit log.
// Append must be durable and synchronous; Recent and Stats exist for
// inspection and never influence pipeline decisions.
type AccessLogStore interface {
	Append(ctx context.Context, rec AccessLogRecord) error
	Recent(ctx context.Context, limit int) ([]AccessLogRecord, error)
	Stats(ctx context.Context) (Stats, error)
}
