package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/daniu006/qrgate/internal/db"
	"github.com/daniu006/qrgate/internal/qrgate/store"
)

type AccessLogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessLogStore(db *sql.DB, writer *dbpkg.Worker) *AccessLogStore {
	return &AccessLogStore{db: db, writer: writer}
}

func (s *AccessLogStore) Append(ctx context.Context, rec store.AccessLogRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	var responseData any
	if rec.ResponsePayload != "" {
		responseData = rec.ResponsePayload
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_logs(timestamp, token_data, validation_result, access_granted, response_data)
VALUES (?, ?, ?, ?, ?);
`,
			rec.Timestamp.UTC().Format(time.RFC3339Nano),
			rec.Payload,
			rec.ResultKind,
			boolToInt(rec.AccessGranted),
			responseData,
		); err != nil {
			return fmt.Errorf("Append insert: %w", err)
		}
		return nil
	})
}

func (s *AccessLogStore) Recent(ctx context.Context, limit int) ([]store.AccessLogRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, timestamp, token_data, validation_result, access_granted, response_data, created_at
FROM access_logs
ORDER BY id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("Recent query: %w", err)
	}
	defer rows.Close()

	var out []store.AccessLogRecord
	for rows.Next() {
		var (
			rec          store.AccessLogRecord
			ts           string
			granted      int
			responseData sql.NullString
			createdAt    sql.NullString
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.Payload, &rec.ResultKind, &granted, &responseData, &createdAt); err != nil {
			return nil, fmt.Errorf("Recent scan: %w", err)
		}
		rec.Timestamp = parseStoredTime(ts)
		rec.AccessGranted = granted != 0
		rec.ResponsePayload = responseData.String
		rec.CreatedAt = parseStoredTime(createdAt.String)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Recent rows: %w", err)
	}
	return out, nil
}

func (s *AccessLogStore) Stats(ctx context.Context) (store.Stats, error) {
	var st store.Stats
	err := s.db.QueryRowContext(ctx, `
SELECT
  COUNT(*),
  COALESCE(SUM(CASE WHEN access_granted != 0 THEN 1 ELSE 0 END), 0)
FROM access_logs;
`).Scan(&st.Total, &st.Granted)
	if err != nil {
		return store.Stats{}, fmt.Errorf("Stats query: %w", err)
	}
	st.Denied = st.Total - st.Granted
	return st, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseStoredTime reads timestamps as we write them (RFC3339Nano), falling
// back to SQLite's CURRENT_TIMESTAMP format for created_at.
func parseStoredTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
