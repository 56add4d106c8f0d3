package types

import (
	"encoding/json"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// State classifies the terminal outcome of a processed scan.  It doubles as
// the validation_result column value in the audit log.
type State string

const (
	StateActive             State = "ACTIVE"
	StateExpired            State = "EXPIRED"
	StateInactiveOrMissing  State = "INACTIVE_OR_MISSING"
	StateAttendanceRecorded State = "ATTENDANCE_RECORDED"
	StateError              State = "ERROR"
	StateErrorAttendance    State = "ERROR_ATTENDANCE"
	StateRejectedLocal      State = "REJECTED_LOCAL"
)

// ScanEvent is one decoded read from the code scanner.  Ephemeral: it exists
// for the duration of a single pipeline pass and is never persisted directly.
type ScanEvent struct {
	ID         string // correlation id for log lines
	Payload    string
	ObservedAt time.Time
}

// ValidationResult is the single outcome value produced for every scan that
// passes the dedup gate.  It is fully populated on every path, including all
// transport failures, and is immutable once constructed.
//
// Valid is true iff State == StateAttendanceRecorded; every other state
// denies access.
type ValidationResult struct {
	State   State
	Valid   bool
	Message string

	// TokenData carries the remote token_data object, when present.
	TokenData *structpb.Struct

	Warnings      []string
	FirstScan     *bool
	PreviousScans []time.Time

	// Raw preserves the remote response body verbatim (or a constructed
	// {"error": ...} document on failure) so the audit log can round-trip
	// the full structure.
	Raw json.RawMessage
}

// DisplayState pairs the most recent result with the deadline after which
// presentation collaborators should stop showing it.
type DisplayState struct {
	Result    ValidationResult
	ExpiresAt time.Time
}
