package service_test

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/daniu006/qrgate/internal/qrgate/actuator"
	"github.com/daniu006/qrgate/internal/qrgate/dedupe"
	"github.com/daniu006/qrgate/internal/qrgate/service"
	"github.com/daniu006/qrgate/internal/qrgate/store"
	"github.com/daniu006/qrgate/internal/qrgate/store/memory"
	"github.com/daniu006/qrgate/internal/qrgate/types"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeValidator returns a scripted result and counts remote calls.
type fakeValidator struct {
	result types.ValidationResult
	calls  atomic.Int64
}

func (f *fakeValidator) Process(context.Context, string) types.ValidationResult {
	f.calls.Add(1)
	return f.result
}

// failingStore rejects every append; reads are never used by the pipeline.
type failingStore struct{}

func (failingStore) Append(context.Context, store.AccessLogRecord) error {
	return errors.New("disk full")
}
func (failingStore) Recent(context.Context, int) ([]store.AccessLogRecord, error) { return nil, nil }
func (failingStore) Stats(context.Context) (store.Stats, error)                   { return store.Stats{}, nil }

type fixture struct {
	pipeline  *service.Pipeline
	validator *fakeValidator
	audit     *memory.AccessLogStore
	act       *actuator.Memory
	display   *service.DisplayHolder
	clock     *time.Time
}

func newFixture(t *testing.T, remoteResult types.ValidationResult) *fixture {
	t.Helper()

	now := t0
	f := &fixture{
		validator: &fakeValidator{result: remoteResult},
		audit:     memory.NewAccessLogStore(),
		act:       actuator.NewMemory(),
		display:   service.NewDisplayHolder(),
		clock:     &now,
	}
	f.pipeline = service.NewPipeline(service.Dependencies{
		Logger:     log.New(io.Discard, "", 0),
		Gate:       dedupe.New(3 * time.Second),
		Validator:  f.validator,
		AuditLog:   f.audit,
		Actuator:   f.act,
		Display:    f.display,
		DisplayTTL: 5 * time.Second,
		Now:        func() time.Time { return *f.clock },
	})
	return f
}

func (f *fixture) advance(d time.Duration) { *f.clock = f.clock.Add(d) }

func granted() types.ValidationResult {
	first := true
	return types.ValidationResult{
		State:     types.StateAttendanceRecorded,
		Valid:     true,
		Message:   "attendance recorded: first registration at 2026-03-01T09:00:00Z",
		FirstScan: &first,
		Raw:       []byte(`{"valid": true}`),
	}
}

// ── Local rejection ──────────────────────────────────────────────────────────

func TestHandleScan_WifiPayloadRejectedWithoutRemoteCall(t *testing.T) {
	f := newFixture(t, granted())

	res, processed := f.pipeline.HandleScan(context.Background(), "WIFI:guest-net")
	if !processed {
		t.Fatal("scan should be processed, not dropped")
	}
	if res.State != types.StateRejectedLocal {
		t.Errorf("state = %s, want REJECTED_LOCAL", res.State)
	}
	if res.Valid {
		t.Error("expected access denied")
	}
	if f.validator.calls.Load() != 0 {
		t.Error("local rejection must not trigger a remote call")
	}
	if got := f.act.Bytes(); string(got) != "0" {
		t.Errorf("actuator bytes = %q, want \"0\"", got)
	}

	recs := f.audit.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(recs))
	}
	if recs[0].ResultKind != "REJECTED_LOCAL" || recs[0].AccessGranted {
		t.Errorf("audit record = %+v", recs[0])
	}
}

func TestHandleScan_ImagePayloadRejected(t *testing.T) {
	f := newFixture(t, granted())

	res, _ := f.pipeline.HandleScan(context.Background(), "badge_photo.png")
	if res.State != types.StateRejectedLocal {
		t.Errorf("state = %s, want REJECTED_LOCAL", res.State)
	}
	if f.validator.calls.Load() != 0 {
		t.Error("image payload must not trigger a remote call")
	}
}

// ── Dedup behavior ───────────────────────────────────────────────────────────

func TestHandleScan_RepeatWithinCooldownLeavesNoTrace(t *testing.T) {
	f := newFixture(t, granted())

	f.pipeline.HandleScan(context.Background(), "EMP-001")
	f.advance(1 * time.Second)
	_, processed := f.pipeline.HandleScan(context.Background(), "EMP-001")

	if processed {
		t.Error("repeat within cooldown should be dropped")
	}
	if got := len(f.audit.Records()); got != 1 {
		t.Errorf("audit records = %d, want 1 (dropped scan leaves none)", got)
	}
	if got := f.act.Bytes(); string(got) != "1" {
		t.Errorf("actuator bytes = %q, want single '1'", got)
	}
	if f.validator.calls.Load() != 1 {
		t.Errorf("remote calls = %d, want 1", f.validator.calls.Load())
	}
}

func TestHandleScan_RepeatAfterCooldownProcessedAgain(t *testing.T) {
	f := newFixture(t, granted())

	f.pipeline.HandleScan(context.Background(), "EMP-001")
	f.advance(4 * time.Second)
	_, processed := f.pipeline.HandleScan(context.Background(), "EMP-001")

	if !processed {
		t.Fatal("repeat after cooldown should be processed")
	}
	if got := len(f.audit.Records()); got != 2 {
		t.Errorf("audit records = %d, want 2", got)
	}
	if got := f.act.Bytes(); string(got) != "11" {
		t.Errorf("actuator bytes = %q, want \"11\"", got)
	}
}

// ── Terminal states drive audit + actuator + display ─────────────────────────

func TestHandleScan_GrantedScanSignalsAndDisplays(t *testing.T) {
	f := newFixture(t, granted())

	res, processed := f.pipeline.HandleScan(context.Background(), "EMP-001")
	if !processed || !res.Valid {
		t.Fatalf("expected processed grant, got processed=%v res=%+v", processed, res)
	}

	if got := f.act.Bytes(); string(got) != "1" {
		t.Errorf("actuator bytes = %q, want \"1\"", got)
	}

	recs := f.audit.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(recs))
	}
	if recs[0].ResultKind != "ATTENDANCE_RECORDED" || !recs[0].AccessGranted {
		t.Errorf("audit record = %+v", recs[0])
	}
	if recs[0].ResponsePayload != `{"valid": true}` {
		t.Errorf("response payload = %q", recs[0].ResponsePayload)
	}

	ds, ok := f.display.Current(t0)
	if !ok {
		t.Fatal("display state should be set")
	}
	if ds.Result.State != types.StateAttendanceRecorded {
		t.Errorf("display state = %s", ds.Result.State)
	}
	if !ds.ExpiresAt.Equal(t0.Add(5 * time.Second)) {
		t.Errorf("display expiry = %s, want %s", ds.ExpiresAt, t0.Add(5*time.Second))
	}
}

func TestHandleScan_DeniedOutcomesSignalZero(t *testing.T) {
	denials := []types.State{
		types.StateErrorAttendance,
		types.StateError,
		types.StateExpired,
		types.StateInactiveOrMissing,
	}
	for _, state := range denials {
		f := newFixture(t, types.ValidationResult{
			State:   state,
			Valid:   false,
			Message: "denied",
			Raw:     []byte(`{"error": "denied"}`),
		})

		res, processed := f.pipeline.HandleScan(context.Background(), "EMP-001")
		if !processed {
			t.Fatalf("%s: scan should be processed", state)
		}
		if res.Valid {
			t.Errorf("%s: expected denial", state)
		}
		if got := f.act.Bytes(); string(got) != "0" {
			t.Errorf("%s: actuator bytes = %q, want \"0\"", state, got)
		}
		recs := f.audit.Records()
		if len(recs) != 1 || recs[0].ResultKind != string(state) {
			t.Errorf("%s: audit records = %+v", state, recs)
		}
	}
}

func TestHandleScan_DisplayOverwrittenByNewerScan(t *testing.T) {
	f := newFixture(t, granted())

	f.pipeline.HandleScan(context.Background(), "EMP-001")
	f.advance(1 * time.Second)
	f.pipeline.HandleScan(context.Background(), "WIFI:guest-net")

	ds, ok := f.display.Current(*f.clock)
	if !ok {
		t.Fatal("display state should be set")
	}
	if ds.Result.State != types.StateRejectedLocal {
		t.Errorf("display shows %s, want the newer REJECTED_LOCAL", ds.Result.State)
	}
}

// ── Audit failure does not block the actuator ────────────────────────────────

func TestHandleScan_AuditFailureStillSignalsActuator(t *testing.T) {
	act := actuator.NewMemory()
	var logged strings.Builder
	p := service.NewPipeline(service.Dependencies{
		Logger:     log.New(&logged, "", 0),
		Gate:       dedupe.New(3 * time.Second),
		Validator:  &fakeValidator{result: granted()},
		AuditLog:   failingStore{},
		Actuator:   act,
		Display:    service.NewDisplayHolder(),
		DisplayTTL: 5 * time.Second,
		Now:        func() time.Time { return t0 },
	})

	res, processed := p.HandleScan(context.Background(), "EMP-001")
	if !processed || !res.Valid {
		t.Fatalf("expected processed grant despite audit failure, got %+v", res)
	}
	if got := act.Bytes(); string(got) != "1" {
		t.Errorf("actuator bytes = %q, want \"1\"", got)
	}
	if !strings.Contains(logged.String(), "audit append") {
		t.Error("audit failure should be logged")
	}
}
