// Package service wires the per-scan flow: dedup gate, local policy filter,
// remote validation, audit log, actuator signal, display state.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/daniu006/qrgate/internal/qrgate/dedupe"
	"github.com/daniu006/qrgate/internal/qrgate/policy"
	"github.com/daniu006/qrgate/internal/qrgate/store"
	"github.com/daniu006/qrgate/internal/qrgate/types"
)

// Validator is the remote record-then-validate client.  It never returns an
// error: every failure arrives as a denying ValidationResult.
type Validator interface {
	Process(ctx context.Context, payload string) types.ValidationResult
}

// Actuator receives the binary access decision, best-effort.
type Actuator interface {
	Signal(granted bool)
}

type Dependencies struct {
	Logger     *log.Logger
	Gate       *dedupe.Gate
	Validator  Validator
	AuditLog   store.AccessLogStore
	Actuator   Actuator
	Display    *DisplayHolder
	DisplayTTL time.Duration

	// LogPayloads controls whether raw payloads appear in log lines.
	// Off in prod: payloads can carry personal identifiers.
	LogPayloads bool

	// Now overrides the clock; nil means time.Now in UTC.
	Now func() time.Time
}

// Pipeline processes one decoded payload at a time.  It owns the dedup gate
// and the display holder; both must only be touched from the single
// goroutine driving HandleScan.
type Pipeline struct {
	logger      *log.Logger
	gate        *dedupe.Gate
	validator   Validator
	auditLog    store.AccessLogStore
	actuator    Actuator
	display     *DisplayHolder
	displayTTL  time.Duration
	logPayloads bool
	now         func() time.Time
}

func NewPipeline(d Dependencies) *Pipeline {
	now := d.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Pipeline{
		logger:      d.Logger,
		gate:        d.Gate,
		validator:   d.Validator,
		auditLog:    d.AuditLog,
		actuator:    d.Actuator,
		display:     d.Display,
		displayTTL:  d.DisplayTTL,
		logPayloads: d.LogPayloads,
		now:         now,
	}
}

// HandleScan runs one payload through the pipeline.  The second return is
// false when the dedup gate dropped the payload; dropped scans leave no
// trace: no audit record, no actuator write, no display update.
//
// Every admitted payload reaches a terminal state producing exactly one
// audit record and exactly one actuator write whose value equals the final
// Valid flag.  A failed audit write is logged and does not block the
// actuator; no scan failure terminates the caller's loop.
func (p *Pipeline) HandleScan(ctx context.Context, payload string) (types.ValidationResult, bool) {
	now := p.now()
	if !p.gate.Admit(payload, now) {
		return types.ValidationResult{}, false
	}

	ev := types.ScanEvent{ID: uuid.NewString(), Payload: payload, ObservedAt: now}
	if p.logPayloads {
		p.logger.Printf("scan %s: detected %q", ev.ID, payload)
	}

	var result types.ValidationResult
	if policy.IsRejected(payload) {
		result = localRejection()
	} else {
		result = p.validator.Process(ctx, payload)
	}

	if err := p.auditLog.Append(ctx, store.AccessLogRecord{
		Timestamp:       ev.ObservedAt,
		Payload:         ev.Payload,
		ResultKind:      string(result.State),
		AccessGranted:   result.Valid,
		ResponsePayload: string(result.Raw),
	}); err != nil {
		// Fail loud, keep going: a missed audit record is acceptable
		// degradation, a missed actuator signal is not.
		p.logger.Printf("scan %s: audit append: %v", ev.ID, err)
	}

	p.actuator.Signal(result.Valid)
	p.display.Set(result, now.Add(p.displayTTL))

	p.logger.Printf("scan %s: %s granted=%v", ev.ID, result.State, result.Valid)
	return result, true
}

func localRejection() types.ValidationResult {
	doc, _ := json.Marshal(map[string]string{"reason": "wifi or image code detected"})
	return types.ValidationResult{
		State:   types.StateRejectedLocal,
		Valid:   false,
		Message: "rejected locally: wifi or image code",
		Raw:     doc,
	}
}
