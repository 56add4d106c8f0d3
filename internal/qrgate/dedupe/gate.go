// Package dedupe suppresses repeated processing of the same payload while a
// code sits in front of the camera being decoded frame after frame.
package dedupe

import "time"

// Gate keeps a single (payload, seen-at) slot.  Only the most recent payload
// is tracked: a different interleaved payload resets tracking for the
// original one, so an A,B,A sequence admits every A even inside the
// cooldown.  That is the contract; do not generalize to per-payload
// tracking here.
type Gate struct {
	cooldown    time.Duration
	lastPayload string
	lastSeenAt  time.Time
}

// New returns a gate with the given cooldown window.
func New(cooldown time.Duration) *Gate {
	return &Gate{cooldown: cooldown}
}

// Admit reports whether the payload should be processed.  On admission the
// slot is unconditionally overwritten with (payload, now).
//
// Not safe for concurrent use; the gate belongs to the single orchestrator
// goroutine.
func (g *Gate) Admit(payload string, now time.Time) bool {
	if payload == g.lastPayload && now.Sub(g.lastSeenAt) < g.cooldown {
		return false
	}
	g.lastPayload = payload
	g.lastSeenAt = now
	return true
}
