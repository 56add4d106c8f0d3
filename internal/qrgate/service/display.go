package service

import (
	"sync"
	"time"

	"github.com/daniu006/qrgate/internal/qrgate/types"
)

// DisplayHolder retains the most recent scan result for presentation
// collaborators (overlay, audio cue).  The pipeline only ever writes;
// readers poll Current and get nothing once the result has expired.
type DisplayHolder struct {
	mu    sync.RWMutex
	state types.DisplayState
	set   bool
}

func NewDisplayHolder() *DisplayHolder {
	return &DisplayHolder{}
}

// Set overwrites the held result with a fresh expiry.
func (h *DisplayHolder) Set(result types.ValidationResult, expiresAt time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = types.DisplayState{Result: result, ExpiresAt: expiresAt}
	h.set = true
}

// Current returns the held state, or false if nothing has been set or the
// expiry deadline has passed.
func (h *DisplayHolder) Current(now time.Time) (types.DisplayState, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.set || !now.Before(h.state.ExpiresAt) {
		return types.DisplayState{}, false
	}
	return h.state, true
}
