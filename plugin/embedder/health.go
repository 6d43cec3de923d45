package embedder

import (
	"log/slog"
	"sync"
	"time"
)

// Status is an immutable snapshot of the embedding service's health.
type Status struct {
	Healthy     bool
	LastChecked time.Time
	LastSuccess time.Time
	LastError   string
}

// Health tracks the availability of the embedding service. Every client call
// feeds it, not just the monitor's synthetic probes, so it reflects real
// traffic. Transitions are logged only when the healthy flag flips.
type Health struct {
	mu     sync.RWMutex
	known  bool
	status Status
}

// NewHealth creates a health holder in the Unknown state.
func NewHealth() *Health {
	return &Health{}
}

// NoteSuccess records a successful call to the embedding service.
func (h *Health) NoteSuccess() {
	now := time.Now()
	h.mu.Lock()
	flipped := !h.known || !h.status.Healthy
	h.known = true
	h.status.Healthy = true
	h.status.LastChecked = now
	h.status.LastSuccess = now
	h.status.LastError = ""
	h.mu.Unlock()

	if flipped {
		slog.Info("embedding service healthy")
	}
}

// NoteFailure records a failed call to the embedding service.
func (h *Health) NoteFailure(err error) {
	now := time.Now()
	h.mu.Lock()
	flipped := !h.known || h.status.Healthy
	h.known = true
	h.status.Healthy = false
	h.status.LastChecked = now
	if err != nil {
		h.status.LastError = err.Error()
	}
	h.mu.Unlock()

	if flipped {
		slog.Warn("embedding service unhealthy", "error", err)
	}
}

// Snapshot returns a copy of the current status. No lock is held by the
// caller after the call returns.
func (h *Health) Snapshot() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}
