package embedder

import (
	"context"
	"log/slog"
	"time"
)

// Monitor periodically probes the embedding service so health reflects
// availability even when no real traffic flows.
type Monitor struct {
	client   *Client
	interval time.Duration
}

// NewMonitor creates a health monitor. interval <= 0 defaults to 10s.
func NewMonitor(client *Client, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{
		client:   client,
		interval: interval,
	}
}

// Run starts the probe loop and blocks until the context is canceled.
func (m *Monitor) Run(ctx context.Context) {
	// Probe once on startup so the status leaves Unknown quickly.
	_ = m.client.Probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = m.client.Probe(ctx)
		case <-ctx.Done():
			slog.Info("health monitor stopped")
			return
		}
	}
}
