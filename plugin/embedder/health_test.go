package embedder

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthStartsUnknown(t *testing.T) {
	health := NewHealth()

	status := health.Snapshot()
	assert.False(t, status.Healthy)
	assert.True(t, status.LastChecked.IsZero())
	assert.True(t, status.LastSuccess.IsZero())
}

func TestHealthTransitions(t *testing.T) {
	health := NewHealth()

	health.NoteSuccess()
	status := health.Snapshot()
	assert.True(t, status.Healthy)
	assert.False(t, status.LastSuccess.IsZero())
	assert.Empty(t, status.LastError)

	health.NoteFailure(errors.New("connection refused"))
	status = health.Snapshot()
	assert.False(t, status.Healthy)
	assert.Equal(t, "connection refused", status.LastError)
	// LastSuccess survives failures.
	assert.False(t, status.LastSuccess.IsZero())

	health.NoteSuccess()
	status = health.Snapshot()
	assert.True(t, status.Healthy)
	assert.Empty(t, status.LastError)
}

func TestHealthLastSuccessNeverInFuture(t *testing.T) {
	health := NewHealth()
	health.NoteSuccess()

	status := health.Snapshot()
	assert.False(t, status.LastSuccess.After(time.Now()))
	assert.False(t, status.LastChecked.Before(status.LastSuccess))
}

func TestHealthSnapshotIsCopy(t *testing.T) {
	health := NewHealth()
	health.NoteSuccess()

	before := health.Snapshot()
	health.NoteFailure(errors.New("boom"))

	assert.True(t, before.Healthy, "snapshot must not observe later mutations")
}

func TestProbe(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	health := NewHealth()
	client := NewClient(&Config{BaseURL: srv.URL, Timeout: time.Second}, health)

	require.NoError(t, client.Probe(context.Background()))
	assert.True(t, health.Snapshot().Healthy)

	healthy.Store(false)
	assert.Error(t, client.Probe(context.Background()))
	assert.False(t, health.Snapshot().Healthy)
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	health := NewHealth()
	client := NewClient(&Config{BaseURL: srv.URL, Timeout: time.Second}, health)
	monitor := NewMonitor(client, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		monitor.Run(ctx)
		close(done)
	}()

	// The startup probe must feed health state quickly.
	assert.Eventually(t, func() bool {
		return health.Snapshot().Healthy
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on cancellation")
	}
}
