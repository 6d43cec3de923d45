package v1

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TAURAAI/taura-recall/server/runner/ingest"
)

func TestEnqueueMediaHandler(t *testing.T) {
	svc := newTestService(t, serviceOptions{})

	payload := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	c, rec := newJSONContext(http.MethodPost, "/api/v1/media/enqueue",
		`{"media_id":"m0","bytes_b64":"`+payload+`"}`)
	require.NoError(t, svc.EnqueueMedia(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp enqueueMediaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
	assert.Equal(t, 1, resp.Depth)
}

func TestEnqueueMediaHandlerURIOnly(t *testing.T) {
	svc := newTestService(t, serviceOptions{})

	c, rec := newJSONContext(http.MethodPost, "/api/v1/media/enqueue",
		`{"media_id":"m0","uri":"file:///photos/1.jpg"}`)
	require.NoError(t, svc.EnqueueMedia(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestEnqueueMediaHandlerValidation(t *testing.T) {
	svc := newTestService(t, serviceOptions{})

	tests := []struct {
		name string
		body string
	}{
		{"missing media_id", `{"uri":"file:///photos/1.jpg"}`},
		{"missing uri and bytes", `{"media_id":"m0"}`},
		{"invalid base64", `{"media_id":"m0","bytes_b64":"%%%not-base64%%%"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newJSONContext(http.MethodPost, "/api/v1/media/enqueue", tt.body)
			err := svc.EnqueueMedia(c)

			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusBadRequest, httpErr.Code)
		})
	}
}

func TestEnqueueMediaHandlerQueueFull(t *testing.T) {
	svc := newTestService(t, serviceOptions{
		queueCfg: &ingest.Config{Capacity: 1, OfferTimeout: 10 * time.Millisecond},
	})

	c, _ := newJSONContext(http.MethodPost, "/api/v1/media/enqueue",
		`{"media_id":"m0","uri":"file:///photos/1.jpg"}`)
	require.NoError(t, svc.EnqueueMedia(c))

	c, _ = newJSONContext(http.MethodPost, "/api/v1/media/enqueue",
		`{"media_id":"m1","uri":"file:///photos/2.jpg"}`)
	err := svc.EnqueueMedia(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.Code)
}
