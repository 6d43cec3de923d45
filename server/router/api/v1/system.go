package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type queueDepthResponse struct {
	Depth int `json:"depth"`
}

type healthResponse struct {
	Healthy     bool   `json:"healthy"`
	LastChecked string `json:"last_checked,omitempty"`
	LastSuccess string `json:"last_success,omitempty"`
	LastError   string `json:"last_error,omitempty"`
}

// QueueDepth handles GET /api/v1/queue/depth.
func (s *APIV1Service) QueueDepth(c echo.Context) error {
	return c.JSON(http.StatusOK, &queueDepthResponse{Depth: s.Queue.Depth()})
}

// HealthSnapshot handles GET /api/v1/health. It reports the embedding
// service's availability as observed by probes and live traffic.
func (s *APIV1Service) HealthSnapshot(c echo.Context) error {
	status := s.Health.Snapshot()
	resp := &healthResponse{
		Healthy:   status.Healthy,
		LastError: status.LastError,
	}
	if !status.LastChecked.IsZero() {
		resp.LastChecked = status.LastChecked.Format(time.RFC3339)
	}
	if !status.LastSuccess.IsZero() {
		resp.LastSuccess = status.LastSuccess.Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}
