package v1

import (
	"encoding/base64"
	"net/http"

	"github.com/labstack/echo/v4"

	gwerrors "github.com/TAURAAI/taura-recall/server/internal/errors"
	"github.com/TAURAAI/taura-recall/server/runner/ingest"
)

type enqueueMediaRequest struct {
	MediaID  string `json:"media_id"`
	URI      string `json:"uri"`
	BytesB64 string `json:"bytes_b64"`
}

type enqueueMediaResponse struct {
	Accepted bool `json:"accepted"`
	Depth    int  `json:"depth"`
}

// EnqueueMedia handles POST /api/v1/media/enqueue. Ingestion is
// fire-and-forget from the caller's perspective: a 202 only means the task
// was buffered.
func (s *APIV1Service) EnqueueMedia(c echo.Context) error {
	var req enqueueMediaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.MediaID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "media_id is required")
	}
	if req.BytesB64 == "" && req.URI == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "uri or bytes_b64 is required")
	}

	var image []byte
	if req.BytesB64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.BytesB64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid bytes_b64")
		}
		image = decoded
	}

	err := s.Queue.Enqueue(&ingest.Task{
		MediaID: req.MediaID,
		URI:     req.URI,
		Image:   image,
	})
	if err != nil {
		if gwerrors.IsCode(err, gwerrors.ErrCodeQueueTimeout) || gwerrors.IsCode(err, gwerrors.ErrCodeQueueClosed) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "ingestion queue unavailable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "enqueue failed")
	}

	return c.JSON(http.StatusAccepted, &enqueueMediaResponse{
		Accepted: true,
		Depth:    s.Queue.Depth(),
	})
}
