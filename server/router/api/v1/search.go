package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	gwerrors "github.com/TAURAAI/taura-recall/server/internal/errors"
	"github.com/TAURAAI/taura-recall/server/internal/observability"
	"github.com/TAURAAI/taura-recall/server/service/search"
	"github.com/TAURAAI/taura-recall/store"
)

type timeRangeDTO struct {
	// Start and End are inclusive unix-second bounds, each optional.
	Start *int64 `json:"start,omitempty"`
	End   *int64 `json:"end,omitempty"`
}

type geoDTO struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	KmRadius float64 `json:"km_radius"`
}

type searchFiltersDTO struct {
	Modality  []string      `json:"modality,omitempty"`
	Album     []string      `json:"album,omitempty"`
	TimeRange *timeRangeDTO `json:"time_range,omitempty"`
	Geo       *geoDTO       `json:"geo,omitempty"`
}

type searchRequest struct {
	UserID  string            `json:"user_id"`
	Text    string            `json:"text"`
	TopK    int               `json:"top_k"`
	Filters *searchFiltersDTO `json:"filters,omitempty"`
}

type searchResult struct {
	MediaID  string   `json:"media_id"`
	Score    float32  `json:"score"`
	ThumbURL string   `json:"thumb_url"`
	URI      string   `json:"uri"`
	Ts       int64    `json:"ts"`
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	Modality string   `json:"modality"`
	Album    string   `json:"album,omitempty"`
	Source   string   `json:"source,omitempty"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Search handles POST /api/v1/search.
func (s *APIV1Service) Search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	reqCtx := observability.NewRequestContext(slog.Default(), "search", req.UserID)

	results, err := s.Engine.Search(c.Request().Context(), toEngineRequest(&req))
	if err != nil {
		reqCtx.Error("search failed", err)
		if gwerrors.IsCode(err, gwerrors.ErrCodeUpstreamEmbedFailure) {
			return echo.NewHTTPError(http.StatusBadGateway, "embedding service unavailable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}

	reqCtx.Info("search served",
		slog.Int("results", len(results)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))

	return c.JSON(http.StatusOK, toSearchResponse(results))
}

func toEngineRequest(req *searchRequest) *search.Request {
	out := &search.Request{
		UserID: req.UserID,
		Text:   req.Text,
		TopK:   req.TopK,
	}
	if req.Filters == nil {
		return out
	}
	out.Modalities = req.Filters.Modality
	out.Albums = req.Filters.Album
	if req.Filters.TimeRange != nil {
		out.TsAfter = req.Filters.TimeRange.Start
		out.TsBefore = req.Filters.TimeRange.End
	}
	if req.Filters.Geo != nil {
		out.Geo = &search.GeoFilter{
			Lat:      req.Filters.Geo.Lat,
			Lon:      req.Filters.Geo.Lon,
			RadiusKm: req.Filters.Geo.KmRadius,
		}
	}
	return out
}

func toSearchResponse(results []*store.MediaResult) *searchResponse {
	resp := &searchResponse{Results: []searchResult{}}
	for _, r := range results {
		resp.Results = append(resp.Results, searchResult{
			MediaID:  r.MediaID,
			Score:    r.Score,
			ThumbURL: r.ThumbURL,
			URI:      r.URI,
			Ts:       r.Ts,
			Lat:      r.Lat,
			Lon:      r.Lon,
			Modality: r.Modality,
			Album:    r.Album,
			Source:   r.Source,
		})
	}
	return resp
}
