// Package v1 exposes the gateway's HTTP API: search, media ingestion, and
// the operational surface.
package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/TAURAAI/taura-recall/internal/profile"
	"github.com/TAURAAI/taura-recall/plugin/embedder"
	"github.com/TAURAAI/taura-recall/server/middleware"
	"github.com/TAURAAI/taura-recall/server/runner/ingest"
	"github.com/TAURAAI/taura-recall/server/service/search"
	"github.com/TAURAAI/taura-recall/store"
)

// APIV1Service holds the handlers for the v1 API.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Engine  *search.Engine
	Queue   *ingest.Queue
	Health  *embedder.Health
}

// NewAPIV1Service creates the v1 API service.
func NewAPIV1Service(p *profile.Profile, st *store.Store, engine *search.Engine, queue *ingest.Queue, health *embedder.Health) *APIV1Service {
	return &APIV1Service{
		Profile: p,
		Store:   st,
		Engine:  engine,
		Queue:   queue,
		Health:  health,
	}
}

// RegisterRoutes registers the v1 routes on the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	limiter := middleware.NewRateLimiter(s.Profile.RateLimitRPS, s.Profile.RateLimitBurst)

	g := e.Group("/api/v1")
	g.POST("/search", s.Search, limiter.Middleware())
	g.POST("/media/enqueue", s.EnqueueMedia)
	g.GET("/queue/depth", s.QueueDepth)
	g.GET("/health", s.HealthSnapshot)
}
