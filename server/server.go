// Package server assembles the gateway: transport client, health monitor,
// ingestion queue, search engine, and the HTTP surface.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/TAURAAI/taura-recall/internal/profile"
	"github.com/TAURAAI/taura-recall/plugin/embedder"
	apiv1 "github.com/TAURAAI/taura-recall/server/router/api/v1"
	"github.com/TAURAAI/taura-recall/server/runner/ingest"
	"github.com/TAURAAI/taura-recall/server/service/search"
	"github.com/TAURAAI/taura-recall/store"
)

// Server is the gateway server.
type Server struct {
	e       *echo.Echo
	profile *profile.Profile

	Store   *store.Store
	Client  *embedder.Client
	Health  *embedder.Health
	Queue   *ingest.Queue
	Monitor *embedder.Monitor
	Engine  *search.Engine
}

// NewServer wires all components together.
func NewServer(p *profile.Profile, st *store.Store) *Server {
	health := embedder.NewHealth()
	client := embedder.NewClient(&embedder.Config{
		BaseURL:        p.EmbedderBaseURL,
		Timeout:        p.EmbedderTimeout,
		Dimensions:     p.EmbeddingDim,
		MaxRetries:     p.EmbedMaxRetries,
		BackoffBase:    p.EmbedBackoffBase,
		SplitThreshold: p.EmbedSplitThreshold,
	}, health)

	queue := ingest.NewQueue(st, client, &ingest.Config{
		Capacity:      p.QueueCapacity,
		BatchSize:     p.QueueBatchSize,
		FlushInterval: p.QueueFlushInterval,
		OfferTimeout:  p.QueueOfferTimeout,
		MaxAttempts:   p.QueueMaxAttempts,
		RetryDelay:    p.QueueRetryDelay,
		Model:         p.EmbeddingModel,
	})

	engine := search.NewEngine(st, client, p.EmbeddingModel)
	monitor := embedder.NewMonitor(client, p.MonitorInterval)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())

	apiService := apiv1.NewAPIV1Service(p, st, engine, queue, health)
	apiService.RegisterRoutes(e)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	return &Server{
		e:       e,
		profile: p,
		Store:   st,
		Client:  client,
		Health:  health,
		Queue:   queue,
		Monitor: monitor,
		Engine:  engine,
	}
}

// Start launches the queue worker, the health monitor, and the HTTP server.
// It blocks until the HTTP server stops and the monitor drains.
func (s *Server) Start(ctx context.Context) error {
	s.Queue.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Monitor.Run(gctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("gateway listening", "addr", s.profile.ListenAddr(), "mode", s.profile.Mode)
		if err := s.e.Start(s.profile.ListenAddr()); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	return g.Wait()
}

// Shutdown stops intake, flushes the queue once, and closes the HTTP server
// and the store. The caller's context is typically already canceled by the
// time this runs, so the shutdown bound is independent.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.e.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down http server", "error", err)
	}
	s.Queue.Close()
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("gateway stopped")
}
