// Package search implements the query pipeline: embed the query text, run an
// ANN read over the vector store, rerank with cheap text and time heuristics,
// and fall back to keyword matching when vector confidence is low.
package search

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	gwerrors "github.com/TAURAAI/taura-recall/server/internal/errors"
	"github.com/TAURAAI/taura-recall/store"
)

const (
	defaultTopK = 10
	minTopK     = 1
	maxTopK     = 200

	// Candidate pool sizing for the ANN read. Over-fetch to leave headroom
	// for reranking.
	annLimitMultiplier = 6
	annLimitFloor      = 80
	annLimitCeil       = 400

	// fallbackScoreThreshold triggers the keyword fallback when the best raw
	// vector score stays below it.
	fallbackScoreThreshold = float32(0.2)

	// embedLatencyWarn flags slow query embeddings as a monitored warning.
	embedLatencyWarn = 150 * time.Millisecond

	kmPerDegreeLat = 111.0
)

// TextEmbedder is the slice of the transport client the engine needs.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// GeoFilter restricts results to a radius around a point. It is converted to
// an axis-aligned bounding box before hitting the store.
type GeoFilter struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
}

// Request is one search query.
type Request struct {
	// UserID is a canonical UUID or an external identifier such as an email.
	UserID string
	Text   string
	TopK   int

	Modalities []string
	Albums     []string
	TsAfter    *int64
	TsBefore   *int64
	Geo        *GeoFilter
}

// Engine executes search requests. It has no internal concurrency; one
// request is one synchronous pipeline.
type Engine struct {
	store    *store.Store
	embedder TextEmbedder
	model    string
}

// NewEngine creates a search engine.
func NewEngine(st *store.Store, embedder TextEmbedder, model string) *Engine {
	return &Engine{
		store:    st,
		embedder: embedder,
		model:    model,
	}
}

// Search runs the full pipeline and returns up to topK results. An empty
// query and an unknown user both yield an empty successful result, never an
// error.
func (e *Engine) Search(ctx context.Context, req *Request) ([]*store.MediaResult, error) {
	topK := clampTopK(req.TopK)
	if strings.TrimSpace(req.Text) == "" {
		return []*store.MediaResult{}, nil
	}

	embedStart := time.Now()
	queryVec, err := e.embedder.EmbedText(ctx, req.Text)
	if err != nil {
		return nil, gwerrors.Wrap(err, gwerrors.ErrCodeUpstreamEmbedFailure, "query embedding failed")
	}
	if elapsed := time.Since(embedStart); elapsed > embedLatencyWarn {
		slog.Warn("slow query embedding", "duration_ms", elapsed.Milliseconds())
	}

	userID, ok, err := e.resolveUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Unknown users are indistinguishable from users with no indexed
		// media.
		return []*store.MediaResult{}, nil
	}

	filter := buildFilter(req)

	candidates, err := e.store.QueryNearest(ctx, &store.NearestQuery{
		UserID: userID,
		Vector: queryVec,
		Model:  e.model,
		Filter: filter,
		Limit:  annLimit(topK),
	})
	if err != nil {
		return nil, gwerrors.Wrap(err, gwerrors.ErrCodeStore, "vector query failed")
	}

	hints := extractHints(req.Text)
	results := rerank(candidates, hints, topK)

	if e.needsFallback(results, candidates) && len(hints.keywords) > 0 {
		fallback, err := e.store.QueryByKeyword(ctx, &store.KeywordQuery{
			UserID:   userID,
			Keywords: hints.keywords,
			Filter:   filter,
			Limit:    topK,
		})
		if err != nil {
			// Degrade to best effort so far instead of failing the request.
			slog.Warn("keyword fallback failed", "error", err)
			return results, nil
		}
		if len(fallback) > 0 {
			results = rerank(fallback, hints, topK)
		}
	}

	return results, nil
}

// resolveUser returns the canonical user ID. ok is false when the identifier
// resolves to no user.
func (e *Engine) resolveUser(ctx context.Context, identifier string) (string, bool, error) {
	if _, err := uuid.Parse(identifier); err == nil {
		return identifier, true, nil
	}
	id, err := e.store.ResolveUserID(ctx, identifier)
	if err == store.ErrUserNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, gwerrors.Wrap(err, gwerrors.ErrCodeStore, "user resolution failed")
	}
	return id, true, nil
}

func (e *Engine) needsFallback(results, candidates []*store.MediaResult) bool {
	if len(results) == 0 {
		return true
	}
	var best float32
	for _, c := range candidates {
		if c.Score > best {
			best = c.Score
		}
	}
	return best < fallbackScoreThreshold
}

// buildFilter converts request filters into store predicates. The geo radius
// becomes a bounding box: dLat = km/111, dLon = km/(111*cos(lat)).
func buildFilter(req *Request) *store.SearchFilter {
	if len(req.Modalities) == 0 && len(req.Albums) == 0 &&
		req.TsAfter == nil && req.TsBefore == nil && req.Geo == nil {
		return nil
	}
	f := &store.SearchFilter{
		Modalities: req.Modalities,
		Albums:     req.Albums,
		TsAfter:    req.TsAfter,
		TsBefore:   req.TsBefore,
	}
	if req.Geo != nil {
		dLat := req.Geo.RadiusKm / kmPerDegreeLat
		dLon := req.Geo.RadiusKm / (kmPerDegreeLat * math.Cos(req.Geo.Lat*math.Pi/180))
		f.Geo = &store.GeoBox{
			MinLat: req.Geo.Lat - dLat,
			MaxLat: req.Geo.Lat + dLat,
			MinLon: req.Geo.Lon - dLon,
			MaxLon: req.Geo.Lon + dLon,
		}
	}
	return f
}

func clampTopK(topK int) int {
	if topK <= 0 {
		return defaultTopK
	}
	if topK < minTopK {
		return minTopK
	}
	if topK > maxTopK {
		return maxTopK
	}
	return topK
}

// annLimit over-fetches candidates for reranking: topK*6 clamped into
// [max(80, topK), 400].
func annLimit(topK int) int {
	limit := topK * annLimitMultiplier
	floor := annLimitFloor
	if topK > floor {
		floor = topK
	}
	if limit < floor {
		limit = floor
	}
	if limit > annLimitCeil {
		limit = annLimitCeil
	}
	return limit
}
