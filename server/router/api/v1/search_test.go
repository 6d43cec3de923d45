package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TAURAAI/taura-recall/internal/profile"
	"github.com/TAURAAI/taura-recall/plugin/embedder"
	"github.com/TAURAAI/taura-recall/server/runner/ingest"
	"github.com/TAURAAI/taura-recall/server/service/search"
	"github.com/TAURAAI/taura-recall/store"
)

const testUserID = "b9c95f3a-3a29-4e52-9f0a-16d6a44f3a10"

// fakeDriver satisfies store.Driver with canned results.
type fakeDriver struct {
	nearestResults []*store.MediaResult
}

func (d *fakeDriver) Close() error                                              { return nil }
func (d *fakeDriver) Migrate(context.Context) error                             { return nil }
func (d *fakeDriver) UpsertEmbedding(context.Context, *store.MediaVector) error { return nil }

func (d *fakeDriver) QueryNearest(context.Context, *store.NearestQuery) ([]*store.MediaResult, error) {
	return d.nearestResults, nil
}

func (d *fakeDriver) QueryByKeyword(context.Context, *store.KeywordQuery) ([]*store.MediaResult, error) {
	return nil, nil
}

func (d *fakeDriver) ResolveUserID(context.Context, string) (string, error) {
	return "", store.ErrUserNotFound
}

type mockTextEmbedder struct {
	embedTextFn func(text string) ([]float32, error)
}

func (m *mockTextEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	if m.embedTextFn != nil {
		return m.embedTextFn(text)
	}
	return []float32{0.6, 0.8}, nil
}

type mockImageEmbedder struct{}

func (mockImageEmbedder) EmbedImageBatch(_ context.Context, images [][]byte) ([][]float32, []string, error) {
	vecs := make([][]float32, len(images))
	for i := range images {
		vecs[i] = []float32{1.0}
	}
	return vecs, make([]string, len(images)), nil
}

type serviceOptions struct {
	driver       *fakeDriver
	textEmbedder *mockTextEmbedder
	queueCfg     *ingest.Config
}

func newTestService(t *testing.T, opts serviceOptions) *APIV1Service {
	t.Helper()
	if opts.driver == nil {
		opts.driver = &fakeDriver{}
	}
	if opts.textEmbedder == nil {
		opts.textEmbedder = &mockTextEmbedder{}
	}
	if opts.queueCfg == nil {
		opts.queueCfg = &ingest.Config{}
	}

	st := store.New(opts.driver)
	queue := ingest.NewQueue(st, mockImageEmbedder{}, opts.queueCfg)
	t.Cleanup(queue.Close)

	return NewAPIV1Service(
		&profile.Profile{Mode: "dev"},
		st,
		search.NewEngine(st, opts.textEmbedder, "siglip-base"),
		queue,
		embedder.NewHealth(),
	)
}

func newJSONContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestSearchHandler(t *testing.T) {
	lat := 48.85
	driver := &fakeDriver{
		nearestResults: []*store.MediaResult{
			{MediaID: "m0", Score: 0.9, URI: "photos/beach.jpg", Ts: 1000, Lat: &lat, Modality: "photo"},
		},
	}
	svc := newTestService(t, serviceOptions{driver: driver})

	c, rec := newJSONContext(http.MethodPost, "/api/v1/search",
		`{"user_id":"`+testUserID+`","text":"beach","top_k":5}`)
	require.NoError(t, svc.Search(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "m0", resp.Results[0].MediaID)
	assert.Equal(t, "photos/beach.jpg", resp.Results[0].URI)
	require.NotNil(t, resp.Results[0].Lat)
	assert.Equal(t, 48.85, *resp.Results[0].Lat)
}

func TestSearchHandlerEmptyTextReturnsEmptyResults(t *testing.T) {
	svc := newTestService(t, serviceOptions{})

	c, rec := newJSONContext(http.MethodPost, "/api/v1/search",
		`{"user_id":"`+testUserID+`","text":"  "}`)
	require.NoError(t, svc.Search(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
}

func TestSearchHandlerMissingUserID(t *testing.T) {
	svc := newTestService(t, serviceOptions{})

	c, _ := newJSONContext(http.MethodPost, "/api/v1/search", `{"text":"beach"}`)
	err := svc.Search(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestSearchHandlerMalformedBody(t *testing.T) {
	svc := newTestService(t, serviceOptions{})

	c, _ := newJSONContext(http.MethodPost, "/api/v1/search", `{"user_id": 42`)
	err := svc.Search(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestSearchHandlerEmbedFailureIsBadGateway(t *testing.T) {
	svc := newTestService(t, serviceOptions{
		textEmbedder: &mockTextEmbedder{embedTextFn: func(string) ([]float32, error) {
			return nil, errors.New("connection refused")
		}},
	})

	c, _ := newJSONContext(http.MethodPost, "/api/v1/search",
		`{"user_id":"`+testUserID+`","text":"beach"}`)
	err := svc.Search(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Code)
}

func TestToEngineRequestMapsFilters(t *testing.T) {
	start, end := int64(1000), int64(2000)
	req := &searchRequest{
		UserID: testUserID,
		Text:   "beach",
		TopK:   5,
		Filters: &searchFiltersDTO{
			Modality:  []string{"photo"},
			Album:     []string{"Summer"},
			TimeRange: &timeRangeDTO{Start: &start, End: &end},
			Geo:       &geoDTO{Lat: 48.85, Lon: 2.35, KmRadius: 10},
		},
	}

	out := toEngineRequest(req)
	assert.Equal(t, []string{"photo"}, out.Modalities)
	assert.Equal(t, []string{"Summer"}, out.Albums)
	assert.Equal(t, &start, out.TsAfter)
	assert.Equal(t, &end, out.TsBefore)
	require.NotNil(t, out.Geo)
	assert.Equal(t, 10.0, out.Geo.RadiusKm)
}
