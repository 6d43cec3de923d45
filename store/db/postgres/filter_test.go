package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TAURAAI/taura-recall/store"
)

func int64Ptr(v int64) *int64 { return &v }

func TestFilterBuilderEmpty(t *testing.T) {
	clause, args, next := newFilterBuilder(nil).render(4)
	assert.Empty(t, clause)
	assert.Empty(t, args)
	assert.Equal(t, 4, next)

	clause, args, next = newFilterBuilder(&store.SearchFilter{}).render(1)
	assert.Empty(t, clause)
	assert.Empty(t, args)
	assert.Equal(t, 1, next)
}

func TestFilterBuilderModality(t *testing.T) {
	clause, args, next := newFilterBuilder(&store.SearchFilter{
		Modalities: []string{"photo", "video"},
	}).render(4)

	assert.Equal(t, "m.modality = ANY($4)", clause)
	assert.Len(t, args, 1)
	assert.Equal(t, 5, next)
}

func TestFilterBuilderTimeRange(t *testing.T) {
	clause, args, next := newFilterBuilder(&store.SearchFilter{
		TsAfter:  int64Ptr(1000),
		TsBefore: int64Ptr(2000),
	}).render(2)

	assert.Equal(t, "m.ts >= $2 AND m.ts <= $3", clause)
	assert.Equal(t, []any{int64(1000), int64(2000)}, args)
	assert.Equal(t, 4, next)
}

func TestFilterBuilderGeoBox(t *testing.T) {
	clause, args, next := newFilterBuilder(&store.SearchFilter{
		Geo: &store.GeoBox{MinLat: 47.0, MaxLat: 49.0, MinLon: 1.0, MaxLon: 3.0},
	}).render(1)

	assert.Equal(t, "m.lat BETWEEN $1 AND $2 AND m.lon BETWEEN $3 AND $4", clause)
	assert.Equal(t, []any{47.0, 49.0, 1.0, 3.0}, args)
	assert.Equal(t, 5, next)
}

func TestFilterBuilderCombined(t *testing.T) {
	clause, args, next := newFilterBuilder(&store.SearchFilter{
		Modalities: []string{"photo"},
		Albums:     []string{"Paris 2019"},
		TsAfter:    int64Ptr(1000),
		Geo:        &store.GeoBox{MinLat: 47.0, MaxLat: 49.0, MinLon: 1.0, MaxLon: 3.0},
	}).render(4)

	require.Equal(t,
		"m.modality = ANY($4) AND m.album = ANY($5) AND m.ts >= $6 AND "+
			"m.lat BETWEEN $7 AND $8 AND m.lon BETWEEN $9 AND $10",
		clause)
	assert.Len(t, args, 7)
	assert.Equal(t, 11, next, "next placeholder follows the last argument")
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$3", placeholder(3))
	assert.Equal(t, "$1, $2, $3", placeholders(3))
}
