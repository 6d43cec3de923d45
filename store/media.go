package store

// MediaVector represents the persisted embedding of a media item.
type MediaVector struct {
	MediaID   string
	Embedding []float32
	Model     string
	CreatedTs int64
	UpdatedTs int64
}

// MediaResult is one search candidate row, a read-only projection of the
// media and vector tables. Never persisted.
type MediaResult struct {
	MediaID  string
	Score    float32
	URI      string
	ThumbURL string
	Ts       int64
	Lat      *float64
	Lon      *float64
	Modality string
	Album    string
	Source   string
}

// GeoBox is an axis-aligned bounding box, a cheap pre-filter standing in for
// a true radius check.
type GeoBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// SearchFilter restricts candidate rows. Every field is optional; zero
// values add no predicate.
type SearchFilter struct {
	Modalities []string
	Albums     []string
	TsAfter    *int64
	TsBefore   *int64
	Geo        *GeoBox
}

// NearestQuery is the input for an ANN read.
type NearestQuery struct {
	UserID string
	Vector []float32
	Model  string
	Filter *SearchFilter
	Limit  int
}

// KeywordQuery is the input for the keyword fallback read. Each keyword
// independently matching uri, album or source counts.
type KeywordQuery struct {
	UserID   string
	Keywords []string
	Filter   *SearchFilter
	Limit    int
}
