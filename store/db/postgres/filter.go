package postgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/TAURAAI/taura-recall/store"
)

// predicateKind tags the filter fragment variants so the builder stays a
// closed set instead of ad hoc string concatenation.
type predicateKind string

const (
	predModalityIn predicateKind = "modality_in"
	predAlbumIn    predicateKind = "album_in"
	predTsAfter    predicateKind = "ts_after"
	predTsBefore   predicateKind = "ts_before"
	predGeoBox     predicateKind = "geo_box"
)

// predicate is one tagged fragment. The template holds one %s verb per
// argument; positions are assigned at render time.
type predicate struct {
	kind     predicateKind
	template string
	args     []any
}

// filterBuilder accumulates tagged predicate fragments plus a parallel
// ordered argument list, then renders one parameterized WHERE clause.
type filterBuilder struct {
	preds []predicate
}

func newFilterBuilder(f *store.SearchFilter) *filterBuilder {
	b := &filterBuilder{}
	if f == nil {
		return b
	}
	if len(f.Modalities) > 0 {
		b.preds = append(b.preds, predicate{
			kind:     predModalityIn,
			template: "m.modality = ANY(%s)",
			args:     []any{pq.Array(f.Modalities)},
		})
	}
	if len(f.Albums) > 0 {
		b.preds = append(b.preds, predicate{
			kind:     predAlbumIn,
			template: "m.album = ANY(%s)",
			args:     []any{pq.Array(f.Albums)},
		})
	}
	if f.TsAfter != nil {
		b.preds = append(b.preds, predicate{
			kind:     predTsAfter,
			template: "m.ts >= %s",
			args:     []any{*f.TsAfter},
		})
	}
	if f.TsBefore != nil {
		b.preds = append(b.preds, predicate{
			kind:     predTsBefore,
			template: "m.ts <= %s",
			args:     []any{*f.TsBefore},
		})
	}
	if f.Geo != nil {
		b.preds = append(b.preds, predicate{
			kind:     predGeoBox,
			template: "m.lat BETWEEN %s AND %s AND m.lon BETWEEN %s AND %s",
			args:     []any{f.Geo.MinLat, f.Geo.MaxLat, f.Geo.MinLon, f.Geo.MaxLon},
		})
	}
	return b
}

// render returns the joined fragments, the ordered arguments, and the next
// free placeholder index. An empty builder renders to an empty clause.
func (b *filterBuilder) render(next int) (string, []any, int) {
	var frags []string
	var args []any
	for _, p := range b.preds {
		slots := make([]any, len(p.args))
		for i := range p.args {
			slots[i] = placeholder(next)
			next++
		}
		frags = append(frags, fmt.Sprintf(p.template, slots...))
		args = append(args, p.args...)
	}
	return strings.Join(frags, " AND "), args, next
}
