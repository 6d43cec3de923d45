package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/TAURAAI/taura-recall/store"
)

// UpsertEmbedding inserts or overwrites the vector for a media item.
func (d *DB) UpsertEmbedding(ctx context.Context, vector *store.MediaVector) error {
	now := time.Now().Unix()
	if vector.CreatedTs == 0 {
		vector.CreatedTs = now
	}
	vector.UpdatedTs = now

	stmt := `
		INSERT INTO media_embedding (media_id, embedding, model, created_ts, updated_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (media_id, model)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			updated_ts = EXCLUDED.updated_ts
	`

	_, err := d.db.ExecContext(ctx, stmt,
		vector.MediaID,
		pgvector.NewVector(vector.Embedding),
		vector.Model,
		vector.CreatedTs,
		vector.UpdatedTs,
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert media embedding")
	}
	return nil
}

// QueryNearest performs vector similarity search using pgvector.
// The <=> operator computes cosine distance, so ordering by it ascending
// yields the most similar rows first and score = 1 - distance.
func (d *DB) QueryNearest(ctx context.Context, q *store.NearestQuery) ([]*store.MediaResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	vec := pgvector.NewVector(q.Vector)
	where := []string{
		"m.user_id = " + placeholder(2),
		"e.model = " + placeholder(3),
	}
	args := []any{vec, q.UserID, q.Model}

	clause, filterArgs, next := newFilterBuilder(q.Filter).render(4)
	if clause != "" {
		where = append(where, clause)
		args = append(args, filterArgs...)
	}

	orderPh := placeholder(next)
	limitPh := placeholder(next + 1)
	args = append(args, vec, limit)

	query := `
		SELECT
			m.id, 1 - (e.embedding <=> ` + placeholder(1) + `) AS score,
			m.uri, m.thumb_url, m.ts, m.lat, m.lon, m.modality, m.album, m.source
		FROM media m
		INNER JOIN media_embedding e ON e.media_id = m.id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY e.embedding <=> ` + orderPh + `
		LIMIT ` + limitPh

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query nearest media")
	}
	defer rows.Close()

	return scanMediaResults(rows)
}

// QueryByKeyword performs the keyword fallback read. Each keyword
// independently matching uri, album or source counts; rows are ordered by
// recency and carry a fixed score of zero.
func (d *DB) QueryByKeyword(ctx context.Context, q *store.KeywordQuery) ([]*store.MediaResult, error) {
	if len(q.Keywords) == 0 {
		return []*store.MediaResult{}, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	where := []string{"m.user_id = " + placeholder(1)}
	args := []any{q.UserID}

	clause, filterArgs, next := newFilterBuilder(q.Filter).render(2)
	if clause != "" {
		where = append(where, clause)
		args = append(args, filterArgs...)
	}

	var keywordFrags []string
	for _, kw := range q.Keywords {
		ph := placeholder(next)
		next++
		args = append(args, "%"+kw+"%")
		keywordFrags = append(keywordFrags,
			fmt.Sprintf("(m.uri ILIKE %[1]s OR m.album ILIKE %[1]s OR m.source ILIKE %[1]s)", ph))
	}
	where = append(where, "("+strings.Join(keywordFrags, " OR ")+")")

	limitPh := placeholder(next)
	args = append(args, limit)

	query := `
		SELECT
			m.id, 0.0 AS score,
			m.uri, m.thumb_url, m.ts, m.lat, m.lon, m.modality, m.album, m.source
		FROM media m
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY m.ts DESC
		LIMIT ` + limitPh

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query media by keyword")
	}
	defer rows.Close()

	return scanMediaResults(rows)
}

// ResolveUserID resolves an email to the canonical user ID.
func (d *DB) ResolveUserID(ctx context.Context, identifier string) (string, error) {
	stmt := `SELECT id FROM "user" WHERE email = ` + placeholder(1)

	var id string
	err := d.db.QueryRowContext(ctx, stmt, identifier).Scan(&id)
	if err == sql.ErrNoRows {
		return "", store.ErrUserNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve user")
	}
	return id, nil
}

func scanMediaResults(rows *sql.Rows) ([]*store.MediaResult, error) {
	results := []*store.MediaResult{}
	for rows.Next() {
		var r store.MediaResult
		var lat, lon sql.NullFloat64
		err := rows.Scan(
			&r.MediaID,
			&r.Score,
			&r.URI,
			&r.ThumbURL,
			&r.Ts,
			&lat,
			&lon,
			&r.Modality,
			&r.Album,
			&r.Source,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan media result")
		}
		if lat.Valid {
			r.Lat = &lat.Float64
		}
		if lon.Valid {
			r.Lon = &lon.Float64
		}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
