// Package store provides the persistence facade over the media and vector
// tables. All SQL lives in the driver implementations under store/db.
package store

import (
	"context"
)

// Store wraps a database driver.
type Store struct {
	driver Driver
}

// New creates a store with the given driver.
func New(driver Driver) *Store {
	return &Store{driver: driver}
}

// Close closes the underlying driver.
func (s *Store) Close() error {
	return s.driver.Close()
}

// Migrate brings the schema up to date.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

// UpsertEmbedding inserts or overwrites the vector for a media item.
// Keyed by media ID, so retried and reprocessed tasks are idempotent.
func (s *Store) UpsertEmbedding(ctx context.Context, vector *MediaVector) error {
	return s.driver.UpsertEmbedding(ctx, vector)
}

// QueryNearest runs a cosine-distance nearest-neighbor query scoped to one
// user, restricted by the filter, ordered by ascending distance.
func (s *Store) QueryNearest(ctx context.Context, q *NearestQuery) ([]*MediaResult, error) {
	return s.driver.QueryNearest(ctx, q)
}

// QueryByKeyword runs a substring match over uri, album and source, ordered
// by recency. Every returned row has a score of zero.
func (s *Store) QueryByKeyword(ctx context.Context, q *KeywordQuery) ([]*MediaResult, error) {
	return s.driver.QueryByKeyword(ctx, q)
}

// ResolveUserID resolves an external identifier such as an email to the
// canonical user ID. Returns ErrUserNotFound when no user matches.
func (s *Store) ResolveUserID(ctx context.Context, identifier string) (string, error) {
	return s.driver.ResolveUserID(ctx, identifier)
}
