package store

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when an identifier resolves to no user.
var ErrUserNotFound = errors.New("user not found")

// Driver is an interface for store database drivers.
type Driver interface {
	Close() error
	Migrate(ctx context.Context) error

	UpsertEmbedding(ctx context.Context, vector *MediaVector) error
	QueryNearest(ctx context.Context, q *NearestQuery) ([]*MediaResult, error)
	QueryByKeyword(ctx context.Context, q *KeywordQuery) ([]*MediaResult, error)
	ResolveUserID(ctx context.Context, identifier string) (string, error)
}
