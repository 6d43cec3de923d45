// Package db provides the database driver factory.
package db

import (
	"github.com/pkg/errors"

	"github.com/TAURAAI/taura-recall/internal/profile"
	"github.com/TAURAAI/taura-recall/store"
	"github.com/TAURAAI/taura-recall/store/db/postgres"
)

// NewDBDriver creates a new database driver based on the profile.
func NewDBDriver(p *profile.Profile) (store.Driver, error) {
	switch p.Driver {
	case "postgres":
		return postgres.NewDB(p)
	default:
		return nil, errors.Errorf("unsupported database driver %q", p.Driver)
	}
}
