package repository

import (
	"context"

	"github.com/mxn2020/minions-openclaw/pkg/model"
)

// Repository owns the canonical dataset of records and relations.
// Implementations serialize Update calls so that a load-mutate-save cycle is
// atomic within one process.
type Repository interface {
	// Load returns a copy of the whole dataset. A store that has never been
	// written returns an empty dataset, not an error.
	Load(ctx context.Context) (*model.Dataset, error)

	// Save atomically replaces the whole dataset
	Save(ctx context.Context, ds *model.Dataset) error

	// Update applies fn to a working copy and persists it when fn returns nil.
	// When fn fails nothing is written and its error is returned as is.
	Update(ctx context.Context, fn func(ds *model.Dataset) error) error
}
