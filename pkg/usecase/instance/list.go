package instance

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/model"
)

// List returns all live instances in insertion order
func (u *UseCase) List(ctx context.Context) ([]*model.Record, error) {
	ds, err := u.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return ds.LiveOf(model.TypeInstance), nil
}

// Get returns the live instance with id. A missing or removed instance is ErrNotFound.
func (u *UseCase) Get(ctx context.Context, id model.RecordID) (*model.Record, error) {
	ds, err := u.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return findInstance(ds, id)
}

func findInstance(ds *model.Dataset, id model.RecordID) (*model.Record, error) {
	rec := ds.FindLive(id)
	if rec == nil || rec.Type != model.TypeInstance {
		return nil, goerr.Wrap(model.ErrNotFound, "instance not found", goerr.V("instance_id", id))
	}
	return rec, nil
}
