package snapshot

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/model"
)

// List returns the live snapshots of the instance, newest first. An unknown
// instance has no snapshots.
func (u *UseCase) List(ctx context.Context, instanceID model.RecordID) ([]*model.Record, error) {
	ds, err := u.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return newestFirst(snapshotsOf(ds, instanceID, false)), nil
}

// Latest returns the newest live snapshot, or ErrNotFound when there is none
func (u *UseCase) Latest(ctx context.Context, instanceID model.RecordID) (*model.Record, error) {
	list, err := u.List(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, goerr.Wrap(model.ErrNotFound, "instance has no snapshots", goerr.V("instance_id", instanceID))
	}
	return list[0], nil
}

// Get returns a live snapshot by id
func (u *UseCase) Get(ctx context.Context, id model.RecordID) (*model.Record, error) {
	ds, err := u.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return findSnapshot(ds, id)
}
