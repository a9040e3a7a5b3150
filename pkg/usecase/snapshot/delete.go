package snapshot

import (
	"context"

	"github.com/mxn2020/minions-openclaw/pkg/adapter"
	"github.com/mxn2020/minions-openclaw/pkg/model"
)

// Delete soft-deletes a snapshot. Its follows edges stay so history can
// walk through it.
func (u *UseCase) Delete(ctx context.Context, id model.RecordID) error {
	if err := u.repo.Update(ctx, func(ds *model.Dataset) error {
		rec, err := findSnapshot(ds, id)
		if err != nil {
			return err
		}
		rec.SoftDelete()
		return nil
	}); err != nil {
		return err
	}

	u.publish(ctx, adapter.TopicSnapshotDeleted, adapter.SnapshotDeleted{SnapshotID: id.String()})
	return nil
}
