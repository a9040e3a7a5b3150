package instance

import (
	"context"

	"github.com/mxn2020/minions-openclaw/pkg/adapter"
	"github.com/mxn2020/minions-openclaw/pkg/model"
)

// Remove soft-deletes the instance and closes its tracked session if any
func (u *UseCase) Remove(ctx context.Context, id model.RecordID) error {
	if err := u.repo.Update(ctx, func(ds *model.Dataset) error {
		rec, err := findInstance(ds, id)
		if err != nil {
			return err
		}
		rec.SoftDelete()
		return nil
	}); err != nil {
		return err
	}

	if err := u.Disconnect(ctx, id); err != nil {
		return err
	}

	u.publish(ctx, adapter.TopicInstanceRemoved, adapter.InstanceRemoved{InstanceID: id.String()})
	return nil
}
