package instance

import (
	"context"

	"github.com/mxn2020/minions-openclaw/pkg/adapter"
	"github.com/mxn2020/minions-openclaw/pkg/model"
)

// Register validates and stores a new instance with status "registered".
// Nothing is written when validation fails.
func (u *UseCase) Register(ctx context.Context, title, url, token string) (*model.Record, error) {
	rec, err := model.NewInstanceRecord(title, url, token)
	if err != nil {
		return nil, err
	}

	if err := u.repo.Update(ctx, func(ds *model.Dataset) error {
		ds.AddRecord(rec)
		return nil
	}); err != nil {
		return nil, err
	}

	u.publish(ctx, adapter.TopicInstanceRegistered, adapter.InstanceRegistered{
		InstanceID: rec.ID.String(),
		Title:      rec.Title,
		URL:        url,
	})
	return rec, nil
}
