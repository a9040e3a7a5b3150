package configdoc

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/adapter"
	"github.com/mxn2020/minions-openclaw/pkg/model"
)

// ImportResult reports what Import wrote
type ImportResult struct {
	Created  []*model.Record
	Replaced int
}

// Import decomposes cfg under the instance and persists the children in one
// store update. Config children from an earlier import are soft-deleted.
// Nothing is written when any child fails validation.
func (u *UseCase) Import(ctx context.Context, instanceID model.RecordID, cfg *model.Config) (*ImportResult, error) {
	d := Decompose(cfg, instanceID)
	if err := d.Validate(); err != nil {
		return nil, err
	}

	result := &ImportResult{Created: d.Records}
	if err := u.repo.Update(ctx, func(ds *model.Dataset) error {
		inst := ds.FindLive(instanceID)
		if inst == nil || inst.Type != model.TypeInstance {
			return goerr.Wrap(model.ErrNotFound, "instance not found", goerr.V("instance_id", instanceID))
		}

		result.Replaced = 0
		for _, old := range ds.Children(instanceID, false, sectionTypes()...) {
			old.SoftDelete()
			result.Replaced++
		}
		ds.AddRecord(d.Records...)
		ds.AddRelation(d.Relations...)
		return nil
	}); err != nil {
		return nil, err
	}

	u.publish(ctx, adapter.TopicConfigImported, adapter.ConfigImported{
		InstanceID: instanceID.String(),
		Records:    len(result.Created),
		Replaced:   result.Replaced,
	})
	return result, nil
}

// Export composes the configuration document stored under the instance
func (u *UseCase) Export(ctx context.Context, instanceID model.RecordID) (*model.Config, error) {
	ds, err := u.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	inst := ds.FindLive(instanceID)
	if inst == nil || inst.Type != model.TypeInstance {
		return nil, goerr.Wrap(model.ErrNotFound, "instance not found", goerr.V("instance_id", instanceID))
	}
	return Compose(ds, instanceID)
}

// Show returns the config captured by the latest snapshot of the instance
func (u *UseCase) Show(ctx context.Context, instanceID model.RecordID) (map[string]any, error) {
	if u.snapshots == nil {
		return nil, goerr.New("no snapshot source configured")
	}
	latest, err := u.snapshots.Latest(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return model.SnapshotConfig(latest)
}
