package snapshot

import (
	"context"

	"github.com/mxn2020/minions-openclaw/pkg/model"
)

// Compare resolves two stored snapshots and returns their field level diff.
// Soft-deleted snapshots still resolve so history entries stay comparable.
func (u *UseCase) Compare(ctx context.Context, id1, id2 model.RecordID) (map[string]model.FieldDiff, error) {
	ds, err := u.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	a, err := findStoredSnapshot(ds, id1)
	if err != nil {
		return nil, err
	}
	b, err := findStoredSnapshot(ds, id2)
	if err != nil {
		return nil, err
	}
	return model.DiffFields(a, b), nil
}
