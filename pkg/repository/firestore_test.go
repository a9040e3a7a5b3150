package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/repository"
)

func setupFirestore(t *testing.T) *repository.Firestore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.NewFirestore(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestFirestoreUpdateAndLoad(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	inst, err := model.NewInstanceRecord("firestore test", "ws://localhost:18789", "")
	gt.NoError(t, err)
	child := model.NewRecord(model.TypeAgent, "bot", map[string]any{"name": "bot", "model": "gpt-4"})

	gt.NoError(t, repo.Update(ctx, func(ds *model.Dataset) error {
		ds.AddRecord(inst, child)
		ds.AddRelation(model.NewRelation(inst.ID, child.ID, model.RelationParentOf))
		return nil
	}))

	ds, err := repo.Load(ctx)
	gt.NoError(t, err)
	got := ds.FindLive(inst.ID)
	gt.V(t, got).NotNil()
	gt.Equal(t, got.String("url"), "ws://localhost:18789")
	gt.A(t, ds.Children(inst.ID, false)).Length(1)
}

func TestFirestoreSoftDelete(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	inst, err := model.NewInstanceRecord("to delete", "ws://localhost:1", "")
	gt.NoError(t, err)
	gt.NoError(t, repo.Update(ctx, func(ds *model.Dataset) error {
		ds.AddRecord(inst)
		return nil
	}))
	gt.NoError(t, repo.Update(ctx, func(ds *model.Dataset) error {
		ds.Find(inst.ID).SoftDelete()
		return nil
	}))

	ds, err := repo.Load(ctx)
	gt.NoError(t, err)
	gt.Nil(t, ds.FindLive(inst.ID))
	gt.V(t, ds.Find(inst.ID)).NotNil()
}
