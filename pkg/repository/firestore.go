package repository

import (
	"context"
	"encoding/json"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/model"
)

const (
	collectionRecords   = "records"
	collectionRelations = "relations"
)

// Firestore stores each record and relation as a document. The seq field
// keeps dataset insertion order, which Firestore does not preserve.
type Firestore struct {
	client *firestore.Client
}

var _ Repository = (*Firestore)(nil)

type recordDoc struct {
	Seq    int           `firestore:"seq"`
	Record *model.Record `firestore:"record"`
}

type relationDoc struct {
	Seq      int             `firestore:"seq"`
	Relation *model.Relation `firestore:"relation"`
}

// NewFirestore creates a Firestore backed repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(model.ErrStorage, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID), goerr.V("error", err.Error()))
	}
	return &Firestore{client: client}, nil
}

// Close releases the underlying client
func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) Load(ctx context.Context) (*model.Dataset, error) {
	recSnaps, err := r.client.Collection(collectionRecords).Documents(ctx).GetAll()
	if err != nil {
		return nil, goerr.Wrap(model.ErrStorage, "failed to list records", goerr.V("error", err.Error()))
	}
	relSnaps, err := r.client.Collection(collectionRelations).Documents(ctx).GetAll()
	if err != nil {
		return nil, goerr.Wrap(model.ErrStorage, "failed to list relations", goerr.V("error", err.Error()))
	}
	return decodeDocs(recSnaps, relSnaps)
}

func (r *Firestore) Save(ctx context.Context, ds *model.Dataset) error {
	existing, err := r.Load(ctx)
	if err != nil {
		return err
	}

	bw := r.client.BulkWriter(ctx)
	keepRec := map[model.RecordID]struct{}{}
	for i, rec := range ds.Records {
		keepRec[rec.ID] = struct{}{}
		if _, err := bw.Set(r.recordRef(rec.ID), &recordDoc{Seq: i, Record: rec}); err != nil {
			return goerr.Wrap(model.ErrStorage, "failed to enqueue record", goerr.V("id", rec.ID), goerr.V("error", err.Error()))
		}
	}
	keepRel := map[model.RelationID]struct{}{}
	for i, rel := range ds.Relations {
		keepRel[rel.ID] = struct{}{}
		if _, err := bw.Set(r.relationRef(rel.ID), &relationDoc{Seq: i, Relation: rel}); err != nil {
			return goerr.Wrap(model.ErrStorage, "failed to enqueue relation", goerr.V("id", rel.ID), goerr.V("error", err.Error()))
		}
	}
	for _, rec := range existing.Records {
		if _, ok := keepRec[rec.ID]; !ok {
			if _, err := bw.Delete(r.recordRef(rec.ID)); err != nil {
				return goerr.Wrap(model.ErrStorage, "failed to enqueue record deletion", goerr.V("id", rec.ID), goerr.V("error", err.Error()))
			}
		}
	}
	for _, rel := range existing.Relations {
		if _, ok := keepRel[rel.ID]; !ok {
			if _, err := bw.Delete(r.relationRef(rel.ID)); err != nil {
				return goerr.Wrap(model.ErrStorage, "failed to enqueue relation deletion", goerr.V("id", rel.ID), goerr.V("error", err.Error()))
			}
		}
	}
	bw.End()
	return nil
}

// Update runs fn inside a Firestore transaction. Only records and relations
// that are new or changed are written back.
func (r *Firestore) Update(ctx context.Context, fn func(ds *model.Dataset) error) error {
	var fnErr error
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		fnErr = nil
		recSnaps, err := tx.Documents(r.client.Collection(collectionRecords)).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to read records")
		}
		relSnaps, err := tx.Documents(r.client.Collection(collectionRelations)).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to read relations")
		}
		current, err := decodeDocs(recSnaps, relSnaps)
		if err != nil {
			return err
		}

		before := map[model.RecordID]string{}
		for _, rec := range current.Records {
			before[rec.ID] = fingerprint(rec)
		}
		knownRel := map[model.RelationID]struct{}{}
		for _, rel := range current.Relations {
			knownRel[rel.ID] = struct{}{}
		}

		work := current.Clone()
		if err := fn(work); err != nil {
			fnErr = err
			return err
		}

		for i, rec := range work.Records {
			if prev, ok := before[rec.ID]; ok && prev == fingerprint(rec) {
				continue
			}
			if err := tx.Set(r.recordRef(rec.ID), &recordDoc{Seq: i, Record: rec}); err != nil {
				return goerr.Wrap(err, "failed to write record", goerr.V("id", rec.ID))
			}
		}
		for i, rel := range work.Relations {
			if _, ok := knownRel[rel.ID]; ok {
				continue
			}
			if err := tx.Set(r.relationRef(rel.ID), &relationDoc{Seq: i, Relation: rel}); err != nil {
				return goerr.Wrap(err, "failed to write relation", goerr.V("id", rel.ID))
			}
		}
		return nil
	})

	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return goerr.Wrap(model.ErrStorage, "firestore transaction failed", goerr.V("error", err.Error()))
	}
	return nil
}

func (r *Firestore) recordRef(id model.RecordID) *firestore.DocumentRef {
	return r.client.Collection(collectionRecords).Doc(string(id))
}

func (r *Firestore) relationRef(id model.RelationID) *firestore.DocumentRef {
	return r.client.Collection(collectionRelations).Doc(string(id))
}

func decodeDocs(recSnaps, relSnaps []*firestore.DocumentSnapshot) (*model.Dataset, error) {
	recs := make([]recordDoc, 0, len(recSnaps))
	for _, snap := range recSnaps {
		var doc recordDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(model.ErrStorage, "failed to decode record",
				goerr.V("doc", snap.Ref.ID), goerr.V("error", err.Error()))
		}
		if doc.Record != nil {
			recs = append(recs, doc)
		}
	}
	rels := make([]relationDoc, 0, len(relSnaps))
	for _, snap := range relSnaps {
		var doc relationDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(model.ErrStorage, "failed to decode relation",
				goerr.V("doc", snap.Ref.ID), goerr.V("error", err.Error()))
		}
		if doc.Relation != nil {
			rels = append(rels, doc)
		}
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })
	sort.SliceStable(rels, func(i, j int) bool { return rels[i].Seq < rels[j].Seq })

	ds := model.NewDataset()
	for _, d := range recs {
		ds.AddRecord(d.Record)
	}
	for _, d := range rels {
		ds.AddRelation(d.Relation)
	}
	ds.Normalize()
	return ds, nil
}

func fingerprint(rec *model.Record) string {
	raw, _ := json.Marshal(rec)
	return string(raw)
}
