package snapshot

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/adapter"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/repository"
	"github.com/mxn2020/minions-openclaw/pkg/service/gateway"
	"github.com/mxn2020/minions-openclaw/pkg/utils/logging"
)

// Connector opens and closes tracked sessions for an instance. It is
// implemented by the instance registry.
type Connector interface {
	Connect(ctx context.Context, id model.RecordID) (*gateway.Session, error)
	Disconnect(ctx context.Context, id model.RecordID) error
}

// UseCase is the snapshot engine
type UseCase struct {
	repo      repository.Repository
	connector Connector
	publisher adapter.Publisher
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithConnector enables CaptureLive
func WithConnector(c Connector) Option {
	return func(uc *UseCase) {
		uc.connector = c
	}
}

// WithPublisher sets the event publisher
func WithPublisher(p adapter.Publisher) Option {
	return func(uc *UseCase) {
		uc.publisher = p
	}
}

// New creates a new snapshot UseCase
func New(repo repository.Repository, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:      repo,
		publisher: &adapter.NoopPublisher{},
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (u *UseCase) publish(ctx context.Context, topic string, event any) {
	if err := u.publisher.Publish(ctx, topic, event); err != nil {
		logging.From(ctx).Warn("failed to publish event", "topic", topic, "error", err)
	}
}

// snapshotsOf returns the snapshot children of the instance in insertion order
func snapshotsOf(ds *model.Dataset, instanceID model.RecordID, includeDeleted bool) []*model.Record {
	return ds.Children(instanceID, includeDeleted, model.TypeSnapshot)
}

// newestFirst sorts by creation time descending. Equal timestamps keep the
// later inserted record first.
func newestFirst(records []*model.Record) []*model.Record {
	out := make([]*model.Record, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func findSnapshot(ds *model.Dataset, id model.RecordID) (*model.Record, error) {
	rec := ds.FindLive(id)
	if rec == nil || rec.Type != model.TypeSnapshot {
		return nil, goerr.Wrap(model.ErrNotFound, "snapshot not found", goerr.V("snapshot_id", id))
	}
	return rec, nil
}

func findStoredSnapshot(ds *model.Dataset, id model.RecordID) (*model.Record, error) {
	rec := ds.Find(id)
	if rec == nil || rec.Type != model.TypeSnapshot {
		return nil, goerr.Wrap(model.ErrNotFound, "snapshot not found", goerr.V("snapshot_id", id))
	}
	return rec, nil
}
