// Package configdoc maps gateway configuration documents to flat child
// records of an instance and back.
package configdoc

import (
	"context"

	"github.com/mxn2020/minions-openclaw/pkg/adapter"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/repository"
	"github.com/mxn2020/minions-openclaw/pkg/utils/logging"
)

// SnapshotSource resolves the latest snapshot of an instance
type SnapshotSource interface {
	Latest(ctx context.Context, instanceID model.RecordID) (*model.Record, error)
}

// UseCase persists decomposed configuration documents
type UseCase struct {
	repo      repository.Repository
	snapshots SnapshotSource
	publisher adapter.Publisher
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithSnapshots enables Show
func WithSnapshots(s SnapshotSource) Option {
	return func(uc *UseCase) {
		uc.snapshots = s
	}
}

// WithPublisher sets the event publisher
func WithPublisher(p adapter.Publisher) Option {
	return func(uc *UseCase) {
		uc.publisher = p
	}
}

// New creates a new config UseCase
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

func sectionTypes() []model.TypeID {
	infos := model.SectionInfos()
	out := make([]model.TypeID, 0, len(infos))
	for _, info := range infos {
		out = append(out, info.TypeID)
	}
	return out
}
