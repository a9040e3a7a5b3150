package instance

import (
	"context"
	"sync"

	"github.com/mxn2020/minions-openclaw/pkg/adapter"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/repository"
	"github.com/mxn2020/minions-openclaw/pkg/service/gateway"
	"github.com/mxn2020/minions-openclaw/pkg/utils/logging"
)

// UseCase is the instance registry: CRUD over instance records plus the
// sessions opened against them
type UseCase struct {
	repo        repository.Repository
	publisher   adapter.Publisher
	sessionOpts []gateway.Option

	mu           sync.Mutex
	sessions     map[model.RecordID]*gateway.Session
	deviceTokens map[model.RecordID]string
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithPublisher sets the event publisher
func WithPublisher(p adapter.Publisher) Option {
	return func(uc *UseCase) {
		uc.publisher = p
	}
}

// WithSessionOptions adds options applied to every gateway session
func WithSessionOptions(opts ...gateway.Option) Option {
	return func(uc *UseCase) {
		uc.sessionOpts = append(uc.sessionOpts, opts...)
	}
}

// New creates a new instance UseCase
func New(repo repository.Repository, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:         repo,
		publisher:    &adapter.NoopPublisher{},
		sessions:     map[model.RecordID]*gateway.Session{},
		deviceTokens: map[model.RecordID]string{},
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
