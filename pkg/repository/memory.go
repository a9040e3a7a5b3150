package repository

import (
	"context"
	"sync"

	"github.com/mxn2020/minions-openclaw/pkg/model"
)

// Memory keeps the dataset in process memory only
type Memory struct {
	mu sync.Mutex
	ds *model.Dataset
}

var _ Repository = (*Memory)(nil)

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{ds: model.NewDataset()}
}

func (m *Memory) Load(ctx context.Context) (*model.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ds.Clone(), nil
}

func (m *Memory) Save(ctx context.Context, ds *model.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ds = ds.Clone()
	return nil
}

func (m *Memory) Update(ctx context.Context, fn func(ds *model.Dataset) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.ds.Clone()
	if err := fn(work); err != nil {
		return err
	}
	m.ds = work
	return nil
}
