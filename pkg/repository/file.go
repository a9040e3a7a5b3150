package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/utils/logging"
)

const (
	DefaultDirName  = ".openclaw-manager"
	DefaultFileName = "data.json"
)

// DefaultPath returns ~/.openclaw-manager/data.json
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve home directory")
	}
	return filepath.Join(home, DefaultDirName, DefaultFileName), nil
}

// File stores the dataset as a single JSON document. The document is cached
// after the first read and every write replaces the file atomically.
type File struct {
	path  string
	mu    sync.Mutex
	cache *model.Dataset
}

var _ Repository = (*File)(nil)

// NewFile creates a file backed repository at path
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path
func (f *File) Path() string {
	return f.path
}

func (f *File) Load(ctx context.Context) (*model.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ds, err := f.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Clone(), nil
}

func (f *File) Save(ctx context.Context, ds *model.Dataset) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.write(ctx, ds); err != nil {
		return err
	}
	f.cache = ds.Clone()
	return nil
}

func (f *File) Update(ctx context.Context, fn func(ds *model.Dataset) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.loadLocked(ctx)
	if err != nil {
		return err
	}

	work := current.Clone()
	if err := fn(work); err != nil {
		return err
	}

	if err := f.write(ctx, work); err != nil {
		return err
	}
	f.cache = work
	return nil
}

func (f *File) loadLocked(ctx context.Context) (*model.Dataset, error) {
	if f.cache != nil {
		return f.cache, nil
	}

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.From(ctx).Debug("data file not found, starting empty", "path", f.path)
		f.cache = model.NewDataset()
		return f.cache, nil
	}
	if err != nil {
		return nil, goerr.Wrap(model.ErrStorage, "failed to read data file",
			goerr.V("path", f.path), goerr.V("error", err.Error()))
	}

	ds := model.NewDataset()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, ds); err != nil {
			return nil, goerr.Wrap(model.ErrStorage, "failed to decode data file",
				goerr.V("path", f.path), goerr.V("error", err.Error()))
		}
	}
	ds.Normalize()
	f.cache = ds
	return ds, nil
}

// write replaces the file via a temp file in the same directory and rename
func (f *File) write(ctx context.Context, ds *model.Dataset) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return goerr.Wrap(model.ErrStorage, "failed to create data directory",
			goerr.V("dir", dir), goerr.V("error", err.Error()))
	}

	raw, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return goerr.Wrap(model.ErrStorage, "failed to encode dataset", goerr.V("error", err.Error()))
	}

	tmp, err := os.CreateTemp(dir, ".data-*.json")
	if err != nil {
		return goerr.Wrap(model.ErrStorage, "failed to create temp file",
			goerr.V("dir", dir), goerr.V("error", err.Error()))
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return goerr.Wrap(model.ErrStorage, "failed to write temp file",
			goerr.V("path", tmpName), goerr.V("error", err.Error()))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return goerr.Wrap(model.ErrStorage, "failed to sync temp file",
			goerr.V("path", tmpName), goerr.V("error", err.Error()))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(model.ErrStorage, "failed to close temp file",
			goerr.V("path", tmpName), goerr.V("error", err.Error()))
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return goerr.Wrap(model.ErrStorage, "failed to replace data file",
			goerr.V("path", f.path), goerr.V("error", err.Error()))
	}

	logging.From(ctx).Debug("dataset saved", "path", f.path,
		"records", len(ds.Records), "relations", len(ds.Relations))
	return nil
}
