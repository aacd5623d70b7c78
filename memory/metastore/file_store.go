package metastore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/latticememory/memex/memory/model"
	"github.com/latticememory/memex/memory/scope"
)

// FileStore wraps a MemoryStore with a JSON snapshot on disk, giving the
// default deployment durability across restarts without requiring an
// external database. No embedded key-value store (bbolt, badger, etc.)
// appears anywhere in this codebase's retrieval corpus, so this is built
// directly on stdlib encoding/json + os file I/O rather than adopting an
// unrelated dependency for a single-writer snapshot file.
type FileStore struct {
	inner *MemoryStore
	path  string
	mu    sync.Mutex
}

// NewFileStore loads path if it exists, or starts empty.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{inner: NewMemoryStore(), path: path}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var snapshot []model.Memory
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}
	ctx := context.Background()
	for _, mem := range snapshot {
		if err := fs.inner.Put(ctx, mem); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FileStore) persist(ctx context.Context) error {
	all, err := fs.inner.FindByScope(ctx, scope.Any(), "", maxSnapshotPageSize)
	if err != nil {
		return err
	}
	memories := all.Memories
	for all.HasMore {
		all, err = fs.inner.FindByScope(ctx, scope.Any(), all.Cursor, maxSnapshotPageSize)
		if err != nil {
			return err
		}
		memories = append(memories, all.Memories...)
	}
	data, err := json.Marshal(memories)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o755); err != nil {
		return err
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, fs.path)
}

const maxSnapshotPageSize = 1000

func (fs *FileStore) Put(ctx context.Context, mem model.Memory) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.inner.Put(ctx, mem); err != nil {
		return err
	}
	return fs.persist(ctx)
}

func (fs *FileStore) Get(ctx context.Context, id string) (model.Memory, bool, error) {
	return fs.inner.Get(ctx, id)
}

func (fs *FileStore) Delete(ctx context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.inner.Delete(ctx, id); err != nil {
		return err
	}
	return fs.persist(ctx)
}

func (fs *FileStore) FindByScope(ctx context.Context, filter scope.Filter, cursor string, limit int) (Page, error) {
	return fs.inner.FindByScope(ctx, filter, cursor, limit)
}

func (fs *FileStore) FindByContentHash(ctx context.Context, hash string) ([]model.Memory, error) {
	return fs.inner.FindByContentHash(ctx, hash)
}

func (fs *FileStore) Count(ctx context.Context, filter scope.Filter) (int, error) {
	return fs.inner.Count(ctx, filter)
}

func (fs *FileStore) Close() error { return nil }
