package metastore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/latticememory/memex/memory/model"
	"github.com/latticememory/memex/memory/scope"
)

func TestFileStorePersistsAcrossReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.json")

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := fs.Put(ctx, model.Memory{ID: "m1", Content: "hello", Scope: "team"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen file store: %v", err)
	}
	mem, found, err := reopened.Get(ctx, "m1")
	if err != nil || !found {
		t.Fatalf("expected m1 to survive reload, found=%v err=%v", found, err)
	}
	if mem.Content != "hello" {
		t.Fatalf("expected content hello, got %q", mem.Content)
	}
}

func TestFileStoreDeletePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := fs.Put(ctx, model.Memory{ID: "m1", Scope: "team"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := fs.Delete(ctx, "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, found, _ := reopened.Get(ctx, "m1"); found {
		t.Fatalf("expected m1 to stay deleted after reload")
	}
}

func TestNewFileStoreMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	n, err := fs.Count(context.Background(), scope.Any())
	if err != nil || n != 0 {
		t.Fatalf("expected empty store, got %d err=%v", n, err)
	}
}
