package vectorindex

import (
	"context"
	"testing"

	"github.com/latticememory/memex/memory/scope"
)

func TestMemoryIndexUpsertAndQueryRanksByCosine(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	if err := idx.Upsert(ctx, "a", []float32{1, 0}, "team"); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if err := idx.Upsert(ctx, "b", []float32{0.9, 0.1}, "team"); err != nil {
		t.Fatalf("upsert b: %v", err)
	}
	if err := idx.Upsert(ctx, "c", []float32{0, 1}, "team"); err != nil {
		t.Fatalf("upsert c: %v", err)
	}

	matches, err := idx.Query(ctx, []float32{1, 0}, scope.Any(), 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "a" {
		t.Fatalf("expected a ranked first, got %s", matches[0].ID)
	}
	if matches[0].Similarity < matches[1].Similarity {
		t.Fatalf("expected descending similarity order")
	}
}

func TestMemoryIndexUpsertNilRemoves(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	if err := idx.Upsert(ctx, "a", []float32{1, 0}, "team"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := idx.Upsert(ctx, "a", nil, "team"); err != nil {
		t.Fatalf("upsert nil: %v", err)
	}
	if _, found, err := idx.Get(ctx, "a"); err != nil || found {
		t.Fatalf("expected id to be removed, found=%v err=%v", found, err)
	}
}

func TestMemoryIndexQueryRespectsScopeFilter(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	if err := idx.Upsert(ctx, "a", []float32{1, 0}, "team/alpha"); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if err := idx.Upsert(ctx, "b", []float32{1, 0}, "team/beta"); err != nil {
		t.Fatalf("upsert b: %v", err)
	}
	matches, err := idx.Query(ctx, []float32{1, 0}, scope.Prefix("team/alpha"), 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "a" {
		t.Fatalf("expected only a to match team/alpha prefix, got %+v", matches)
	}
}

func TestMemoryIndexCountAndClose(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	_ = idx.Upsert(ctx, "a", []float32{1}, "team")
	_ = idx.Upsert(ctx, "b", []float32{1}, "other")
	count, err := idx.Count(ctx, scope.Any())
	if err != nil || count != 2 {
		t.Fatalf("expected count 2, got %d err=%v", count, err)
	}
	scoped, err := idx.Count(ctx, scope.Exact("team"))
	if err != nil || scoped != 1 {
		t.Fatalf("expected scoped count 1, got %d err=%v", scoped, err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
