package duplicate

import (
	"context"
	"testing"

	"github.com/latticememory/memex/memory/metastore"
	"github.com/latticememory/memex/memory/model"
	"github.com/latticememory/memex/memory/vectorindex"
)

func TestCheckContentHashFastPath(t *testing.T) {
	ctx := context.Background()
	meta := metastore.NewMemoryStore()
	vectors := vectorindex.NewMemoryIndex()
	det := NewDetector(meta, vectors, 0.9)

	hash := ContentHash("hello world")
	if err := meta.Put(ctx, model.Memory{ID: "m1", Scope: "team", ContentHash: hash}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	verdict, err := det.Check(ctx, "hello world", nil)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !verdict.IsDuplicate || verdict.ExistingID != "m1" || verdict.Similarity != 1.0 {
		t.Fatalf("expected exact-hash duplicate of m1, got %+v", verdict)
	}
}

func TestCheckFallsBackToSimilarityThreshold(t *testing.T) {
	ctx := context.Background()
	meta := metastore.NewMemoryStore()
	vectors := vectorindex.NewMemoryIndex()
	det := NewDetector(meta, vectors, 0.95)

	_ = meta.Put(ctx, model.Memory{ID: "m1", Scope: "team", ContentHash: "other-hash"})
	_ = vectors.Upsert(ctx, "m1", []float32{1, 0}, "team")

	verdict, err := det.Check(ctx, "different content", []float32{0.99, 0.01})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !verdict.IsDuplicate || verdict.ExistingID != "m1" {
		t.Fatalf("expected near-identical vector to count as duplicate, got %+v", verdict)
	}

	verdictFar, err := det.CheckWithThreshold(ctx, "different content", []float32{0, 1}, 0.95)
	if err != nil {
		t.Fatalf("check with threshold: %v", err)
	}
	if verdictFar.IsDuplicate {
		t.Fatalf("expected orthogonal vector to not be a duplicate, got %+v", verdictFar)
	}
}

func TestCheckWithThresholdOverridesDetectorDefault(t *testing.T) {
	ctx := context.Background()
	meta := metastore.NewMemoryStore()
	vectors := vectorindex.NewMemoryIndex()
	det := NewDetector(meta, vectors, 0.99)

	_ = meta.Put(ctx, model.Memory{ID: "m1", Scope: "team", ContentHash: "hash"})
	_ = vectors.Upsert(ctx, "m1", []float32{1, 0}, "team")

	verdict, err := det.CheckWithThreshold(ctx, "new content", []float32{0.9, 0.1}, 0.5)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !verdict.IsDuplicate {
		t.Fatalf("expected lowered threshold to count as duplicate, got %+v", verdict)
	}
}

func TestCheckIsGlobalAcrossScopes(t *testing.T) {
	ctx := context.Background()
	meta := metastore.NewMemoryStore()
	vectors := vectorindex.NewMemoryIndex()
	det := NewDetector(meta, vectors, 0.5)

	_ = meta.Put(ctx, model.Memory{ID: "m1", Scope: "team/alpha", ContentHash: "hash"})
	_ = vectors.Upsert(ctx, "m1", []float32{1, 0}, "team/alpha")

	verdict, err := det.Check(ctx, "content", []float32{1, 0})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !verdict.IsDuplicate || verdict.ExistingID != "m1" {
		t.Fatalf("expected the duplicate check to match across scopes, got %+v", verdict)
	}
}
