package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/latticememory/memex/memory/model"
)

func TestJournalGraphReplaysOnReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.journal")

	jg, err := NewJournalGraph(path)
	if err != nil {
		t.Fatalf("new journal graph: %v", err)
	}
	if err := jg.AddEdge(ctx, model.Association{Source: "a", Target: "b", Weight: 0.8, Kind: model.EdgeAuto}); err != nil {
		t.Fatalf("add edge: %v", err)
	}
	if err := jg.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewJournalGraph(path)
	if err != nil {
		t.Fatalf("reopen journal graph: %v", err)
	}
	defer reopened.Close()

	deg, err := reopened.Degree(ctx, "a")
	if err != nil {
		t.Fatalf("degree: %v", err)
	}
	if deg != 1 {
		t.Fatalf("expected edge to survive reopen, got degree %d", deg)
	}
}

func TestJournalGraphReplaysRemoval(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.journal")

	jg, err := NewJournalGraph(path)
	if err != nil {
		t.Fatalf("new journal graph: %v", err)
	}
	_ = jg.AddEdge(ctx, model.Association{Source: "a", Target: "b", Weight: 0.5, Kind: model.EdgeAuto})
	if err := jg.RemoveEdge(ctx, "a", "b"); err != nil {
		t.Fatalf("remove edge: %v", err)
	}
	if err := jg.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewJournalGraph(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	deg, _ := reopened.Degree(ctx, "a")
	if deg != 0 {
		t.Fatalf("expected removal to survive reopen, got degree %d", deg)
	}
}
