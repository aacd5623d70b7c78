package graph

import (
	"context"
	"testing"

	"github.com/latticememory/memex/memory/model"
)

func TestMemoryGraphAddEdgeIsUndirected(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	if err := g.AddEdge(ctx, model.Association{Source: "a", Target: "b", Weight: 0.9, Kind: model.EdgeAuto}); err != nil {
		t.Fatalf("add edge: %v", err)
	}
	degA, _ := g.Degree(ctx, "a")
	degB, _ := g.Degree(ctx, "b")
	if degA != 1 || degB != 1 {
		t.Fatalf("expected degree 1 on both sides, got a=%d b=%d", degA, degB)
	}
}

func TestMemoryGraphManualEdgeIsOneDirectional(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	if err := g.AddEdge(ctx, model.Association{Source: "a", Target: "b", Weight: 1, Kind: model.EdgeManual}); err != nil {
		t.Fatalf("add edge: %v", err)
	}
	degA, _ := g.Degree(ctx, "a")
	degB, _ := g.Degree(ctx, "b")
	if degA != 1 {
		t.Fatalf("expected source to have degree 1, got %d", degA)
	}
	if degB != 0 {
		t.Fatalf("expected manual edge to not be mirrored, got degree %d", degB)
	}
}

func TestMemoryGraphRemoveNodeClearsIncidentEdges(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	_ = g.AddEdge(ctx, model.Association{Source: "a", Target: "b", Weight: 0.5, Kind: model.EdgeAuto})
	if err := g.RemoveNode(ctx, "a"); err != nil {
		t.Fatalf("remove node: %v", err)
	}
	degB, _ := g.Degree(ctx, "b")
	if degB != 0 {
		t.Fatalf("expected b to lose its edge to removed a, got degree %d", degB)
	}
}

func TestMemoryGraphNeighboursRespectsHopsAndLimit(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	_ = g.AddEdge(ctx, model.Association{Source: "a", Target: "b", Weight: 0.9, Kind: model.EdgeAuto})
	_ = g.AddEdge(ctx, model.Association{Source: "b", Target: "c", Weight: 0.8, Kind: model.EdgeAuto})
	_ = g.AddEdge(ctx, model.Association{Source: "c", Target: "d", Weight: 0.7, Kind: model.EdgeAuto})

	oneHop, err := g.Neighbours(ctx, "a", 1, 10)
	if err != nil {
		t.Fatalf("neighbours: %v", err)
	}
	if len(oneHop) != 1 || oneHop[0].ID != "b" {
		t.Fatalf("expected only b at 1 hop, got %+v", oneHop)
	}

	twoHop, err := g.Neighbours(ctx, "a", 2, 10)
	if err != nil {
		t.Fatalf("neighbours: %v", err)
	}
	if len(twoHop) != 2 {
		t.Fatalf("expected b and c at 2 hops, got %+v", twoHop)
	}

	limited, err := g.Neighbours(ctx, "a", 2, 1)
	if err != nil {
		t.Fatalf("neighbours limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to cap results to 1, got %d", len(limited))
	}
}

func TestMemoryGraphRemoveEdge(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	_ = g.AddEdge(ctx, model.Association{Source: "a", Target: "b", Weight: 0.5, Kind: model.EdgeAuto})
	if err := g.RemoveEdge(ctx, "a", "b"); err != nil {
		t.Fatalf("remove edge: %v", err)
	}
	degA, _ := g.Degree(ctx, "a")
	degB, _ := g.Degree(ctx, "b")
	if degA != 0 || degB != 0 {
		t.Fatalf("expected edge to be gone both directions, got a=%d b=%d", degA, degB)
	}
}
