// Package graph implements C4, the association graph: an undirected,
// weighted graph of memory-to-memory edges (plus a reserved directed
// "manual" kind), independent of the vector index and metadata store.
package graph

import (
	"context"

	"github.com/latticememory/memex/memory/model"
)

// Neighbor is one edge discovered by Neighbours, annotated with hop
// distance so callers can weight by distance from the seed.
type Neighbor struct {
	ID    string
	Edge  model.Association
	Depth int
}

// Graph is the narrow contract every backend must satisfy.
type Graph interface {
	AddNode(ctx context.Context, id string) error
	RemoveNode(ctx context.Context, id string) error
	AddEdge(ctx context.Context, edge model.Association) error
	RemoveEdge(ctx context.Context, a, b string) error
	Neighbours(ctx context.Context, id string, hops, limit int) ([]Neighbor, error)
	Degree(ctx context.Context, id string) (int, error)
	Close() error
}

// SchemaInitializer is implemented by backends needing explicit
// provisioning before first use.
type SchemaInitializer interface {
	CreateSchema(ctx context.Context) error
}
