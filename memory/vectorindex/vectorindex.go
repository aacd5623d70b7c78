// Package vectorindex implements C2, the vector index: storage and
// nearest-neighbour lookup for embeddings, keyed by the same memory id used
// across the metadata store and association graph. Ranking is always by
// cosine similarity (spec §4.2) — callers outside this package apply any
// secondary weighting on top of what Query returns.
package vectorindex

import (
	"context"

	"github.com/latticememory/memex/memory/scope"
)

// Match is one ranked result from Query.
type Match struct {
	ID         string
	Similarity float64
	Scope      string
}

// Index is the narrow contract every backend must satisfy. A nil embedding
// passed to Upsert removes the vector while leaving the id's presence to be
// managed by the metadata store (spec's "embedding explicitly marked
// absent" case).
type Index interface {
	Upsert(ctx context.Context, id string, embedding []float32, memScope string) error
	Remove(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (embedding []float32, found bool, err error)
	Query(ctx context.Context, embedding []float32, filter scope.Filter, topK int) ([]Match, error)
	Count(ctx context.Context, filter scope.Filter) (int, error)
	Close() error
}

// SchemaInitializer is implemented by backends that need an explicit
// provisioning step (collection/table/index creation) before first use.
type SchemaInitializer interface {
	CreateSchema(ctx context.Context) error
}
