// Package metastore implements C3, the metadata store: durable storage of
// the Memory record itself (content, scope, tags, metadata, timestamps),
// independent of the vector index and the association graph.
package metastore

import (
	"context"

	"github.com/latticememory/memex/memory/model"
	"github.com/latticememory/memex/memory/scope"
)

// Page is a stable cursor-paginated result: ordered by (created_at desc, id)
// so concurrent inserts never shift an already-returned page.
type Page struct {
	Memories []model.Memory
	Cursor   string
	HasMore  bool
}

// Store is the narrow contract every metadata backend must satisfy.
type Store interface {
	Put(ctx context.Context, mem model.Memory) error
	Get(ctx context.Context, id string) (model.Memory, bool, error)
	Delete(ctx context.Context, id string) error
	FindByScope(ctx context.Context, filter scope.Filter, cursor string, limit int) (Page, error)
	FindByContentHash(ctx context.Context, hash string) ([]model.Memory, error)
	Count(ctx context.Context, filter scope.Filter) (int, error)
	Close() error
}

// SchemaInitializer is implemented by backends needing explicit
// provisioning before first use.
type SchemaInitializer interface {
	CreateSchema(ctx context.Context) error
}
