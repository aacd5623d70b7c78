package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/latticememory/memex/memory/model"
)

// AccessMode controls whether a session is opened for read or write access.
type AccessMode string

const (
	AccessModeWrite AccessMode = "write"
	AccessModeRead  AccessMode = "read"
)

// SessionConfig mirrors the minimal subset of Neo4j session configuration
// this package requires.
type SessionConfig struct {
	AccessMode   AccessMode
	DatabaseName string
}

// The following narrow interfaces decouple the Cypher-issuing logic below
// from the real Neo4j driver package, which is only linked in behind the
// "neo4j" build tag (see neo4j_driver_adapter.go). This lets tests exercise
// Neo4jGraph with lightweight fakes. Grounded directly on the teacher's
// src/memory/store/neo4j_store.go, which uses the identical pattern.
type driver interface {
	NewSession(ctx context.Context, config SessionConfig) (session, error)
	Close(ctx context.Context) error
}

type session interface {
	BeginTransaction(ctx context.Context) (transaction, error)
	Run(ctx context.Context, query string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

type transaction interface {
	Run(ctx context.Context, query string, params map[string]any) (result, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}

type result interface {
	Next(ctx context.Context) bool
	Record() record
	Err() error
	Close(ctx context.Context) error
}

type record interface {
	Get(key string) (any, bool)
}

// ErrNeo4jUnavailable is returned when graph operations are attempted
// without a configured driver.
var ErrNeo4jUnavailable = errors.New("neo4j driver not configured")

// Neo4jGraph persists the association graph in Neo4j. Grounded on the
// teacher's Neo4jStore, narrowed from a VectorStore-composing type (the
// teacher bundled vector search and graph persistence in one struct) to a
// pure Graph implementation, since vector search is vectorindex's concern
// in this engine.
type Neo4jGraph struct {
	driver   driver
	database string
	nowFn    func() time.Time
}

var _ Graph = (*Neo4jGraph)(nil)

// NewNeo4jGraph constructs a graph backed by the given driver (typically
// produced by WrapNeo4jDriver under the "neo4j" build tag).
func NewNeo4jGraph(drv driver, database string) (*Neo4jGraph, error) {
	if drv == nil {
		return nil, errors.New("neo4j driver is nil")
	}
	return &Neo4jGraph{driver: drv, database: database, nowFn: time.Now}, nil
}

func (g *Neo4jGraph) CreateSchema(ctx context.Context) error {
	session, err := g.driver.NewSession(ctx, SessionConfig{AccessMode: AccessModeWrite, DatabaseName: g.database})
	if err != nil {
		return fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	queries := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (m:Memory) REQUIRE m.id IS UNIQUE",
		"CREATE INDEX IF NOT EXISTS FOR ()-[r:RELATED_TO]-() ON (r.target_id)",
	}
	for _, q := range queries {
		res, err := session.Run(ctx, q, nil)
		if err != nil {
			return fmt.Errorf("neo4j schema query: %w", err)
		}
		if res != nil {
			_ = res.Close(ctx)
		}
	}
	return nil
}

func (g *Neo4jGraph) AddNode(ctx context.Context, id string) error {
	session, err := g.driver.NewSession(ctx, SessionConfig{AccessMode: AccessModeWrite, DatabaseName: g.database})
	if err != nil {
		return fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	res, err := session.Run(ctx, "MERGE (m:Memory {id: $id})", map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("neo4j add node: %w", err)
	}
	if res != nil {
		_ = res.Close(ctx)
	}
	return nil
}

func (g *Neo4jGraph) RemoveNode(ctx context.Context, id string) error {
	session, err := g.driver.NewSession(ctx, SessionConfig{AccessMode: AccessModeWrite, DatabaseName: g.database})
	if err != nil {
		return fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	res, err := session.Run(ctx, "MATCH (m:Memory {id: $id}) DETACH DELETE m", map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("neo4j remove node: %w", err)
	}
	if res != nil {
		_ = res.Close(ctx)
	}
	return nil
}

const upsertEdgeCypher = `
MERGE (a:Memory {id: $source})
MERGE (b:Memory {id: $target})
MERGE (a)-[r:RELATED_TO {target_id: $target}]->(b)
SET r.weight = $weight,
    r.kind = $kind,
    r.created_at = $created_at,
    r.stale = $stale
`

func (g *Neo4jGraph) AddEdge(ctx context.Context, edge model.Association) error {
	session, err := g.driver.NewSession(ctx, SessionConfig{AccessMode: AccessModeWrite, DatabaseName: g.database})
	if err != nil {
		return fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("neo4j begin tx: %w", err)
	}
	defer tx.Close(ctx)

	params := map[string]any{
		"source":     edge.Source,
		"target":     edge.Target,
		"weight":     edge.Weight,
		"kind":       string(edge.Kind),
		"created_at": edge.CreatedAt.UTC().Format(time.RFC3339Nano),
		"stale":      edge.Stale,
	}
	res, err := tx.Run(ctx, upsertEdgeCypher, params)
	if err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("neo4j upsert edge: %w", err)
	}
	if res != nil {
		_ = res.Close(ctx)
	}
	if edge.Kind != model.EdgeManual {
		reverse := make(map[string]any, len(params))
		for k, v := range params {
			reverse[k] = v
		}
		reverse["source"], reverse["target"] = edge.Target, edge.Source
		res, err = tx.Run(ctx, upsertEdgeCypher, reverse)
		if err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("neo4j upsert reverse edge: %w", err)
		}
		if res != nil {
			_ = res.Close(ctx)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("neo4j commit: %w", err)
	}
	return nil
}

func (g *Neo4jGraph) RemoveEdge(ctx context.Context, a, b string) error {
	session, err := g.driver.NewSession(ctx, SessionConfig{AccessMode: AccessModeWrite, DatabaseName: g.database})
	if err != nil {
		return fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	query := `MATCH (:Memory {id: $a})-[r:RELATED_TO]-(:Memory {id: $b}) DELETE r`
	res, err := session.Run(ctx, query, map[string]any{"a": a, "b": b})
	if err != nil {
		return fmt.Errorf("neo4j remove edge: %w", err)
	}
	if res != nil {
		_ = res.Close(ctx)
	}
	return nil
}

const neighborhoodQuery = `
MATCH (start:Memory {id: $id})
MATCH path=(start)-[:RELATED_TO*1..%d]-(neighbor:Memory)
WHERE neighbor.id <> $id
WITH neighbor, MIN(length(path)) AS depth
RETURN neighbor.id AS id, depth
ORDER BY depth ASC
LIMIT $limit
`

func (g *Neo4jGraph) Neighbours(ctx context.Context, id string, hops, limit int) ([]Neighbor, error) {
	if hops <= 0 || limit <= 0 {
		return nil, nil
	}
	session, err := g.driver.NewSession(ctx, SessionConfig{AccessMode: AccessModeRead, DatabaseName: g.database})
	if err != nil {
		return nil, fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	query := fmt.Sprintf(neighborhoodQuery, hops)
	res, err := session.Run(ctx, query, map[string]any{"id": id, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("neo4j neighbourhood: %w", err)
	}
	defer res.Close(ctx)

	var out []Neighbor
	for res.Next(ctx) {
		rec := res.Record()
		var n Neighbor
		if v, ok := rec.Get("id"); ok {
			n.ID = toString(v)
		}
		if v, ok := rec.Get("depth"); ok {
			n.Depth = int(toInt64(v))
		}
		out = append(out, n)
	}
	return out, res.Err()
}

func (g *Neo4jGraph) Degree(ctx context.Context, id string) (int, error) {
	session, err := g.driver.NewSession(ctx, SessionConfig{AccessMode: AccessModeRead, DatabaseName: g.database})
	if err != nil {
		return 0, fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	res, err := session.Run(ctx, "MATCH (:Memory {id: $id})-[r:RELATED_TO]-() RETURN COUNT(r) AS degree", map[string]any{"id": id})
	if err != nil {
		return 0, fmt.Errorf("neo4j degree: %w", err)
	}
	defer res.Close(ctx)
	if res.Next(ctx) {
		if v, ok := res.Record().Get("degree"); ok {
			return int(toInt64(v)), nil
		}
	}
	return 0, res.Err()
}

func (g *Neo4jGraph) Close() error {
	return g.driver.Close(context.Background())
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case float32:
		return int64(t)
	case float64:
		return int64(t)
	}
	return 0
}
