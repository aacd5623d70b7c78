package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/latticememory/memex/memory/scope"
)

// PGVectorIndex stores embeddings in Postgres via the pgvector extension,
// ranking by cosine distance. Grounded on the teacher's
// pkg/memory/postgres_store.go, adapted from an auto-incrementing bigserial
// primary key to the text memory id used across this engine's stores, and
// from unconditional top-k scan to a scope-filtered query.
type PGVectorIndex struct {
	db  *pgxpool.Pool
	dim int
}

// NewPGVectorIndex connects to Postgres. dim is the fixed embedding
// dimensionality the pgvector column is declared with.
func NewPGVectorIndex(ctx context.Context, connStr string, dim int) (*PGVectorIndex, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if dim <= 0 {
		dim = 768
	}
	return &PGVectorIndex{db: db, dim: dim}, nil
}

func (p *PGVectorIndex) CreateSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS memory_vectors (
    id TEXT PRIMARY KEY,
    scope TEXT NOT NULL,
    embedding vector(%d) NOT NULL
);

CREATE INDEX IF NOT EXISTS memory_vectors_scope_idx ON memory_vectors (scope);
CREATE INDEX IF NOT EXISTS memory_vectors_embedding_idx ON memory_vectors USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`, p.dim)
	_, err := p.db.Exec(ctx, schema)
	return err
}

func (p *PGVectorIndex) Upsert(ctx context.Context, id string, embedding []float32, memScope string) error {
	if embedding == nil {
		return p.Remove(ctx, id)
	}
	_, err := p.db.Exec(ctx, `
INSERT INTO memory_vectors (id, scope, embedding)
VALUES ($1, $2, $3::vector)
ON CONFLICT (id) DO UPDATE SET scope = EXCLUDED.scope, embedding = EXCLUDED.embedding
`, id, memScope, literal(embedding))
	return err
}

func (p *PGVectorIndex) Remove(ctx context.Context, id string) error {
	_, err := p.db.Exec(ctx, `DELETE FROM memory_vectors WHERE id = $1`, id)
	return err
}

func (p *PGVectorIndex) Get(ctx context.Context, id string) ([]float32, bool, error) {
	var text string
	err := p.db.QueryRow(ctx, `SELECT embedding::text FROM memory_vectors WHERE id = $1`, id).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return parseVectorLiteral(text), true, nil
}

func parseVectorLiteral(text string) []float32 {
	text = strings.Trim(text, "[]")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := strings.Split(text, ",")
	vec := make([]float32, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			continue
		}
		vec = append(vec, float32(f))
	}
	return vec
}

func (p *PGVectorIndex) Query(ctx context.Context, embedding []float32, filter scope.Filter, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	query := `
SELECT id, scope, 1 - (embedding <=> $1::vector) AS similarity
FROM memory_vectors
WHERE %s
ORDER BY embedding <=> $1::vector
LIMIT $2
`
	where := "TRUE"
	args := []any{literal(embedding), topK}
	switch filter.Kind {
	case scope.FilterExact:
		where = "scope = $3"
		args = append(args, filter.Scope)
	case scope.FilterPrefix:
		where = "(scope = $3 OR scope LIKE $4)"
		args = append(args, filter.Scope, filter.Scope+"/%")
	}
	rows, err := p.db.Query(ctx, fmt.Sprintf(query, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Scope, &m.Similarity); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (p *PGVectorIndex) Count(ctx context.Context, filter scope.Filter) (int, error) {
	query := `SELECT COUNT(*) FROM memory_vectors WHERE %s`
	where := "TRUE"
	args := []any{}
	switch filter.Kind {
	case scope.FilterExact:
		where = "scope = $1"
		args = append(args, filter.Scope)
	case scope.FilterPrefix:
		where = "(scope = $1 OR scope LIKE $2)"
		args = append(args, filter.Scope, filter.Scope+"/%")
	}
	var n int
	err := p.db.QueryRow(ctx, fmt.Sprintf(query, where), args...).Scan(&n)
	return n, err
}

func (p *PGVectorIndex) Close() error {
	p.db.Close()
	return nil
}

func literal(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
