// Package duplicate implements C6, the duplicate detector: a fast
// content-hash equality check, falling back to a cosine-similarity
// threshold test against the nearest existing vector across the whole
// index (scope-independent, per the engine's duplicate-detector contract).
package duplicate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/latticememory/memex/memory/metastore"
	"github.com/latticememory/memex/memory/scope"
	"github.com/latticememory/memex/memory/vectorindex"
)

// ContentHash returns the canonical content-hash used for the fast-path
// exact-duplicate check.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Verdict reports whether an incoming memory is a duplicate of an existing
// one, and which.
type Verdict struct {
	IsDuplicate bool
	ExistingID  string
	Similarity  float64
}

// Detector checks for duplicates across all scopes before a memory is stored.
type Detector struct {
	metadata  metastore.Store
	vectors   vectorindex.Index
	threshold float64
}

// NewDetector builds a Detector; threshold is the minimum cosine
// similarity against the nearest existing vector that counts as a
// duplicate.
func NewDetector(metadata metastore.Store, vectors vectorindex.Index, threshold float64) *Detector {
	return &Detector{metadata: metadata, vectors: vectors, threshold: threshold}
}

// Check runs the hash fast-path first; if no exact match is found and an
// embedding is available, it falls back to the nearest-neighbour
// similarity test. Both checks are global across scopes, per the engine's
// duplicate-detector contract: a memory can duplicate content stored under
// any scope, not only its own.
func (d *Detector) Check(ctx context.Context, content string, embedding []float32) (Verdict, error) {
	return d.CheckWithThreshold(ctx, content, embedding, d.threshold)
}

// CheckWithThreshold runs Check with a caller-supplied similarity threshold
// in place of the detector's configured default, for callers that let a
// single store request override it (spec's store option
// duplicate_threshold).
func (d *Detector) CheckWithThreshold(ctx context.Context, content string, embedding []float32, threshold float64) (Verdict, error) {
	hash := ContentHash(content)
	existing, err := d.metadata.FindByContentHash(ctx, hash)
	if err != nil {
		return Verdict{}, err
	}
	if len(existing) > 0 {
		return Verdict{IsDuplicate: true, ExistingID: existing[0].ID, Similarity: 1.0}, nil
	}

	if len(embedding) == 0 || d.vectors == nil {
		return Verdict{}, nil
	}
	matches, err := d.vectors.Query(ctx, embedding, scope.Any(), 1)
	if err != nil {
		return Verdict{}, err
	}
	if len(matches) == 0 {
		return Verdict{}, nil
	}
	top := matches[0]
	if top.Similarity >= threshold {
		return Verdict{IsDuplicate: true, ExistingID: top.ID, Similarity: top.Similarity}, nil
	}
	return Verdict{}, nil
}
