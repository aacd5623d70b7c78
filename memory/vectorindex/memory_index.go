package vectorindex

import (
	"context"
	"sort"
	"sync"

	"github.com/latticememory/memex/memory/model"
	"github.com/latticememory/memex/memory/scope"
)

type entry struct {
	embedding []float32
	scope     string
}

// MemoryIndex is a brute-force, cosine-ranked in-process index: the default
// backend, and the one every other Index implementation is tested against.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]entry)}
}

func (idx *MemoryIndex) Upsert(_ context.Context, id string, embedding []float32, memScope string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if embedding == nil {
		delete(idx.entries, id)
		return nil
	}
	idx.entries[id] = entry{embedding: append([]float32(nil), embedding...), scope: memScope}
	return nil
}

func (idx *MemoryIndex) Get(_ context.Context, id string) ([]float32, bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[id]
	if !ok {
		return nil, false, nil
	}
	return append([]float32(nil), e.embedding...), true, nil
}

func (idx *MemoryIndex) Remove(_ context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, id)
	return nil
}

func (idx *MemoryIndex) Query(_ context.Context, embedding []float32, filter scope.Filter, topK int) ([]Match, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if topK <= 0 {
		return nil, nil
	}
	matches := make([]Match, 0, len(idx.entries))
	for id, e := range idx.entries {
		if !filter.Matches(e.scope) {
			continue
		}
		matches = append(matches, Match{
			ID:         id,
			Similarity: model.CosineSimilarity(embedding, e.embedding),
			Scope:      e.scope,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (idx *MemoryIndex) Count(_ context.Context, filter scope.Filter) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n := 0
	for _, e := range idx.entries {
		if filter.Matches(e.scope) {
			n++
		}
	}
	return n, nil
}

func (idx *MemoryIndex) Close() error { return nil }
