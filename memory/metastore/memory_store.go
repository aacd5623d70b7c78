package metastore

import (
	"context"
	"sort"
	"sync"

	"github.com/latticememory/memex/memory/model"
	"github.com/latticememory/memex/memory/scope"
)

// MemoryStore is an in-process metadata store: the default backend, and the
// reference implementation every other Store is tested against. Grounded on
// the teacher's pkg/memory/in_memory_store.go (map + mutex + sorted
// iteration), extended with scope-prefix and content-hash indices this
// engine's contracts require that the teacher's session-bank store did not
// need.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.Memory
	byScope map[string]map[string]struct{}
	byHash  map[string]map[string]struct{} // content hash -> ids, global across scopes
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]model.Memory),
		byScope: make(map[string]map[string]struct{}),
		byHash:  make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) Put(_ context.Context, mem model.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.records[mem.ID]; ok {
		s.unindex(old)
	}
	s.records[mem.ID] = mem.Clone()
	s.index(mem)
	return nil
}

func (s *MemoryStore) index(mem model.Memory) {
	if s.byScope[mem.Scope] == nil {
		s.byScope[mem.Scope] = make(map[string]struct{})
	}
	s.byScope[mem.Scope][mem.ID] = struct{}{}

	if s.byHash[mem.ContentHash] == nil {
		s.byHash[mem.ContentHash] = make(map[string]struct{})
	}
	s.byHash[mem.ContentHash][mem.ID] = struct{}{}
}

func (s *MemoryStore) unindex(mem model.Memory) {
	delete(s.byScope[mem.Scope], mem.ID)
	delete(s.byHash[mem.ContentHash], mem.ID)
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Memory, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mem, ok := s.records[id]
	if !ok {
		return model.Memory{}, false, nil
	}
	return mem.Clone(), true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.records[id]; ok {
		s.unindex(old)
		delete(s.records, id)
	}
	return nil
}

func (s *MemoryStore) FindByScope(_ context.Context, filter scope.Filter, cursor string, limit int) (Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	matched := make([]model.Memory, 0)
	for _, mem := range s.records {
		if filter.Matches(mem.Scope) {
			matched = append(matched, mem)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	start := 0
	if cursor != "" {
		for i, mem := range matched {
			if mem.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	hasMore := false
	if end < len(matched) {
		hasMore = true
	} else {
		end = len(matched)
	}
	if start > len(matched) {
		start = len(matched)
	}
	page := make([]model.Memory, end-start)
	for i, mem := range matched[start:end] {
		page[i] = mem.Clone()
	}
	next := ""
	if hasMore {
		next = page[len(page)-1].ID
	}
	return Page{Memories: page, Cursor: next, HasMore: hasMore}, nil
}

func (s *MemoryStore) FindByContentHash(_ context.Context, hash string) ([]model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byHash[hash]
	out := make([]model.Memory, 0, len(ids))
	for id := range ids {
		out = append(out, s.records[id].Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context, filter scope.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, mem := range s.records {
		if filter.Matches(mem.Scope) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }
