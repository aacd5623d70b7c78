package graph

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/latticememory/memex/memory/model"
)

// MemoryGraph is an in-process adjacency-map graph: the default backend.
// Grounded on the general map+mutex shape of the teacher's
// pkg/memory/in_memory_store.go, generalized from a flat record map to an
// adjacency structure since this package's unit is an edge, not a record.
type MemoryGraph struct {
	mu    sync.RWMutex
	nodes map[string]struct{}
	edges map[string]map[string]model.Association // id -> neighbor id -> edge
}

func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		nodes: make(map[string]struct{}),
		edges: make(map[string]map[string]model.Association),
	}
}

func (g *MemoryGraph) AddNode(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[id] = struct{}{}
	if g.edges[id] == nil {
		g.edges[id] = make(map[string]model.Association)
	}
	return nil
}

func (g *MemoryGraph) RemoveNode(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for neighbor := range g.edges[id] {
		delete(g.edges[neighbor], id)
	}
	delete(g.edges, id)
	delete(g.nodes, id)
	return nil
}

func (g *MemoryGraph) AddEdge(_ context.Context, edge model.Association) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, b := edge.Source, edge.Target
	g.ensureNodeLocked(a)
	g.ensureNodeLocked(b)
	g.edges[a][b] = edge
	if edge.Kind != model.EdgeManual {
		reverse := edge
		reverse.Source, reverse.Target = b, a
		g.edges[b][a] = reverse
	}
	return nil
}

func (g *MemoryGraph) ensureNodeLocked(id string) {
	g.nodes[id] = struct{}{}
	if g.edges[id] == nil {
		g.edges[id] = make(map[string]model.Association)
	}
}

func (g *MemoryGraph) RemoveEdge(_ context.Context, a, b string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.edges[a], b)
	delete(g.edges[b], a)
	return nil
}

func (g *MemoryGraph) Neighbours(_ context.Context, id string, hops, limit int) ([]Neighbor, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if hops <= 0 || limit <= 0 {
		return nil, nil
	}
	visited := map[string]int{id: 0}
	best := make(map[string]model.Association)
	queue := list.New()
	queue.PushBack(id)
	for depth := 1; depth <= hops && queue.Len() > 0; depth++ {
		levelSize := queue.Len()
		for i := 0; i < levelSize; i++ {
			front := queue.Remove(queue.Front()).(string)
			for neighborID, edge := range g.edges[front] {
				if _, seen := visited[neighborID]; seen {
					continue
				}
				visited[neighborID] = depth
				best[neighborID] = edge
				queue.PushBack(neighborID)
			}
		}
	}
	out := make([]Neighbor, 0, len(best))
	for neighborID, edge := range best {
		out = append(out, Neighbor{ID: neighborID, Edge: edge, Depth: visited[neighborID]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		if out[i].Edge.Weight != out[j].Edge.Weight {
			return out[i].Edge.Weight > out[j].Edge.Weight
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (g *MemoryGraph) Degree(_ context.Context, id string) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges[id]), nil
}

func (g *MemoryGraph) Close() error { return nil }
