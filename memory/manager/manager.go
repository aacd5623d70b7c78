// Package manager implements C7, the memory manager: the sole writer that
// fans a single logical mutation out across the vector index, metadata
// store and association graph, compensating (rolling back) on partial
// failure, and serializing concurrent writers to the same id via a
// sharded lock.
package manager

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/latticememory/memex/memory/duplicate"
	"github.com/latticememory/memex/memory/embed"
	"github.com/latticememory/memex/memory/engineconfig"
	"github.com/latticememory/memex/memory/graph"
	"github.com/latticememory/memex/memory/metastore"
	"github.com/latticememory/memex/memory/model"
	"github.com/latticememory/memex/memory/scope"
	"github.com/latticememory/memex/memory/vectorindex"
)

// Manager is the sole writer across the three backing stores. Grounded on
// the teacher's pkg/memory/engine/engine.go Engine, generalized from a
// single VectorStore (which bundled content, metadata and embedding) to
// three independently pluggable stores, since this engine's C2/C3/C4
// contracts are separate components rather than one combined record store.
type Manager struct {
	vectors  vectorindex.Index
	metadata metastore.Store
	graph    graph.Graph
	embedder embed.Embedder
	detector *duplicate.Detector
	cfg      engineconfig.Config
	metrics  *Metrics
	logger   *log.Logger
	clock    func() time.Time
	locks    *shardedLocks
}

// New constructs a Manager. vectors, metadata and graph must be non-nil;
// embedder defaults to embed.AutoEmbedder() when nil.
func New(vectors vectorindex.Index, metadata metastore.Store, g graph.Graph, embedder embed.Embedder, cfg engineconfig.Config) *Manager {
	if embedder == nil {
		embedder = embed.AutoEmbedder()
	}
	return &Manager{
		vectors:  vectors,
		metadata: metadata,
		graph:    g,
		embedder: embedder,
		detector: duplicate.NewDetector(metadata, vectors, cfg.DuplicateSimilarityThreshold),
		cfg:      cfg,
		metrics:  &Metrics{},
		logger:   log.New(os.Stderr, "memex: ", log.LstdFlags),
		clock:    time.Now,
		locks:    newShardedLocks(cfg.PerIDShards),
	}
}

// WithLogger overrides the default logger.
func (m *Manager) WithLogger(logger *log.Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithClock overrides the wall-clock source, for deterministic tests.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	if clock != nil {
		m.clock = clock
	}
	return m
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

// wrapEmbedError classifies an Embed/EmbedBatch failure into the engine's
// error taxonomy: EmbeddingInvalidInput (not retryable) when the provider
// rejected the request itself, EmbeddingUnavailable (retryable) for
// everything else, per spec's distinction between the two embedding
// failure kinds.
func wrapEmbedError(err error) *model.Error {
	if embed.IsInvalidInput(err) {
		return model.NewError(model.ErrEmbeddingInvalidInput, err.Error(), model.WithCause(err), model.WithRetryable(false))
	}
	return model.NewError(model.ErrEmbeddingUnavailable, err.Error(), model.WithCause(err), model.WithRetryable(true))
}

// storeLeg is one independent write in a multi-store fan-out: fn performs
// the write, compensate undoes it (best-effort, against a fresh
// background context) if a sibling leg fails.
type storeLeg struct {
	name       string
	fn         func(ctx context.Context) error
	compensate func(ctx context.Context)
}

// writeStoresConcurrently runs every leg concurrently via errgroup, the way
// the teacher's src/concurrent/pool.go fans work out across a WaitGroup:
// each leg only ever touches its own index into completed, so no further
// synchronization is needed once g.Wait() returns. If any leg errors, the
// shared context is cancelled (stopping siblings already in flight) and
// every leg that did complete is compensated, in reverse order, against a
// background context so cancellation can't also abort the rollback.
func (m *Manager) writeStoresConcurrently(ctx context.Context, legs []storeLeg) error {
	g, gctx := errgroup.WithContext(ctx)
	completed := make([]bool, len(legs))
	for i, leg := range legs {
		i, leg := i, leg
		g.Go(func() error {
			if err := leg.fn(gctx); err != nil {
				return fmt.Errorf("%s: %w", leg.name, err)
			}
			completed[i] = true
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		for i := len(legs) - 1; i >= 0; i-- {
			if completed[i] && legs[i].compensate != nil {
				legs[i].compensate(context.Background())
			}
		}
	}
	return err
}

// MetricsSnapshot returns a copy of the runtime counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// StoreInput is the caller-supplied payload for Store.
type StoreInput struct {
	Content  string
	Scope    string
	Tags     []string
	Category string
	Metadata map[string]any

	// AllowDuplicates skips the duplicate check entirely.
	AllowDuplicates bool
	// DuplicateThreshold overrides the manager's configured duplicate
	// similarity threshold for this call only. Nil uses the configured
	// default.
	DuplicateThreshold *float64

	// SkipAutoAssociate disables seeding association edges from the
	// nearest existing memories at store time. Association seeding is
	// on by default; set this to opt out.
	SkipAutoAssociate bool
	// AssociationLimit caps how many edges a single store call creates.
	// Zero uses the manager's configured default.
	AssociationLimit int
	// AssociationMinWeight is the minimum cosine similarity an existing
	// memory must have to become an association. Zero uses the
	// manager's configured default.
	AssociationMinWeight float64
}

// StoreResult bundles the memory a Store call created with the
// associations it seeded and, on duplicate rejection, the id it
// duplicates.
type StoreResult struct {
	Memory       model.Memory
	Associations []model.Association
	DuplicateOf  string
}

// Store embeds content, checks for duplicates, and writes the memory across
// all three backing stores, rolling back any store it already wrote to if a
// later step fails (spec's partial-failure compensation requirement). On
// success it also seeds association edges to the nearest existing memories
// unless SkipAutoAssociate is set.
func (m *Manager) Store(ctx context.Context, in StoreInput) (StoreResult, error) {
	canonicalScope, err := scope.Parse(in.Scope)
	if err != nil {
		return StoreResult{}, model.NewError(model.ErrValidationFailed, err.Error())
	}
	if in.Content == "" {
		return StoreResult{}, model.NewError(model.ErrValidationFailed, "content must not be empty")
	}

	embedding, err := m.embedder.Embed(ctx, in.Content)
	if err != nil {
		return StoreResult{}, wrapEmbedError(err)
	}

	if !in.AllowDuplicates {
		threshold := m.cfg.DuplicateSimilarityThreshold
		if in.DuplicateThreshold != nil {
			threshold = *in.DuplicateThreshold
		}
		verdict, err := m.detector.CheckWithThreshold(ctx, in.Content, embedding, threshold)
		if err != nil {
			return StoreResult{}, model.NewError(model.ErrStoreFailed, "duplicate check failed", model.WithCause(err))
		}
		if verdict.IsDuplicate {
			m.metrics.IncDeduplicated()
			existing, ok, err := m.metadata.Get(ctx, verdict.ExistingID)
			if err != nil {
				return StoreResult{}, model.NewError(model.ErrStoreFailed, "read duplicate target failed", model.WithCause(err))
			}
			if ok {
				return StoreResult{Memory: existing, DuplicateOf: verdict.ExistingID},
					model.NewError(model.ErrDuplicateRejected, "content duplicates an existing memory",
						model.WithDetail("existing_id", verdict.ExistingID))
			}
		}
	}

	meta, err := model.MetadataFromAny(in.Metadata)
	if err != nil {
		return StoreResult{}, model.NewError(model.ErrValidationFailed, err.Error())
	}

	now := m.clock().UTC()
	id := uuid.NewString()
	mem := model.Memory{
		ID:           id,
		Content:      in.Content,
		Scope:        canonicalScope,
		Tags:         in.Tags,
		Category:     in.Category,
		Metadata:     meta,
		CreatedAt:    now,
		UpdatedAt:    now,
		ContentHash:  duplicate.ContentHash(in.Content),
		HasEmbedding: len(embedding) > 0,
	}

	m.locks.Lock(id)
	defer m.locks.Unlock(id)

	legs := []storeLeg{
		{
			name: "metadata",
			fn:   func(ctx context.Context) error { return m.metadata.Put(ctx, mem) },
			compensate: func(ctx context.Context) {
				if err := m.metadata.Delete(ctx, id); err != nil {
					m.logf("store: compensating metadata delete for %s failed: %v", id, err)
				}
			},
		},
		{
			name: "vectors",
			fn:   func(ctx context.Context) error { return m.vectors.Upsert(ctx, id, embedding, canonicalScope) },
			compensate: func(ctx context.Context) {
				if err := m.vectors.Remove(ctx, id); err != nil {
					m.logf("store: compensating vector delete for %s failed: %v", id, err)
				}
			},
		},
		{
			name: "graph",
			fn:   func(ctx context.Context) error { return m.graph.AddNode(ctx, id) },
			compensate: func(ctx context.Context) {
				if err := m.graph.RemoveNode(ctx, id); err != nil {
					m.logf("store: compensating graph delete for %s failed: %v", id, err)
				}
			},
		},
	}
	if err := m.writeStoresConcurrently(ctx, legs); err != nil {
		return StoreResult{}, model.NewError(model.ErrStoreFailed, "multi-store write failed", model.WithCause(err))
	}

	m.metrics.IncStored()

	var associations []model.Association
	if !in.SkipAutoAssociate && len(embedding) > 0 {
		associations = m.autoAssociate(ctx, id, embedding, canonicalScope, in)
	}

	return StoreResult{Memory: mem, Associations: associations}, nil
}

// autoAssociate seeds edges from the nearest existing memories at store
// time (spec's store step 6). Failures are logged, never fatal to Store.
func (m *Manager) autoAssociate(ctx context.Context, id string, embedding []float32, memScope string, in StoreInput) []model.Association {
	limit := in.AssociationLimit
	if limit <= 0 {
		limit = m.cfg.AssociationDefaultLimit
	}
	minWeight := in.AssociationMinWeight
	if minWeight <= 0 {
		minWeight = m.cfg.AssociationDefaultMinWeight
	}

	matches, err := m.vectors.Query(ctx, embedding, scope.Any(), limit+1)
	if err != nil {
		m.logf("store: auto-associate query for %s failed: %v", id, err)
		return nil
	}

	now := m.clock().UTC()
	var created []model.Association
	for _, match := range matches {
		if match.ID == id {
			continue
		}
		if match.Similarity < minWeight {
			continue
		}
		src, dst := model.CanonicalPair(id, match.ID)
		edge := model.Association{Source: src, Target: dst, Weight: match.Similarity, Kind: model.EdgeAuto, CreatedAt: now}
		if err := m.graph.AddEdge(ctx, edge); err != nil {
			m.logf("store: auto-associate edge %s<->%s failed: %v", id, match.ID, err)
			continue
		}
		created = append(created, edge)
		m.metrics.IncAssociated()
		if len(created) >= limit {
			break
		}
	}
	return created
}

// Get fetches a memory by id.
func (m *Manager) Get(ctx context.Context, id string) (model.Memory, error) {
	mem, ok, err := m.metadata.Get(ctx, id)
	if err != nil {
		return model.Memory{}, model.NewError(model.ErrStoreFailed, "metadata lookup failed", model.WithCause(err))
	}
	if !ok {
		return model.Memory{}, model.NewError(model.ErrNotFound, fmt.Sprintf("no memory with id %q", id))
	}
	return mem, nil
}

// GetNeighbours returns up to limit of id's strongest direct graph
// neighbours, without re-fetching id's own metadata record.
func (m *Manager) GetNeighbours(ctx context.Context, id string, limit int) ([]graph.Neighbor, error) {
	if limit <= 0 {
		return nil, nil
	}
	neighbors, err := m.graph.Neighbours(ctx, id, 1, limit)
	if err != nil {
		return nil, model.NewError(model.ErrStoreFailed, "neighbour lookup failed", model.WithCause(err))
	}
	return neighbors, nil
}

// GetWithAssociations fetches a memory plus up to associationLimit of its
// strongest graph neighbours, hydrated against the metadata store.
func (m *Manager) GetWithAssociations(ctx context.Context, id string, associationLimit int) (model.Memory, []graph.Neighbor, error) {
	mem, err := m.Get(ctx, id)
	if err != nil {
		return model.Memory{}, nil, err
	}
	neighbors, err := m.GetNeighbours(ctx, id, associationLimit)
	if err != nil {
		return mem, nil, err
	}
	return mem, neighbors, nil
}

// UpdateInput carries optional field updates; nil pointers mean "leave
// unchanged". A non-nil Content that differs from the stored content
// re-embeds the memory. DropAssociations
// drops all incident edges when Content changes instead of leaving them in
// place flagged stale.
type UpdateInput struct {
	Content          *string
	Tags             *[]string
	Category         *string
	Metadata         map[string]any
	DropAssociations bool
}

// Update rewrites a subset of a memory's fields, re-embedding and
// re-indexing when Content changes. When content changes, incident
// association edges are either dropped (DropAssociations) or left in
// place and flagged stale, never silently recomputed.
func (m *Manager) Update(ctx context.Context, id string, in UpdateInput) (model.Memory, error) {
	// New content is embedded before the id lock is taken, so the lock is
	// never held across the provider call; the vector goes unused when the
	// content turns out to match the stored record.
	var newEmbedding []float32
	if in.Content != nil {
		e, err := m.embedder.Embed(ctx, *in.Content)
		if err != nil {
			return model.Memory{}, wrapEmbedError(err)
		}
		newEmbedding = e
	}

	m.locks.Lock(id)
	defer m.locks.Unlock(id)

	mem, ok, err := m.metadata.Get(ctx, id)
	if err != nil {
		return model.Memory{}, model.NewError(model.ErrStoreFailed, "metadata lookup failed", model.WithCause(err))
	}
	if !ok {
		return model.Memory{}, model.NewError(model.ErrNotFound, fmt.Sprintf("no memory with id %q", id))
	}

	original := mem.Clone()

	reembed := false
	if in.Content != nil && *in.Content != mem.Content {
		mem.Content = *in.Content
		mem.ContentHash = duplicate.ContentHash(*in.Content)
		reembed = true
	}
	if in.Tags != nil {
		mem.Tags = *in.Tags
	}
	if in.Category != nil {
		mem.Category = *in.Category
	}
	if in.Metadata != nil {
		meta, err := model.MetadataFromAny(in.Metadata)
		if err != nil {
			return model.Memory{}, model.NewError(model.ErrValidationFailed, err.Error())
		}
		mem.Metadata = meta
	}
	mem.UpdatedAt = m.clock().UTC()

	var embedding []float32
	if reembed {
		embedding = newEmbedding
		mem.HasEmbedding = len(embedding) > 0
	}

	if !reembed {
		if err := m.metadata.Put(ctx, mem); err != nil {
			return model.Memory{}, model.NewError(model.ErrStoreFailed, "metadata store write failed", model.WithCause(err))
		}
		return mem, nil
	}

	var previousEmbedding []float32
	var hadPreviousEmbedding bool
	if original.HasEmbedding {
		previousEmbedding, hadPreviousEmbedding, err = m.vectors.Get(ctx, id)
		if err != nil {
			m.logf("update: previous-embedding snapshot for %s failed: %v", id, err)
			hadPreviousEmbedding = false
		}
	}

	legs := []storeLeg{
		{
			name: "metadata",
			fn:   func(ctx context.Context) error { return m.metadata.Put(ctx, mem) },
			compensate: func(ctx context.Context) {
				if err := m.metadata.Put(ctx, original); err != nil {
					m.logf("update: compensating metadata restore for %s failed: %v", id, err)
				}
			},
		},
		{
			name: "vectors",
			fn:   func(ctx context.Context) error { return m.vectors.Upsert(ctx, id, embedding, mem.Scope) },
			compensate: func(ctx context.Context) {
				if hadPreviousEmbedding {
					if err := m.vectors.Upsert(ctx, id, previousEmbedding, original.Scope); err != nil {
						m.logf("update: compensating vector restore for %s failed: %v", id, err)
					}
				} else if err := m.vectors.Remove(ctx, id); err != nil {
					m.logf("update: compensating vector delete for %s failed: %v", id, err)
				}
			},
		},
	}
	if err := m.writeStoresConcurrently(ctx, legs); err != nil {
		return model.Memory{}, model.NewError(model.ErrStoreFailed, "multi-store write failed", model.WithCause(err))
	}

	m.metrics.IncReembedded()
	if in.DropAssociations {
		if err := m.graph.RemoveNode(ctx, id); err != nil {
			m.logf("update: drop associations for %s failed: %v", id, err)
		} else if err := m.graph.AddNode(ctx, id); err != nil {
			m.logf("update: re-add node %s after dropping associations failed: %v", id, err)
		}
	} else {
		m.markAssociationsStale(ctx, id)
	}
	return mem, nil
}

// markAssociationsStale re-writes every edge incident to id with its Stale
// flag set, leaving weight and kind untouched (spec: content changes under
// preserve_associations leave edges in place with their creation weight,
// never silently recomputed).
func (m *Manager) markAssociationsStale(ctx context.Context, id string) {
	neighbors, err := m.graph.Neighbours(ctx, id, 1, 1<<20)
	if err != nil {
		m.logf("update: staleness scan for %s failed: %v", id, err)
		return
	}
	for _, nb := range neighbors {
		edge := nb.Edge
		edge.Stale = true
		if err := m.graph.AddEdge(ctx, edge); err != nil {
			m.logf("update: mark edge %s<->%s stale failed: %v", id, nb.ID, err)
		}
	}
}

// Delete removes a memory from all three backing stores. Missing entries
// in any individual store are tolerated so Delete is safely retried.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.locks.Lock(id)
	defer m.locks.Unlock(id)

	if err := m.vectors.Remove(ctx, id); err != nil {
		return model.NewError(model.ErrStoreFailed, "vector index delete failed", model.WithCause(err))
	}
	if err := m.graph.RemoveNode(ctx, id); err != nil {
		return model.NewError(model.ErrStoreFailed, "graph delete failed", model.WithCause(err))
	}
	if err := m.metadata.Delete(ctx, id); err != nil {
		return model.NewError(model.ErrStoreFailed, "metadata delete failed", model.WithCause(err))
	}
	m.metrics.IncDeleted()
	return nil
}

// PutDirect writes a memory under a caller-supplied id, re-embedding its
// content, bypassing the uuid minting and duplicate check Store performs.
// Used by import's overwrite strategy, whose contract requires the
// original id to survive the round-trip.
func (m *Manager) PutDirect(ctx context.Context, mem model.Memory, rawMetadata map[string]any) error {
	meta, err := model.MetadataFromAny(rawMetadata)
	if err != nil {
		return model.NewError(model.ErrValidationFailed, err.Error())
	}
	canonicalScope, err := scope.Parse(mem.Scope)
	if err != nil {
		return model.NewError(model.ErrValidationFailed, err.Error())
	}
	mem.Scope = canonicalScope
	mem.Metadata = meta
	if mem.ContentHash == "" {
		mem.ContentHash = duplicate.ContentHash(mem.Content)
	}

	embedding, err := m.embedder.Embed(ctx, mem.Content)
	if err != nil {
		return wrapEmbedError(err)
	}
	mem.HasEmbedding = len(embedding) > 0

	m.locks.Lock(mem.ID)
	defer m.locks.Unlock(mem.ID)

	if err := m.metadata.Put(ctx, mem); err != nil {
		return model.NewError(model.ErrStoreFailed, "metadata store write failed", model.WithCause(err))
	}
	if err := m.vectors.Upsert(ctx, mem.ID, embedding, canonicalScope); err != nil {
		return model.NewError(model.ErrStoreFailed, "vector index write failed", model.WithCause(err))
	}
	if err := m.graph.AddNode(ctx, mem.ID); err != nil {
		return model.NewError(model.ErrStoreFailed, "graph node write failed", model.WithCause(err))
	}
	m.metrics.IncStored()
	return nil
}

// AddAssociation writes a single edge directly, for callers (import) that
// already know both endpoints exist and the weight to assign.
func (m *Manager) AddAssociation(ctx context.Context, edge model.Association) error {
	if err := m.graph.AddEdge(ctx, edge); err != nil {
		return model.NewError(model.ErrStoreFailed, "graph edge write failed", model.WithCause(err))
	}
	m.metrics.IncAssociated()
	return nil
}

// Move reassigns a memory to a new scope, updating the vector index's scope
// tag alongside the metadata record.
func (m *Manager) Move(ctx context.Context, id, newScope string) (model.Memory, error) {
	canonicalScope, err := scope.Parse(newScope)
	if err != nil {
		return model.Memory{}, model.NewError(model.ErrValidationFailed, err.Error())
	}

	m.locks.Lock(id)
	defer m.locks.Unlock(id)

	mem, ok, err := m.metadata.Get(ctx, id)
	if err != nil {
		return model.Memory{}, model.NewError(model.ErrStoreFailed, "metadata lookup failed", model.WithCause(err))
	}
	if !ok {
		return model.Memory{}, model.NewError(model.ErrNotFound, fmt.Sprintf("no memory with id %q", id))
	}
	mem.Scope = canonicalScope
	mem.UpdatedAt = m.clock().UTC()

	if err := m.metadata.Put(ctx, mem); err != nil {
		return model.Memory{}, model.NewError(model.ErrStoreFailed, "metadata store write failed", model.WithCause(err))
	}
	if mem.HasEmbedding {
		embedding, found, err := m.vectors.Get(ctx, id)
		if err != nil {
			m.logf("move: vector lookup for %s failed: %v", id, err)
		} else if found {
			if err := m.vectors.Upsert(ctx, id, embedding, canonicalScope); err != nil {
				m.logf("move: vector re-tag for %s failed: %v", id, err)
			}
		}
	}
	m.metrics.IncMoved()
	return mem, nil
}

// List returns a page of memories under filter.
func (m *Manager) List(ctx context.Context, filter scope.Filter, cursor string, limit int) (metastore.Page, error) {
	page, err := m.metadata.FindByScope(ctx, filter, cursor, limit)
	if err != nil {
		return metastore.Page{}, model.NewError(model.ErrStoreFailed, "list failed", model.WithCause(err))
	}
	m.metrics.IncRetrieved(len(page.Memories))
	return page, nil
}

// Cleanup removes memories older than ttl under filter, in a single pass
// over the metadata store. Mirrors the teacher's single-pass TTL sweep in
// Engine.Prune, generalized from a whole-store scan to a scope-filtered one.
func (m *Manager) Cleanup(ctx context.Context, filter scope.Filter, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	cutoff := m.clock().UTC().Add(-ttl)
	var stale []string
	cursor := ""
	for {
		page, err := m.metadata.FindByScope(ctx, filter, cursor, 200)
		if err != nil {
			return 0, model.NewError(model.ErrStoreFailed, "cleanup scan failed", model.WithCause(err))
		}
		for _, mem := range page.Memories {
			if mem.CreatedAt.Before(cutoff) {
				stale = append(stale, mem.ID)
			}
		}
		if !page.HasMore {
			break
		}
		cursor = page.Cursor
	}
	for _, id := range stale {
		if err := m.Delete(ctx, id); err != nil {
			m.logf("cleanup: delete %s failed: %v", id, err)
			continue
		}
	}
	m.metrics.IncCleaned(len(stale))
	return len(stale), nil
}

// Refresh re-embeds memories under filter whose stored embedding was
// produced by a different provider/model than the manager's current
// embedder would need, given as a caller-supplied drift predicate. Mirrors
// the teacher's reembedOnDrift, generalized to work over the metadata store
// instead of a slice the caller already has in hand.
func (m *Manager) Refresh(ctx context.Context, filter scope.Filter, shouldRefresh func(model.Memory) bool) (int, error) {
	var refreshed int
	cursor := ""
	for {
		page, err := m.metadata.FindByScope(ctx, filter, cursor, 200)
		if err != nil {
			return refreshed, model.NewError(model.ErrStoreFailed, "refresh scan failed", model.WithCause(err))
		}
		for _, mem := range page.Memories {
			if shouldRefresh != nil && !shouldRefresh(mem) {
				continue
			}
			embedding, err := m.embedder.Embed(ctx, mem.Content)
			if err != nil {
				m.logf("refresh: re-embed %s failed: %v", mem.ID, err)
				continue
			}
			m.locks.Lock(mem.ID)
			err = m.vectors.Upsert(ctx, mem.ID, embedding, mem.Scope)
			m.locks.Unlock(mem.ID)
			if err != nil {
				m.logf("refresh: re-index %s failed: %v", mem.ID, err)
				continue
			}
			m.metrics.IncReembedded()
			refreshed++
		}
		if !page.HasMore {
			break
		}
		cursor = page.Cursor
	}
	return refreshed, nil
}
