package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/latticememory/memex/memory/embed"
	"github.com/latticememory/memex/memory/engineconfig"
	"github.com/latticememory/memex/memory/graph"
	"github.com/latticememory/memex/memory/metastore"
	"github.com/latticememory/memex/memory/model"
	"github.com/latticememory/memex/memory/scope"
	"github.com/latticememory/memex/memory/vectorindex"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := engineconfig.Default()
	cfg.DuplicateSimilarityThreshold = 0.97
	cfg.AssociationDefaultLimit = 5
	cfg.AssociationDefaultMinWeight = 0.3
	return New(vectorindex.NewMemoryIndex(), metastore.NewMemoryStore(), graph.NewMemoryGraph(), embed.DummyEmbedder{}, cfg)
}

func TestStoreWritesAcrossAllThreeStores(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	result, err := mgr.Store(ctx, StoreInput{Content: "hello world", Scope: "team/alpha"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if result.Memory.ID == "" {
		t.Fatalf("expected a generated id")
	}

	got, err := mgr.Get(ctx, result.Memory.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "hello world" {
		t.Fatalf("expected content to round-trip, got %q", got.Content)
	}
	if got.Scope != "team/alpha" {
		t.Fatalf("expected canonical scope, got %q", got.Scope)
	}
}

func TestStoreRejectsExactDuplicate(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	if _, err := mgr.Store(ctx, StoreInput{Content: "same content", Scope: "team"}); err != nil {
		t.Fatalf("first store: %v", err)
	}
	_, err := mgr.Store(ctx, StoreInput{Content: "same content", Scope: "team"})
	if err == nil {
		t.Fatalf("expected duplicate rejection")
	}
	kind, ok := model.KindOf(err)
	if !ok || kind != model.ErrDuplicateRejected {
		t.Fatalf("expected ErrDuplicateRejected, got %v ok=%v", kind, ok)
	}
}

func TestStoreAllowDuplicatesBypassesCheck(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	if _, err := mgr.Store(ctx, StoreInput{Content: "same content", Scope: "team"}); err != nil {
		t.Fatalf("first store: %v", err)
	}
	result, err := mgr.Store(ctx, StoreInput{Content: "same content", Scope: "team", AllowDuplicates: true})
	if err != nil {
		t.Fatalf("expected duplicate allowed, got %v", err)
	}
	if result.Memory.ID == "" {
		t.Fatalf("expected a new memory to be created")
	}
}

type failingEmbedder struct{ err error }

func (f failingEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, f.err }

func (f failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, f.err
}

func TestStoreSurfacesTransientEmbeddingFailureAsRetryable(t *testing.T) {
	ctx := context.Background()
	cfg := engineconfig.Default()
	mgr := New(vectorindex.NewMemoryIndex(), metastore.NewMemoryStore(), graph.NewMemoryGraph(),
		failingEmbedder{err: errors.New("provider connection reset")}, cfg)

	_, err := mgr.Store(ctx, StoreInput{Content: "hello", Scope: "team"})
	if err == nil {
		t.Fatalf("expected embedding failure to propagate")
	}
	kind, ok := model.KindOf(err)
	if !ok || kind != model.ErrEmbeddingUnavailable {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v ok=%v", kind, ok)
	}
	var me *model.Error
	if model.As(err, &me) && !me.Retryable() {
		t.Fatalf("expected a transient embedding failure to be marked retryable")
	}
}

func TestStoreSurfacesRejectedInputAsNotRetryable(t *testing.T) {
	ctx := context.Background()
	cfg := engineconfig.Default()
	mgr := New(vectorindex.NewMemoryIndex(), metastore.NewMemoryStore(), graph.NewMemoryGraph(),
		failingEmbedder{err: embed.ErrNotSupported}, cfg)

	_, err := mgr.Store(ctx, StoreInput{Content: "hello", Scope: "team"})
	if err == nil {
		t.Fatalf("expected embedding failure to propagate")
	}
	kind, ok := model.KindOf(err)
	if !ok || kind != model.ErrEmbeddingInvalidInput {
		t.Fatalf("expected ErrEmbeddingInvalidInput, got %v ok=%v", kind, ok)
	}
	var me *model.Error
	if model.As(err, &me) && me.Retryable() {
		t.Fatalf("expected a rejected-input embedding failure to not be retryable")
	}
}

func TestStoreSeedsAutoAssociations(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	first, err := mgr.Store(ctx, StoreInput{Content: "investigate latency regression in api gateway", Scope: "team"})
	if err != nil {
		t.Fatalf("store first: %v", err)
	}
	second, err := mgr.Store(ctx, StoreInput{Content: "investigate latency regression in api gateway service", Scope: "team"})
	if err != nil {
		t.Fatalf("store second: %v", err)
	}
	if len(second.Associations) == 0 {
		t.Fatalf("expected auto-seeded associations for a near-duplicate memory")
	}
	neighbors, err := mgr.GetNeighbours(ctx, first.Memory.ID, 10)
	if err != nil {
		t.Fatalf("get neighbours: %v", err)
	}
	found := false
	for _, nb := range neighbors {
		if nb.ID == second.Memory.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the two memories to be linked")
	}
}

func TestStoreSkipAutoAssociateOptsOut(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	if _, err := mgr.Store(ctx, StoreInput{Content: "investigate latency regression in api gateway", Scope: "team"}); err != nil {
		t.Fatalf("store first: %v", err)
	}
	second, err := mgr.Store(ctx, StoreInput{
		Content: "investigate latency regression in api gateway service", Scope: "team", SkipAutoAssociate: true,
	})
	if err != nil {
		t.Fatalf("store second: %v", err)
	}
	if len(second.Associations) != 0 {
		t.Fatalf("expected no associations when SkipAutoAssociate is set, got %d", len(second.Associations))
	}
}

func TestUpdateContentDropsOrStalesAssociations(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	first, err := mgr.Store(ctx, StoreInput{Content: "database failover runbook", Scope: "team"})
	if err != nil {
		t.Fatalf("store first: %v", err)
	}
	second, err := mgr.Store(ctx, StoreInput{Content: "database failover runbook steps", Scope: "team"})
	if err != nil {
		t.Fatalf("store second: %v", err)
	}
	if len(second.Associations) == 0 {
		t.Fatalf("expected an auto-association to exist before the update")
	}

	newContent := "completely unrelated lunch menu discussion"
	if _, err := mgr.Update(ctx, second.Memory.ID, UpdateInput{Content: &newContent}); err != nil {
		t.Fatalf("update: %v", err)
	}
	neighbors, err := mgr.GetNeighbours(ctx, first.Memory.ID, 10)
	if err != nil {
		t.Fatalf("get neighbours: %v", err)
	}
	foundStale := false
	for _, nb := range neighbors {
		if nb.ID == second.Memory.ID {
			if !nb.Edge.Stale {
				t.Fatalf("expected the edge to be marked stale after a content change")
			}
			foundStale = true
		}
	}
	if !foundStale {
		t.Fatalf("expected the edge to still be present (not dropped) by default")
	}
}

func TestUpdateDropAssociationsRemovesEdges(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	first, err := mgr.Store(ctx, StoreInput{Content: "database failover runbook", Scope: "team"})
	if err != nil {
		t.Fatalf("store first: %v", err)
	}
	second, err := mgr.Store(ctx, StoreInput{Content: "database failover runbook steps", Scope: "team"})
	if err != nil {
		t.Fatalf("store second: %v", err)
	}
	if len(second.Associations) == 0 {
		t.Fatalf("expected an auto-association before the update")
	}

	newContent := "totally different topic about gardening"
	if _, err := mgr.Update(ctx, second.Memory.ID, UpdateInput{Content: &newContent, DropAssociations: true}); err != nil {
		t.Fatalf("update: %v", err)
	}
	neighbors, err := mgr.GetNeighbours(ctx, first.Memory.ID, 10)
	if err != nil {
		t.Fatalf("get neighbours: %v", err)
	}
	for _, nb := range neighbors {
		if nb.ID == second.Memory.ID {
			t.Fatalf("expected edge to be dropped, but it is still present")
		}
	}
}

func TestDeleteRemovesFromAllStores(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	result, err := mgr.Store(ctx, StoreInput{Content: "ephemeral note", Scope: "team"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := mgr.Delete(ctx, result.Memory.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := mgr.Get(ctx, result.Memory.ID); err == nil {
		t.Fatalf("expected not-found after delete")
	}
}

func TestMoveRetagsVectorScope(t *testing.T) {
	ctx := context.Background()
	vectors := vectorindex.NewMemoryIndex()
	cfg := engineconfig.Default()
	mgr := New(vectors, metastore.NewMemoryStore(), graph.NewMemoryGraph(), embed.DummyEmbedder{}, cfg)

	result, err := mgr.Store(ctx, StoreInput{Content: "moveable note", Scope: "team/alpha"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := mgr.Move(ctx, result.Memory.ID, "team/beta"); err != nil {
		t.Fatalf("move: %v", err)
	}
	matches, err := vectors.Query(ctx, mustEmbed(t, mgr, "moveable note"), scope.Exact("team/beta"), 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	found := false
	for _, match := range matches {
		if match.ID == result.Memory.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected memory to be retrievable under its new scope")
	}
}

func mustEmbed(t *testing.T, mgr *Manager, content string) []float32 {
	t.Helper()
	vec, err := mgr.embedder.Embed(context.Background(), content)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	return vec
}

func TestCleanupRemovesExpiredMemories(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)
	base := time.Now().Add(-48 * time.Hour)
	mgr.WithClock(func() time.Time { return base })

	result, err := mgr.Store(ctx, StoreInput{Content: "old note", Scope: "team"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	mgr.WithClock(time.Now)

	n, err := mgr.Cleanup(ctx, scope.Any(), 24*time.Hour)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 memory cleaned up, got %d", n)
	}
	if _, err := mgr.Get(ctx, result.Memory.ID); err == nil {
		t.Fatalf("expected expired memory to be gone")
	}
}

func TestMetricsSnapshotTracksStoreAndDelete(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)
	result, err := mgr.Store(ctx, StoreInput{Content: "tracked note", Scope: "team"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := mgr.Delete(ctx, result.Memory.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap := mgr.MetricsSnapshot()
	if snap.Stored != 1 {
		t.Fatalf("expected 1 stored, got %d", snap.Stored)
	}
	if snap.Deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", snap.Deleted)
	}
}

func TestListPaginates(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)
	for i := 0; i < 3; i++ {
		if _, err := mgr.Store(ctx, StoreInput{Content: "note " + time.Now().String(), Scope: "team"}); err != nil {
			t.Fatalf("store %d: %v", i, err)
		}
	}
	page, err := mgr.List(ctx, scope.Any(), "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Memories) != 3 {
		t.Fatalf("expected 3 memories, got %d", len(page.Memories))
	}
}
