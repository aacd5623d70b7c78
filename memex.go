// Package memex is the engine's public facade: type aliases and
// re-exported constructors over the memory/* components, mirroring the
// teacher's src/memory/memory.go single-entry-point pattern.
package memex

import (
	"context"

	"github.com/latticememory/memex/memory/duplicate"
	"github.com/latticememory/memex/memory/embed"
	"github.com/latticememory/memex/memory/engineconfig"
	"github.com/latticememory/memex/memory/graph"
	"github.com/latticememory/memex/memory/manager"
	"github.com/latticememory/memex/memory/metastore"
	"github.com/latticememory/memex/memory/model"
	"github.com/latticememory/memex/memory/scope"
	"github.com/latticememory/memex/memory/search"
	"github.com/latticememory/memex/memory/syncio"
	"github.com/latticememory/memex/memory/vectorindex"
)

// Type aliases preserving each component's public API under one import.
type (
	Memory      = model.Memory
	Metadata    = model.Metadata
	Value       = model.Value
	Association = model.Association
	EdgeKind    = model.EdgeKind
	Error       = model.Error
	ErrorKind   = model.ErrorKind

	ScopeFilter = scope.Filter
	FilterKind  = scope.FilterKind

	Embedder = embed.Embedder

	VectorIndex = vectorindex.Index
	Match       = vectorindex.Match

	MetadataStore = metastore.Store
	Page          = metastore.Page

	Graph    = graph.Graph
	Neighbor = graph.Neighbor

	Detector = duplicate.Detector
	Verdict  = duplicate.Verdict

	Config = engineconfig.Config

	Manager      = manager.Manager
	StoreInput   = manager.StoreInput
	StoreResult  = manager.StoreResult
	UpdateInput  = manager.UpdateInput
	Metrics      = manager.Metrics
	MetricsSnapshot = manager.MetricsSnapshot

	Planner              = search.Planner
	SearchOptions        = search.Options
	SearchMode           = search.Mode
	SearchResult         = search.Result
	AssociationExplainer = search.AssociationExplainer

	Exporter          = syncio.Exporter
	Importer          = syncio.Importer
	SyncPayload       = syncio.Payload
	MergeStrategy     = syncio.MergeStrategy
	ImportCounts      = syncio.ImportCounts
)

const (
	EdgeAuto   = model.EdgeAuto
	EdgeManual = model.EdgeManual

	FilterAny    = scope.FilterAny
	FilterExact  = scope.FilterExact
	FilterPrefix = scope.FilterPrefix

	ErrValidationFailed     = model.ErrValidationFailed
	ErrNotFound             = model.ErrNotFound
	ErrDuplicateRejected    = model.ErrDuplicateRejected
	ErrEmbeddingUnavailable = model.ErrEmbeddingUnavailable
	ErrStoreFailed          = model.ErrStoreFailed
	ErrStateInconsistency   = model.ErrStateInconsistency
	ErrCapacityExceeded     = model.ErrCapacityExceeded
	ErrCancelled            = model.ErrCancelled

	ModeStandard    = search.ModeStandard
	ModeDiversified = search.ModeDiversified

	MergeSkipDuplicates = syncio.MergeSkipDuplicates
	MergeOverwrite      = syncio.MergeOverwrite
	MergeCreateVersions = syncio.MergeCreateVersions
)

var (
	ScopeParse     = scope.Parse
	ScopeCanonical = scope.Canonical
	ScopeAny       = scope.Any
	ScopeExact     = scope.Exact
	ScopePrefix    = scope.Prefix

	AutoEmbedder   = embed.AutoEmbedder
	DummyEmbedding = embed.DummyEmbedding

	NewMemoryIndex  = vectorindex.NewMemoryIndex
	NewPGVectorIndex = vectorindex.NewPGVectorIndex

	NewMemoryStore = metastore.NewMemoryStore
	NewFileStore   = metastore.NewFileStore
	NewMongoStore  = metastore.NewMongoStore

	NewMemoryGraph   = graph.NewMemoryGraph
	NewJournalGraph  = graph.NewJournalGraph
	NewNeo4jGraph    = graph.NewNeo4jGraph

	ConfigDefault = engineconfig.Default
	ConfigFromEnv = engineconfig.FromEnv

	NewManager = manager.New

	NewPlanner               = search.New
	NewLLMAssociationExplainer = search.NewLLMAssociationExplainer

	NewExporter = syncio.NewExporter
	NewImporter = syncio.NewImporter
	ReadPayload = syncio.ReadPayload
)

// Engine bundles the wired triple-store manager, search planner and
// sync helpers into the one object a typical caller constructs — the
// equivalent of the teacher's single *Engine entry point, generalized
// over this system's three independently pluggable stores.
type Engine struct {
	*Manager
	Search   *Planner
	Exporter *Exporter
	Importer *Importer
}

// NewEngine wires a Manager, Planner, Exporter and Importer over the
// given backends. Any of vectors/metadata/g may be swapped for a
// different backend implementation; embedder defaults to AutoEmbedder()
// when nil.
func NewEngine(vectors VectorIndex, metadata MetadataStore, g Graph, embedder Embedder, cfg Config) *Engine {
	if embedder == nil {
		embedder = AutoEmbedder()
	}
	mgr := NewManager(vectors, metadata, g, embedder, cfg)
	planner := NewPlanner(mgr, vectors, embedder, cfg)
	return &Engine{
		Manager:  mgr,
		Search:   planner,
		Exporter: NewExporter(mgr),
		Importer: NewImporter(mgr),
	}
}

// Context is re-exported only so generated documentation doesn't need an
// extra import for the package's context.Context-accepting methods.
type Context = context.Context
