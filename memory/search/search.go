// Package search implements C8, the search planner: standard cosine-ranked
// search, diversified search (greedy pairwise-threshold pruning), a
// weighted tie-break, and association discovery. Candidates come straight
// from the vector index; each one is hydrated through manager.Manager's
// Get, so results reflect the committed metadata record.
package search

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/latticememory/memex/memory/engineconfig"
	"github.com/latticememory/memex/memory/graph"
	"github.com/latticememory/memex/memory/manager"
	"github.com/latticememory/memex/memory/model"
	"github.com/latticememory/memex/memory/scope"
	"github.com/latticememory/memex/memory/vectorindex"
)

// Mode selects the ranking strategy.
type Mode string

const (
	ModeStandard    Mode = "standard"
	ModeDiversified Mode = "diversified"
)

// Result is one ranked memory, with its admission score and, optionally,
// its strongest graph neighbours hydrated against the metadata store.
type Result struct {
	Memory        model.Memory
	Score         float64
	WeightedScore float64
	Associations  []graph.Neighbor

	embedding []float32
}

// Options configures a single search call. Zero values fall back to the
// planner's configured defaults.
type Options struct {
	Scope               scope.Filter
	Limit               int
	SimilarityThreshold float64
	Mode                Mode
	IncludeAssociations bool
	AssociationLimit    int
	DiversityThreshold  float64
	ExpansionFactor     float64
	MaxExpansionFactor  float64

	// IncludeChildScopes widens an exact scope filter to include every
	// descendant scope, matching "team/alpha" and "team/alpha/billing"
	// alike instead of "team/alpha" only (spec §4.8).
	IncludeChildScopes bool
}

// Vectors is the narrow slice of vectorindex.Index the planner queries
// directly; defined here so Planner can be built against any Index
// implementation without importing the concrete backend.
type Vectors interface {
	Query(ctx context.Context, embedding []float32, filter scope.Filter, topK int) ([]vectorindex.Match, error)
	Get(ctx context.Context, id string) ([]float32, bool, error)
}

// Embedder embeds a query string into the same vector space the index was
// populated with.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Planner answers search and association-discovery requests. It reads
// through manager.Manager for hydration (so results always reflect the
// committed metadata record) and queries the vector index directly for
// candidate generation, mirroring the teacher's split between
// Engine.Retrieve (ranking) and store.SearchMemory (candidate fetch).
type Planner struct {
	mgr       *manager.Manager
	vectors   Vectors
	embedder  Embedder
	cfg       engineconfig.Config
	explainer AssociationExplainer
}

// New builds a Planner. vectors is typically the same vectorindex.Index
// passed to manager.New.
func New(mgr *manager.Manager, vectors Vectors, embedder Embedder, cfg engineconfig.Config) *Planner {
	return &Planner{mgr: mgr, vectors: vectors, embedder: embedder, cfg: cfg}
}

func (p *Planner) resolveOptions(opts Options) Options {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.SimilarityThreshold == 0 {
		opts.SimilarityThreshold = p.cfg.DefaultSearchThreshold
	}
	if opts.Mode == "" {
		opts.Mode = ModeStandard
	}
	if opts.DiversityThreshold == 0 {
		opts.DiversityThreshold = p.cfg.DiversityThreshold
	}
	if opts.ExpansionFactor <= 0 {
		opts.ExpansionFactor = p.cfg.ExpansionFactor
	}
	if opts.MaxExpansionFactor <= 0 {
		opts.MaxExpansionFactor = p.cfg.MaxExpansionMultiplier
	}
	if opts.AssociationLimit <= 0 {
		opts.AssociationLimit = p.cfg.AssociationDefaultLimit
	}
	if opts.IncludeChildScopes && opts.Scope.Kind == scope.FilterExact {
		opts.Scope = scope.Prefix(opts.Scope.Scope)
	}
	return opts
}

// Search embeds query, runs the admission-filtered candidate fetch, and
// ranks with either the standard or diversified algorithm.
func (p *Planner) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	opts = p.resolveOptions(opts)
	embedding, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, model.NewError(model.ErrEmbeddingUnavailable, err.Error(), model.WithCause(err))
	}

	var results []Result
	switch opts.Mode {
	case ModeDiversified:
		results, err = p.searchDiversified(ctx, embedding, opts)
	default:
		results, err = p.searchStandard(ctx, embedding, opts)
	}
	if err != nil {
		return nil, err
	}
	if opts.IncludeAssociations {
		p.hydrateAssociations(ctx, results, opts.AssociationLimit)
	}
	return results, nil
}

// searchStandard fetches Limit candidates above the similarity threshold,
// hydrates them, and orders by cosine score with the weighted tie-break
// from ScoreWeights applied only as a secondary key (spec Open Question 3:
// the admission filter stays weak, never a ranking cutoff beyond
// threshold).
func (p *Planner) searchStandard(ctx context.Context, embedding []float32, opts Options) ([]Result, error) {
	matches, err := p.vectors.Query(ctx, embedding, opts.Scope, opts.Limit)
	if err != nil {
		return nil, model.NewError(model.ErrStoreFailed, "vector query failed", model.WithCause(err))
	}
	results, err := p.hydrate(ctx, matches, opts.SimilarityThreshold)
	if err != nil {
		return nil, err
	}
	p.applyWeights(results)
	sort.SliceStable(results, func(i, j int) bool { return lessResult(results[i], results[j]) })
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// searchDiversified implements the expansion/selection loop from spec
// §4.8: request k = ceil(limit*expansionFactor) candidates, greedily pick
// the best-scoring one not yet selected, then drop every remaining
// candidate whose similarity to the pick exceeds diversityThreshold;
// double k (capped at maxExpansionFactor*limit) and retry while the pool
// still has room to grow and the selection is short.
func (p *Planner) searchDiversified(ctx context.Context, embedding []float32, opts Options) ([]Result, error) {
	k := ceilMul(opts.Limit, opts.ExpansionFactor)
	maxK := ceilMul(opts.Limit, opts.MaxExpansionFactor)

	var selected []Result
	for {
		matches, err := p.vectors.Query(ctx, embedding, opts.Scope, k)
		if err != nil {
			return nil, model.NewError(model.ErrStoreFailed, "vector query failed", model.WithCause(err))
		}
		pool, err := p.hydrate(ctx, matches, opts.SimilarityThreshold)
		if err != nil {
			return nil, err
		}
		p.applyWeights(pool)
		selected = diversify(pool, opts.Limit, opts.DiversityThreshold)
		if len(selected) >= opts.Limit || k >= maxK || len(matches) < k {
			break
		}
		k *= 2
		if k > maxK {
			k = maxK
		}
	}
	return selected, nil
}

// diversify greedily selects the highest-scoring candidate, then drops
// every remaining candidate whose pairwise cosine similarity to the pick
// exceeds diversityThreshold, repeating until limit are selected or the
// pool runs dry (spec §4.8's diversified-mode algorithm).
func diversify(pool []Result, limit int, diversityThreshold float64) []Result {
	sort.SliceStable(pool, func(i, j int) bool { return lessResult(pool[i], pool[j]) })
	remaining := make([]Result, len(pool))
	copy(remaining, pool)
	selected := make([]Result, 0, limit)
	for len(selected) < limit && len(remaining) > 0 {
		pick := remaining[0]
		selected = append(selected, pick)
		kept := remaining[1:][:0]
		for _, cand := range remaining[1:] {
			if model.CosineSimilarity(pick.embedding, cand.embedding) <= diversityThreshold {
				kept = append(kept, cand)
			}
		}
		remaining = kept
	}
	return selected
}

// lessResult orders results by WeightedScore, then Score, falling back to
// the spec's deterministic tie-break when both are equal: the more
// recently updated memory first, then the lexicographically smaller id.
func lessResult(a, b Result) bool {
	if a.WeightedScore != b.WeightedScore {
		return a.WeightedScore > b.WeightedScore
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.Memory.UpdatedAt.Equal(b.Memory.UpdatedAt) {
		return a.Memory.UpdatedAt.After(b.Memory.UpdatedAt)
	}
	return a.Memory.ID < b.Memory.ID
}

func ceilMul(limit int, factor float64) int {
	if factor < 1 {
		factor = 1
	}
	n := int(float64(limit)*factor + 0.999999)
	if n < limit {
		n = limit
	}
	return n
}

func (p *Planner) hydrate(ctx context.Context, matches []vectorindex.Match, threshold float64) ([]Result, error) {
	results := make([]Result, 0, len(matches))
	for _, match := range matches {
		if match.Similarity < threshold {
			continue
		}
		mem, err := p.mgr.Get(ctx, match.ID)
		if err != nil {
			if kind, ok := model.KindOf(err); ok && kind == model.ErrNotFound {
				continue
			}
			return nil, err
		}
		embedding, _, err := p.vectors.Get(ctx, match.ID)
		if err != nil {
			return nil, model.NewError(model.ErrStoreFailed, "vector lookup failed", model.WithCause(err))
		}
		results = append(results, Result{Memory: mem, Score: match.Similarity, embedding: embedding})
	}
	return results, nil
}

func (p *Planner) applyWeights(results []Result) {
	w := p.cfg.ScoreWeights
	total := w.Similarity + w.Recency + w.Importance
	if total <= 0 {
		for i := range results {
			results[i].WeightedScore = results[i].Score
		}
		return
	}
	now := time.Now().UTC()
	for i := range results {
		r := &results[i]
		recency := recencyScore(now.Sub(r.Memory.UpdatedAt), p.cfg.RecencyHalfLife)
		importance := importanceScore(r.Memory)
		r.WeightedScore = (w.Similarity*r.Score + w.Recency*recency + w.Importance*importance) / total
	}
}

// recencyScore decays exponentially with age, halving every halfLife.
// Grounded on the teacher's engine.recencyScore.
func recencyScore(age time.Duration, halfLife time.Duration) float64 {
	if halfLife <= 0 {
		return 1
	}
	decay := math.Pow(0.5, age.Seconds()/halfLife.Seconds())
	if decay < 0 {
		return 0
	}
	return decay
}

// importanceScore favors longer, substantive content and a short list of
// urgency keywords, unless the memory's own metadata already carries an
// explicit importance value. Grounded on the teacher's
// engine.importanceScore, adapted to read from model.Metadata instead of a
// raw map[string]any.
func importanceScore(mem model.Memory) float64 {
	if v, ok := mem.Metadata["importance"]; ok {
		if f, ok := v.AsFloat(); ok {
			return clamp(f, 0, 1)
		}
	}
	tokens := strings.Fields(mem.Content)
	lengthScore := math.Min(float64(len(tokens))/60.0, 1.0)

	keywordBoost := 0.0
	lower := strings.ToLower(mem.Content)
	for _, kw := range []string{"urgent", "critical", "deadline", "important", "alert", "error", "outage", "failure"} {
		if strings.Contains(lower, kw) {
			keywordBoost += 0.25
		}
	}
	if keywordBoost > 0.6 {
		keywordBoost = 0.6
	}
	return clamp(lengthScore+keywordBoost, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (p *Planner) hydrateAssociations(ctx context.Context, results []Result, limit int) {
	for i := range results {
		neighbors, err := p.mgr.GetNeighbours(ctx, results[i].Memory.ID, limit)
		if err != nil {
			continue
		}
		results[i].Associations = neighbors
	}
}

// DiscoverAssociations implements spec §4.8 discover_associations: the
// graph neighbourhood is the fast path; if it doesn't satisfy limit at
// threshold, back-fill with a plain top-k vector query against the whole
// index seeded by the source memory's own embedding, excluding the source
// and anything the graph pass already returned. Back-filled candidates are
// taken in similarity order; they are not pruned for pairwise diversity.
func (p *Planner) DiscoverAssociations(ctx context.Context, memoryID string, limit int, similarityThreshold float64) ([]Result, error) {
	if limit <= 0 {
		limit = p.cfg.AssociationDefaultLimit
	}
	if similarityThreshold <= 0 {
		similarityThreshold = p.cfg.AssociationDefaultMinWeight
	}

	source, err := p.mgr.Get(ctx, memoryID)
	if err != nil {
		return nil, err
	}

	neighbors, err := p.mgr.GetNeighbours(ctx, memoryID, limit)
	if err != nil {
		return nil, model.NewError(model.ErrStoreFailed, "neighbour lookup failed", model.WithCause(err))
	}

	seen := map[string]bool{memoryID: true}
	out := make([]Result, 0, limit)
	for _, nb := range neighbors {
		if nb.Edge.Weight < similarityThreshold || seen[nb.ID] {
			continue
		}
		mem, err := p.mgr.Get(ctx, nb.ID)
		if err != nil {
			continue
		}
		seen[nb.ID] = true
		out = append(out, Result{Memory: mem, Score: nb.Edge.Weight, WeightedScore: nb.Edge.Weight})
	}
	if len(out) >= limit {
		return out[:limit], nil
	}

	embedding, _, err := p.vectors.Get(ctx, memoryID)
	if err != nil || len(embedding) == 0 {
		embedding, err = p.embedder.Embed(ctx, source.Content)
		if err != nil {
			return out, nil
		}
	}
	matches, err := p.vectors.Query(ctx, embedding, scope.Any(), ceilMul(limit, p.cfg.ExpansionFactor))
	if err != nil {
		return out, nil
	}
	for _, m := range matches {
		if len(out) >= limit {
			break
		}
		if seen[m.ID] || m.Similarity < similarityThreshold {
			continue
		}
		mem, err := p.mgr.Get(ctx, m.ID)
		if err != nil {
			continue
		}
		seen[m.ID] = true
		out = append(out, Result{Memory: mem, Score: m.Similarity, WeightedScore: m.Similarity})
	}
	return out, nil
}
