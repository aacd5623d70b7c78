// Package syncio implements C9, bulk export/import: a self-describing
// JSON payload (optionally gzip-framed) and three import merge
// strategies that keep the triple-store consistent while re-mapping
// association ids.
package syncio

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/latticememory/memex/memory/duplicate"
	"github.com/latticememory/memex/memory/manager"
	"github.com/latticememory/memex/memory/model"
	"github.com/latticememory/memex/memory/scope"
)

const SchemaVersion = 1

// MemoryRecord is the wire shape of one exported memory.
type MemoryRecord struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Scope     string         `json:"scope"`
	Tags      []string       `json:"tags,omitempty"`
	Category  string         `json:"category,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// AssociationRecord is the wire shape of one exported edge.
type AssociationRecord struct {
	SourceID  string         `json:"source_id"`
	TargetID  string         `json:"target_id"`
	Weight    float64        `json:"weight"`
	Kind      model.EdgeKind `json:"kind"`
	CreatedAt time.Time      `json:"created_at"`
}

// Payload is the self-describing export/import document (spec §9's
// export payload format).
type Payload struct {
	SchemaVersion int                 `json:"schema_version"`
	ExportedAt    time.Time           `json:"exported_at"`
	ScopeFilter   string              `json:"scope_filter"`
	Memories      []MemoryRecord      `json:"memories"`
	Associations  []AssociationRecord `json:"associations,omitempty"`
}

// Exporter streams memories through the same metastore pagination List
// uses (spec Open Question 2: no alternate read path), optionally
// enriching with the association edges whose endpoints are both in the
// exported set.
type Exporter struct {
	mgr *manager.Manager
}

func NewExporter(mgr *manager.Manager) *Exporter {
	return &Exporter{mgr: mgr}
}

// Export reads records through metastore.Store.FindByScope's pagination,
// returns them sorted by scope and then created_at (both ascending), and,
// when includeAssociations is set, appends the induced edge set.
func (e *Exporter) Export(ctx context.Context, filter scope.Filter, includeAssociations bool) (Payload, error) {
	payload := Payload{
		SchemaVersion: SchemaVersion,
		ExportedAt:    time.Now().UTC(),
		ScopeFilter:   filter.Scope,
	}

	ids := make(map[string]struct{})
	cursor := ""
	for {
		page, err := e.mgr.List(ctx, filter, cursor, 500)
		if err != nil {
			return Payload{}, err
		}
		for _, mem := range page.Memories {
			payload.Memories = append(payload.Memories, toRecord(mem))
			ids[mem.ID] = struct{}{}
		}
		if !page.HasMore {
			break
		}
		cursor = page.Cursor
	}
	sort.SliceStable(payload.Memories, func(i, j int) bool {
		a, b := payload.Memories[i], payload.Memories[j]
		if a.Scope != b.Scope {
			return a.Scope < b.Scope
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	if includeAssociations {
		seen := make(map[string]struct{})
		for id := range ids {
			neighbors, err := e.mgr.GetNeighbours(ctx, id, 1<<20)
			if err != nil {
				continue
			}
			for _, nb := range neighbors {
				if _, ok := ids[nb.ID]; !ok {
					continue
				}
				src, dst := model.CanonicalPair(id, nb.ID)
				key := src + "\x00" + dst
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				payload.Associations = append(payload.Associations, AssociationRecord{
					SourceID: src, TargetID: dst, Weight: nb.Edge.Weight, Kind: nb.Edge.Kind, CreatedAt: nb.Edge.CreatedAt,
				})
			}
		}
	}
	return payload, nil
}

// WriteTo JSON-encodes the payload, gzip-framing it when gzipped is true.
func (p Payload) WriteTo(w io.Writer, gzipped bool) error {
	if gzipped {
		gw := gzip.NewWriter(w)
		defer gw.Close()
		w = gw
	}
	enc := json.NewEncoder(w)
	return enc.Encode(p)
}

// ReadPayload decodes a Payload, transparently detecting gzip framing by
// its magic bytes.
func ReadPayload(r io.Reader) (Payload, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return Payload{}, fmt.Errorf("peek payload: %w", err)
	}
	var reader io.Reader = br
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gr, err := gzip.NewReader(br)
		if err != nil {
			return Payload{}, fmt.Errorf("open gzip payload: %w", err)
		}
		defer gr.Close()
		reader = gr
	}
	var payload Payload
	if err := json.NewDecoder(reader).Decode(&payload); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

func toRecord(mem model.Memory) MemoryRecord {
	return MemoryRecord{
		ID:        mem.ID,
		Content:   mem.Content,
		Scope:     mem.Scope,
		Tags:      mem.Tags,
		Category:  mem.Category,
		Metadata:  mem.Metadata.ToAny(),
		CreatedAt: mem.CreatedAt,
		UpdatedAt: mem.UpdatedAt,
	}
}

// MergeStrategy selects import collision handling (spec §4.9).
type MergeStrategy string

const (
	MergeSkipDuplicates MergeStrategy = "skip_duplicates"
	MergeOverwrite      MergeStrategy = "overwrite"
	MergeCreateVersions MergeStrategy = "create_versions"
)

// ImportCounts tallies the outcome of an Import call.
type ImportCounts struct {
	Created        int
	Skipped        int
	Overwritten    int
	Failed         int
	DroppedEdges   int
	FailureDetails []string
}

// Importer applies a Payload against a live manager, re-mapping
// association ids through whatever remapping the merge strategy produced.
type Importer struct {
	mgr *manager.Manager
}

func NewImporter(mgr *manager.Manager) *Importer {
	return &Importer{mgr: mgr}
}

// Import applies payload using strategy, prefixing every imported scope
// with scopePrefix when non-empty (spec: "prefixed by it (with /)").
// Best-effort per record; never aborts the batch on a single failure.
func (im *Importer) Import(ctx context.Context, payload Payload, strategy MergeStrategy, scopePrefix string) ImportCounts {
	var counts ImportCounts
	remap := make(map[string]string, len(payload.Memories))

	for _, rec := range payload.Memories {
		targetScope := rec.Scope
		if scopePrefix != "" {
			targetScope = scopePrefix + "/" + rec.Scope
		}
		newID, outcome, err := im.importOne(ctx, rec, targetScope, strategy)
		if err != nil {
			counts.Failed++
			counts.FailureDetails = append(counts.FailureDetails, fmt.Sprintf("%s: %v", rec.ID, err))
			continue
		}
		switch outcome {
		case outcomeCreated:
			counts.Created++
		case outcomeSkipped:
			counts.Skipped++
		case outcomeOverwritten:
			counts.Overwritten++
		}
		if newID != "" {
			remap[rec.ID] = newID
		}
	}

	for _, assoc := range payload.Associations {
		src, okSrc := remap[assoc.SourceID]
		dst, okDst := remap[assoc.TargetID]
		if !okSrc || !okDst {
			counts.DroppedEdges++
			continue
		}
		if err := im.addAssociation(ctx, src, dst, assoc.Weight, assoc.Kind, assoc.CreatedAt); err != nil {
			counts.DroppedEdges++
		}
	}
	return counts
}

type importOutcome int

const (
	outcomeCreated importOutcome = iota
	outcomeSkipped
	outcomeOverwritten
)

func (im *Importer) importOne(ctx context.Context, rec MemoryRecord, targetScope string, strategy MergeStrategy) (string, importOutcome, error) {
	switch strategy {
	case MergeOverwrite:
		if _, err := im.mgr.Get(ctx, rec.ID); err == nil {
			if err := im.mgr.Delete(ctx, rec.ID); err != nil {
				return "", 0, err
			}
			if err := im.storeWithID(ctx, rec.ID, rec, targetScope); err != nil {
				return "", 0, err
			}
			return rec.ID, outcomeOverwritten, nil
		}
		if err := im.storeWithID(ctx, rec.ID, rec, targetScope); err != nil {
			return "", 0, err
		}
		return rec.ID, outcomeCreated, nil

	case MergeCreateVersions:
		result, err := im.mgr.Store(ctx, manager.StoreInput{
			Content: rec.Content, Scope: targetScope, Tags: rec.Tags, Category: rec.Category,
			Metadata: rec.Metadata, AllowDuplicates: true, SkipAutoAssociate: true,
		})
		if err != nil {
			return "", 0, err
		}
		return result.Memory.ID, outcomeCreated, nil

	default: // MergeSkipDuplicates
		if _, err := im.mgr.Get(ctx, rec.ID); err == nil {
			return rec.ID, outcomeSkipped, nil
		}
		if err := im.storeWithID(ctx, rec.ID, rec, targetScope); err != nil {
			return "", 0, err
		}
		return rec.ID, outcomeCreated, nil
	}
}

// storeWithID stores a record preserving its original id, bypassing
// Manager.Store's uuid minting — overwrite's contract requires the id to
// survive the round-trip.
func (im *Importer) storeWithID(ctx context.Context, id string, rec MemoryRecord, targetScope string) error {
	return im.mgr.PutDirect(ctx, model.Memory{
		ID: id, Content: rec.Content, Scope: targetScope, Tags: rec.Tags, Category: rec.Category,
		ContentHash:  duplicate.ContentHash(rec.Content),
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, rec.Metadata)
}

func (im *Importer) addAssociation(ctx context.Context, a, b string, weight float64, kind model.EdgeKind, createdAt time.Time) error {
	return im.mgr.AddAssociation(ctx, model.Association{Source: a, Target: b, Weight: weight, Kind: kind, CreatedAt: createdAt})
}
