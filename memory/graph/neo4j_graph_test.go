package graph

import (
	"context"
	"testing"
	"time"

	"github.com/latticememory/memex/memory/model"
)

type runCall struct {
	query  string
	params map[string]any
}

type fakeDriver struct {
	writeSession *fakeSession
	readSession  *fakeSession
	configs      []SessionConfig
	closed       bool
}

func (d *fakeDriver) NewSession(_ context.Context, config SessionConfig) (session, error) {
	d.configs = append(d.configs, config)
	switch config.AccessMode {
	case AccessModeWrite:
		if d.writeSession == nil {
			d.writeSession = &fakeSession{}
		}
		return d.writeSession, nil
	case AccessModeRead:
		if d.readSession == nil {
			d.readSession = &fakeSession{}
		}
		return d.readSession, nil
	default:
		return &fakeSession{}, nil
	}
}

func (d *fakeDriver) Close(context.Context) error {
	d.closed = true
	return nil
}

type fakeSession struct {
	tx       *fakeTx
	runCalls []runCall
	result   result
	closed   bool
}

func (s *fakeSession) BeginTransaction(context.Context) (transaction, error) {
	if s.tx == nil {
		s.tx = &fakeTx{}
	}
	return s.tx, nil
}

func (s *fakeSession) Run(_ context.Context, query string, params map[string]any) (result, error) {
	s.runCalls = append(s.runCalls, runCall{query: query, params: params})
	if s.result != nil {
		return s.result, nil
	}
	return &fakeResult{}, nil
}

func (s *fakeSession) Close(context.Context) error {
	s.closed = true
	return nil
}

type fakeTx struct {
	runs       []runCall
	committed  bool
	rolledBack bool
	closed     bool
}

func (tx *fakeTx) Run(_ context.Context, query string, params map[string]any) (result, error) {
	tx.runs = append(tx.runs, runCall{query: query, params: params})
	return &fakeResult{}, nil
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	tx.rolledBack = true
	return nil
}

func (tx *fakeTx) Close(context.Context) error {
	tx.closed = true
	return nil
}

type fakeResult struct {
	records []map[string]any
	idx     int
	closed  bool
}

func (r *fakeResult) Next(_ context.Context) bool {
	if r.idx >= len(r.records) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeResult) Record() record {
	if r.idx == 0 || r.idx > len(r.records) {
		return fakeRecord(nil)
	}
	return fakeRecord(r.records[r.idx-1])
}

func (r *fakeResult) Err() error { return nil }

func (r *fakeResult) Close(context.Context) error {
	r.closed = true
	return nil
}

type fakeRecord map[string]any

func (r fakeRecord) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r[key]
	return v, ok
}

func TestNewNeo4jGraphRejectsNilDriver(t *testing.T) {
	if _, err := NewNeo4jGraph(nil, "neo"); err == nil {
		t.Fatal("expected error for nil driver")
	}
}

func TestNeo4jGraphAddNodeIssuesMerge(t *testing.T) {
	drv := &fakeDriver{}
	g, err := NewNeo4jGraph(drv, "neo")
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}
	if err := g.AddNode(context.Background(), "m1"); err != nil {
		t.Fatalf("add node: %v", err)
	}
	if len(drv.configs) == 0 || drv.configs[0].AccessMode != AccessModeWrite {
		t.Fatalf("expected a write session, got %+v", drv.configs)
	}
	if len(drv.writeSession.runCalls) != 1 {
		t.Fatalf("expected 1 query, got %d", len(drv.writeSession.runCalls))
	}
}

func TestNeo4jGraphAddEdgeUpsertsBothDirections(t *testing.T) {
	drv := &fakeDriver{}
	g, err := NewNeo4jGraph(drv, "neo")
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}
	g.nowFn = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	edge := model.Association{Source: "a", Target: "b", Weight: 0.75, Kind: model.EdgeAuto, CreatedAt: g.nowFn()}
	if err := g.AddEdge(context.Background(), edge); err != nil {
		t.Fatalf("add edge: %v", err)
	}
	tx := drv.writeSession.tx
	if tx == nil {
		t.Fatalf("expected a transaction to be created")
	}
	if !tx.committed {
		t.Fatalf("expected the transaction to be committed")
	}
	if tx.rolledBack {
		t.Fatalf("did not expect a rollback on success")
	}
	if len(tx.runs) != 2 {
		t.Fatalf("expected both forward and reverse edge upserts, got %d", len(tx.runs))
	}
	if tx.runs[0].params["source"] != "a" || tx.runs[0].params["target"] != "b" {
		t.Fatalf("unexpected forward edge params: %+v", tx.runs[0].params)
	}
	if tx.runs[1].params["source"] != "b" || tx.runs[1].params["target"] != "a" {
		t.Fatalf("unexpected reverse edge params: %+v", tx.runs[1].params)
	}
}

func TestNeo4jGraphAddEdgeManualSkipsReverse(t *testing.T) {
	drv := &fakeDriver{}
	g, err := NewNeo4jGraph(drv, "neo")
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}
	edge := model.Association{Source: "a", Target: "b", Weight: 0.5, Kind: model.EdgeManual, CreatedAt: time.Now()}
	if err := g.AddEdge(context.Background(), edge); err != nil {
		t.Fatalf("add edge: %v", err)
	}
	tx := drv.writeSession.tx
	if len(tx.runs) != 1 {
		t.Fatalf("expected only the forward edge upsert for a manual edge, got %d", len(tx.runs))
	}
}

func TestNeo4jGraphRemoveNodeAndRemoveEdge(t *testing.T) {
	drv := &fakeDriver{}
	g, err := NewNeo4jGraph(drv, "neo")
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}
	if err := g.RemoveNode(context.Background(), "m1"); err != nil {
		t.Fatalf("remove node: %v", err)
	}
	if err := g.RemoveEdge(context.Background(), "a", "b"); err != nil {
		t.Fatalf("remove edge: %v", err)
	}
	if len(drv.writeSession.runCalls) != 2 {
		t.Fatalf("expected 2 write queries, got %d", len(drv.writeSession.runCalls))
	}
}

func TestNeo4jGraphNeighboursParsesRecords(t *testing.T) {
	drv := &fakeDriver{readSession: &fakeSession{result: &fakeResult{
		records: []map[string]any{
			{"id": "b", "depth": int64(1)},
			{"id": "c", "depth": int64(2)},
		},
	}}}
	g, err := NewNeo4jGraph(drv, "neo")
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}
	neighbours, err := g.Neighbours(context.Background(), "a", 2, 10)
	if err != nil {
		t.Fatalf("neighbours: %v", err)
	}
	if len(neighbours) != 2 {
		t.Fatalf("expected 2 neighbours, got %d", len(neighbours))
	}
	if neighbours[0].ID != "b" || neighbours[0].Depth != 1 {
		t.Fatalf("unexpected first neighbour: %+v", neighbours[0])
	}
	if len(drv.configs) == 0 || drv.configs[0].AccessMode != AccessModeRead {
		t.Fatalf("expected a read session, got %+v", drv.configs)
	}
}

func TestNeo4jGraphNeighboursShortCircuitsOnNonPositiveArgs(t *testing.T) {
	drv := &fakeDriver{}
	g, err := NewNeo4jGraph(drv, "neo")
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}
	neighbours, err := g.Neighbours(context.Background(), "a", 0, 10)
	if err != nil {
		t.Fatalf("neighbours: %v", err)
	}
	if neighbours != nil {
		t.Fatalf("expected nil neighbours for zero hops, got %v", neighbours)
	}
	if len(drv.configs) != 0 {
		t.Fatalf("expected no session to be opened when short-circuiting")
	}
}

func TestNeo4jGraphDegreeReadsCount(t *testing.T) {
	drv := &fakeDriver{readSession: &fakeSession{result: &fakeResult{
		records: []map[string]any{{"degree": int64(3)}},
	}}}
	g, err := NewNeo4jGraph(drv, "neo")
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}
	degree, err := g.Degree(context.Background(), "a")
	if err != nil {
		t.Fatalf("degree: %v", err)
	}
	if degree != 3 {
		t.Fatalf("expected degree 3, got %d", degree)
	}
}

func TestNeo4jGraphClose(t *testing.T) {
	drv := &fakeDriver{}
	g, err := NewNeo4jGraph(drv, "neo")
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !drv.closed {
		t.Fatalf("expected driver Close to be called")
	}
}

func TestToStringAndToInt64(t *testing.T) {
	if got := toString("x"); got != "x" {
		t.Fatalf("expected %q, got %q", "x", got)
	}
	if got := toString(42); got != "42" {
		t.Fatalf("expected %q, got %q", "42", got)
	}
	if got := toInt64(int32(7)); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if got := toInt64(float64(9.9)); got != 9 {
		t.Fatalf("expected 9, got %d", got)
	}
	if got := toInt64("not a number"); got != 0 {
		t.Fatalf("expected 0 fallback, got %d", got)
	}
}
