package manager

import "sync/atomic"

// Metrics captures lightweight runtime counters for observability.
// Grounded on the teacher's pkg/memory/metrics.go, trimmed to the counters
// this engine's operations actually produce.
type Metrics struct {
	stored       atomic.Int64
	retrieved    atomic.Int64
	deduplicated atomic.Int64
	reembedded   atomic.Int64
	cleaned      atomic.Int64
	moved        atomic.Int64
	deleted      atomic.Int64
	associated   atomic.Int64
	searched     atomic.Int64
}

func (m *Metrics) IncStored()         { m.stored.Add(1) }
func (m *Metrics) IncRetrieved(n int) { m.retrieved.Add(int64(n)) }
func (m *Metrics) IncDeduplicated()   { m.deduplicated.Add(1) }
func (m *Metrics) IncReembedded()     { m.reembedded.Add(1) }
func (m *Metrics) IncCleaned(n int)   { m.cleaned.Add(int64(n)) }
func (m *Metrics) IncMoved()          { m.moved.Add(1) }
func (m *Metrics) IncDeleted()        { m.deleted.Add(1) }
func (m *Metrics) IncAssociated()     { m.associated.Add(1) }
func (m *Metrics) IncSearched()       { m.searched.Add(1) }

// MetricsSnapshot is a point-in-time copy suitable for logging or export.
type MetricsSnapshot struct {
	Stored       int64 `json:"stored"`
	Retrieved    int64 `json:"retrieved"`
	Deduplicated int64 `json:"deduplicated"`
	Reembedded   int64 `json:"reembedded"`
	Cleaned      int64 `json:"cleaned"`
	Moved        int64 `json:"moved"`
	Deleted      int64 `json:"deleted"`
	Associated   int64 `json:"associated"`
	Searched     int64 `json:"searched"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Stored:       m.stored.Load(),
		Retrieved:    m.retrieved.Load(),
		Deduplicated: m.deduplicated.Load(),
		Reembedded:   m.reembedded.Load(),
		Cleaned:      m.cleaned.Load(),
		Moved:        m.moved.Load(),
		Deleted:      m.deleted.Load(),
		Associated:   m.associated.Load(),
		Searched:     m.searched.Load(),
	}
}
