package features

import (
	"time"
)

// BlockMetrics holds the eight rollups for one (session, block) pair.
// The zero value is NOT the fill value: an untouched block has MaxStep -1.
type BlockMetrics struct {
	Count        int64
	MaxStep      int64
	SuccessCount int64
	ReviewCount  int64
	DurSec       int64
	ClickCount   int64
	DblDurSec    int64
	DblCount     int64
}

// untouched is the fill for blocks a session never interacted with.
var untouched = BlockMetrics{MaxStep: MaxStepUnused}

// byMetric returns the metric values in Metrics order.
func (m BlockMetrics) byMetric() [8]int64 {
	return [8]int64{
		m.Count, m.MaxStep, m.SuccessCount, m.ReviewCount,
		m.DurSec, m.ClickCount, m.DblDurSec, m.DblCount,
	}
}

// Row is one session's feature row. Context fields come from the session's
// first chronological event; SessDurSec sums the original per-event
// durations over the full cleaned stream, before any block filtering.
type Row struct {
	SessionID  int64
	DeviceID   int64
	SessionNum int64
	FirstEvent time.Time

	Manufacturer string
	Model        string
	DeviceType   string
	OS           string
	Age          *int
	Gender       string

	IsLost bool
	IsStay bool
	IsNew  bool

	SessDurSec int64

	// Blocks maps column prefix to metrics. Only touched blocks are
	// present; Metric resolves absent blocks to the fill values.
	Blocks map[string]BlockMetrics
}

// Metric returns the value of one block metric, applying the fill rules for
// blocks the session never touched.
func (r *Row) Metric(prefix, metric string) int64 {
	m, ok := r.Blocks[prefix]
	if !ok {
		m = untouched
	}
	vals := m.byMetric()
	for i, name := range Metrics {
		if name == metric {
			return vals[i]
		}
	}
	return 0
}

// Values returns the numeric feature values for the given prefixes in
// NumericColumns order: 8 metrics per block, then the session duration.
func (r *Row) Values(prefixes []string) []int64 {
	out := make([]int64, 0, len(prefixes)*len(Metrics)+1)
	for _, prefix := range prefixes {
		m, ok := r.Blocks[prefix]
		if !ok {
			m = untouched
		}
		vals := m.byMetric()
		out = append(out, vals[:]...)
	}
	return append(out, r.SessDurSec)
}

// Table is the session feature table: exactly one row per global session id
// present in the input stream, sorted by session id.
type Table struct {
	Prefixes []string // block column prefixes, document order
	Rows     []Row
}

// Columns returns the numeric column names in Values order.
func (t *Table) Columns() []string {
	return NumericColumns(t.Prefixes)
}

// Lookup returns the row for a session id.
func (t *Table) Lookup(sessionID int64) (*Row, bool) {
	// Rows are sorted by session id; binary search.
	lo, hi := 0, len(t.Rows)
	for lo < hi {
		mid := (lo + hi) / 2
		if t.Rows[mid].SessionID < sessionID {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(t.Rows) && t.Rows[lo].SessionID == sessionID {
		return &t.Rows[lo], true
	}
	return nil, false
}
