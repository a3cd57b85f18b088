package features

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/churnpipe/internal/event"
	"github.com/roach88/churnpipe/internal/taxonomy"
)

// Aggregate builds the feature table from a screen-collapsed event stream.
//
// Events are tagged with their taxonomy block; rows with no block are
// excluded from block rollups but still contribute to the session duration.
// Per (session, block): event count, max funnel step, success and review
// counts, summed duration, clicks, and duplicate diagnostics. The result is
// pivoted into one row per session with every block column filled (0, or -1
// for max_step) whether or not the session touched the block.
func Aggregate(events []event.Event, tax *taxonomy.Taxonomy) (*Table, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("aggregate features: empty event stream")
	}
	for i := range events {
		if events[i].SessionID <= 0 {
			return nil, fmt.Errorf("aggregate features: event %d has no global session id", i)
		}
	}

	in := event.Clone(events)
	event.SortCanonical(in)

	rows := make(map[int64]*Row)
	var order []int64
	var unmapped int

	for _, e := range in {
		row, ok := rows[e.SessionID]
		if !ok {
			// First chronological event supplies the context columns.
			row = &Row{
				SessionID:    e.SessionID,
				DeviceID:     e.DeviceID,
				SessionNum:   e.SessionNum,
				FirstEvent:   e.Timestamp,
				Manufacturer: e.Manufacturer,
				Model:        e.Model,
				DeviceType:   e.DeviceType,
				OS:           e.OS,
				Age:          e.Age,
				Gender:       e.Gender,
				IsLost:       e.IsLost,
				IsStay:       e.IsStay,
				IsNew:        e.IsNew,
				Blocks:       make(map[string]BlockMetrics),
			}
			rows[e.SessionID] = row
			order = append(order, e.SessionID)
		}

		// Whole-session duration sums every event, mapped or not.
		row.SessDurSec += e.Duration

		ref, ok := tax.Lookup(e.Screen, e.Functional, e.Action)
		if !ok {
			unmapped++
			continue
		}

		m := row.Blocks[ref.Prefix]
		m.Count++
		if int64(ref.Step) > m.MaxStep {
			m.MaxStep = int64(ref.Step)
		}
		if tax.IsSuccess(e.Screen, e.Functional, e.Action) {
			m.SuccessCount++
		}
		if tax.IsReview(e.Screen, e.Functional, e.Action) {
			m.ReviewCount++
		}
		m.DurSec += e.Duration
		m.ClickCount += e.ClickCount
		m.DblDurSec += e.DblDuration
		m.DblCount += e.DblCount
		row.Blocks[ref.Prefix] = m
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	table := &Table{Prefixes: tax.Prefixes(), Rows: make([]Row, 0, len(order))}
	for _, id := range order {
		table.Rows = append(table.Rows, *rows[id])
	}

	slog.Info("feature table built",
		"sessions", len(table.Rows),
		"block_columns", len(BlockColumns(table.Prefixes)),
		"unmapped_events", unmapped)
	return table, nil
}
