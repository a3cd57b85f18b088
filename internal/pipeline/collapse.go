package pipeline

import (
	"fmt"

	"github.com/roach88/churnpipe/internal/event"
)

// CollapseStats summarizes a run-collapse pass.
type CollapseStats struct {
	InputRows   int
	RemovedRows int
	OutputRows  int
	MaxClicks   int64
}

// CollapseRuns merges maximal runs of consecutive events that share the
// (screen, functional, action) triple within a session.
//
// For each run the last event survives and carries:
//
//   - Duration: sum over all run members
//   - ClickCount: members whose action is not the sentinel, floored at 1
//   - DblCount: removed members (run length - 1)
//   - DblDuration: summed duration of the removed members
//
// Run boundaries are found in a single pass by comparing each event to its
// predecessor within the same session; runs are contiguous after the
// canonical sort, so the whole pass is O(n).
//
// The pass is idempotent: after one application no two adjacent events share
// a triple, so a second application removes nothing. Finding zero runs to
// collapse is success.
func CollapseRuns(events []event.Event) ([]event.Event, CollapseStats, error) {
	if err := requireSessionIDs(events); err != nil {
		return nil, CollapseStats{}, fmt.Errorf("collapse runs: %w", err)
	}

	in := event.Clone(events)
	event.SortCanonical(in)

	stats := CollapseStats{InputRows: len(in)}
	out := make([]event.Event, 0, len(in))

	for start := 0; start < len(in); {
		end := start + 1
		for end < len(in) &&
			in[end].SessionID == in[start].SessionID &&
			in[end].Key() == in[start].Key() {
			end++
		}

		// Run is in[start:end]; keep the last member.
		kept := in[end-1]

		// Accumulate additively over members' existing counters so that
		// collapsing an already-collapsed stream is a no-op: a singleton
		// run reproduces its own fields exactly.
		var totalDur, removedDur, clicks, dblCount int64
		for i := start; i < end; i++ {
			totalDur += in[i].Duration
			dblCount += in[i].DblCount
			removedDur += in[i].DblDuration
			if i < end-1 {
				removedDur += in[i].Duration
			}
			if in[i].ClickCount > 0 {
				clicks += in[i].ClickCount
			} else if in[i].Action != event.ActionUnspecified {
				clicks++
			}
		}
		if clicks < 1 {
			clicks = 1
		}

		kept.Duration = totalDur
		kept.ClickCount = clicks
		kept.DblCount = dblCount + int64(end-start-1)
		kept.DblDuration = removedDur

		if clicks > stats.MaxClicks {
			stats.MaxClicks = clicks
		}
		out = append(out, kept)
		start = end
	}

	stats.OutputRows = len(out)
	stats.RemovedRows = stats.InputRows - stats.OutputRows
	return out, stats, nil
}
