package pipeline

import (
	"fmt"

	"github.com/roach88/churnpipe/internal/event"
)

// ScreenStats summarizes a screen-collapse pass.
type ScreenStats struct {
	InputRows         int
	RemovedRows       int
	OutputRows        int
	SentinelRemaining int // sentinel-action events kept (all-sentinel screen runs)
}

// CollapseScreens removes sentinel-action filler events that are interleaved
// with meaningful actions on the same screen.
//
// Within each session, maximal runs of consecutive same-screen events are
// found (regardless of functional/action). If a run contains at least one
// non-sentinel action, every sentinel member is removed and its duration and
// duplicate diagnostics are folded into the run's first non-sentinel member.
// A run consisting entirely of sentinel actions is left untouched: it is the
// only record of that screen visit.
//
// Operates on the already run-collapsed stream; survivors keep the canonical
// order and session partitioning.
func CollapseScreens(events []event.Event) ([]event.Event, ScreenStats, error) {
	if err := requireSessionIDs(events); err != nil {
		return nil, ScreenStats{}, fmt.Errorf("collapse screens: %w", err)
	}

	in := event.Clone(events)
	event.SortCanonical(in)

	stats := ScreenStats{InputRows: len(in)}
	out := make([]event.Event, 0, len(in))

	for start := 0; start < len(in); {
		end := start + 1
		for end < len(in) &&
			in[end].SessionID == in[start].SessionID &&
			in[end].Screen == in[start].Screen {
			end++
		}

		firstMeaningful := -1
		for i := start; i < end; i++ {
			if in[i].Action != event.ActionUnspecified {
				firstMeaningful = i
				break
			}
		}

		if firstMeaningful < 0 {
			// All-sentinel screen run: keep as-is.
			for i := start; i < end; i++ {
				stats.SentinelRemaining++
				out = append(out, in[i])
			}
			start = end
			continue
		}

		var foldDur, foldDblDur, foldDblCount int64
		for i := start; i < end; i++ {
			if in[i].Action == event.ActionUnspecified {
				foldDur += in[i].Duration
				foldDblDur += in[i].DblDuration
				foldDblCount += in[i].DblCount
			}
		}

		for i := start; i < end; i++ {
			if in[i].Action == event.ActionUnspecified {
				continue
			}
			kept := in[i]
			if i == firstMeaningful {
				kept.Duration += foldDur
				kept.DblDuration += foldDblDur
				kept.DblCount += foldDblCount
			}
			out = append(out, kept)
		}
		start = end
	}

	stats.OutputRows = len(out)
	stats.RemovedRows = stats.InputRows - stats.OutputRows
	return out, stats, nil
}
