package pipeline

import (
	"fmt"

	"github.com/roach88/churnpipe/internal/event"
)

// DurationStats summarizes the temporal normalization pass.
type DurationStats struct {
	Events       int
	LastEvents   int   // terminal events, duration forced to 0
	LongPauses   int   // durations above LongPauseThreshold, kept as-is
	MaxDuration  int64 // seconds
}

// LongPauseThreshold marks durations worth flagging in logs: the user idled
// or backgrounded the app. No upper clamp is applied; long pauses are real
// signal and stay in the data.
const LongPauseThreshold = 1800

// ComputeDurations fills Event.Duration with the gap to the next event in
// the same session, in whole seconds clamped at zero.
//
// The last event of each session gets duration 0. That terminal-zero
// convention undercounts time spent on the session's final screen; the sum
// of a session's durations equals last-minus-first, not the true session
// span. This is a deliberate approximation carried over from the data's
// original definition, not a gap to be fixed here.
//
// The canonical sort is re-established before the scan; the output order is
// canonical.
func ComputeDurations(events []event.Event) ([]event.Event, DurationStats, error) {
	if err := requireSessionIDs(events); err != nil {
		return nil, DurationStats{}, fmt.Errorf("compute durations: %w", err)
	}

	out := event.Clone(events)
	event.SortCanonical(out)

	var stats DurationStats
	stats.Events = len(out)

	for i := range out {
		last := i == len(out)-1 || out[i+1].SessionID != out[i].SessionID
		if last {
			out[i].Duration = 0
			stats.LastEvents++
			continue
		}
		d := int64(out[i+1].Timestamp.Sub(out[i].Timestamp).Seconds())
		if d < 0 {
			d = 0
		}
		out[i].Duration = d
		if d > LongPauseThreshold {
			stats.LongPauses++
		}
		if d > stats.MaxDuration {
			stats.MaxDuration = d
		}
	}
	return out, stats, nil
}
