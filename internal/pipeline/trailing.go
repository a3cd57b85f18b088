package pipeline

import (
	"fmt"

	"github.com/roach88/churnpipe/internal/event"
)

// TrailingExit identifies the dead-end record dropped by
// RemoveTrailingExits: the user opened this screen as the last thing in the
// session and left without doing anything.
type TrailingExit struct {
	Screen     string
	Functional string
	Action     string
}

// DefaultTrailingExit is the "opened the Еще menu and quit" pattern.
var DefaultTrailingExit = TrailingExit{
	Screen:     "Еще",
	Functional: "Открытие экрана",
	Action:     event.ActionUnspecified,
}

// TrailingStats summarizes a trailing-exit removal pass.
type TrailingStats struct {
	InputRows        int
	RemovedRows      int
	AffectedSessions int
}

// RemoveTrailingExits drops a session's final event when it matches the
// given dead-end triple. Only the single last event is considered; an
// earlier matching event stays, and a session whose last two events both
// match loses only the final one.
func RemoveTrailingExits(events []event.Event, exit TrailingExit) ([]event.Event, TrailingStats, error) {
	if err := requireSessionIDs(events); err != nil {
		return nil, TrailingStats{}, fmt.Errorf("remove trailing exits: %w", err)
	}

	in := event.Clone(events)
	event.SortCanonical(in)

	stats := TrailingStats{InputRows: len(in)}
	out := make([]event.Event, 0, len(in))

	for i := range in {
		last := i == len(in)-1 || in[i+1].SessionID != in[i].SessionID
		if last &&
			in[i].Screen == exit.Screen &&
			in[i].Functional == exit.Functional &&
			in[i].Action == exit.Action {
			stats.RemovedRows++
			stats.AffectedSessions++
			continue
		}
		out = append(out, in[i])
	}
	return out, stats, nil
}
