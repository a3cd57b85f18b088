package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/churnpipe/internal/event"
)

// Options configures a pipeline run.
type Options struct {
	// PrevMonth and CurrMonth are the cohort reference months.
	PrevMonth time.Month
	CurrMonth time.Month

	// TrailingExit is the dead-end triple removed from session tails.
	TrailingExit TrailingExit

	// IncludeNew keeps sessions of devices classified as new. The default
	// (false) matches the analysis driver, which compares lost against
	// stayed and has no use for devices with no history in the first
	// reference month.
	IncludeNew bool
}

// DefaultOptions returns the production configuration: September/October
// reference months, the Еще-menu trailing exit, new devices excluded.
func DefaultOptions() Options {
	return Options{
		PrevMonth:    time.September,
		CurrMonth:    time.October,
		TrailingExit: DefaultTrailingExit,
	}
}

// Result carries the cleaned event stream and the per-stage statistics of
// one pipeline run.
type Result struct {
	RunID  string
	Events []event.Event
	Flags  map[int64]CohortFlags

	Durations DurationStats
	Collapse  CollapseStats
	Screens   ScreenStats
	Trailing  TrailingStats
	Cohorts   CohortStats
}

// Run executes the full normalization pipeline over a cleaned event log:
//
//	session identity -> durations -> run collapse -> screen collapse ->
//	trailing-exit removal -> cohort labeling
//
// Each stage consumes the previous stage's output and produces a fresh
// slice; the local variable is reassigned only after the stage succeeds, so
// an error never publishes a half-transformed stream. Structural errors
// abort the run; data-quality anomalies surface as stats.
func Run(events []event.Event, opts Options) (*Result, error) {
	res := &Result{RunID: uuid.Must(uuid.NewV7()).String()}
	log := slog.With("run_id", res.RunID)

	log.Info("pipeline starting", "events", len(events))

	stream, err := AssignSessionIDs(events)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	log.Info("session ids assigned", "sessions", CountSessions(stream))

	stream, res.Durations, err = ComputeDurations(stream)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	log.Info("durations computed",
		"terminal_events", res.Durations.LastEvents,
		"long_pauses", res.Durations.LongPauses)

	stream, res.Collapse, err = CollapseRuns(stream)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	log.Info("duplicate runs collapsed",
		"removed", res.Collapse.RemovedRows,
		"remaining", res.Collapse.OutputRows)

	stream, res.Screens, err = CollapseScreens(stream)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	log.Info("screen fillers collapsed",
		"removed", res.Screens.RemovedRows,
		"sentinel_remaining", res.Screens.SentinelRemaining)

	stream, res.Trailing, err = RemoveTrailingExits(stream, opts.TrailingExit)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	log.Info("trailing exits removed", "removed", res.Trailing.RemovedRows)

	res.Flags, res.Cohorts, err = ClassifyDevices(stream, opts.PrevMonth, opts.CurrMonth)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	stream = LabelCohorts(stream, res.Flags)
	log.Info("cohorts labeled",
		"lost", res.Cohorts.Lost,
		"stay", res.Cohorts.Stay,
		"new", res.Cohorts.New,
		"other", res.Cohorts.Other)

	if !opts.IncludeNew {
		stream = dropNewDevices(stream)
		log.Info("new-device sessions excluded", "remaining", len(stream))
	}

	res.Events = stream
	log.Info("pipeline finished", "events", len(stream))
	return res, nil
}

// CountSessions returns the number of distinct global session ids.
func CountSessions(events []event.Event) int {
	seen := make(map[int64]struct{}, len(events))
	for _, e := range events {
		seen[e.SessionID] = struct{}{}
	}
	return len(seen)
}

func dropNewDevices(events []event.Event) []event.Event {
	out := make([]event.Event, 0, len(events))
	for _, e := range events {
		if e.IsNew {
			continue
		}
		out = append(out, e)
	}
	return out
}
