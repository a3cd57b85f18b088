// Package profile summarizes an event log for exploratory inspection
// before a pipeline run. It answers the questions an analyst asks first:
// how many rows and devices, what date range, which screens dominate, and
// how the cohort split looks under the configured reference months.
package profile

import (
	"fmt"
	"sort"
	"time"

	"github.com/roach88/churnpipe/internal/event"
	"github.com/roach88/churnpipe/internal/pipeline"
)

// topN bounds the screen and functional rankings.
const topN = 10

// Entry is one ranked label with its event count.
type Entry struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary is the profile of one event log.
type Summary struct {
	Rows           int        `json:"rows"`
	Devices        int        `json:"devices"`
	Sessions       int        `json:"sessions"`
	FirstEvent     *time.Time `json:"first_event,omitempty"`
	LastEvent      *time.Time `json:"last_event,omitempty"`
	BadTimestamps  int        `json:"bad_timestamps"`
	SentinelEvents int        `json:"sentinel_events"`

	TopScreens     []Entry `json:"top_screens"`
	TopFunctionals []Entry `json:"top_functionals"`

	Cohorts   pipeline.CohortStats `json:"cohorts"`
	ChurnRate float64              `json:"churn_rate"`
}

// Build profiles the raw event stream. The stream does not need session
// ids or durations; profiling runs before the pipeline.
func Build(events []event.Event, prevMonth, currMonth time.Month) (*Summary, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("profile: empty event set")
	}

	s := &Summary{Rows: len(events)}

	devices := make(map[int64]struct{})
	sessions := make(map[[2]int64]struct{})
	screens := make(map[string]int)
	functionals := make(map[string]int)

	for _, e := range events {
		devices[e.DeviceID] = struct{}{}
		sessions[[2]int64{e.DeviceID, e.SessionNum}] = struct{}{}
		screens[e.Screen]++
		functionals[e.Functional]++

		if e.Action == event.ActionUnspecified {
			s.SentinelEvents++
		}
		if e.Timestamp.IsZero() {
			s.BadTimestamps++
			continue
		}
		if s.FirstEvent == nil || e.Timestamp.Before(*s.FirstEvent) {
			t := e.Timestamp
			s.FirstEvent = &t
		}
		if s.LastEvent == nil || e.Timestamp.After(*s.LastEvent) {
			t := e.Timestamp
			s.LastEvent = &t
		}
	}
	s.Devices = len(devices)
	s.Sessions = len(sessions)
	s.TopScreens = rank(screens)
	s.TopFunctionals = rank(functionals)

	_, cohorts, err := pipeline.ClassifyDevices(events, prevMonth, currMonth)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	s.Cohorts = cohorts
	s.ChurnRate = cohorts.ChurnRate()

	return s, nil
}

// rank returns the topN labels by count, ties broken by label so the
// output is stable.
func rank(counts map[string]int) []Entry {
	entries := make([]Entry, 0, len(counts))
	for label, count := range counts {
		entries = append(entries, Entry{Label: label, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Label < entries[j].Label
	})
	if len(entries) > topN {
		entries = entries[:topN]
	}
	return entries
}
