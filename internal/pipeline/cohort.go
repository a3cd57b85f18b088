package pipeline

import (
	"fmt"
	"time"

	"github.com/roach88/churnpipe/internal/event"
)

// CohortFlags is the per-device retention classification.
//
// The three flags are derived from activity in two reference months and are
// not mutually exclusive by construction: a device active in neither
// reference month carries all three flags false. That case is deliberate,
// not an error.
type CohortFlags struct {
	Lost bool
	Stay bool
	New  bool
}

// CohortStats summarizes a labeling pass.
type CohortStats struct {
	Devices int
	Lost    int
	Stay    int
	New     int
	Other   int // active in neither reference month
}

// ChurnRate is lost / (lost + stay), the share of previously active devices
// that did not return. Zero when no device was active in the first month.
func (s CohortStats) ChurnRate() float64 {
	den := s.Lost + s.Stay
	if den == 0 {
		return 0
	}
	return float64(s.Lost) / float64(den)
}

// ClassifyDevices computes cohort flags per device from the calendar months
// in which the device has at least one event:
//
//	active in prevMonth only  -> Lost
//	active in both            -> Stay
//	active in currMonth only  -> New
//	active in neither         -> all flags false
//
// Pure function of (device id, timestamp); the input is not modified.
func ClassifyDevices(events []event.Event, prevMonth, currMonth time.Month) (map[int64]CohortFlags, CohortStats, error) {
	if len(events) == 0 {
		return nil, CohortStats{}, fmt.Errorf("classify devices: empty event set")
	}

	months := make(map[int64]map[time.Month]struct{})
	for _, e := range events {
		if e.Timestamp.IsZero() {
			continue
		}
		m, ok := months[e.DeviceID]
		if !ok {
			m = make(map[time.Month]struct{})
			months[e.DeviceID] = m
		}
		m[e.Timestamp.Month()] = struct{}{}
	}
	if len(months) == 0 {
		return nil, CohortStats{}, fmt.Errorf("classify devices: no events carry a timestamp")
	}

	flags := make(map[int64]CohortFlags, len(months))
	var stats CohortStats
	stats.Devices = len(months)

	for device, active := range months {
		_, prev := active[prevMonth]
		_, curr := active[currMonth]

		var f CohortFlags
		switch {
		case prev && !curr:
			f.Lost = true
			stats.Lost++
		case prev && curr:
			f.Stay = true
			stats.Stay++
		case !prev && curr:
			f.New = true
			stats.New++
		default:
			stats.Other++
		}
		flags[device] = f
	}
	return flags, stats, nil
}

// LabelCohorts broadcasts per-device cohort flags onto every event of that
// device. Returns an augmented copy; devices missing from flags keep all
// flags false.
func LabelCohorts(events []event.Event, flags map[int64]CohortFlags) []event.Event {
	out := event.Clone(events)
	for i := range out {
		f := flags[out[i].DeviceID]
		out[i].IsLost = f.Lost
		out[i].IsStay = f.Stay
		out[i].IsNew = f.New
	}
	return out
}
