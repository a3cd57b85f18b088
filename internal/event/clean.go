package event

import (
	"fmt"
)

// CleanStats counts rows removed or repaired by Clean.
type CleanStats struct {
	DuplicatesRemoved int
	MissingTimestamp  int
}

// Clean returns a cleaned copy of the raw event log:
//
//   - exact duplicate rows (all raw fields equal) are dropped, keeping the
//     first occurrence
//   - rows whose timestamp could not be parsed are dropped and counted;
//     every later stage requires a real instant
//
// Clean never mutates its input. An input that cleans down to nothing is a
// structural error: no downstream stage can operate on an empty log.
func Clean(events []Event) ([]Event, CleanStats, error) {
	var stats CleanStats

	type rawKey struct {
		ts         int64
		deviceID   int64
		sessionNum int64
		screen     string
		functional string
		action     string
	}
	seen := make(map[rawKey]struct{}, len(events))

	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Timestamp.IsZero() {
			stats.MissingTimestamp++
			continue
		}
		k := rawKey{
			ts:         e.Timestamp.Unix(),
			deviceID:   e.DeviceID,
			sessionNum: e.SessionNum,
			screen:     e.Screen,
			functional: e.Functional,
			action:     e.Action,
		}
		if _, dup := seen[k]; dup {
			stats.DuplicatesRemoved++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}

	if len(out) == 0 {
		return nil, stats, fmt.Errorf("no events remain after cleaning (%d duplicates, %d missing timestamps)",
			stats.DuplicatesRemoved, stats.MissingTimestamp)
	}
	return out, stats, nil
}

// JoinUsers attaches age and gender from the users table to every event of
// the matching device. Events without a user record are kept unchanged;
// the join is context enrichment, not a filter. Returns a new slice.
func JoinUsers(events []Event, users []User) []Event {
	byDevice := make(map[int64]User, len(users))
	for _, u := range users {
		if _, ok := byDevice[u.DeviceID]; !ok {
			byDevice[u.DeviceID] = u
		}
	}

	out := Clone(events)
	for i := range out {
		u, ok := byDevice[out[i].DeviceID]
		if !ok {
			continue
		}
		out[i].Age = u.Age
		out[i].Gender = u.Gender
	}
	return out
}
