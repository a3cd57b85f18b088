package pipeline

import (
	"fmt"
	"sort"

	"github.com/roach88/churnpipe/internal/event"
)

// sessionPair is the device-local session identity.
type sessionPair struct {
	deviceID   int64
	sessionNum int64
}

// AssignSessionIDs gives every event a global session id.
//
// The distinct (device id, session number) pairs are sorted ascending and
// numbered 1..N; the numbering is then joined back onto every event. Two
// events share a global session id iff they share the pair, and the mapping
// is injective over distinct pairs. Ids are assigned once and never change.
//
// Returns a new slice sorted canonically by (session id, timestamp).
func AssignSessionIDs(events []event.Event) ([]event.Event, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("assign session ids: empty event set")
	}

	distinct := make(map[sessionPair]struct{}, len(events))
	for _, e := range events {
		distinct[sessionPair{e.DeviceID, e.SessionNum}] = struct{}{}
	}

	pairs := make([]sessionPair, 0, len(distinct))
	for p := range distinct {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].deviceID != pairs[j].deviceID {
			return pairs[i].deviceID < pairs[j].deviceID
		}
		return pairs[i].sessionNum < pairs[j].sessionNum
	})

	ids := make(map[sessionPair]int64, len(pairs))
	for i, p := range pairs {
		ids[p] = int64(i + 1)
	}

	out := event.Clone(events)
	for i := range out {
		out[i].SessionID = ids[sessionPair{out[i].DeviceID, out[i].SessionNum}]
	}
	event.SortCanonical(out)
	return out, nil
}

// requireSessionIDs is the structural precondition shared by every stage
// that partitions by session: all events must carry an assigned id.
func requireSessionIDs(events []event.Event) error {
	if len(events) == 0 {
		return fmt.Errorf("empty event set")
	}
	for i := range events {
		if events[i].SessionID <= 0 {
			return fmt.Errorf("event %d has no global session id; run AssignSessionIDs first", i)
		}
	}
	return nil
}
