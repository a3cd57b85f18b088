package event

import (
	"sort"
	"time"
)

// ActionUnspecified is the sentinel action recorded when the source log has
// no action for an event. Runs of sentinel events carry screen-dwell signal
// but no interaction signal; the collapsing stages treat them specially.
const ActionUnspecified = "Не указано"

// Event is one interaction record from the mobile app log, annotated by the
// pipeline as it moves through the stages.
//
// DeviceID and SessionNum form the device-local session identity. SessionID
// is the global session id assigned by AssignSessionIDs; it is zero until
// assigned and never changes afterwards.
type Event struct {
	DeviceID   int64
	SessionNum int64

	// Timestamp is the parsed event instant. The zero time marks a value
	// that could not be parsed from the source (coerced, not fatal).
	Timestamp time.Time

	Screen     string
	Functional string
	Action     string

	// Device context, passed through untouched.
	Manufacturer string
	Model        string
	DeviceType   string
	OS           string

	// User context joined from the users table. Age is nil when the user
	// record has no age or the device has no user record.
	Age    *int
	Gender string

	// SessionID is the global session id (1..N), 0 = unassigned.
	SessionID int64

	// Duration is the gap to the next event in the same session, in whole
	// seconds. The last event of a session has Duration 0 by convention.
	Duration int64

	// ClickCount is the number of meaningful (non-sentinel) actions merged
	// into this event by run collapsing, floored at 1.
	ClickCount int64

	// DblDuration and DblCount are diagnostics from run collapsing: the
	// summed duration and the number of the removed run members.
	DblDuration int64
	DblCount    int64

	// Cohort flags, identical on every event of a device once labeled.
	IsLost bool
	IsStay bool
	IsNew  bool
}

// User is one record from the raw users table.
type User struct {
	DeviceID int64
	Age      *int
	Gender   string
}

// Key returns the (screen, functional, action) triple used for run
// collapsing and taxonomy lookup.
func (e Event) Key() [3]string {
	return [3]string{e.Screen, e.Functional, e.Action}
}

// SortCanonical sorts events ascending by (SessionID, Timestamp) using a
// stable sort so that equal-timestamp events keep their source order. This
// is the one ordering every windowed stage depends on.
func SortCanonical(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].SessionID != events[j].SessionID {
			return events[i].SessionID < events[j].SessionID
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}

// SortByIdentity sorts events ascending by (DeviceID, SessionNum, Timestamp).
// Used before global session ids exist.
func SortByIdentity(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].DeviceID != events[j].DeviceID {
			return events[i].DeviceID < events[j].DeviceID
		}
		if events[i].SessionNum != events[j].SessionNum {
			return events[i].SessionNum < events[j].SessionNum
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}

// Clone returns a copy of the slice. Stages that annotate events copy first
// so a failed stage never leaves the caller's slice half-updated.
func Clone(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	return out
}
