package pipeline

import (
	"time"

	"github.com/roach88/churnpipe/internal/event"
)

// at returns an instant sec seconds into a fixed reference minute.
func at(sec int) time.Time {
	return time.Date(2025, 9, 29, 10, 0, 0, 0, time.UTC).Add(time.Duration(sec) * time.Second)
}

// atMonth returns an instant inside the given month of 2025.
func atMonth(m time.Month, device int64) time.Time {
	return time.Date(2025, m, 10, 12, 0, int(device), 0, time.UTC)
}

// evt builds a raw event.
func evt(device, sess int64, t time.Time, screen, functional, action string) event.Event {
	return event.Event{
		DeviceID:   device,
		SessionNum: sess,
		Timestamp:  t,
		Screen:     screen,
		Functional: functional,
		Action:     action,
	}
}

// prepared assigns session ids to a raw fixture, failing the test on error
// is left to the caller; stages under test require ids to exist.
func prepared(events []event.Event) []event.Event {
	out, err := AssignSessionIDs(events)
	if err != nil {
		panic(err)
	}
	return out
}
