package booth

import "era-photobooth/internal/session"

type EventType string

const (
	EventThemeSelected  EventType = "theme_selected"
	EventAttemptStarted EventType = "attempt_started"
	EventAttemptFailed  EventType = "attempt_failed"
	EventComposited     EventType = "composited"
	EventReset          EventType = "reset"
	EventRestarted      EventType = "restarted"
	EventRetouched      EventType = "retouched"
)

// Event reports a session transition. Err carries the failure message for
// EventAttemptFailed and EventReset only.
type Event struct {
	Type    EventType
	State   session.State
	Attempt int
	Err     string
}

// Listener must return quickly; it is called on the orchestrator's goroutine.
type Listener func(Event)

// Listeners fans one event out to several listeners in order.
func Listeners(ls ...Listener) Listener {
	return func(ev Event) {
		for _, l := range ls {
			if l != nil {
				l(ev)
			}
		}
	}
}
