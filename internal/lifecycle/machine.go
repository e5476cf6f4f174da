package lifecycle

import (
	"github.com/pkg/errors"
)

// Status represents the lifecycle state of a quote
type Status string

// Quote statuses
const (
	StatusUnsent   Status = "unsent"
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusInReview Status = "in_review"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// Event represents an action that can move a quote between statuses
type Event string

// Quote lifecycle events
const (
	EventEdit    Event = "edit"
	EventSend    Event = "send"
	EventReview  Event = "review"
	EventApprove Event = "approve"
	EventReject  Event = "reject"
	EventExpire  Event = "expire"
)

// ErrInvalidTransition is returned when an event is not allowed from the
// current status. The quote must not be mutated when this is returned.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrQuoteExpired is returned when a client action is attempted after the
// expiry date has passed, regardless of the stored status.
var ErrQuoteExpired = errors.New("quote has expired")

// transitions is the closed transition table. Any (status, event) pair not
// present here is rejected.
var transitions = map[Status]map[Event]Status{
	StatusUnsent: {
		EventEdit:   StatusDraft,
		EventSend:   StatusSent,
		EventExpire: StatusExpired,
	},
	StatusDraft: {
		EventEdit:   StatusDraft,
		EventSend:   StatusSent,
		EventExpire: StatusExpired,
	},
	StatusSent: {
		EventReview:  StatusInReview,
		EventApprove: StatusApproved,
		EventReject:  StatusRejected,
		EventExpire:  StatusExpired,
	},
	StatusInReview: {
		EventApprove: StatusApproved,
		EventReject:  StatusRejected,
		EventExpire:  StatusExpired,
	},
}

// Next returns the status reached by applying event to from. It returns
// ErrInvalidTransition when the pair is not in the transition table.
func Next(from Status, event Event) (Status, error) {
	events, ok := transitions[from]
	if !ok {
		return from, errors.Wrapf(ErrInvalidTransition, "no transitions from status %q", from)
	}

	to, ok := events[event]
	if !ok {
		return from, errors.Wrapf(ErrInvalidTransition, "event %q not allowed from status %q", event, from)
	}

	return to, nil
}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusExpired
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUnsent, StatusDraft, StatusSent, StatusInReview,
		StatusApproved, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// ClientEvent reports whether the event is driven by the quote's client
// rather than the vendor. Client events are subject to the expiry-date
// guard.
func (e Event) ClientEvent() bool {
	return e == EventReview || e == EventApprove || e == EventReject
}

// NonTerminal returns the set of statuses a quote can still expire from.
func NonTerminal() []Status {
	return []Status{StatusUnsent, StatusDraft, StatusSent, StatusInReview}
}

// Statuses returns every known status.
func Statuses() []Status {
	return []Status{
		StatusUnsent, StatusDraft, StatusSent, StatusInReview,
		StatusApproved, StatusRejected, StatusExpired,
	}
}

// Events returns every known event.
func Events() []Event {
	return []Event{EventEdit, EventSend, EventReview, EventApprove, EventReject, EventExpire}
}

// ParseEvent converts a wire value into an Event.
func ParseEvent(s string) (Event, error) {
	e := Event(s)
	for _, known := range Events() {
		if e == known {
			return e, nil
		}
	}
	return "", errors.Errorf("unknown event %q", s)
}
