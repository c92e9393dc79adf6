package session

import "time"

// Holder binds a Session to the current logical execution scope, optionally
// with a deadline inherited from a surrounding transaction or request. The
// template reads holders but never binds one itself; whichever layer opened
// the session owns binding and closing it.
type Holder struct {
	session  Session
	deadline time.Time
}

// NewHolder wraps an already-open session with no deadline.
func NewHolder(s Session) *Holder {
	return &Holder{session: s}
}

// NewHolderWithDeadline wraps an already-open session that must finish its
// work by the given instant.
func NewHolderWithDeadline(s Session, deadline time.Time) *Holder {
	return &Holder{session: s, deadline: deadline}
}

// Session returns the bound session.
func (h *Holder) Session() Session { return h.session }

// HasDeadline reports whether a deadline was set.
func (h *Holder) HasDeadline() bool { return !h.deadline.IsZero() }

// TimeToLive returns the time remaining until the deadline. It returns zero
// when no deadline is set and never returns a negative duration; an expired
// deadline yields the smallest positive duration so downstream timeouts
// still trip immediately instead of being dropped.
func (h *Holder) TimeToLive() time.Duration {
	if !h.HasDeadline() {
		return 0
	}
	ttl := time.Until(h.deadline)
	if ttl <= 0 {
		return time.Nanosecond
	}
	return ttl
}
