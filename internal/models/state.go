package models

// BookState selects which bookings a listing call returns. ALL applies no
// extra filter; CURRENT/PAST/FUTURE compare against a single "now" sampled
// by the caller; WAITING/REJECTED filter on status.
type BookState string

const (
	StateAll      BookState = "ALL"
	StateCurrent  BookState = "CURRENT"
	StatePast     BookState = "PAST"
	StateFuture   BookState = "FUTURE"
	StateWaiting  BookState = "WAITING"
	StateRejected BookState = "REJECTED"
)

// ParseBookState maps a raw caller value to a BookState. The bool is false
// for anything outside the closed set.
func ParseBookState(raw string) (BookState, bool) {
	switch BookState(raw) {
	case StateAll, StateCurrent, StatePast, StateFuture, StateWaiting, StateRejected:
		return BookState(raw), true
	default:
		return "", false
	}
}
