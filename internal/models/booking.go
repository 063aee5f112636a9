package models

import "time"

// BookingStatus is the lifecycle status of a booking. A booking is created
// WAITING and moves exactly once to APPROVED or REJECTED.
type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
)

// Terminal reports whether the status permits no further transition.
func (s BookingStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Booking is a time-bounded reservation of an item by a user, subject to
// owner approval. Start/End are immutable after creation.
type Booking struct {
	ID        int64         `json:"id"`
	ItemID    int64         `json:"item_id"`
	BookerID  int64         `json:"booker_id"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Timeframe is the derived position of a booking relative to a moment in
// time. Computed for filtering and display, never persisted.
type Timeframe string

const (
	TimeframePast    Timeframe = "PAST"
	TimeframeCurrent Timeframe = "CURRENT"
	TimeframeFuture  Timeframe = "FUTURE"
)

// ClassifyAt places the booking in exactly one timeframe. Boundaries count
// as CURRENT so the three timeframes partition the timeline with no gap.
func (b *Booking) ClassifyAt(now time.Time) Timeframe {
	switch {
	case b.End.Before(now):
		return TimeframePast
	case b.Start.After(now):
		return TimeframeFuture
	default:
		return TimeframeCurrent
	}
}
