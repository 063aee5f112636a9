package models

import "time"

// Item is a thing a user has listed for sharing. Available gates new
// bookings; the owner is the only user who may decide them.
type Item struct {
	ID          int64     `json:"id" yaml:"id"`
	OwnerID     int64     `json:"owner_id" yaml:"owner_id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Available   bool      `json:"available" yaml:"available"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

// ItemBookings is the derived last/next annotation for an item. Either
// pointer may be nil. It is returned as a value next to the item rather than
// written onto a shared Item instance.
type ItemBookings struct {
	Last *Booking `json:"last_booking,omitempty"`
	Next *Booking `json:"next_booking,omitempty"`
}

// Annotate partitions non-rejected bookings of one item around now:
// last is the latest start strictly before now, next is the earliest start
// strictly after now. A booking starting exactly at now lands in neither.
// Equal starts are broken by lower id so the result is deterministic.
func Annotate(bookings []*Booking, now time.Time) ItemBookings {
	var ann ItemBookings
	for _, b := range bookings {
		switch {
		case b.Start.Before(now):
			if ann.Last == nil || b.Start.After(ann.Last.Start) ||
				(b.Start.Equal(ann.Last.Start) && b.ID < ann.Last.ID) {
				ann.Last = b
			}
		case b.Start.After(now):
			if ann.Next == nil || b.Start.Before(ann.Next.Start) ||
				(b.Start.Equal(ann.Next.Start) && b.ID < ann.Next.ID) {
				ann.Next = b
			}
		}
	}
	return ann
}
