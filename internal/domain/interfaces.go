package domain

import (
	"context"
	"time"

	"lendhub/internal/models"
)

// Clock supplies the current time. Engine operations sample it exactly once
// per call and thread that value through every comparison.
type Clock interface {
	Now() time.Time
}

// BookingStore persists bookings and answers the temporal/status-filtered
// query shapes the lifecycle engine needs. Listing queries order by start
// descending and apply offset/limit themselves.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	// DecideBooking sets the status of a WAITING booking. It reports
	// ErrAlreadyDecided when the row was concurrently decided.
	DecideBooking(ctx context.Context, id int64, status models.BookingStatus) error

	ListByBooker(ctx context.Context, bookerID int64, state models.BookState, now time.Time, limit, offset int) ([]*models.Booking, error)
	ListByOwner(ctx context.Context, ownerID int64, state models.BookState, now time.Time, limit, offset int) ([]*models.Booking, error)

	FindForItemExcludingStatus(ctx context.Context, itemID int64, status models.BookingStatus) ([]*models.Booking, error)
	FindApprovedForUserAndItemStartingBefore(ctx context.Context, userID, itemID int64, now time.Time) ([]*models.Booking, error)
}

// ItemDirectory is the engine's read/write boundary with item records.
type ItemDirectory interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	ListItemsByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.Item, error)
}

// UserDirectory resolves user existence for the engine.
type UserDirectory interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
}

// CommentStore persists item comments.
type CommentStore interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	ListCommentsForItem(ctx context.Context, itemID int64) ([]*models.Comment, error)
}

// EventPublisher fans a serialized event out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// AnnotationCache holds short-lived last/next annotations per item so
// repeated listings do not recompute them. Stale reads are acceptable.
type AnnotationCache interface {
	GetAnnotation(ctx context.Context, itemID int64) (*models.ItemBookings, error)
	SetAnnotation(ctx context.Context, itemID int64, ann *models.ItemBookings) error
	InvalidateAnnotation(ctx context.Context, itemID int64) error
}

// SyncWorker accepts booking-mirror tasks for asynchronous processing.
type SyncWorker interface {
	EnqueueUpsert(ctx context.Context, booking *models.Booking) error
	EnqueueStatus(ctx context.Context, bookingID int64, status models.BookingStatus) error
}
