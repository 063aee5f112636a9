package service

import (
	"context"
	"fmt"
	"time"

	"lendhub/internal/domain"
	"lendhub/internal/events"
	"lendhub/internal/metrics"
	"lendhub/internal/models"

	"github.com/rs/zerolog"
)

// BookingService is the booking lifecycle engine. It owns validation order,
// the WAITING -> {APPROVED, REJECTED} state machine and the listing query
// contract; durable state lives behind the injected store interfaces.
type BookingService struct {
	store  domain.BookingStore
	items  domain.ItemDirectory
	users  domain.UserDirectory
	clock  domain.Clock
	bus    domain.EventPublisher
	worker domain.SyncWorker
	cache  domain.AnnotationCache
	logger *zerolog.Logger
}

func NewBookingService(
	store domain.BookingStore,
	items domain.ItemDirectory,
	users domain.UserDirectory,
	clock domain.Clock,
	bus domain.EventPublisher,
	worker domain.SyncWorker,
	cache domain.AnnotationCache,
	logger *zerolog.Logger,
) *BookingService {
	if clock == nil {
		clock = SystemClock()
	}
	return &BookingService{
		store:  store,
		items:  items,
		users:  users,
		clock:  clock,
		bus:    bus,
		worker: worker,
		cache:  cache,
		logger: logger,
	}
}

// Create validates and persists a new WAITING booking. The checks run in a
// fixed order so a request violating several rules reports the same error
// every time: item lookup, user lookup, owner check, time range,
// availability.
func (s *BookingService) Create(ctx context.Context, itemID, requesterID int64, start, end time.Time) (*models.Booking, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetUser(ctx, requesterID); err != nil {
		return nil, err
	}
	if requesterID == item.OwnerID {
		return nil, domain.WithID(domain.ErrOwnerBooking, itemID)
	}
	if !start.Before(end) {
		return nil, domain.ErrInvalidTimeRange
	}
	if !item.Available {
		return nil, domain.WithID(domain.ErrItemUnavailable, itemID)
	}

	booking := &models.Booking{
		ItemID:   itemID,
		BookerID: requesterID,
		Start:    start,
		End:      end,
		Status:   models.StatusWaiting,
	}
	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	metrics.IncBookingCreated()
	s.publishEvent(ctx, events.EventBookingCreated, booking, item.OwnerID)
	s.enqueueUpsert(ctx, booking)
	s.invalidateAnnotation(ctx, itemID)

	return booking, nil
}

// Decide lets the item owner approve or reject a WAITING booking. Decisions
// are final; a repeated call fails even with the same verdict. The store
// write is a compare-and-swap, so of two concurrent decisions exactly one
// wins.
func (s *BookingService) Decide(ctx context.Context, bookingID, deciderID int64, approve bool) (*models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	item, err := s.items.GetItem(ctx, booking.ItemID)
	if err != nil {
		return nil, err
	}
	if deciderID != item.OwnerID {
		return nil, domain.WithID(domain.ErrNotAuthorized, deciderID)
	}
	if booking.Status != models.StatusWaiting {
		return nil, domain.WithID(domain.ErrAlreadyDecided, bookingID)
	}

	status := models.StatusRejected
	if approve {
		status = models.StatusApproved
	}
	if err := s.store.DecideBooking(ctx, bookingID, status); err != nil {
		return nil, err
	}
	booking.Status = status

	metrics.IncBookingDecided(string(status))
	eventType := events.EventBookingRejected
	if approve {
		eventType = events.EventBookingApproved
	}
	s.publishEvent(ctx, eventType, booking, item.OwnerID)
	s.enqueueStatus(ctx, booking)
	s.invalidateAnnotation(ctx, booking.ItemID)

	return booking, nil
}

// Get returns a booking to its booker or the item's owner; anyone else is
// refused. Pure read.
func (s *BookingService) Get(ctx context.Context, viewerID, bookingID int64) (*models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.BookerID == viewerID {
		return booking, nil
	}
	item, err := s.items.GetItem(ctx, booking.ItemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID == viewerID {
		return booking, nil
	}
	return nil, domain.WithID(domain.ErrNotAuthorized, viewerID)
}

// ListForBooker returns the caller's bookings filtered by state, newest
// start first.
func (s *BookingService) ListForBooker(ctx context.Context, userID int64, state string, from, size int) ([]*models.Booking, error) {
	bookState, now, offset, err := s.prepareListing(ctx, userID, state, from, size)
	if err != nil {
		return nil, err
	}
	return s.store.ListByBooker(ctx, userID, bookState, now, size, offset)
}

// ListForOwner returns bookings of all items the caller owns, filtered by
// state, newest start first.
func (s *BookingService) ListForOwner(ctx context.Context, userID int64, state string, from, size int) ([]*models.Booking, error) {
	bookState, now, offset, err := s.prepareListing(ctx, userID, state, from, size)
	if err != nil {
		return nil, err
	}
	return s.store.ListByOwner(ctx, userID, bookState, now, size, offset)
}

// prepareListing runs the shared listing checks: pagination bounds before
// anything else, then the state token, then caller existence. now is
// sampled once here so CURRENT's two comparisons cannot drift.
func (s *BookingService) prepareListing(ctx context.Context, userID int64, state string, from, size int) (models.BookState, time.Time, int, error) {
	if from < 0 || size < 1 {
		return "", time.Time{}, 0, domain.ErrInvalidPagination
	}
	bookState, ok := models.ParseBookState(state)
	if !ok {
		return "", time.Time{}, 0, fmt.Errorf("%w: %s", domain.ErrUnknownState, state)
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return "", time.Time{}, 0, err
	}
	offset := (from / size) * size
	return bookState, s.clock.Now(), offset, nil
}

func (s *BookingService) publishEvent(ctx context.Context, eventType string, booking *models.Booking, ownerID int64) {
	if s.bus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		ItemID:    booking.ItemID,
		OwnerID:   ownerID,
		BookerID:  booking.BookerID,
		Status:    string(booking.Status),
		Start:     booking.Start,
		End:       booking.End,
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueUpsert(ctx context.Context, booking *models.Booking) {
	if s.worker == nil {
		return
	}
	if err := s.worker.EnqueueUpsert(ctx, booking); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("sync enqueue error")
	}
}

func (s *BookingService) enqueueStatus(ctx context.Context, booking *models.Booking) {
	if s.worker == nil {
		return
	}
	if err := s.worker.EnqueueStatus(ctx, booking.ID, booking.Status); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("sync enqueue error")
	}
}

func (s *BookingService) invalidateAnnotation(ctx context.Context, itemID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAnnotation(ctx, itemID); err != nil {
		s.logger.Warn().Err(err).Int64("item_id", itemID).Msg("annotation cache invalidate error")
	}
}
