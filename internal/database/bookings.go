package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lendhub/internal/domain"
	"lendhub/internal/models"
)

const bookingColumns = `id, item_id, booker_id, start_at, end_at, status, created_at, updated_at`

func scanBooking(scan func(...any) error) (*models.Booking, error) {
	b := &models.Booking{}
	var startAt, endAt, createdAt, updatedAt string
	err := scan(&b.ID, &b.ItemID, &b.BookerID, &startAt, &endAt, &b.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if b.Start, err = parseTime(startAt); err != nil {
		return nil, fmt.Errorf("failed to parse booking start_at: %w", err)
	}
	if b.End, err = parseTime(endAt); err != nil {
		return nil, fmt.Errorf("failed to parse booking end_at: %w", err)
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse booking created_at: %w", err)
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse booking updated_at: %w", err)
	}
	return b, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (item_id, booker_id, start_at, end_at, status, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		booking.ItemID,
		booking.BookerID,
		formatTime(booking.Start),
		formatTime(booking.End),
		booking.Status,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	row := db.QueryRowContext(ctx, query, id)
	b, err := scanBooking(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WithID(domain.ErrBookingNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// DecideBooking flips a WAITING booking to its terminal status. The WHERE
// clause doubles as a compare-and-swap: of two concurrent decisions exactly
// one updates a row, the other observes zero rows and fails.
func (db *DB) DecideBooking(ctx context.Context, id int64, status models.BookingStatus) error {
	query := `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, status, formatTime(time.Now()), id, models.StatusWaiting)
	if err != nil {
		return fmt.Errorf("failed to decide booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.WithID(domain.ErrAlreadyDecided, id)
	}
	return nil
}

func (db *DB) ListByBooker(ctx context.Context, bookerID int64, state models.BookState, now time.Time, limit, offset int) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booker_id = ?`
	args := []any{bookerID}
	query, args = appendStateFilter(query, args, state, now, "")
	query += ` ORDER BY start_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	return db.queryBookings(ctx, query, args...)
}

func (db *DB) ListByOwner(ctx context.Context, ownerID int64, state models.BookState, now time.Time, limit, offset int) ([]*models.Booking, error) {
	query := `SELECT b.id, b.item_id, b.booker_id, b.start_at, b.end_at, b.status, b.created_at, b.updated_at
              FROM bookings b JOIN items i ON b.item_id = i.id WHERE i.owner_id = ?`
	args := []any{ownerID}
	query, args = appendStateFilter(query, args, state, now, "b.")
	query += ` ORDER BY b.start_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	return db.queryBookings(ctx, query, args...)
}

// appendStateFilter adds the predicate for one listing state. The temporal
// states use strict inequalities against the single now the caller sampled.
func appendStateFilter(query string, args []any, state models.BookState, now time.Time, prefix string) (string, []any) {
	switch state {
	case models.StateAll:
	case models.StatePast:
		query += ` AND ` + prefix + `end_at < ?`
		args = append(args, formatTime(now))
	case models.StateFuture:
		query += ` AND ` + prefix + `start_at > ?`
		args = append(args, formatTime(now))
	case models.StateCurrent:
		query += ` AND ` + prefix + `start_at < ? AND ` + prefix + `end_at > ?`
		args = append(args, formatTime(now), formatTime(now))
	case models.StateWaiting:
		query += ` AND ` + prefix + `status = ?`
		args = append(args, models.StatusWaiting)
	case models.StateRejected:
		query += ` AND ` + prefix + `status = ?`
		args = append(args, models.StatusRejected)
	}
	return query, args
}

func (db *DB) FindForItemExcludingStatus(ctx context.Context, itemID int64, status models.BookingStatus) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE item_id = ? AND status != ? ORDER BY start_at`
	return db.queryBookings(ctx, query, itemID, status)
}

func (db *DB) FindApprovedForUserAndItemStartingBefore(ctx context.Context, userID, itemID int64, now time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE booker_id = ? AND item_id = ? AND status = ? AND start_at < ?`
	return db.queryBookings(ctx, query, userID, itemID, models.StatusApproved, formatTime(now))
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
