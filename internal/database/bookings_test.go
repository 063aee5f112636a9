package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lendhub/internal/domain"
	"lendhub/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB, name string) int64 {
	t.Helper()
	user := &models.User{Name: name, Email: name + "@example.com"}
	require.NoError(t, db.CreateUser(context.Background(), user))
	return user.ID
}

func seedItem(t *testing.T, db *DB, ownerID int64, name string) int64 {
	t.Helper()
	item := &models.Item{OwnerID: ownerID, Name: name, Available: true}
	require.NoError(t, db.CreateItem(context.Background(), item))
	return item.ID
}

func seedBooking(t *testing.T, db *DB, itemID, bookerID int64, start, end time.Time, status models.BookingStatus) int64 {
	t.Helper()
	b := &models.Booking{ItemID: itemID, BookerID: bookerID, Start: start, End: end, Status: status}
	require.NoError(t, db.CreateBooking(context.Background(), b))
	return b.ID
}

func TestCreateAndGetBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	booker := seedUser(t, db, "booker")
	itemID := seedItem(t, db, owner, "drill")

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	id := seedBooking(t, db, itemID, booker, start, end, models.StatusWaiting)

	got, err := db.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, itemID, got.ItemID)
	assert.Equal(t, booker, got.BookerID)
	assert.Equal(t, models.StatusWaiting, got.Status)
	assert.True(t, got.Start.Equal(start))
	assert.True(t, got.End.Equal(end))
}

func TestGetBooking_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetBooking(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	assert.Equal(t, domain.KindNotFound, domain.ErrorKind(err))
}

func TestDecideBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	booker := seedUser(t, db, "booker")
	itemID := seedItem(t, db, owner, "drill")
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	id := seedBooking(t, db, itemID, booker, start, start.Add(time.Hour), models.StatusWaiting)

	t.Run("approves a waiting booking", func(t *testing.T) {
		require.NoError(t, db.DecideBooking(ctx, id, models.StatusApproved))

		got, err := db.GetBooking(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, got.Status)
	})

	t.Run("second decision fails even with same verdict", func(t *testing.T) {
		err := db.DecideBooking(ctx, id, models.StatusApproved)
		assert.ErrorIs(t, err, domain.ErrAlreadyDecided)
	})

	t.Run("unknown id reports already decided", func(t *testing.T) {
		err := db.DecideBooking(ctx, 999, models.StatusRejected)
		assert.ErrorIs(t, err, domain.ErrAlreadyDecided)
	})
}

func TestDecideBooking_ConcurrentExactlyOneWins(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	booker := seedUser(t, db, "booker")
	itemID := seedItem(t, db, owner, "drill")
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	id := seedBooking(t, db, itemID, booker, start, start.Add(time.Hour), models.StatusWaiting)

	const attempts = 8
	statuses := []models.BookingStatus{models.StatusApproved, models.StatusRejected}
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = db.DecideBooking(ctx, id, statuses[i%2])
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.True(t, errors.Is(err, domain.ErrAlreadyDecided), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)

	got, err := db.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Status.Terminal())
}

func TestListByBooker_StateFilters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	booker := seedUser(t, db, "booker")
	other := seedUser(t, db, "other")
	itemID := seedItem(t, db, owner, "drill")

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	past := seedBooking(t, db, itemID, booker, now.Add(-48*time.Hour), now.Add(-24*time.Hour), models.StatusApproved)
	current := seedBooking(t, db, itemID, booker, now.Add(-time.Hour), now.Add(time.Hour), models.StatusApproved)
	future := seedBooking(t, db, itemID, booker, now.Add(24*time.Hour), now.Add(48*time.Hour), models.StatusWaiting)
	rejected := seedBooking(t, db, itemID, booker, now.Add(72*time.Hour), now.Add(96*time.Hour), models.StatusRejected)
	seedBooking(t, db, itemID, other, now.Add(-time.Hour), now.Add(time.Hour), models.StatusApproved)

	ids := func(bookings []*models.Booking) []int64 {
		out := make([]int64, 0, len(bookings))
		for _, b := range bookings {
			out = append(out, b.ID)
		}
		return out
	}

	t.Run("ALL returns everything newest start first", func(t *testing.T) {
		got, err := db.ListByBooker(ctx, booker, models.StateAll, now, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{rejected, future, current, past}, ids(got))
	})

	t.Run("PAST uses strict end before now", func(t *testing.T) {
		got, err := db.ListByBooker(ctx, booker, models.StatePast, now, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{past}, ids(got))
	})

	t.Run("FUTURE uses strict start after now", func(t *testing.T) {
		got, err := db.ListByBooker(ctx, booker, models.StateFuture, now, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{rejected, future}, ids(got))
	})

	t.Run("CURRENT brackets now strictly", func(t *testing.T) {
		got, err := db.ListByBooker(ctx, booker, models.StateCurrent, now, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{current}, ids(got))
	})

	t.Run("WAITING filters on status", func(t *testing.T) {
		got, err := db.ListByBooker(ctx, booker, models.StateWaiting, now, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{future}, ids(got))
	})

	t.Run("REJECTED filters on status", func(t *testing.T) {
		got, err := db.ListByBooker(ctx, booker, models.StateRejected, now, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{rejected}, ids(got))
	})

	t.Run("booking ending exactly at now is not PAST", func(t *testing.T) {
		edge := seedBooking(t, db, itemID, booker, now.Add(-2*time.Hour), now, models.StatusApproved)
		got, err := db.ListByBooker(ctx, booker, models.StatePast, now, 10, 0)
		require.NoError(t, err)
		assert.NotContains(t, ids(got), edge)
	})

	t.Run("limit and offset page the result", func(t *testing.T) {
		got, err := db.ListByBooker(ctx, booker, models.StateAll, now, 2, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, rejected, got[0].ID)

		got, err = db.ListByBooker(ctx, booker, models.StateAll, now, 2, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, current, got[0].ID)
	})
}

func TestListByOwner(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	otherOwner := seedUser(t, db, "other-owner")
	booker := seedUser(t, db, "booker")
	itemA := seedItem(t, db, owner, "drill")
	itemB := seedItem(t, db, owner, "tent")
	foreign := seedItem(t, db, otherOwner, "projector")

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	a := seedBooking(t, db, itemA, booker, now.Add(-time.Hour), now.Add(time.Hour), models.StatusApproved)
	b := seedBooking(t, db, itemB, booker, now.Add(24*time.Hour), now.Add(48*time.Hour), models.StatusWaiting)
	seedBooking(t, db, foreign, booker, now.Add(-time.Hour), now.Add(time.Hour), models.StatusApproved)

	got, err := db.ListByOwner(ctx, owner, models.StateAll, now, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, b, got[0].ID)
	assert.Equal(t, a, got[1].ID)

	got, err = db.ListByOwner(ctx, owner, models.StateCurrent, now, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a, got[0].ID)

	got, err = db.ListByOwner(ctx, otherOwner, models.StateWaiting, now, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindForItemExcludingStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	booker := seedUser(t, db, "booker")
	itemID := seedItem(t, db, owner, "drill")
	otherItem := seedItem(t, db, owner, "tent")

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	kept := seedBooking(t, db, itemID, booker, now.Add(-time.Hour), now.Add(time.Hour), models.StatusApproved)
	waiting := seedBooking(t, db, itemID, booker, now.Add(time.Hour), now.Add(2*time.Hour), models.StatusWaiting)
	seedBooking(t, db, itemID, booker, now.Add(3*time.Hour), now.Add(4*time.Hour), models.StatusRejected)
	seedBooking(t, db, otherItem, booker, now.Add(-time.Hour), now.Add(time.Hour), models.StatusApproved)

	got, err := db.FindForItemExcludingStatus(ctx, itemID, models.StatusRejected)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, kept, got[0].ID)
	assert.Equal(t, waiting, got[1].ID)
}

func TestFindApprovedForUserAndItemStartingBefore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	booker := seedUser(t, db, "booker")
	itemID := seedItem(t, db, owner, "drill")

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	started := seedBooking(t, db, itemID, booker, now.Add(-24*time.Hour), now.Add(-23*time.Hour), models.StatusApproved)
	seedBooking(t, db, itemID, booker, now.Add(time.Hour), now.Add(2*time.Hour), models.StatusApproved)
	seedBooking(t, db, itemID, booker, now.Add(-2*time.Hour), now.Add(-time.Hour), models.StatusWaiting)

	got, err := db.FindApprovedForUserAndItemStartingBefore(ctx, booker, itemID, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, started, got[0].ID)

	t.Run("booking starting exactly at now does not qualify", func(t *testing.T) {
		seedBooking(t, db, itemID, booker, now, now.Add(time.Hour), models.StatusApproved)
		got, err := db.FindApprovedForUserAndItemStartingBefore(ctx, booker, itemID, now)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}
