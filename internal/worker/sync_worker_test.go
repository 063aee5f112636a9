package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"lendhub/internal/database"
	"lendhub/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSheetClient struct {
	mock.Mock
}

func (m *mockSheetClient) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *mockSheetClient) UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error {
	args := m.Called(ctx, bookingID, status)
	return args.Error(0)
}

func setupWorkerDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestWorker(t *testing.T, db *database.DB, sheets SheetClient, redisClient *redis.Client) *SyncWorker {
	t.Helper()
	logger := zerolog.Nop()
	return NewSyncWorker(db, sheets, redisClient, RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2,
	}, &logger)
}

func TestSyncWorker_EnqueueUpsert(t *testing.T) {
	db := setupWorkerDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	w := newTestWorker(t, db, new(mockSheetClient), client)
	ctx := context.Background()

	booking := &models.Booking{ID: 77, ItemID: 10, BookerID: 2, Status: models.StatusWaiting}
	require.NoError(t, w.EnqueueUpsert(ctx, booking))

	t.Run("task is persisted", func(t *testing.T) {
		tasks, err := db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, TaskUpsert, tasks[0].TaskType)
		assert.Equal(t, int64(77), tasks[0].BookingID)
	})

	t.Run("task is scheduled on the redis queue", func(t *testing.T) {
		raw, err := client.LRange(ctx, w.redisQueueKey, 0, -1).Result()
		require.NoError(t, err)
		require.Len(t, raw, 1)

		var task models.SyncTask
		require.NoError(t, json.Unmarshal([]byte(raw[0]), &task))
		assert.Equal(t, int64(77), task.BookingID)
	})

	t.Run("nil booking is refused", func(t *testing.T) {
		assert.Error(t, w.EnqueueUpsert(ctx, nil))
		assert.Error(t, w.EnqueueUpsert(ctx, &models.Booking{}))
	})
}

func TestSyncWorker_EnqueueWithoutRedisUsesMemoryQueue(t *testing.T) {
	db := setupWorkerDB(t)
	w := newTestWorker(t, db, new(mockSheetClient), nil)
	ctx := context.Background()

	require.NoError(t, w.EnqueueStatus(ctx, 77, models.StatusApproved))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	assert.Equal(t, TaskUpdateStatus, task.TaskType)
	assert.Equal(t, int64(77), task.BookingID)
}

func TestSyncWorker_ProcessTask(t *testing.T) {
	ctx := context.Background()

	t.Run("successful upsert completes the task", func(t *testing.T) {
		db := setupWorkerDB(t)
		sheets := new(mockSheetClient)
		w := newTestWorker(t, db, sheets, nil)

		booking := &models.Booking{ID: 77, ItemID: 10, Status: models.StatusWaiting}
		require.NoError(t, w.EnqueueUpsert(ctx, booking))
		tasks, err := db.GetPendingSyncTasks(ctx, 1)
		require.NoError(t, err)
		require.Len(t, tasks, 1)

		sheets.On("UpsertBooking", ctx, mock.MatchedBy(func(b *models.Booking) bool {
			return b.ID == 77
		})).Return(nil).Once()

		w.processTask(ctx, &tasks[0])

		remaining, err := db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, remaining)
		sheets.AssertExpectations(t)
	})

	t.Run("status update reaches the sheet", func(t *testing.T) {
		db := setupWorkerDB(t)
		sheets := new(mockSheetClient)
		w := newTestWorker(t, db, sheets, nil)

		require.NoError(t, w.EnqueueStatus(ctx, 77, models.StatusApproved))
		tasks, err := db.GetPendingSyncTasks(ctx, 1)
		require.NoError(t, err)
		require.Len(t, tasks, 1)

		sheets.On("UpdateBookingStatus", ctx, int64(77), "APPROVED").Return(nil).Once()
		w.processTask(ctx, &tasks[0])
		sheets.AssertExpectations(t)
	})

	t.Run("failure schedules a retry", func(t *testing.T) {
		db := setupWorkerDB(t)
		sheets := new(mockSheetClient)
		w := newTestWorker(t, db, sheets, nil)

		require.NoError(t, w.EnqueueStatus(ctx, 77, models.StatusApproved))
		tasks, err := db.GetPendingSyncTasks(ctx, 1)
		require.NoError(t, err)
		require.Len(t, tasks, 1)

		sheets.On("UpdateBookingStatus", ctx, int64(77), "APPROVED").
			Return(errors.New("sheet unreachable")).Once()
		w.processTask(ctx, &tasks[0])

		// The retry becomes visible once next_retry_at elapses.
		time.Sleep(5 * time.Millisecond)
		retried, err := db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		require.Len(t, retried, 1)
		assert.Equal(t, 1, retried[0].RetryCount)
		assert.Equal(t, "sheet unreachable", retried[0].LastError)
	})

	t.Run("exhausted retries fail the task and dead-letter it", func(t *testing.T) {
		db := setupWorkerDB(t)
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })

		sheets := new(mockSheetClient)
		w := newTestWorker(t, db, sheets, client)

		require.NoError(t, w.EnqueueStatus(ctx, 77, models.StatusApproved))
		tasks, err := db.GetPendingSyncTasks(ctx, 1)
		require.NoError(t, err)
		require.Len(t, tasks, 1)

		task := tasks[0]
		task.RetryCount = 2 // next failure is the third and last attempt

		sheets.On("UpdateBookingStatus", ctx, int64(77), "APPROVED").
			Return(errors.New("sheet unreachable")).Once()
		w.processTask(ctx, &task)

		remaining, err := db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, remaining)

		dead, err := client.LLen(ctx, w.deadLetterKey).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), dead)
	})

	t.Run("garbage payload fails immediately", func(t *testing.T) {
		db := setupWorkerDB(t)
		w := newTestWorker(t, db, new(mockSheetClient), nil)

		task := models.SyncTask{ID: 1, TaskType: TaskUpsert, Payload: "{not json"}
		require.NoError(t, db.CreateSyncTask(ctx, &task))
		w.processTask(ctx, &task)

		remaining, err := db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, remaining)
	})
}
