package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lendhub/internal/database"
	"lendhub/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskUpsert       = "upsert"
	TaskUpdateStatus = "update_status"
)

// taskPayload is persisted in SyncTask.Payload as JSON.
type taskPayload struct {
	BookingID int64           `json:"booking_id"`
	Booking   *models.Booking `json:"booking,omitempty"`
	Status    string          `json:"status,omitempty"`
}

// SheetClient applies booking changes to the mirror sheet.
type SheetClient interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error
}

// SyncWorker consumes sync_queue tasks and mirrors bookings to the sheet.
// Tasks are persisted to SQLite first, then scheduled via Redis or the
// in-memory channel; the DB poll picks up anything both paths dropped.
type SyncWorker struct {
	db            *database.DB
	sheets        SheetClient
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
}

// NewSyncWorker builds a worker with sane defaults.
func NewSyncWorker(db *database.DB, sheets SheetClient, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SyncWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &SyncWorker{
		db:            db,
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.SyncTask, 128),
		redisQueueKey: "sheet_sync:queue",
		deadLetterKey: "sheet_sync:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		logger:        logger,
	}
}

// EnqueueUpsert schedules mirroring of a full booking row.
func (w *SyncWorker) EnqueueUpsert(ctx context.Context, booking *models.Booking) error {
	if booking == nil || booking.ID == 0 {
		return errors.New("booking id is required")
	}
	return w.enqueue(ctx, TaskUpsert, taskPayload{BookingID: booking.ID, Booking: booking})
}

// EnqueueStatus schedules a status-only mirror update.
func (w *SyncWorker) EnqueueStatus(ctx context.Context, bookingID int64, status models.BookingStatus) error {
	if bookingID == 0 || status == "" {
		return errors.New("booking id and status are required")
	}
	return w.enqueue(ctx, TaskUpdateStatus, taskPayload{BookingID: bookingID, Status: string(status)})
}

func (w *SyncWorker) enqueue(ctx context.Context, taskType string, payload taskPayload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	syncTask := models.SyncTask{
		TaskType:  taskType,
		BookingID: payload.BookingID,
		Payload:   string(payloadBytes),
		Status:    "pending",
	}

	if err := w.db.CreateSyncTask(ctx, &syncTask); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	// Try redis first for durability.
	if w.redis != nil {
		if err := w.pushRedis(ctx, syncTask); err != nil {
			w.logger.Warn().Err(err).Msg("sync_worker: redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- syncTask:
	default:
		w.logger.Warn().Int64("task_id", syncTask.ID).Msg("sync_worker: in-memory queue full, task left for polling")
	}

	return nil
}

// Start launches the main loop; stops when ctx is done.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sync_worker: started")
	defer w.logger.Info().Msg("sync_worker: stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.db.GetPendingSyncTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("sync_worker: fetch pending")
			w.sleep(ctx)
			continue
		}
		if len(tasks) == 0 {
			w.sleep(ctx)
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *SyncWorker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pollInterval):
	}
}

func (w *SyncWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SyncWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, redis.Nil) {
			return models.SyncTask{}, false
		}
		w.logger.Error().Err(err).Msg("sync_worker: redis BRPOP error")
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("sync_worker: decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SyncWorker) processTask(ctx context.Context, task *models.SyncTask) {
	var payload taskPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.handleTask(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "completed", "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sync_worker: mark completed")
	}
}

func (w *SyncWorker) handleTask(ctx context.Context, taskType string, payload taskPayload) error {
	switch taskType {
	case TaskUpsert:
		if payload.Booking == nil {
			return errors.New("booking payload missing")
		}
		return w.sheets.UpsertBooking(ctx, payload.Booking)
	case TaskUpdateStatus:
		if payload.BookingID == 0 || payload.Status == "" {
			return errors.New("booking id or status missing")
		}
		return w.sheets.UpdateBookingStatus(ctx, payload.BookingID, payload.Status)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *SyncWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "failed", cause.Error(), nil); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sync_worker: mark failed")
		}
		w.pushDeadLetter(ctx, task)
		return
	}

	nextTime := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "retry", cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sync_worker: mark retry")
	}
}

func (w *SyncWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "failed", cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sync_worker: mark failed")
	}
	w.pushDeadLetter(ctx, task)
}

func (w *SyncWorker) pushRedis(ctx context.Context, task models.SyncTask) error {
	if w.redis == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *SyncWorker) pushDeadLetter(ctx context.Context, task *models.SyncTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sync_worker: encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sync_worker: deadletter push")
	}
}
