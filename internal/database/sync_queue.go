package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lendhub/internal/models"
)

func (db *DB) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	query := `INSERT INTO sync_queue (task_type, booking_id, payload, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		task.TaskType,
		task.BookingID,
		task.Payload,
		task.Status,
		task.RetryCount,
		task.LastError,
		formatTime(now),
		nullableTime(task.NextRetryAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create sync task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	return nil
}

func (db *DB) GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error) {
	query := `SELECT id, task_type, booking_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at
              FROM sync_queue
              WHERE status IN ('pending', 'retry') AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC LIMIT ?`
	rows, err := db.QueryContext(ctx, query, formatTime(time.Now()), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending sync tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.SyncTask
	for rows.Next() {
		t, err := scanSyncTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (db *DB) UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var query string
	var args []interface{}
	now := time.Now()

	switch status {
	case "retry":
		query = `UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []interface{}{status, errMsg, nullableTime(nextRetryAt), id}
	case "completed", "failed":
		query = `UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, nullableTime(nextRetryAt), formatTime(now), id}
	default:
		query = `UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, nullableTime(nextRetryAt), id}
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update sync task status: %w", err)
	}
	return nil
}

func scanSyncTask(rows *sql.Rows) (models.SyncTask, error) {
	var t models.SyncTask
	var lastError sql.NullString
	var createdAt string
	var processedAt, nextRetryAt sql.NullString
	err := rows.Scan(
		&t.ID, &t.TaskType, &t.BookingID, &t.Payload, &t.Status, &t.RetryCount,
		&lastError, &createdAt, &processedAt, &nextRetryAt,
	)
	if err != nil {
		return t, fmt.Errorf("failed to scan sync task: %w", err)
	}
	t.LastError = lastError.String
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return t, fmt.Errorf("failed to parse sync task created_at: %w", err)
	}
	if processedAt.Valid {
		ts, err := parseTime(processedAt.String)
		if err != nil {
			return t, fmt.Errorf("failed to parse sync task processed_at: %w", err)
		}
		t.ProcessedAt = &ts
	}
	if nextRetryAt.Valid {
		ts, err := parseTime(nextRetryAt.String)
		if err != nil {
			return t, fmt.Errorf("failed to parse sync task next_retry_at: %w", err)
		}
		t.NextRetryAt = &ts
	}
	return t, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
