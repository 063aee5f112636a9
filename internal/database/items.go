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

func (db *DB) CreateItem(ctx context.Context, item *models.Item) error {
	query := `INSERT INTO items (owner_id, name, description, available, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		item.OwnerID, item.Name, item.Description, item.Available, formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func (db *DB) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	query := `SELECT id, owner_id, name, description, available, created_at, updated_at
              FROM items WHERE id = ?`

	var item models.Item
	var createdAt, updatedAt string
	err := db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.OwnerID, &item.Name, &item.Description, &item.Available,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WithID(domain.ErrItemNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse item created_at: %w", err)
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse item updated_at: %w", err)
	}
	return &item, nil
}

func (db *DB) UpdateItem(ctx context.Context, item *models.Item) error {
	query := `UPDATE items SET name = ?, description = ?, available = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query,
		item.Name, item.Description, item.Available, formatTime(time.Now()), item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.WithID(domain.ErrItemNotFound, item.ID)
	}
	return nil
}

func (db *DB) ListItemsByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.Item, error) {
	query := `SELECT id, owner_id, name, description, available, created_at, updated_at
              FROM items WHERE owner_id = ? ORDER BY id LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list items by owner: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		it := &models.Item{}
		var createdAt, updatedAt string
		if err := rows.Scan(&it.ID, &it.OwnerID, &it.Name, &it.Description, &it.Available,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if it.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse item created_at: %w", err)
		}
		if it.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse item updated_at: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
