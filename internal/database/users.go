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

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (name, email, created_at, updated_at) VALUES (?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, user.Name, user.Email, formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, name, email, created_at, updated_at FROM users WHERE id = ?`

	var user models.User
	var createdAt, updatedAt string
	err := db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Email, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WithID(domain.ErrUserNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse user created_at: %w", err)
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse user updated_at: %w", err)
	}
	return &user, nil
}

func (db *DB) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	query := `SELECT id, name, email, created_at, updated_at FROM users ORDER BY id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		var createdAt, updatedAt string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if u.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse user created_at: %w", err)
		}
		if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse user updated_at: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
