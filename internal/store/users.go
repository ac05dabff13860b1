package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const userColumns = "id, email, plan, created_at"

// CreateUser inserts a user with the given plan and returns the stored row.
func (s *Store) CreateUser(ctx context.Context, email, plan string) (*User, error) {
	if email == "" {
		return nil, errors.New("email required")
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (id, email, plan, created_at) VALUES (?, ?, ?, ?)`,
		id,
		email,
		plan,
		timestamp(time.Now()),
	); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser fetches a user by identifier, returning nil when absent.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*User, error) {
	var (
		id         string
		email      string
		plan       string
		createdRaw string
	)
	if err := scanner.Scan(&id, &email, &plan, &createdRaw); err != nil {
		return nil, err
	}
	user := &User{ID: id, Email: email, Plan: plan}
	if created, err := parseTimeString(createdRaw); err == nil {
		user.CreatedAt = created
	}
	return user, nil
}
