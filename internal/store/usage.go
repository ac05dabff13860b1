package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const usageColumns = "id, user_id, month, videos_processed, limit_snapshot, created_at, updated_at"

// GetUsage returns the usage record for a user and month, or nil when no
// record exists yet (a fresh month starts at zero implicitly).
func (s *Store) GetUsage(ctx context.Context, userID, month string) (*UsageRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+usageColumns+` FROM usage_records WHERE user_id = ? AND month = ?`,
		userID,
		month,
	)
	record, err := scanUsage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get usage: %w", err)
	}
	return record, nil
}

// IncrementUsage bumps the consumed-job counter for the month, creating the
// record lazily on first use. The plan limit is snapshotted onto new records
// so later plan changes do not rewrite history.
func (s *Store) IncrementUsage(ctx context.Context, userID, month string, limit int) (*UsageRecord, error) {
	now := timestamp(time.Now())
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx,
			`UPDATE usage_records SET videos_processed = videos_processed + 1, updated_at = ? WHERE user_id = ? AND month = ?`,
			now,
			userID,
			month,
		)
		if err != nil {
			return fmt.Errorf("increment usage: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected > 0 {
			return nil
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO usage_records (id, user_id, month, videos_processed, limit_snapshot, created_at, updated_at)
             VALUES (?, ?, ?, 1, ?, ?, ?)`,
			uuid.NewString(),
			userID,
			month,
			limit,
			now,
			now,
		); err != nil {
			return fmt.Errorf("create usage record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetUsage(ctx, userID, month)
}

func scanUsage(scanner interface{ Scan(dest ...any) error }) (*UsageRecord, error) {
	var (
		id         string
		userID     string
		month      string
		used       int
		limit      int
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&id, &userID, &month, &used, &limit, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	record := &UsageRecord{
		ID:              id,
		UserID:          userID,
		Month:           month,
		VideosProcessed: used,
		LimitSnapshot:   limit,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}
