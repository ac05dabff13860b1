package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const videoColumns = "id, workspace_id, source_url, source_path, title, status, error_message, created_at, updated_at"

// CreateSubmission inserts a PENDING video source and its STARTED processing
// job in one transaction, so a submission is never half-recorded.
func (s *Store) CreateSubmission(ctx context.Context, workspaceID, sourceURL, sourcePath string) (*VideoSource, *ProcessingJob, error) {
	if workspaceID == "" {
		return nil, nil, errors.New("workspace id required")
	}
	if sourceURL == "" && sourcePath == "" {
		return nil, nil, errors.New("source url or path required")
	}

	now := timestamp(time.Now())
	videoID := uuid.NewString()
	jobID := uuid.NewString()
	workflowID := uuid.NewString()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO video_sources (id, workspace_id, source_url, source_path, status, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			videoID,
			workspaceID,
			nullableString(sourceURL),
			nullableString(sourcePath),
			VideoPending,
			now,
			now,
		); err != nil {
			return fmt.Errorf("insert video source: %w", err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO processing_jobs (id, video_source_id, workflow_id, status, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			jobID,
			videoID,
			workflowID,
			JobStarted,
			now,
			now,
		); err != nil {
			return fmt.Errorf("insert processing job: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	video, err := s.GetVideo(ctx, videoID)
	if err != nil {
		return nil, nil, err
	}
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	return video, job, nil
}

// DeleteSubmission removes a video source and its jobs. Submission rollback
// only; videos that reached a worker are never deleted.
func (s *Store) DeleteSubmission(ctx context.Context, videoID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM processing_jobs WHERE video_source_id = ?`, videoID); err != nil {
			return fmt.Errorf("delete processing jobs: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM video_sources WHERE id = ?`, videoID); err != nil {
			return fmt.Errorf("delete video source: %w", err)
		}
		return nil
	})
}

// GetVideo fetches a video source by identifier.
func (s *Store) GetVideo(ctx context.Context, id string) (*VideoSource, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM video_sources WHERE id = ?`, id)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// ClaimVideo transitions a video from PENDING to PROCESSING. It returns
// false when another worker already claimed it, so at most one worker runs
// a given video.
func (s *Store) ClaimVideo(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE video_sources SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		VideoProcessing,
		timestamp(time.Now()),
		id,
		VideoPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim video: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SetVideoStatus persists a status transition with an optional error message.
func (s *Store) SetVideoStatus(ctx context.Context, id string, status VideoStatus, errorMessage string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE video_sources SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status,
		nullableString(errorMessage),
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set video status: %w", err)
	}
	return nil
}

// SetVideoTitle records the resolved human-readable title.
func (s *Store) SetVideoTitle(ctx context.Context, id, title string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE video_sources SET title = ?, updated_at = ? WHERE id = ?`,
		nullableString(title),
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set video title: %w", err)
	}
	return nil
}

// ListVideos returns videos filtered by status set (or all when none given),
// oldest first.
func (s *Store) ListVideos(ctx context.Context, statuses ...VideoStatus) ([]*VideoSource, error) {
	query := `SELECT ` + videoColumns + ` FROM video_sources`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*VideoSource
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// RetryFailed moves failed videos (and their jobs) back to the start of the
// pipeline for reprocessing.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	now := timestamp(time.Now())
	var total int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		selectQuery := `SELECT id FROM video_sources WHERE status = ?`
		selectArgs := []any{VideoFailed}
		if len(ids) > 0 {
			selectQuery += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
			for _, id := range ids {
				selectArgs = append(selectArgs, id)
			}
		}
		rows, err := tx.QueryContext(ctx, selectQuery, selectArgs...)
		if err != nil {
			return fmt.Errorf("select failed videos: %w", err)
		}
		var targets []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			targets = append(targets, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(targets) == 0 {
			return nil
		}

		placeholders := makePlaceholders(len(targets))
		targetArgs := make([]any, 0, len(targets))
		for _, id := range targets {
			targetArgs = append(targetArgs, id)
		}

		jobArgs := append([]any{JobStarted, now, JobFailed}, targetArgs...)
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE processing_jobs SET status = ?, error_message = NULL, updated_at = ?
             WHERE status = ? AND video_source_id IN (`+placeholders+`)`,
			jobArgs...,
		); err != nil {
			return fmt.Errorf("retry jobs: %w", err)
		}

		videoArgs := append([]any{VideoPending, now}, targetArgs...)
		res, err := tx.ExecContext(
			ctx,
			`UPDATE video_sources SET status = ?, error_message = NULL, updated_at = ?
             WHERE id IN (`+placeholders+`)`,
			videoArgs...,
		)
		if err != nil {
			return fmt.Errorf("retry videos: %w", err)
		}
		total, err = res.RowsAffected()
		return err
	})
	return total, err
}

func scanVideo(scanner interface{ Scan(dest ...any) error }) (*VideoSource, error) {
	var (
		id           string
		workspaceID  string
		sourceURL    sql.NullString
		sourcePath   sql.NullString
		title        sql.NullString
		statusStr    string
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(&id, &workspaceID, &sourceURL, &sourcePath, &title, &statusStr, &errorMessage, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	video := &VideoSource{
		ID:           id,
		WorkspaceID:  workspaceID,
		SourceURL:    sourceURL.String,
		SourcePath:   sourcePath.String,
		Title:        title.String,
		Status:       VideoStatus(statusStr),
		ErrorMessage: errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		video.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		video.UpdatedAt = updated
	}
	return video, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
