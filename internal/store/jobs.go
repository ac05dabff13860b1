package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, video_source_id, workflow_id, status, error_message, created_at, updated_at"

// GetJob fetches a processing job by identifier.
func (s *Store) GetJob(ctx context.Context, id string) (*ProcessingJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM processing_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetJobByVideo fetches the most recent job for a video source.
func (s *Store) GetJobByVideo(ctx context.Context, videoID string) (*ProcessingJob, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM processing_jobs WHERE video_source_id = ? ORDER BY created_at DESC LIMIT 1`,
		videoID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job by video: %w", err)
	}
	return job, nil
}

// NextRunnable returns the oldest STARTED job whose video is still PENDING.
// Workers call ClaimVideo afterwards; the claim, not this read, is what
// prevents two workers from running the same job.
func (s *Store) NextRunnable(ctx context.Context) (*ProcessingJob, *VideoSource, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+prefixColumns("j", jobColumns)+`
         FROM processing_jobs j
         JOIN video_sources v ON v.id = j.video_source_id
         WHERE j.status = ? AND v.status = ?
         ORDER BY j.created_at LIMIT 1`,
		JobStarted,
		VideoPending,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("next runnable job: %w", err)
	}
	video, err := s.GetVideo(ctx, job.VideoSourceID)
	if err != nil {
		return nil, nil, err
	}
	return job, video, nil
}

// SetJobStatus persists a job status transition with an optional error message.
func (s *Store) SetJobStatus(ctx context.Context, id string, status JobStatus, errorMessage string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE processing_jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status,
		nullableString(errorMessage),
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set job status: %w", err)
	}
	return nil
}

// ListJobs returns jobs filtered by status set (or all when none given),
// oldest first.
func (s *Store) ListJobs(ctx context.Context, statuses ...JobStatus) ([]*ProcessingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM processing_jobs`
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
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*ProcessingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns a count of videos grouped by status.
func (s *Store) Stats(ctx context.Context) (map[VideoStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM video_sources GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("video stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[VideoStatus]int)
	for rows.Next() {
		var status VideoStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*ProcessingJob, error) {
	var (
		id           string
		videoID      string
		workflowID   string
		statusStr    string
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(&id, &videoID, &workflowID, &statusStr, &errorMessage, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	job := &ProcessingJob{
		ID:            id,
		VideoSourceID: videoID,
		WorkflowID:    workflowID,
		Status:        JobStatus(statusStr),
		ErrorMessage:  errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func prefixColumns(alias, columns string) string {
	out := ""
	for i, col := range splitColumns(columns) {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + col
	}
	return out
}

func splitColumns(columns string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(columns); i++ {
		if i == len(columns) || columns[i] == ',' {
			col := columns[start:i]
			for len(col) > 0 && col[0] == ' ' {
				col = col[1:]
			}
			if col != "" {
				out = append(out, col)
			}
			start = i + 1
		}
	}
	return out
}
