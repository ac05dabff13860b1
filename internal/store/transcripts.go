package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const transcriptColumns = "id, job_id, full_text, segments_json, summary, chapters_json, language, method, created_at, updated_at"

// ReplaceTranscript writes the transcript for a job, overwriting any
// previous one. Reprocessing must replace, never duplicate.
func (s *Store) ReplaceTranscript(ctx context.Context, transcript *Transcript) (*Transcript, error) {
	if transcript == nil {
		return nil, errors.New("transcript is nil")
	}
	if transcript.JobID == "" {
		return nil, errors.New("transcript job id required")
	}

	segmentsJSON, err := marshalOrEmpty(transcript.Segments)
	if err != nil {
		return nil, fmt.Errorf("marshal segments: %w", err)
	}
	chaptersJSON, err := marshalOrEmpty(transcript.Chapters)
	if err != nil {
		return nil, fmt.Errorf("marshal chapters: %w", err)
	}

	now := timestamp(time.Now())
	id := uuid.NewString()
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO transcripts (id, job_id, full_text, segments_json, summary, chapters_json, language, method, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (job_id) DO UPDATE SET
             full_text = excluded.full_text,
             segments_json = excluded.segments_json,
             summary = excluded.summary,
             chapters_json = excluded.chapters_json,
             language = excluded.language,
             method = excluded.method,
             updated_at = excluded.updated_at`,
		id,
		transcript.JobID,
		transcript.FullText,
		nullableString(segmentsJSON),
		nullableString(transcript.Summary),
		nullableString(chaptersJSON),
		nullableString(transcript.Language),
		transcript.Method,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("replace transcript: %w", err)
	}
	return s.GetTranscriptByJob(ctx, transcript.JobID)
}

// GetTranscriptByJob fetches the transcript owned by a job, or nil.
func (s *Store) GetTranscriptByJob(ctx context.Context, jobID string) (*Transcript, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transcriptColumns+` FROM transcripts WHERE job_id = ?`, jobID)
	transcript, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return transcript, nil
}

func scanTranscript(scanner interface{ Scan(dest ...any) error }) (*Transcript, error) {
	var (
		id           string
		jobID        string
		fullText     string
		segmentsJSON sql.NullString
		summary      sql.NullString
		chaptersJSON sql.NullString
		language     sql.NullString
		method       string
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(&id, &jobID, &fullText, &segmentsJSON, &summary, &chaptersJSON, &language, &method, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	transcript := &Transcript{
		ID:       id,
		JobID:    jobID,
		FullText: fullText,
		Summary:  summary.String,
		Language: language.String,
		Method:   TranscriptMethod(method),
	}
	if segmentsJSON.Valid && segmentsJSON.String != "" {
		if err := json.Unmarshal([]byte(segmentsJSON.String), &transcript.Segments); err != nil {
			return nil, fmt.Errorf("decode segments: %w", err)
		}
	}
	if chaptersJSON.Valid && chaptersJSON.String != "" {
		if err := json.Unmarshal([]byte(chaptersJSON.String), &transcript.Chapters); err != nil {
			return nil, fmt.Errorf("decode chapters: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		transcript.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		transcript.UpdatedAt = updated
	}
	return transcript, nil
}

func marshalOrEmpty(value any) (string, error) {
	switch v := value.(type) {
	case []Segment:
		if len(v) == 0 {
			return "", nil
		}
	case []Chapter:
		if len(v) == 0 {
			return "", nil
		}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
