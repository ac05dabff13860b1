package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const assetColumns = "id, job_id, kind, content, status, created_at, updated_at"

// ReplaceAssets removes every asset belonging to the job and inserts the
// provided set in one transaction (full delete-then-recreate semantics for
// reprocessing).
func (s *Store) ReplaceAssets(ctx context.Context, jobID string, assets []ContentAsset) ([]*ContentAsset, error) {
	if jobID == "" {
		return nil, errors.New("job id required")
	}
	now := timestamp(time.Now())
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM content_assets WHERE job_id = ?`, jobID); err != nil {
			return fmt.Errorf("delete assets: %w", err)
		}
		for _, asset := range assets {
			status := asset.Status
			if status == "" {
				status = AssetGenerated
			}
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO content_assets (id, job_id, kind, content, status, created_at, updated_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(),
				jobID,
				asset.Kind,
				asset.Content,
				status,
				now,
				now,
			); err != nil {
				return fmt.Errorf("insert asset %s: %w", asset.Kind, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ListAssetsByJob(ctx, jobID)
}

// UpdateAssetContent replaces a single asset's content in place, leaving
// every other asset for the job untouched.
func (s *Store) UpdateAssetContent(ctx context.Context, id, content string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE content_assets SET content = ?, status = ?, updated_at = ? WHERE id = ?`,
		content,
		AssetGenerated,
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("asset %s not found", id)
	}
	return nil
}

// GetAsset fetches a content asset by identifier.
func (s *Store) GetAsset(ctx context.Context, id string) (*ContentAsset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM content_assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

// ListAssetsByJob returns every asset belonging to a job, oldest first.
func (s *Store) ListAssetsByJob(ctx context.Context, jobID string) ([]*ContentAsset, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+assetColumns+` FROM content_assets WHERE job_id = ? ORDER BY created_at, kind`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*ContentAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

func scanAsset(scanner interface{ Scan(dest ...any) error }) (*ContentAsset, error) {
	var (
		id         string
		jobID      string
		kind       string
		content    string
		status     string
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&id, &jobID, &kind, &content, &status, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	asset := &ContentAsset{
		ID:      id,
		JobID:   jobID,
		Kind:    AssetKind(kind),
		Content: content,
		Status:  AssetStatus(status),
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		asset.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		asset.UpdatedAt = updated
	}
	return asset, nil
}
