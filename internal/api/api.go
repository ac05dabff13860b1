// Package api is the core operations surface shared by the daemon's HTTP
// layer and the CLI: submission, status, quota checks, and targeted asset
// regeneration.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"recast/internal/captions"
	"recast/internal/logging"
	"recast/internal/quota"
	"recast/internal/services"
	"recast/internal/store"
)

// ErrQuotaExceeded marks a submission rejected by the monthly quota.
var ErrQuotaExceeded = errors.New("monthly processing quota exceeded")

// SingleGenerator produces content for one format. *generate.FanOut
// implements it.
type SingleGenerator interface {
	Generate(ctx context.Context, kind store.AssetKind, transcript, title string) (string, error)
}

// QuotaGuard admits submissions against the monthly quota. *quota.Guard
// implements it.
type QuotaGuard interface {
	CanAdmit(ctx context.Context, userID string) (quota.Decision, error)
	Admit(ctx context.Context, userID string) error
}

// SubmitResult identifies an accepted submission.
type SubmitResult struct {
	VideoID string `json:"video_id"`
	JobID   string `json:"job_id"`
}

// Service implements the operations surface.
type Service struct {
	store     *store.Store
	guard     QuotaGuard
	generator SingleGenerator
	logger    *slog.Logger
}

// NewService wires the operations surface.
func NewService(st *store.Store, guard QuotaGuard, generator SingleGenerator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:     st,
		guard:     guard,
		generator: generator,
		logger:    logging.WithComponent(logger, "api"),
	}
}

// SubmitJob validates the reference, checks quota, and enqueues the video.
// Quota is an admission precondition: a rejected submission creates no
// state. Processing happens later on the worker pool.
func (s *Service) SubmitJob(ctx context.Context, sourceRef, workspaceID, userID string) (SubmitResult, error) {
	sourceRef = strings.TrimSpace(sourceRef)
	if sourceRef == "" {
		return SubmitResult{}, services.Wrap(services.ErrValidation, "submit", "validate", "source reference required", nil)
	}
	if workspaceID = strings.TrimSpace(workspaceID); workspaceID == "" {
		return SubmitResult{}, services.Wrap(services.ErrValidation, "submit", "validate", "workspace id required", nil)
	}
	if userID = strings.TrimSpace(userID); userID == "" {
		return SubmitResult{}, services.Wrap(services.ErrValidation, "submit", "validate", "user id required", nil)
	}

	decision, err := s.guard.CanAdmit(ctx, userID)
	if err != nil {
		return SubmitResult{}, err
	}
	if !decision.Allowed {
		return SubmitResult{}, fmt.Errorf("%w: %d of %d used for %s", ErrQuotaExceeded, decision.Processed, decision.Limit, decision.Month)
	}

	sourceURL, sourcePath := "", ""
	if _, ok := captions.ExtractSourceID(sourceRef); ok || strings.Contains(sourceRef, "://") {
		sourceURL = captions.CleanShareURL(sourceRef)
	} else {
		sourcePath = sourceRef
	}

	video, job, err := s.store.CreateSubmission(ctx, workspaceID, sourceURL, sourcePath)
	if err != nil {
		return SubmitResult{}, err
	}
	if err := s.guard.Admit(ctx, userID); err != nil {
		// An unadmitted video must never reach the worker pool.
		if rollbackErr := s.store.DeleteSubmission(ctx, video.ID); rollbackErr != nil {
			s.logger.Error("submission rollback failed",
				logging.String(logging.FieldVideoID, video.ID),
				logging.Error(rollbackErr))
		}
		return SubmitResult{}, err
	}

	s.logger.Info("video submitted",
		logging.String(logging.FieldVideoID, video.ID),
		logging.String(logging.FieldJobID, job.ID),
		logging.String("workspace", workspaceID))
	return SubmitResult{VideoID: video.ID, JobID: job.ID}, nil
}

// GetJobStatus returns a job, or a not-found error.
func (s *Service) GetJobStatus(ctx context.Context, jobID string) (*store.ProcessingJob, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "status", "job", jobID, nil)
	}
	return job, nil
}

// GetVideo returns a submitted video, or a not-found error.
func (s *Service) GetVideo(ctx context.Context, videoID string) (*store.VideoSource, error) {
	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, services.Wrap(services.ErrNotFound, "status", "video", videoID, nil)
	}
	return video, nil
}

// ListAssets returns the generated assets for a job.
func (s *Service) ListAssets(ctx context.Context, jobID string) ([]*store.ContentAsset, error) {
	return s.store.ListAssetsByJob(ctx, jobID)
}

// CheckQuota reports the user's current admission state.
func (s *Service) CheckQuota(ctx context.Context, userID string) (quota.Decision, error) {
	return s.guard.CanAdmit(ctx, userID)
}

// RegenerateAsset re-runs exactly one generator against the job's stored
// transcript and replaces that asset's content in place. Sibling assets are
// untouched.
func (s *Service) RegenerateAsset(ctx context.Context, assetID string) (*store.ContentAsset, error) {
	asset, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, services.Wrap(services.ErrNotFound, "regenerate", "asset", assetID, nil)
	}

	transcript, err := s.store.GetTranscriptByJob(ctx, asset.JobID)
	if err != nil {
		return nil, err
	}
	if transcript == nil {
		return nil, services.Wrap(services.ErrNotFound, "regenerate", "transcript", asset.JobID, nil)
	}

	job, err := s.store.GetJob(ctx, asset.JobID)
	if err != nil {
		return nil, err
	}
	title := ""
	if job != nil {
		if video, videoErr := s.store.GetVideo(ctx, job.VideoSourceID); videoErr == nil && video != nil {
			title = video.Title
		}
	}

	content, err := s.generator.Generate(ctx, asset.Kind, transcript.FullText, title)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateAssetContent(ctx, asset.ID, content); err != nil {
		return nil, err
	}

	s.logger.Info("asset regenerated",
		logging.String("asset_id", asset.ID),
		logging.String("format", string(asset.Kind)))
	return s.store.GetAsset(ctx, asset.ID)
}

// RetryFailed resets failed videos (all, or a selected set) back to PENDING.
func (s *Service) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	return s.store.RetryFailed(ctx, ids...)
}

// Stats returns video counts grouped by status.
func (s *Service) Stats(ctx context.Context) (map[store.VideoStatus]int, error) {
	return s.store.Stats(ctx)
}
