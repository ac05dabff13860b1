package store

import (
	"strings"
	"time"
)

// VideoStatus represents the lifecycle of a submitted video.
type VideoStatus string

const (
	VideoPending    VideoStatus = "PENDING"
	VideoProcessing VideoStatus = "PROCESSING"
	VideoCompleted  VideoStatus = "COMPLETED"
	VideoFailed     VideoStatus = "FAILED"
)

var allVideoStatuses = []VideoStatus{VideoPending, VideoProcessing, VideoCompleted, VideoFailed}

// JobStatus represents the lifecycle of one processing attempt.
type JobStatus string

const (
	JobStarted   JobStatus = "STARTED"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// AssetKind enumerates the content formats the fan-out produces.
type AssetKind string

const (
	AssetBlogPost         AssetKind = "BLOG_POST"
	AssetTwitterThread    AssetKind = "TWITTER_THREAD"
	AssetLinkedInPost     AssetKind = "LINKEDIN_POST"
	AssetTikTokScript     AssetKind = "TIKTOK_SCRIPT"
	AssetInstagramCaption AssetKind = "INSTAGRAM_CAPTION"
	AssetVideoSummary     AssetKind = "VIDEO_SUMMARY"
)

// AllAssetKinds returns the ordered list of generated formats.
func AllAssetKinds() []AssetKind {
	return []AssetKind{
		AssetBlogPost,
		AssetTwitterThread,
		AssetLinkedInPost,
		AssetTikTokScript,
		AssetInstagramCaption,
		AssetVideoSummary,
	}
}

// AssetStatus represents the publishing lifecycle of a content asset.
type AssetStatus string

const (
	AssetGenerated AssetStatus = "GENERATED"
	AssetPublished AssetStatus = "PUBLISHED"
	AssetArchived  AssetStatus = "ARCHIVED"
)

// TranscriptMethod tags how a transcript was acquired.
type TranscriptMethod string

const (
	MethodDirectCaption TranscriptMethod = "direct-caption"
	MethodSpeechToText  TranscriptMethod = "speech-to-text"
)

// Plan names recognized by the quota guard. Unknown plans fall back to FREE.
const (
	PlanFree       = "FREE"
	PlanPro        = "PRO"
	PlanEnterprise = "ENTERPRISE"
)

// VideoSource is the persisted record for one submitted video.
type VideoSource struct {
	ID           string      `json:"id"`
	WorkspaceID  string      `json:"workspace_id"`
	SourceURL    string      `json:"source_url,omitempty"`
	SourcePath   string      `json:"source_path,omitempty"`
	Title        string      `json:"title,omitempty"`
	Status       VideoStatus `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ProcessingJob is one pipeline attempt for a VideoSource.
type ProcessingJob struct {
	ID            string    `json:"id"`
	VideoSourceID string    `json:"video_source_id"`
	WorkflowID    string    `json:"workflow_id"`
	Status        JobStatus `json:"status"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Segment is one time-aligned transcript paragraph.
type Segment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// Chapter is one auto-generated chapter marker from speech-to-text.
type Chapter struct {
	Headline string `json:"headline"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// Transcript is the 1:1 transcript owned by a ProcessingJob.
type Transcript struct {
	ID        string           `json:"id"`
	JobID     string           `json:"job_id"`
	FullText  string           `json:"full_text"`
	Segments  []Segment        `json:"segments,omitempty"`
	Summary   string           `json:"summary,omitempty"`
	Chapters  []Chapter        `json:"chapters,omitempty"`
	Language  string           `json:"language,omitempty"`
	Method    TranscriptMethod `json:"method"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ContentAsset is one generated artifact for one target format.
type ContentAsset struct {
	ID        string      `json:"id"`
	JobID     string      `json:"job_id"`
	Kind      AssetKind   `json:"kind"`
	Content   string      `json:"content"`
	Status    AssetStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// UsageRecord tracks per-user monthly processing counts. LimitSnapshot is
// the plan-derived limit captured at increment time.
type UsageRecord struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Month           string    `json:"month"`
	VideosProcessed int       `json:"videos_processed"`
	LimitSnapshot   int       `json:"limit_snapshot"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// User is the minimal projection needed for admission decisions.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}

// ParseVideoStatus converts a string into a known VideoStatus.
func ParseVideoStatus(value string) (VideoStatus, bool) {
	normalized := VideoStatus(strings.ToUpper(strings.TrimSpace(value)))
	for _, status := range allVideoStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// ParseAssetKind converts a string into a known AssetKind.
func ParseAssetKind(value string) (AssetKind, bool) {
	normalized := AssetKind(strings.ToUpper(strings.TrimSpace(value)))
	for _, kind := range AllAssetKinds() {
		if kind == normalized {
			return kind, true
		}
	}
	return "", false
}

// Terminal reports whether the video reached a final state.
func (s VideoStatus) Terminal() bool {
	return s == VideoCompleted || s == VideoFailed
}

// Terminal reports whether the job reached a final state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}
