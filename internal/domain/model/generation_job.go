package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"social-video-orchestrator/internal/domain"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// InputSpec is the immutable description of what to generate. ImagePath and
// ImageMIME are set together for image-conditioned jobs and reference an
// object previously uploaded to the transient uploads prefix.
type InputSpec struct {
	Title     string `json:"title"`
	Prompt    string `json:"prompt"`
	ImagePath string `json:"image_path,omitempty"`
	ImageMIME string `json:"image_mime,omitempty"`
}

// GenerationParams is the provider configuration snapshot taken at submission
// time. Empty enum fields mean "provider default" and are omitted from the
// outgoing request.
type GenerationParams struct {
	AspectRatio     string `json:"aspect_ratio"`
	DurationSeconds int    `json:"duration_seconds"`
	SampleCount     int    `json:"sample_count"`
	Seed            int32  `json:"seed,omitempty"`
	Style           string `json:"style,omitempty"`
	CameraMotion    string `json:"camera_motion,omitempty"`
	Lighting        string `json:"lighting,omitempty"`
	ColorTone       string `json:"color_tone,omitempty"`
}

// OperationState mirrors the provider's long-running operation. Name is
// assigned once at submission and never reassigned; Payload holds the raw
// status document from the last poll.
type OperationState struct {
	Name    string `json:"name,omitempty"`
	Done    bool   `json:"done"`
	Payload []byte `json:"payload,omitempty"`
}

type Artifact struct {
	Path         string    `json:"path"`
	FileName     string    `json:"file_name"`
	URL          string    `json:"url"`
	URLExpiresAt time.Time `json:"url_expires_at"`
	SizeBytes    int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type"`
}

type ProcessingInfo struct {
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Attempts     int        `json:"attempts"`
}

// GenerationJob tracks one video synthesis request through its lifecycle.
// Artifact is non-nil iff Status == completed; Processing.ErrorMessage is
// non-empty iff Status == failed.
type GenerationJob struct {
	ID         string           `json:"id"`
	OwnerID    string           `json:"owner_id"`
	Input      InputSpec        `json:"input"`
	Params     GenerationParams `json:"params"`
	Status     JobStatus        `json:"status"`
	Operation  OperationState   `json:"operation"`
	Artifact   *Artifact        `json:"artifact,omitempty"`
	Processing ProcessingInfo   `json:"processing"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

const (
	MinPromptLen = 10
	MaxPromptLen = 1000

	MinDurationSeconds = 1
	MaxDurationSeconds = 20

	MinSampleCount = 1
	MaxSampleCount = 4

	MaxSeed = 999_999_999
)

var aspectRatios = map[string]bool{
	"16:9": true,
	"1:1":  true,
	"9:16": true,
}

var styles = map[string]bool{
	"cinematic":   true,
	"realistic":   true,
	"animated":    true,
	"documentary": true,
	"vintage":     true,
}

var cameraMotions = map[string]bool{
	"static":    true,
	"pan_left":  true,
	"pan_right": true,
	"zoom_in":   true,
	"zoom_out":  true,
	"dolly":     true,
	"aerial":    true,
}

var lightings = map[string]bool{
	"natural":     true,
	"dramatic":    true,
	"soft":        true,
	"golden_hour": true,
	"studio":      true,
}

var colorTones = map[string]bool{
	"vibrant":    true,
	"muted":      true,
	"monochrome": true,
	"warm":       true,
	"cool":       true,
}

var imageMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// AllowedImageMIME reports whether the content type is accepted for
// reference-image uploads.
func AllowedImageMIME(mime string) bool {
	return imageMIMEs[strings.ToLower(strings.TrimSpace(mime))]
}

func (in InputSpec) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidArgument)
	}
	if l := len(strings.TrimSpace(in.Prompt)); l < MinPromptLen || l > MaxPromptLen {
		return fmt.Errorf("%w: prompt must be %d-%d characters", domain.ErrInvalidArgument, MinPromptLen, MaxPromptLen)
	}
	// Image fields travel as a pair; a half-set pair is a precondition
	// failure, not something the orchestrator can retry.
	if (in.ImagePath == "") != (in.ImageMIME == "") {
		return domain.ErrMissingInputImage
	}
	if in.ImageMIME != "" && !AllowedImageMIME(in.ImageMIME) {
		return fmt.Errorf("%w: unsupported image type %q", domain.ErrInvalidArgument, in.ImageMIME)
	}
	return nil
}

func (p GenerationParams) Validate() error {
	if !aspectRatios[p.AspectRatio] {
		return fmt.Errorf("%w: aspect ratio %q (want 16:9, 1:1 or 9:16)", domain.ErrInvalidArgument, p.AspectRatio)
	}
	if p.DurationSeconds < MinDurationSeconds || p.DurationSeconds > MaxDurationSeconds {
		return fmt.Errorf("%w: duration must be %d-%ds", domain.ErrInvalidArgument, MinDurationSeconds, MaxDurationSeconds)
	}
	if p.SampleCount < MinSampleCount || p.SampleCount > MaxSampleCount {
		return fmt.Errorf("%w: sample count must be %d-%d", domain.ErrInvalidArgument, MinSampleCount, MaxSampleCount)
	}
	if p.Seed < 0 || p.Seed > MaxSeed {
		return fmt.Errorf("%w: seed must be 1-%d", domain.ErrInvalidArgument, MaxSeed)
	}
	if p.Style != "" && !styles[p.Style] {
		return fmt.Errorf("%w: unknown style %q", domain.ErrInvalidArgument, p.Style)
	}
	if p.CameraMotion != "" && !cameraMotions[p.CameraMotion] {
		return fmt.Errorf("%w: unknown camera motion %q", domain.ErrInvalidArgument, p.CameraMotion)
	}
	if p.Lighting != "" && !lightings[p.Lighting] {
		return fmt.Errorf("%w: unknown lighting %q", domain.ErrInvalidArgument, p.Lighting)
	}
	if p.ColorTone != "" && !colorTones[p.ColorTone] {
		return fmt.Errorf("%w: unknown color tone %q", domain.ErrInvalidArgument, p.ColorTone)
	}
	return nil
}

// NewGenerationJob validates the request and returns a pending job. ULIDs are
// used for IDs so listings and bucket prefixes sort by creation time.
func NewGenerationJob(ownerID string, in InputSpec, params GenerationParams) (*GenerationJob, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner id is required", domain.ErrInvalidArgument)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	return &GenerationJob{
		ID:        ulid.Make().String(),
		OwnerID:   ownerID,
		Input:     in,
		Params:    params,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
