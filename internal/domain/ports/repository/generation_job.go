package repository

import (
	"context"
	"time"

	"social-video-orchestrator/internal/domain/model"
)

// JobFilter narrows ListByOwner/CountByOwner. Zero value means no filtering.
type JobFilter struct {
	Status model.JobStatus
}

// GenerationJobRepository persists generation jobs. Terminal transitions are
// conditional updates: CompleteIfProcessing and FailIfActive only write when
// the job is still in a non-terminal state and report whether they won, so
// the poller, the force-check endpoint and the recovery sweep can race
// without double-processing a job.
type GenerationJobRepository interface {
	Create(ctx context.Context, tx Tx, job *model.GenerationJob) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.GenerationJob, error)
	ListByOwner(ctx context.Context, tx Tx, ownerID string, filter JobFilter, offset, limit int) ([]*model.GenerationJob, error)
	CountByOwner(ctx context.Context, tx Tx, ownerID string, filter JobFilter) (int, error)
	ListByStatus(ctx context.Context, tx Tx, status model.JobStatus) ([]*model.GenerationJob, error)

	// MarkProcessing records the accepted operation handle and startedAt and
	// moves a pending job to processing. The handle is written once and
	// never reassigned afterwards.
	MarkProcessing(ctx context.Context, tx Tx, id string, op model.OperationState, startedAt time.Time) error

	// UpdateOperation replaces the whole operation payload group after a
	// poll. Callers always pass the full handle state, never a partial one.
	UpdateOperation(ctx context.Context, tx Tx, id string, op model.OperationState, attempts int) error

	CompleteIfProcessing(ctx context.Context, tx Tx, id string, artifact model.Artifact, completedAt time.Time) (bool, error)
	FailIfActive(ctx context.Context, tx Tx, id string, errorMessage string, failedAt time.Time) (bool, error)

	// UpdateArtifactURL persists a refreshed signed URL and its expiry.
	UpdateArtifactURL(ctx context.Context, tx Tx, id string, url string, expiresAt time.Time) error

	Delete(ctx context.Context, tx Tx, id string) error
}
