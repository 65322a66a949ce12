// File: internal/usecase/video_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"social-video-orchestrator/internal/domain"
	"social-video-orchestrator/internal/domain/model"
	"social-video-orchestrator/internal/domain/ports/adapter"
	"social-video-orchestrator/internal/domain/ports/repository"
	"social-video-orchestrator/internal/infra/logging"
	"social-video-orchestrator/internal/infra/metrics"
	red "social-video-orchestrator/internal/infra/redis"
	"social-video-orchestrator/internal/infra/worker"
)

// VideoUseCase is the orchestrator surface exposed to the HTTP layer and the
// recovery worker. Create is fire-and-forget: the submission and the poll
// loop run as a background task, and callers observe progress through Get.
type VideoUseCase interface {
	Create(ctx context.Context, ownerID string, in model.InputSpec, params model.GenerationParams) (*model.GenerationJob, error)
	Get(ctx context.Context, jobID, ownerID string) (*model.GenerationJob, error)
	List(ctx context.Context, ownerID string, filter repository.JobFilter, offset, limit int) ([]*model.GenerationJob, int, error)
	ArtifactAccess(ctx context.Context, jobID, ownerID string) (*model.Artifact, error)
	Delete(ctx context.Context, jobID, ownerID string) error
	UploadImage(ctx context.Context, ownerID, contentType string, r io.Reader) (string, error)

	// Operator/recovery surface.
	ForceCompletionCheck(ctx context.Context, jobID string) (model.JobStatus, error)
	SweepStuckJobs(ctx context.Context) (reconciled, total int, err error)
}

// Options are the orchestration knobs; zero values fall back to the defaults
// the provider was tuned against (10s interval, 60 attempts, 7 day URLs).
type Options struct {
	PollInterval  time.Duration
	MaxAttempts   int
	SignedURLTTL  time.Duration
	OutputPrefix  string
	UploadsPrefix string
	EnhancePrompt bool
}

func (o *Options) setDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 10 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 60
	}
	if o.SignedURLTTL <= 0 {
		o.SignedURLTTL = 7 * 24 * time.Hour
	}
	if o.OutputPrefix == "" {
		o.OutputPrefix = "outputs"
	}
	if o.UploadsPrefix == "" {
		o.UploadsPrefix = "uploads"
	}
}

const (
	sweepLockKey = "lock:sweep:stuck-jobs"
	sweepLockTTL = 5 * time.Minute

	artifactExt = ".mp4"
)

type videoUC struct {
	jobs     repository.GenerationJobRepository
	txm      repository.TransactionManager
	synth    adapter.VideoSynthesizer
	store    adapter.ObjectStorage
	dispatch worker.Dispatcher
	locker   red.Locker
	opts     Options
	log      *zerolog.Logger
}

var _ VideoUseCase = (*videoUC)(nil)

func NewVideoUseCase(
	jobs repository.GenerationJobRepository,
	txm repository.TransactionManager,
	synth adapter.VideoSynthesizer,
	store adapter.ObjectStorage,
	dispatch worker.Dispatcher,
	locker red.Locker,
	opts Options,
	logger *zerolog.Logger,
) *videoUC {
	opts.setDefaults()
	ucLog := logger.With().Str("component", "VideoUseCase").Logger()
	return &videoUC{
		jobs:     jobs,
		txm:      txm,
		synth:    synth,
		store:    store,
		dispatch: dispatch,
		locker:   locker,
		opts:     opts,
		log:      &ucLog,
	}
}

func (u *videoUC) Create(ctx context.Context, ownerID string, in model.InputSpec, params model.GenerationParams) (*model.GenerationJob, error) {
	job, err := model.NewGenerationJob(ownerID, in, params)
	if err != nil {
		return nil, err
	}
	if err := u.jobs.Create(ctx, nil, job); err != nil {
		return nil, err
	}

	id := job.ID
	if err := u.dispatch.Submit(func(taskCtx context.Context) error {
		u.run(taskCtx, id)
		return nil
	}); err != nil {
		// The record exists but nothing will drive it; surface that as an
		// immediate failure rather than leaving the job stuck in pending.
		msg := "orchestrator saturated: " + err.Error()
		if _, ferr := u.jobs.FailIfActive(ctx, nil, id, msg, time.Now()); ferr == nil {
			job.Status = model.JobStatusFailed
			job.Processing.ErrorMessage = msg
		}
		metrics.IncVideoJob("failed")
	}
	return job, nil
}

func (u *videoUC) Get(ctx context.Context, jobID, ownerID string) (*model.GenerationJob, error) {
	job, err := u.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	return job, nil
}

func (u *videoUC) List(ctx context.Context, ownerID string, filter repository.JobFilter, offset, limit int) ([]*model.GenerationJob, int, error) {
	jobs, err := u.jobs.ListByOwner(ctx, nil, ownerID, filter, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := u.jobs.CountByOwner(ctx, nil, ownerID, filter)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// ArtifactAccess returns the artifact reference, re-signing the URL first
// when the persisted one has expired. The stale URL is never handed out.
func (u *videoUC) ArtifactAccess(ctx context.Context, jobID, ownerID string) (*model.Artifact, error) {
	job, err := u.Get(ctx, jobID, ownerID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusCompleted || job.Artifact == nil {
		return nil, domain.ErrArtifactNotReady
	}
	if time.Now().Before(job.Artifact.URLExpiresAt) {
		return job.Artifact, nil
	}

	url, err := u.store.SignedReadURL(ctx, job.Artifact.Path, u.opts.SignedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("refresh signed url: %w", err)
	}
	expiresAt := time.Now().Add(u.opts.SignedURLTTL)
	if err := u.jobs.UpdateArtifactURL(ctx, nil, job.ID, url, expiresAt); err != nil {
		return nil, err
	}
	refreshed := *job.Artifact
	refreshed.URL = url
	refreshed.URLExpiresAt = expiresAt
	return &refreshed, nil
}

// Delete removes the record inside one transaction (owner check and delete
// see the same row) and then cleans up storage. Storage cleanup is
// best-effort; the record is the authority and any orphaned poll loop aborts
// once the record is gone.
func (u *videoUC) Delete(ctx context.Context, jobID, ownerID string) error {
	var artifactPath, imagePath string
	err := u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		job, err := u.jobs.FindByID(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if job.OwnerID != ownerID {
			return domain.ErrForbidden
		}
		if job.Artifact != nil {
			artifactPath = job.Artifact.Path
		}
		imagePath = job.Input.ImagePath
		return u.jobs.Delete(ctx, tx, job.ID)
	})
	if err != nil {
		return err
	}

	log := u.log.With().Str("job_id", jobID).Logger()
	if artifactPath != "" {
		if err := u.store.Delete(ctx, artifactPath); err != nil {
			log.Warn().Err(err).Str("path", artifactPath).Msg("artifact object cleanup failed")
		}
	}
	if imagePath != "" {
		if err := u.store.Delete(ctx, imagePath); err != nil {
			log.Warn().Err(err).Str("path", imagePath).Msg("input image cleanup failed")
		}
	}
	return nil
}

func (u *videoUC) UploadImage(ctx context.Context, ownerID, contentType string, r io.Reader) (string, error) {
	if !model.AllowedImageMIME(contentType) {
		return "", fmt.Errorf("%w: unsupported image type %q", domain.ErrInvalidArgument, contentType)
	}
	objPath := fmt.Sprintf("%s/%s/%s%s", u.opts.UploadsPrefix, ownerID, uuid.NewString(), extForMIME(contentType))
	if err := u.store.Upload(ctx, objPath, contentType, r); err != nil {
		return "", err
	}
	return objPath, nil
}

func (u *videoUC) ForceCompletionCheck(ctx context.Context, jobID string) (model.JobStatus, error) {
	job, err := u.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		return "", err
	}
	if job.Status != model.JobStatusProcessing {
		return job.Status, nil
	}
	if cand, ok := u.reconcile(ctx, job); ok {
		u.completeJob(ctx, job, cand.Path)
	}
	fresh, err := u.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		return "", err
	}
	return fresh.Status, nil
}

// SweepStuckJobs reconciles every job currently in processing against the
// bucket. It covers jobs whose poll loop died with the process; jobs with a
// live poll loop are unaffected because completion is a conditional update.
func (u *videoUC) SweepStuckJobs(ctx context.Context) (int, int, error) {
	token, err := u.locker.TryLock(ctx, sweepLockKey, sweepLockTTL)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = u.locker.Unlock(ctx, sweepLockKey, token) }()

	jobs, err := u.jobs.ListByStatus(ctx, nil, model.JobStatusProcessing)
	if err != nil {
		return 0, 0, err
	}

	reconciled := 0
	for _, job := range jobs {
		cand, ok := u.reconcile(ctx, job)
		if !ok {
			continue
		}
		if _, won := u.completeJob(ctx, job, cand.Path); won {
			reconciled++
		}
	}
	metrics.IncSweep()
	metrics.AddSweepReconciled(reconciled)
	u.log.Info().Int("reconciled", reconciled).Int("total", len(jobs)).Msg("stuck-job sweep finished")
	return reconciled, len(jobs), nil
}

// --- background orchestration ---

// run submits the job to the provider and drives its poll loop. It is the
// only writer of the pending -> processing transition; terminal transitions
// go through the conditional repo updates shared with the recovery paths.
func (u *videoUC) run(ctx context.Context, jobID string) {
	ctx = logging.WithJobID(ctx, jobID)
	log := logging.With(ctx, u.log)
	metrics.JobStarted()
	defer metrics.JobFinished()

	job, err := u.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		log.Error().Err(err).Msg("job vanished before submission")
		return
	}
	if job.Status != model.JobStatusPending {
		return
	}

	st, err := u.synth.Submit(ctx, u.buildSubmit(job))
	if err != nil {
		// Submission failures are terminal: no operation handle exists, so
		// there is nothing to poll.
		metrics.IncSynthSubmit("rejected")
		log.Error().Err(err).Msg("synthesis submission failed")
		u.failJob(ctx, jobID, err.Error())
		return
	}
	metrics.IncSynthSubmit("accepted")

	op := model.OperationState{Name: st.Name, Done: st.Done, Payload: st.Raw}
	if err := u.jobs.MarkProcessing(ctx, nil, jobID, op, time.Now()); err != nil {
		log.Error().Err(err).Msg("could not mark job processing")
		return
	}
	log.Info().Str("operation", st.Name).Msg("generation submitted")

	u.pollLoop(ctx, jobID)
}

func (u *videoUC) pollLoop(ctx context.Context, jobID string) {
	ctx = logging.WithJobID(ctx, jobID)
	log := logging.With(ctx, u.log)

	for attempt := 1; attempt <= u.opts.MaxAttempts; attempt++ {
		job, err := u.jobs.FindByID(ctx, nil, jobID)
		if errors.Is(err, domain.ErrNotFound) {
			// Deleted mid-flight; abort quietly.
			log.Debug().Msg("job deleted, stopping poll loop")
			return
		}
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("transient job read error")
		} else {
			if job.Status.Terminal() {
				return
			}
			if done := u.pollOnce(ctx, job, attempt, log); done {
				return
			}
		}

		select {
		case <-time.After(u.opts.PollInterval):
		case <-ctx.Done():
			return
		}
	}

	u.failJob(ctx, jobID, "Operation timed out")
	log.Warn().Int("attempts", u.opts.MaxAttempts).Msg("generation timed out")
}

// pollOnce performs one status query plus one bucket reconciliation pass and
// reports whether the job reached a terminal state. Both halves are
// idempotent, so any mid-iteration failure is simply retried next round.
func (u *videoUC) pollOnce(ctx context.Context, job *model.GenerationJob, attempt int, log *zerolog.Logger) bool {
	pollStart := time.Now()
	st, err := u.synth.PollOperation(ctx, job.Operation.Name)
	metrics.ObservePollLatency(int(time.Since(pollStart)/time.Millisecond), err == nil)
	if err != nil {
		// Transient: never fails the job, only consumes the shared budget.
		log.Warn().Err(err).Int("attempt", attempt).Msg("operation poll failed")
	} else {
		op := model.OperationState{Name: job.Operation.Name, Done: st.Done, Payload: st.Raw}
		if uerr := u.jobs.UpdateOperation(ctx, nil, job.ID, op, attempt); uerr != nil {
			log.Warn().Err(uerr).Msg("could not persist operation state")
		}
		if st.Done && st.ErrorMessage != "" {
			u.failJob(ctx, job.ID, st.ErrorMessage)
			return true
		}
		if st.Done && len(st.VideoURIs) > 0 {
			if objPath, ok := u.objectPath(st.VideoURIs[0]); ok {
				if settled, _ := u.completeJob(ctx, job, objPath); settled {
					return true
				}
			} else {
				log.Warn().Str("uri", st.VideoURIs[0]).Msg("provider reported artifact outside configured bucket")
			}
		}
	}

	// The provider's done signal is delayed or missing often enough that the
	// bucket itself is treated as a second completion channel.
	if cand, ok := u.reconcile(ctx, job); ok {
		if settled, _ := u.completeJob(ctx, job, cand.Path); settled {
			return true
		}
	}
	return false
}

// reconcile scans the job's output prefix for a plausible artifact: newest
// constraint is creation at or after StartedAt, and among matches the one
// closest to StartedAt scores highest. Best-effort by design; no candidate
// just means "not complete yet".
func (u *videoUC) reconcile(ctx context.Context, job *model.GenerationJob) (adapter.ObjectInfo, bool) {
	if job.Processing.StartedAt == nil {
		return adapter.ObjectInfo{}, false
	}
	objs, err := u.store.List(ctx, u.jobOutputPrefix(job.ID))
	if err != nil {
		metrics.IncReconcile("error")
		u.log.Warn().Err(err).Str("job_id", job.ID).Msg("bucket scan failed")
		return adapter.ObjectInfo{}, false
	}

	started := *job.Processing.StartedAt
	var best adapter.ObjectInfo
	bestScore := 0.0
	for _, o := range objs {
		if !strings.HasSuffix(o.Path, artifactExt) {
			continue
		}
		if o.CreatedAt.Before(started) {
			continue
		}
		score := 1.0 / (1.0 + o.CreatedAt.Sub(started).Seconds())
		if score > bestScore {
			best = o
			bestScore = score
		}
	}
	if bestScore == 0 {
		metrics.IncReconcile("none")
		return adapter.ObjectInfo{}, false
	}
	metrics.IncReconcile("match")
	return best, true
}

// completeJob resolves artifact metadata, signs a read URL and performs the
// conditional terminal transition. settled means the job no longer needs
// polling; won means this call performed the completion (and therefore owns
// the one-time input cleanup).
func (u *videoUC) completeJob(ctx context.Context, job *model.GenerationJob, objPath string) (settled, won bool) {
	log := u.log.With().Str("job_id", job.ID).Str("path", objPath).Logger()

	meta, err := u.store.Metadata(ctx, objPath)
	if err != nil {
		log.Warn().Err(err).Msg("artifact metadata lookup failed")
		return false, false
	}
	url, err := u.store.SignedReadURL(ctx, objPath, u.opts.SignedURLTTL)
	if err != nil {
		log.Warn().Err(err).Msg("artifact signing failed")
		return false, false
	}

	now := time.Now()
	artifact := model.Artifact{
		Path:         objPath,
		FileName:     path.Base(objPath),
		URL:          url,
		URLExpiresAt: now.Add(u.opts.SignedURLTTL),
		SizeBytes:    meta.SizeBytes,
		ContentType:  meta.ContentType,
	}

	ok, err := u.jobs.CompleteIfProcessing(ctx, nil, job.ID, artifact, now)
	if err != nil {
		log.Error().Err(err).Msg("completion write failed")
		return false, false
	}
	if !ok {
		// Another detection path got there first; their write is
		// authoritative and cleanup already happened.
		return true, false
	}

	metrics.IncVideoJob("completed")
	if job.Input.ImagePath != "" {
		// Cleanup only: a failed delete never un-completes the job.
		if derr := u.store.Delete(ctx, job.Input.ImagePath); derr != nil {
			log.Warn().Err(derr).Str("image", job.Input.ImagePath).Msg("input image cleanup failed")
		}
	}
	log.Info().Int64("size", meta.SizeBytes).Msg("generation completed")
	return true, true
}

func (u *videoUC) failJob(ctx context.Context, jobID, msg string) {
	won, err := u.jobs.FailIfActive(ctx, nil, jobID, msg, time.Now())
	if err != nil {
		u.log.Error().Err(err).Str("job_id", jobID).Msg("failure write failed")
		return
	}
	if won {
		metrics.IncVideoJob("failed")
		u.log.Info().Str("job_id", jobID).Str("error", msg).Msg("generation failed")
	}
}

// --- request building ---

func (u *videoUC) buildSubmit(job *model.GenerationJob) adapter.SubmitRequest {
	req := adapter.SubmitRequest{
		Prompt:          job.Input.Prompt,
		AspectRatio:     job.Params.AspectRatio,
		DurationSeconds: job.Params.DurationSeconds,
		SampleCount:     job.Params.SampleCount,
		Seed:            job.Params.Seed,
		EnhancePrompt:   u.opts.EnhancePrompt,
		OutputPrefix:    u.store.URI(u.jobOutputPrefix(job.ID)),
		Style:           job.Params.Style,
		CameraMotion:    job.Params.CameraMotion,
		Lighting:        job.Params.Lighting,
		ColorTone:       job.Params.ColorTone,
	}
	if job.Input.ImagePath != "" {
		req.ImageURI = u.store.URI(job.Input.ImagePath)
		req.ImageMIME = job.Input.ImageMIME
	}
	return req
}

// jobOutputPrefix scopes provider output per job, which doubles as the
// correlation token for the bucket scan.
func (u *videoUC) jobOutputPrefix(jobID string) string {
	return fmt.Sprintf("%s/%s/", u.opts.OutputPrefix, jobID)
}

func (u *videoUC) objectPath(uri string) (string, bool) {
	root := u.store.URI("")
	if !strings.HasPrefix(uri, root) {
		return "", false
	}
	return strings.TrimPrefix(uri, root), true
}

func extForMIME(mime string) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
