package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"social-video-orchestrator/internal/domain/model"
	"social-video-orchestrator/internal/domain/ports/repository"
	"social-video-orchestrator/internal/infra/metrics"
	red "social-video-orchestrator/internal/infra/redis"
)

var _ repository.GenerationJobRepository = (*jobRepoCacheDecorator)(nil)

// jobRepoCacheDecorator caches FindByID reads in redis. Status endpoints are
// polled aggressively by clients, so even a short TTL absorbs most of the
// read load. Every mutation invalidates the entry, which keeps the poller
// and the sweep from acting on stale state.
//
// The warm path is read-then-Set without a guard: a reader that loaded the
// row before a concurrent mutation invalidated the key can repopulate it
// with the pre-mutation snapshot, so a status read may lag by up to the TTL.
// State transitions stay correct regardless (they are conditional UPDATEs
// keyed on current status, and writers bypass the cache), which is why the
// window is tolerated instead of paying for versioned keys.
type jobRepoCacheDecorator struct {
	inner repository.GenerationJobRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewJobRepoCacheDecorator(inner repository.GenerationJobRepository, cache red.RedisClient, ttl time.Duration) repository.GenerationJobRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &jobRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func jobKey(id string) string { return fmt.Sprintf("job:id:%s", id) }

func (d *jobRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GenerationJob, error) {
	// Transactional reads bypass the cache.
	if tx == nil {
		val, err := d.cache.Get(ctx, jobKey(id))
		if err == nil {
			var job model.GenerationJob
			if json.Unmarshal([]byte(val), &job) == nil {
				metrics.IncCacheRequest("job", "hit")
				return &job, nil
			}
		}
		if err != nil && !red.IsNil(err) {
			metrics.IncCacheRequest("job", "error")
		} else {
			metrics.IncCacheRequest("job", "miss")
		}
	}

	job, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		if b, err := json.Marshal(job); err == nil {
			_ = d.cache.Set(ctx, jobKey(id), b, d.ttl)
		}
	}
	return job, nil
}

func (d *jobRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, job *model.GenerationJob) error {
	_ = d.cache.Del(ctx, jobKey(job.ID))
	return d.inner.Create(ctx, tx, job)
}

func (d *jobRepoCacheDecorator) MarkProcessing(ctx context.Context, tx repository.Tx, id string, op model.OperationState, startedAt time.Time) error {
	_ = d.cache.Del(ctx, jobKey(id))
	return d.inner.MarkProcessing(ctx, tx, id, op, startedAt)
}

func (d *jobRepoCacheDecorator) UpdateOperation(ctx context.Context, tx repository.Tx, id string, op model.OperationState, attempts int) error {
	_ = d.cache.Del(ctx, jobKey(id))
	return d.inner.UpdateOperation(ctx, tx, id, op, attempts)
}

func (d *jobRepoCacheDecorator) CompleteIfProcessing(ctx context.Context, tx repository.Tx, id string, artifact model.Artifact, completedAt time.Time) (bool, error) {
	_ = d.cache.Del(ctx, jobKey(id))
	return d.inner.CompleteIfProcessing(ctx, tx, id, artifact, completedAt)
}

func (d *jobRepoCacheDecorator) FailIfActive(ctx context.Context, tx repository.Tx, id string, errorMessage string, failedAt time.Time) (bool, error) {
	_ = d.cache.Del(ctx, jobKey(id))
	return d.inner.FailIfActive(ctx, tx, id, errorMessage, failedAt)
}

func (d *jobRepoCacheDecorator) UpdateArtifactURL(ctx context.Context, tx repository.Tx, id string, url string, expiresAt time.Time) error {
	_ = d.cache.Del(ctx, jobKey(id))
	return d.inner.UpdateArtifactURL(ctx, tx, id, url, expiresAt)
}

func (d *jobRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, id string) error {
	_ = d.cache.Del(ctx, jobKey(id))
	return d.inner.Delete(ctx, tx, id)
}

// Pass-through methods; list caching is not worth the invalidation traffic.
func (d *jobRepoCacheDecorator) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string, filter repository.JobFilter, offset, limit int) ([]*model.GenerationJob, error) {
	return d.inner.ListByOwner(ctx, tx, ownerID, filter, offset, limit)
}

func (d *jobRepoCacheDecorator) CountByOwner(ctx context.Context, tx repository.Tx, ownerID string, filter repository.JobFilter) (int, error) {
	return d.inner.CountByOwner(ctx, tx, ownerID, filter)
}

func (d *jobRepoCacheDecorator) ListByStatus(ctx context.Context, tx repository.Tx, status model.JobStatus) ([]*model.GenerationJob, error) {
	return d.inner.ListByStatus(ctx, tx, status)
}
