package postgres

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"social-video-orchestrator/internal/domain"
	"social-video-orchestrator/internal/domain/model"
	"social-video-orchestrator/internal/domain/ports/repository"
)

// mockRedisClient implements red.RedisClient with overridable functions.
type mockRedisClient struct {
	GetFunc   func(ctx context.Context, key string) (string, error)
	SetFunc   func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNXFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	DelFunc   func(ctx context.Context, keys ...string) error
}

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return "", redis.Nil
}

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}

func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if m.SetNXFunc != nil {
		return m.SetNXFunc(ctx, key, value, expiration)
	}
	return true, nil
}

func (m *mockRedisClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) error {
	return nil
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	return nil
}

func (m *mockRedisClient) Close() error { return nil }

// mockInnerJobRepo lets cache tests observe calls that reach the database
// layer.
type mockInnerJobRepo struct {
	FindByIDFunc             func(ctx context.Context, tx repository.Tx, id string) (*model.GenerationJob, error)
	CompleteIfProcessingFunc func(ctx context.Context, tx repository.Tx, id string, artifact model.Artifact, completedAt time.Time) (bool, error)
}

func (m *mockInnerJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.GenerationJob) error {
	return nil
}

func (m *mockInnerJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GenerationJob, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockInnerJobRepo) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string, filter repository.JobFilter, offset, limit int) ([]*model.GenerationJob, error) {
	return nil, nil
}

func (m *mockInnerJobRepo) CountByOwner(ctx context.Context, tx repository.Tx, ownerID string, filter repository.JobFilter) (int, error) {
	return 0, nil
}

func (m *mockInnerJobRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.JobStatus) ([]*model.GenerationJob, error) {
	return nil, nil
}

func (m *mockInnerJobRepo) MarkProcessing(ctx context.Context, tx repository.Tx, id string, op model.OperationState, startedAt time.Time) error {
	return nil
}

func (m *mockInnerJobRepo) UpdateOperation(ctx context.Context, tx repository.Tx, id string, op model.OperationState, attempts int) error {
	return nil
}

func (m *mockInnerJobRepo) CompleteIfProcessing(ctx context.Context, tx repository.Tx, id string, artifact model.Artifact, completedAt time.Time) (bool, error) {
	if m.CompleteIfProcessingFunc != nil {
		return m.CompleteIfProcessingFunc(ctx, tx, id, artifact, completedAt)
	}
	return true, nil
}

func (m *mockInnerJobRepo) FailIfActive(ctx context.Context, tx repository.Tx, id string, errorMessage string, failedAt time.Time) (bool, error) {
	return true, nil
}

func (m *mockInnerJobRepo) UpdateArtifactURL(ctx context.Context, tx repository.Tx, id string, url string, expiresAt time.Time) error {
	return nil
}

func (m *mockInnerJobRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	return nil
}
