// File: internal/usecase/mocks_test.go
package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"social-video-orchestrator/internal/domain"
	"social-video-orchestrator/internal/domain/model"
	"social-video-orchestrator/internal/domain/ports/adapter"
	"social-video-orchestrator/internal/domain/ports/repository"
	"social-video-orchestrator/internal/infra/worker"
)

// memJobRepo is a small in-memory implementation used by unit tests. It
// mirrors the conditional-update semantics of the Postgres repo.
type memJobRepo struct {
	mu    sync.Mutex
	store map[string]*model.GenerationJob
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: map[string]*model.GenerationJob{}}
}

func copyJob(j *model.GenerationJob) *model.GenerationJob {
	cp := *j
	if j.Artifact != nil {
		a := *j.Artifact
		cp.Artifact = &a
	}
	return &cp
}

func (m *memJobRepo) put(j *model.GenerationJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[j.ID] = copyJob(j)
}

func (m *memJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[job.ID] = copyJob(job)
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyJob(j), nil
}

func (m *memJobRepo) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string, filter repository.JobFilter, offset, limit int) ([]*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.GenerationJob
	for _, j := range m.store {
		if j.OwnerID != ownerID {
			continue
		}
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		out = append(out, copyJob(j))
	}
	return out, nil
}

func (m *memJobRepo) CountByOwner(ctx context.Context, tx repository.Tx, ownerID string, filter repository.JobFilter) (int, error) {
	jobs, _ := m.ListByOwner(ctx, tx, ownerID, filter, 0, 0)
	return len(jobs), nil
}

func (m *memJobRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.JobStatus) ([]*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.GenerationJob
	for _, j := range m.store {
		if j.Status == status {
			out = append(out, copyJob(j))
		}
	}
	return out, nil
}

func (m *memJobRepo) MarkProcessing(ctx context.Context, tx repository.Tx, id string, op model.OperationState, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok || j.Status != model.JobStatusPending {
		return domain.ErrNotFound
	}
	j.Status = model.JobStatusProcessing
	j.Operation = op
	j.Processing.StartedAt = &startedAt
	j.UpdatedAt = time.Now()
	return nil
}

func (m *memJobRepo) UpdateOperation(ctx context.Context, tx repository.Tx, id string, op model.OperationState, attempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok || j.Status != model.JobStatusProcessing {
		return nil
	}
	j.Operation = op
	j.Processing.Attempts = attempts
	j.UpdatedAt = time.Now()
	return nil
}

func (m *memJobRepo) CompleteIfProcessing(ctx context.Context, tx repository.Tx, id string, artifact model.Artifact, completedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok || j.Status != model.JobStatusProcessing {
		return false, nil
	}
	j.Status = model.JobStatusCompleted
	a := artifact
	j.Artifact = &a
	j.Operation.Done = true
	j.Processing.CompletedAt = &completedAt
	j.UpdatedAt = time.Now()
	return true, nil
}

func (m *memJobRepo) FailIfActive(ctx context.Context, tx repository.Tx, id string, errorMessage string, failedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok || j.Status.Terminal() {
		return false, nil
	}
	j.Status = model.JobStatusFailed
	j.Processing.ErrorMessage = errorMessage
	j.Processing.CompletedAt = &failedAt
	j.UpdatedAt = time.Now()
	return true, nil
}

func (m *memJobRepo) UpdateArtifactURL(ctx context.Context, tx repository.Tx, id string, url string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok || j.Artifact == nil {
		return domain.ErrNotFound
	}
	j.Artifact.URL = url
	j.Artifact.URLExpiresAt = expiresAt
	j.UpdatedAt = time.Now()
	return nil
}

func (m *memJobRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

// fakeTxManager runs the callback without a real transaction.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// fakeSynth scripts provider behavior. Poll statuses are consumed in order;
// the last one repeats once the script runs out.
type fakeSynth struct {
	mu        sync.Mutex
	submitErr error
	opName    string
	script    []adapter.OperationStatus
	pollErr   error
	polls     int
	submits   int
}

func (f *fakeSynth) Submit(ctx context.Context, req adapter.SubmitRequest) (adapter.OperationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if f.submitErr != nil {
		return adapter.OperationStatus{}, f.submitErr
	}
	name := f.opName
	if name == "" {
		name = "operations/test-op"
	}
	return adapter.OperationStatus{Name: name}, nil
}

func (f *fakeSynth) PollOperation(ctx context.Context, operationName string) (adapter.OperationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.pollErr != nil {
		return adapter.OperationStatus{}, f.pollErr
	}
	if len(f.script) == 0 {
		return adapter.OperationStatus{Name: operationName}, nil
	}
	st := f.script[0]
	if len(f.script) > 1 {
		f.script = f.script[1:]
	}
	st.Name = operationName
	return st, nil
}

// fakeStorage is an in-memory bucket.
type fakeObject struct {
	createdAt   time.Time
	size        int64
	contentType string
	data        []byte
}

type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string]fakeObject
	deletes   []string
	signs     int
	signErr   error
	listErr   error
	metaErr   error
	deleteErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]fakeObject{}}
}

func (f *fakeStorage) putObject(path string, createdAt time.Time, size int64, contentType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = fakeObject{createdAt: createdAt, size: size, contentType: contentType}
}

func (f *fakeStorage) Upload(ctx context.Context, path, contentType string, r io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = fakeObject{
		createdAt:   time.Now(),
		size:        int64(buf.Len()),
		contentType: contentType,
		data:        buf.Bytes(),
	}
	return nil
}

func (f *fakeStorage) List(ctx context.Context, prefix string) ([]adapter.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []adapter.ObjectInfo
	for p, o := range f.objects {
		if len(p) >= len(prefix) && p[:len(prefix)] == prefix {
			out = append(out, adapter.ObjectInfo{Path: p, CreatedAt: o.createdAt})
		}
	}
	return out, nil
}

func (f *fakeStorage) Metadata(ctx context.Context, path string) (adapter.ObjectMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metaErr != nil {
		return adapter.ObjectMetadata{}, f.metaErr
	}
	o, ok := f.objects[path]
	if !ok {
		return adapter.ObjectMetadata{}, domain.ErrNotFound
	}
	return adapter.ObjectMetadata{SizeBytes: o.size, ContentType: o.contentType}, nil
}

func (f *fakeStorage) SignedReadURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signErr != nil {
		return "", f.signErr
	}
	f.signs++
	return fmt.Sprintf("https://signed.example/%s?sig=%d", path, f.signs), nil
}

func (f *fakeStorage) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, path)
	f.deletes = append(f.deletes, path)
	return nil
}

func (f *fakeStorage) URI(path string) string { return "gs://test-bucket/" + path }

func (f *fakeStorage) deleteCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.deletes {
		if p == path {
			n++
		}
	}
	return n
}

// syncDispatcher runs tasks inline so tests observe the full lifecycle
// deterministically.
type syncDispatcher struct{}

func (syncDispatcher) Submit(task worker.Task) error {
	return task(context.Background())
}

// dropDispatcher accepts tasks and discards them; used when a test wants to
// control job state by hand.
type dropDispatcher struct{}

func (dropDispatcher) Submit(task worker.Task) error { return nil }

// fakeLocker grants or denies the sweep lock.
type fakeLocker struct {
	mu     sync.Mutex
	denied bool
	locks  int
}

func (f *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denied {
		return "", domain.ErrSweepInProgress
	}
	f.locks++
	return "token", nil
}

func (f *fakeLocker) Unlock(ctx context.Context, key, token string) error { return nil }
