package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"social-video-orchestrator/internal/domain"
	"social-video-orchestrator/internal/domain/model"
	"social-video-orchestrator/internal/domain/ports/repository"
)

var _ repository.GenerationJobRepository = (*generationJobRepo)(nil)

type generationJobRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationJobRepo(pool *pgxpool.Pool) *generationJobRepo {
	return &generationJobRepo{pool: pool}
}

// COALESCE keeps the scalar scan targets NULL-safe against tables created
// before the defaults in schemaDDL existed.
const jobColumns = `id, owner_id, title, prompt, image_path, image_mime, params, status,
COALESCE(operation_name, ''), COALESCE(operation_done, FALSE), operation_payload, artifact,
COALESCE(error_message, ''),
started_at, completed_at, attempts, created_at, updated_at`

func (r *generationJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.GenerationJob) error {
	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	job.UpdatedAt = time.Now()

	const q = `
INSERT INTO generation_jobs (id, owner_id, title, prompt, image_path, image_mime, params, status, attempts, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`

	_, err = execSQL(ctx, r.pool, tx, q,
		job.ID, job.OwnerID, job.Input.Title, job.Input.Prompt, job.Input.ImagePath, job.Input.ImageMIME,
		params, job.Status, job.Processing.Attempts, job.CreatedAt, job.UpdatedAt)
	return err
}

func (r *generationJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GenerationJob, error) {
	q := `SELECT ` + jobColumns + ` FROM generation_jobs WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *generationJobRepo) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string, filter repository.JobFilter, offset, limit int) ([]*model.GenerationJob, error) {
	q := `SELECT ` + jobColumns + ` FROM generation_jobs WHERE owner_id=$1`
	args := []interface{}{ownerID}
	if filter.Status != "" {
		q += ` AND status=$2`
		args = append(args, filter.Status)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC OFFSET %d LIMIT %d;`, offset, limit)

	rows, err := pickRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *generationJobRepo) CountByOwner(ctx context.Context, tx repository.Tx, ownerID string, filter repository.JobFilter) (int, error) {
	q := `SELECT COUNT(*) FROM generation_jobs WHERE owner_id=$1`
	args := []interface{}{ownerID}
	if filter.Status != "" {
		q += ` AND status=$2`
		args = append(args, filter.Status)
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *generationJobRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.JobStatus) ([]*model.GenerationJob, error) {
	q := `SELECT ` + jobColumns + ` FROM generation_jobs WHERE status=$1 ORDER BY created_at;`
	rows, err := pickRows(ctx, r.pool, tx, q, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *generationJobRepo) MarkProcessing(ctx context.Context, tx repository.Tx, id string, op model.OperationState, startedAt time.Time) error {
	const q = `
UPDATE generation_jobs
SET status='processing', operation_name=$2, operation_done=$3, operation_payload=$4,
    started_at=$5, updated_at=now()
WHERE id=$1 AND status='pending';`

	tag, err := execSQL(ctx, r.pool, tx, q, id, op.Name, op.Done, nullableJSON(op.Payload), startedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *generationJobRepo) UpdateOperation(ctx context.Context, tx repository.Tx, id string, op model.OperationState, attempts int) error {
	const q = `
UPDATE generation_jobs
SET operation_done=$2, operation_payload=$3, attempts=$4, updated_at=now()
WHERE id=$1 AND status='processing';`

	_, err := execSQL(ctx, r.pool, tx, q, id, op.Done, nullableJSON(op.Payload), attempts)
	return err
}

func (r *generationJobRepo) CompleteIfProcessing(ctx context.Context, tx repository.Tx, id string, artifact model.Artifact, completedAt time.Time) (bool, error) {
	b, err := json.Marshal(artifact)
	if err != nil {
		return false, fmt.Errorf("marshal artifact: %w", err)
	}

	const q = `
UPDATE generation_jobs
SET status='completed', artifact=$2, operation_done=TRUE, completed_at=$3, updated_at=now()
WHERE id=$1 AND status='processing';`

	tag, err := execSQL(ctx, r.pool, tx, q, id, b, completedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *generationJobRepo) FailIfActive(ctx context.Context, tx repository.Tx, id string, errorMessage string, failedAt time.Time) (bool, error) {
	const q = `
UPDATE generation_jobs
SET status='failed', error_message=$2, completed_at=$3, updated_at=now()
WHERE id=$1 AND status IN ('pending','processing');`

	tag, err := execSQL(ctx, r.pool, tx, q, id, errorMessage, failedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *generationJobRepo) UpdateArtifactURL(ctx context.Context, tx repository.Tx, id string, url string, expiresAt time.Time) error {
	const q = `
UPDATE generation_jobs
SET artifact = artifact || jsonb_build_object('url', $2::text, 'url_expires_at', to_jsonb($3::timestamptz)),
    updated_at = now()
WHERE id=$1 AND artifact IS NOT NULL;`

	tag, err := execSQL(ctx, r.pool, tx, q, id, url, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *generationJobRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM generation_jobs WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// --- scanning ---

func scanJob(row pgx.Row) (*model.GenerationJob, error) {
	var (
		job       model.GenerationJob
		statusStr string
		paramsB   []byte
		payloadB  []byte
		artifactB []byte
	)
	err := row.Scan(
		&job.ID, &job.OwnerID, &job.Input.Title, &job.Input.Prompt, &job.Input.ImagePath, &job.Input.ImageMIME,
		&paramsB, &statusStr,
		&job.Operation.Name, &job.Operation.Done, &payloadB, &artifactB, &job.Processing.ErrorMessage,
		&job.Processing.StartedAt, &job.Processing.CompletedAt, &job.Processing.Attempts,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	job.Status = model.JobStatus(statusStr)
	job.Operation.Payload = payloadB
	if len(paramsB) > 0 {
		if err := json.Unmarshal(paramsB, &job.Params); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	if len(artifactB) > 0 {
		var a model.Artifact
		if err := json.Unmarshal(artifactB, &a); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		job.Artifact = &a
	}
	return &job, nil
}

// nullableJSON keeps empty payloads as SQL NULL instead of an empty jsonb blob.
func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
