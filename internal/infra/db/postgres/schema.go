package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Columns the insert path leaves unset carry NOT NULL defaults so reads never
// see NULL in scalar fields; only the JSONB documents and the audit
// timestamps are nullable.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS generation_jobs (
	id                TEXT PRIMARY KEY,
	owner_id          TEXT NOT NULL,
	title             TEXT NOT NULL,
	prompt            TEXT NOT NULL,
	image_path        TEXT NOT NULL DEFAULT '',
	image_mime        TEXT NOT NULL DEFAULT '',
	params            JSONB NOT NULL,
	status            TEXT NOT NULL DEFAULT 'pending',
	operation_name    TEXT NOT NULL DEFAULT '',
	operation_done    BOOLEAN NOT NULL DEFAULT FALSE,
	operation_payload JSONB,
	artifact          JSONB,
	error_message     TEXT NOT NULL DEFAULT '',
	started_at        TIMESTAMPTZ,
	completed_at      TIMESTAMPTZ,
	attempts          INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_generation_jobs_owner_created
	ON generation_jobs (owner_id, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_generation_jobs_status
	ON generation_jobs (status);
`

// Migrate creates the job table and its indexes if they do not exist yet.
// Idempotent; called once at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
