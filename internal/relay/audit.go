package relay

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

const (
	qInsertJobAudit = `
INSERT INTO job_audit (id, provider, model, prompt, job_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now())`

	qUpdateJobAuditStatus = `
UPDATE job_audit SET status = $2, updated_at = now() WHERE job_id = $1`
)

// AuditRecord is one dispatched generation as seen by the relay.
type AuditRecord struct {
	Provider string
	Model    string
	Prompt   string
	JobID    string
	Status   string
}

// JobAudit persists the relay's view of dispatched jobs. The trail is
// operational telemetry; handlers treat failures as best-effort.
type JobAudit interface {
	Record(ctx context.Context, rec AuditRecord) error
	UpdateStatus(ctx context.Context, jobID, status string) error
}

type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGAudit is the postgres-backed audit trail.
type PGAudit struct {
	db     pgxExecutor
	logger zerolog.Logger
}

// NewPGAudit wraps a pgx pool (or compatible executor).
func NewPGAudit(db pgxExecutor, logger zerolog.Logger) *PGAudit {
	return &PGAudit{db: db, logger: logger}
}

var _ JobAudit = (*PGAudit)(nil)

// Record inserts one audit row.
func (a *PGAudit) Record(ctx context.Context, rec AuditRecord) error {
	_, err := a.db.Exec(ctx, qInsertJobAudit,
		uuid.NewString(), rec.Provider, rec.Model, rec.Prompt, rec.JobID, rec.Status)
	if err != nil {
		return fmt.Errorf("relay: record job audit: %w", err)
	}
	return nil
}

// UpdateStatus moves an audited job to a new status.
func (a *PGAudit) UpdateStatus(ctx context.Context, jobID, status string) error {
	_, err := a.db.Exec(ctx, qUpdateJobAuditStatus, jobID, status)
	if err != nil {
		return fmt.Errorf("relay: update job audit: %w", err)
	}
	return nil
}
