package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/graphmail/internal/domain"
)

// DeliveryRepo persists per-recipient delivery status and job summaries.
type DeliveryRepo struct{ db *sql.DB }

// NewDeliveryRepo creates a Postgres-backed delivery repository.
func NewDeliveryRepo(db *sql.DB) *DeliveryRepo { return &DeliveryRepo{db: db} }

// RecordRecipient stores the outcome of one recipient of a job. Rewriting a
// row clears its notified flag; MarkNotified sets it again after a success.
func (r *DeliveryRepo) RecordRecipient(ctx context.Context, jobID string, rcpt domain.JobRecipient, kind domain.OutcomeKind) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_deliveries (job_id, subscriber_id, email, result, notified, updated_at)
		VALUES ($1, $2, $3, $4, false, NOW())
		ON CONFLICT (job_id, email) DO UPDATE SET
			subscriber_id = EXCLUDED.subscriber_id,
			result = EXCLUDED.result,
			notified = false,
			notified_at = NULL,
			updated_at = NOW()
	`, jobID, rcpt.SubscriberID, rcpt.Email, string(kind))
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// MarkNotified flags a recipient of a job as notified.
func (r *DeliveryRepo) MarkNotified(ctx context.Context, jobID string, rcpt domain.JobRecipient) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notification_deliveries
		SET notified = true, notified_at = NOW(), updated_at = NOW()
		WHERE job_id = $1 AND email = $2
	`, jobID, rcpt.Email)
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

// SaveJob upserts a job summary.
func (r *DeliveryRepo) SaveJob(ctx context.Context, rec domain.JobRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_jobs (
			id, profile_name, status, result, detail, error,
			recipients, attempted, succeeded, failed_recipients, failed,
			started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			result = EXCLUDED.result,
			detail = EXCLUDED.detail,
			error = EXCLUDED.error,
			attempted = EXCLUDED.attempted,
			succeeded = EXCLUDED.succeeded,
			failed_recipients = EXCLUDED.failed_recipients,
			failed = EXCLUDED.failed,
			finished_at = EXCLUDED.finished_at
	`,
		rec.ID, rec.Profile, string(rec.Status), string(rec.Result.Kind), rec.Result.Detail, rec.Error,
		rec.Recipients, rec.Result.Attempted, rec.Result.Succeeded, rec.Result.FailedRecipients, rec.Result.Failed,
		rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// GetJob loads a job summary. Returns domain.ErrJobNotFound if unknown.
func (r *DeliveryRepo) GetJob(ctx context.Context, id string) (*domain.JobRecord, error) {
	var (
		rec        domain.JobRecord
		status     string
		kind       string
		finishedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, profile_name, status, result, detail, error,
		       recipients, attempted, succeeded, failed_recipients, failed,
		       started_at, finished_at
		FROM notification_jobs WHERE id = $1
	`, id).Scan(
		&rec.ID, &rec.Profile, &status, &kind, &rec.Result.Detail, &rec.Error,
		&rec.Recipients, &rec.Result.Attempted, &rec.Result.Succeeded, &rec.Result.FailedRecipients, &rec.Result.Failed,
		&rec.StartedAt, &finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	rec.Status = domain.JobStatus(status)
	rec.Result.Kind = domain.OutcomeKind(kind)
	if finishedAt.Valid {
		t := finishedAt.Time
		rec.FinishedAt = &t
	}
	return &rec, nil
}
