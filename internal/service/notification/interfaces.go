package notification

import (
	"context"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/service/sending"
)

// ProfileLoader returns a validated sender profile. *profile.Service
// satisfies it.
type ProfileLoader interface {
	Load(ctx context.Context, name string) (*domain.SenderProfile, error)
}

// TransportFactory binds a profile to its transport.
type TransportFactory interface {
	New(ctx context.Context, profile *domain.SenderProfile) (sending.Transport, error)
}

// DeliveryStore persists job summaries and per-recipient results.
type DeliveryStore interface {
	RecordRecipient(ctx context.Context, jobID string, rcpt domain.JobRecipient, kind domain.OutcomeKind) error
	MarkNotified(ctx context.Context, jobID string, rcpt domain.JobRecipient) error
	SaveJob(ctx context.Context, rec domain.JobRecord) error
	GetJob(ctx context.Context, id string) (*domain.JobRecord, error)
}

// Enqueuer is the producing side of the job queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job domain.NotificationJob) error
}

// Lock guards a job against concurrent processing.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}
