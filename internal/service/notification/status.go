package notification

import (
	"context"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/pkg/logger"
)

// deliveryStatus is the Notifiable handed to the dispatcher for each
// recipient. Store failures are logged and never interrupt the batch.
type deliveryStatus struct {
	ctx   context.Context
	store DeliveryStore
	jobID string
	rcpt  domain.JobRecipient

	result   domain.OutcomeKind
	notified bool
}

func (s *deliveryStatus) SetResult(kind domain.OutcomeKind) {
	s.result = kind
	if err := s.store.RecordRecipient(s.ctx, s.jobID, s.rcpt, kind); err != nil {
		logger.Error("record delivery failed", "job_id", s.jobID, "recipient", s.rcpt.Email, "error", err)
	}
}

func (s *deliveryStatus) SetNotified(notified bool) {
	s.notified = notified
	if !notified {
		return
	}
	if err := s.store.MarkNotified(s.ctx, s.jobID, s.rcpt); err != nil {
		logger.Error("mark notified failed", "job_id", s.jobID, "recipient", s.rcpt.Email, "error", err)
	}
}
