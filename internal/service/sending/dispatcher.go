package sending

import (
	"context"
	"time"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/metrics"
	"github.com/ignite/graphmail/internal/pkg/logger"
)

// Dispatcher sends one batch at a time through a single transport. A
// Dispatcher is bound to one validated profile and holds no per-batch state,
// so it may be reused for consecutive batches.
type Dispatcher struct {
	profile   *domain.SenderProfile
	transport Transport
	log       *logger.Logger
}

// NewDispatcher validates profile and returns a dispatcher that delivers
// through transport.
func NewDispatcher(profile *domain.SenderProfile, transport Transport) (*Dispatcher, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &Dispatcher{
		profile:   profile,
		transport: transport,
		log:       logger.With("profile", profile.Name, "sender_type", profile.SenderType),
	}, nil
}

// ResolveSender picks the From of a batch. Address and name are resolved
// independently, taking the first non-empty value of the job override, the
// template and the profile default.
func ResolveSender(job domain.MessageJob, profile *domain.SenderProfile) (domain.SenderIdentity, error) {
	email := firstNonEmpty(job.SenderEmail, job.Template.SenderEmail, profile.DefaultSenderEmail)
	if email == "" {
		return domain.SenderIdentity{}, &domain.ConfigurationError{
			Key:    domain.KeyDefaultSenderEmail,
			Reason: "no sender address on job, template or profile",
		}
	}
	name := firstNonEmpty(job.SenderName, job.Template.EffectiveSenderName(), profile.DefaultSenderName)
	return domain.SenderIdentity{Email: email, Name: name}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// SendBatch delivers job to every recipient in order and returns the
// aggregated result. Per-recipient failures never stop the batch; the only
// error returned is a configuration error raised before the first send.
func (d *Dispatcher) SendBatch(ctx context.Context, job domain.MessageJob, recipients []domain.Recipient) (domain.BatchResult, error) {
	result := domain.NewBatchResult()

	from, err := ResolveSender(job, d.profile)
	if err != nil {
		return result, err
	}
	body, isHTML := job.Template.Body()

	started := time.Now()
	for _, rcpt := range recipients {
		msg := domain.OutboundMessage{
			From:    from,
			To:      rcpt.Email,
			Subject: job.Template.Subject,
			Body:    body,
			IsHTML:  isHTML,
		}

		outcome := d.SendOne(ctx, msg)
		if status, ok := rcpt.Notifiable(); ok {
			status.SetResult(outcome.Kind)
			if outcome.Kind == domain.OutcomeSuccess {
				status.SetNotified(true)
			}
		}
		result.Record(outcome)
	}

	metrics.ObserveBatch(string(result.Kind), time.Since(started))
	d.log.Info("batch dispatched",
		"from", from.Email,
		"recipients", len(recipients),
		"result", string(result.Kind),
		"succeeded", result.Succeeded,
		"failed_recipients", result.FailedRecipients,
		"failed", result.Failed,
	)
	return result, nil
}

// SendOne performs exactly one transport call and classifies the result.
func (d *Dispatcher) SendOne(ctx context.Context, msg domain.OutboundMessage) domain.SendOutcome {
	err := d.transport.Send(ctx, msg)
	outcome := Classify(err)
	metrics.IncSendOutcome(string(outcome.Kind))

	if err != nil {
		d.log.Warn("send failed",
			"recipient", msg.To,
			"kind", string(outcome.Kind),
			"detail", outcome.Detail,
		)
	} else {
		d.log.Debug("send accepted", "recipient", msg.To)
	}
	return outcome
}

// Classify maps a transport result to an outcome. Errors that are not a
// recipient-attributable TransportError are general failures.
func Classify(err error) domain.SendOutcome {
	switch {
	case err == nil:
		return domain.SendOutcome{Kind: domain.OutcomeSuccess}
	case IsRecipientError(err):
		return domain.SendOutcome{Kind: domain.OutcomeFailedRecipient, Detail: err.Error()}
	default:
		return domain.SendOutcome{Kind: domain.OutcomeFailed, Detail: err.Error()}
	}
}
