package worker

import (
	"context"
	"time"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/pkg/logger"
)

// BatchSender sends one chunk of recipients. *sending.Dispatcher satisfies it.
type BatchSender interface {
	SendBatch(ctx context.Context, job domain.MessageJob, recipients []domain.Recipient) (domain.BatchResult, error)
}

// Scheduler slices a recipient list into chunks of at most BatchSize and
// sends them in order, sleeping Pause between chunks. Chunk results are
// merged so the final aggregate equals that of one sequential batch.
type Scheduler struct {
	BatchSize int
	Pause     time.Duration

	// OnChunk runs after every chunk with the number of recipients sent so
	// far. Used to renew job locks.
	OnChunk func(ctx context.Context, sent int)

	sleep func(ctx context.Context, d time.Duration) error
}

// NewScheduler paces sends with the profile's batch settings.
func NewScheduler(profile *domain.SenderProfile) *Scheduler {
	return &Scheduler{BatchSize: profile.BatchSize, Pause: profile.BatchPause}
}

// Run sends every chunk. A configuration error from the first chunk is
// returned before anything is sent. If ctx is cancelled between chunks, Run
// stops and returns the partial result with ctx.Err().
func (s *Scheduler) Run(ctx context.Context, sender BatchSender, job domain.MessageJob, recipients []domain.Recipient) (domain.BatchResult, error) {
	size := s.BatchSize
	if size < 1 {
		size = domain.DefaultBatchSize
	}
	sleep := s.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	if len(recipients) == 0 {
		return sender.SendBatch(ctx, job, nil)
	}

	total := domain.NewBatchResult()
	for start := 0; start < len(recipients); start += size {
		if start > 0 {
			if s.Pause > 0 {
				logger.Debug("pausing between chunks", "pause", s.Pause.String(), "sent", start)
			}
			if err := sleep(ctx, s.Pause); err != nil {
				return total, err
			}
		}

		end := min(start+size, len(recipients))
		res, err := sender.SendBatch(ctx, job, recipients[start:end])
		if err != nil {
			return total, err
		}
		total.Merge(res)

		if s.OnChunk != nil {
			s.OnChunk(ctx, end)
		}
	}
	return total, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
