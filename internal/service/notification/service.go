package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/metrics"
	"github.com/ignite/graphmail/internal/pkg/distlock"
	"github.com/ignite/graphmail/internal/pkg/logger"
	"github.com/ignite/graphmail/internal/service/sending"
	"github.com/ignite/graphmail/internal/worker"
)

var (
	// ErrQueueUnavailable is returned by Enqueue when no queue is configured.
	ErrQueueUnavailable = errors.New("job queue not configured")
	// ErrJobLocked means another process is already running the job.
	ErrJobLocked = errors.New("job is being processed elsewhere")
	// ErrNoRecipients rejects jobs without anyone to notify.
	ErrNoRecipients = errors.New("job has no recipients")
	// ErrDuplicateRecipient rejects jobs that address one mailbox twice.
	// Delivery status is stored per job and address.
	ErrDuplicateRecipient = errors.New("duplicate recipient")
)

// Service implements notification job logic.
type Service struct {
	profiles   ProfileLoader
	transports TransportFactory
	store      DeliveryStore
	queue      Enqueuer
	locks      func(key string) Lock
	lockTTL    time.Duration
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithQueue enables asynchronous delivery through Enqueue.
func WithQueue(q Enqueuer) Option {
	return func(s *Service) { s.queue = q }
}

// WithLocks guards Process with a per-job lock renewed after every chunk.
func WithLocks(f func(key string) Lock, ttl time.Duration) Option {
	return func(s *Service) {
		s.locks = f
		s.lockTTL = ttl
	}
}

// NewService creates a notification service.
func NewService(profiles ProfileLoader, transports TransportFactory, store DeliveryStore, opts ...Option) *Service {
	s := &Service{
		profiles:   profiles,
		transports: transports,
		store:      store,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prepare validates a job and fills in its id, profile and timestamp.
func (s *Service) Prepare(job *domain.NotificationJob) error {
	if len(job.Recipients) == 0 {
		return ErrNoRecipients
	}
	seen := make(map[string]int, len(job.Recipients))
	for i, r := range job.Recipients {
		addr := strings.ToLower(strings.TrimSpace(r.Email))
		if addr == "" {
			return fmt.Errorf("recipient %d: email is required", i)
		}
		if first, ok := seen[addr]; ok {
			return fmt.Errorf("recipient %d repeats recipient %d (%s): %w", i, first, logger.RedactEmail(addr), ErrDuplicateRecipient)
		}
		seen[addr] = i
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Profile == "" {
		job.Profile = domain.DefaultProfileName
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = s.now().UTC()
	}
	return nil
}

// Enqueue checks that the job's profile loads, records the job as queued
// and pushes it onto the queue. Configuration errors are returned before
// anything is stored.
func (s *Service) Enqueue(ctx context.Context, job domain.NotificationJob) (*domain.JobRecord, error) {
	if s.queue == nil {
		return nil, ErrQueueUnavailable
	}
	if err := s.Prepare(&job); err != nil {
		return nil, err
	}
	if _, err := s.profiles.Load(ctx, job.Profile); err != nil {
		return nil, err
	}

	rec := domain.JobRecord{
		ID:         job.ID,
		Profile:    job.Profile,
		Status:     domain.JobQueued,
		Result:     domain.NewBatchResult(),
		Recipients: len(job.Recipients),
		StartedAt:  job.EnqueuedAt,
	}
	if err := s.store.SaveJob(ctx, rec); err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	metrics.IncQueueJob("enqueued")
	logger.Info("notification job queued", "job_id", job.ID, "profile", job.Profile, "recipients", len(job.Recipients))
	return &rec, nil
}

// SendNow runs a job synchronously and returns its final record.
func (s *Service) SendNow(ctx context.Context, job domain.NotificationJob) (*domain.JobRecord, error) {
	if err := s.Prepare(&job); err != nil {
		return nil, err
	}
	return s.Process(ctx, job)
}

// Get returns the stored record of a job.
func (s *Service) Get(ctx context.Context, id string) (*domain.JobRecord, error) {
	return s.store.GetJob(ctx, id)
}

// Process sends job to all its recipients. Configuration errors mark the
// job failed and are returned; per-recipient failures only show up in the
// record's result.
func (s *Service) Process(ctx context.Context, job domain.NotificationJob) (*domain.JobRecord, error) {
	log := logger.With("job_id", job.ID, "profile", job.Profile)

	var lock Lock
	if s.locks != nil {
		lock = s.locks("job:" + job.ID)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire job lock: %w", err)
		}
		if !ok {
			metrics.IncQueueJob("skipped")
			return nil, ErrJobLocked
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("release job lock failed", "error", err)
			}
		}()
	}

	rec := domain.JobRecord{
		ID:         job.ID,
		Profile:    job.Profile,
		Status:     domain.JobRunning,
		Result:     domain.NewBatchResult(),
		Recipients: len(job.Recipients),
		StartedAt:  s.now().UTC(),
	}
	if err := s.store.SaveJob(ctx, rec); err != nil {
		return nil, err
	}

	result, err := s.run(ctx, job, lock)
	rec.Result = result
	finished := s.now().UTC()
	rec.FinishedAt = &finished
	if err != nil {
		rec.Status = domain.JobFailed
		rec.Error = err.Error()
		metrics.IncQueueJob("failed")
	} else {
		rec.Status = domain.JobCompleted
		metrics.IncQueueJob("completed")
	}

	if saveErr := s.store.SaveJob(context.WithoutCancel(ctx), rec); saveErr != nil {
		log.Error("save job record failed", "error", saveErr)
	}
	return &rec, err
}

func (s *Service) run(ctx context.Context, job domain.NotificationJob, lock Lock) (domain.BatchResult, error) {
	empty := domain.NewBatchResult()

	profile, err := s.profiles.Load(ctx, job.Profile)
	if err != nil {
		return empty, err
	}
	transport, err := s.transports.New(ctx, profile)
	if err != nil {
		return empty, err
	}
	dispatcher, err := sending.NewDispatcher(profile, transport)
	if err != nil {
		return empty, err
	}

	statusCtx := context.WithoutCancel(ctx)
	recipients := make([]domain.Recipient, len(job.Recipients))
	for i, r := range job.Recipients {
		recipients[i] = domain.Recipient{
			Email:  r.Email,
			Status: &deliveryStatus{ctx: statusCtx, store: s.store, jobID: job.ID, rcpt: r},
		}
	}

	sched := worker.NewScheduler(profile)
	if ext, ok := lock.(distlock.Extender); ok && s.lockTTL > 0 {
		sched.OnChunk = func(ctx context.Context, sent int) {
			if err := ext.Extend(ctx, s.lockTTL); err != nil {
				logger.Warn("extend job lock failed", "job_id", job.ID, "sent", sent, "error", err)
			}
		}
	}
	return sched.Run(ctx, dispatcher, job.Message, recipients)
}
