package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/pkg/logger"
)

// Dequeuer is the consuming side of the job queue.
type Dequeuer interface {
	Dequeue(ctx context.Context, wait time.Duration) (*domain.NotificationJob, error)
}

// Processor runs one job to completion.
type Processor interface {
	Process(ctx context.Context, job domain.NotificationJob) (*domain.JobRecord, error)
}

// DefaultDrainTimeout bounds how long an in-flight job may keep running
// after the pool is stopped.
const DefaultDrainTimeout = 2 * time.Minute

// Pool runs a fixed number of goroutines that take jobs off the queue and
// hand them to a Processor. A dequeued job has already left Redis, so
// stopping the pool does not cancel it: the job keeps its own context until
// it returns or DrainTimeout elapses.
type Pool struct {
	DrainTimeout time.Duration

	queue        Dequeuer
	proc         Processor
	workerID     string
	numWorkers   int
	pollInterval time.Duration

	processed int64
	failed    int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewPool creates a worker pool. numWorkers below one means one.
func NewPool(queue Dequeuer, proc Processor, numWorkers int, pollInterval time.Duration) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Pool{
		DrainTimeout: DefaultDrainTimeout,
		queue:        queue,
		proc:         proc,
		workerID:     fmt.Sprintf("worker-%s", uuid.New().String()[:8]),
		numWorkers:   numWorkers,
		pollInterval: pollInterval,
	}
}

// Start launches the workers. It is a no-op if the pool is running.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	ctx, p.cancel = context.WithCancel(ctx)

	logger.Info("worker pool starting", "worker_id", p.workerID, "workers", p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i)
	}
}

// Stop stops dequeuing and waits for in-flight jobs to return.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	logger.Info("worker pool stopped",
		"worker_id", p.workerID,
		"processed", atomic.LoadInt64(&p.processed),
		"failed", atomic.LoadInt64(&p.failed),
	)
}

// Stats returns job counters since start.
func (p *Pool) Stats() map[string]int64 {
	return map[string]int64{
		"processed": atomic.LoadInt64(&p.processed),
		"failed":    atomic.LoadInt64(&p.failed),
	}
}

func (p *Pool) loop(ctx context.Context, n int) {
	defer p.wg.Done()
	log := logger.With("worker_id", p.workerID, "worker", n)

	for ctx.Err() == nil {
		job, err := p.queue.Dequeue(ctx, p.pollInterval)
		switch {
		case errors.Is(err, ErrQueueEmpty):
			continue
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			log.Error("dequeue failed", "error", err)
			sleepCtx(ctx, time.Second)
			continue
		}

		jobCtx, done := p.jobContext(ctx, job.ID)
		rec, err := p.proc.Process(jobCtx, *job)
		done()
		atomic.AddInt64(&p.processed, 1)
		if err != nil {
			atomic.AddInt64(&p.failed, 1)
			log.Error("job failed", "job_id", job.ID, "error", err)
			continue
		}
		log.Info("job finished", "job_id", job.ID, "result", string(rec.Result.Kind))
	}
}

// jobContext detaches a job from pool shutdown. Once ctx is cancelled the
// job gets DrainTimeout to finish before its own context is cancelled.
func (p *Pool) jobContext(ctx context.Context, jobID string) (context.Context, context.CancelFunc) {
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, func() {
		timer := time.NewTimer(p.DrainTimeout)
		defer timer.Stop()
		select {
		case <-jobCtx.Done():
		case <-timer.C:
			logger.Warn("drain timeout reached, cancelling job", "worker_id", p.workerID, "job_id", jobID)
			cancel()
		}
	})
	return jobCtx, func() {
		stop()
		cancel()
	}
}
