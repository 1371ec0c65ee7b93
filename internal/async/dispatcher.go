package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobRunner is what the dispatcher launches; the pipeline processor
// satisfies it.
type JobRunner interface {
	ProcessJob(ctx context.Context, jobID uuid.UUID)
}

// Dispatcher launches one goroutine per submitted job. Delivery is at most
// once: there is no queue, no retry, and a process crash loses in-flight
// jobs, which then surface to clients as stuck pending. Shutdown waits for
// running jobs to drain.
type Dispatcher struct {
	runner  JobRunner
	timeout time.Duration
	log     *slog.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func NewDispatcher(runner JobRunner, jobTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{runner: runner, timeout: jobTimeout, log: logger}
}

// Submit starts processing jobID in the background. Returns false when the
// dispatcher is already shut down.
func (d *Dispatcher) Submit(jobID uuid.UUID) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn("dispatch.rejected_after_shutdown", "job_id", jobID)
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		ctx := context.Background()
		if d.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}

		d.log.Info("dispatch.start", "job_id", jobID)
		d.runner.ProcessJob(ctx, jobID)
		d.log.Info("dispatch.done", "job_id", jobID)
	}()
	return true
}

// Shutdown stops accepting jobs and waits for in-flight ones, up to the
// given grace period.
func (d *Dispatcher) Shutdown(grace time.Duration) {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info("dispatch.drained")
	case <-time.After(grace):
		d.log.Warn("dispatch.drain_timeout", "grace", grace)
	}
}
