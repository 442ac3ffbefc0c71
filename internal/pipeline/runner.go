package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Runner tracks in-flight jobs so the HTTP layer can launch and cancel them
// without holding request contexts open. One goroutine per job; panics are
// contained and logged instead of taking the process down.
type Runner struct {
	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
	logger  zerolog.Logger
}

// NewRunner creates an empty registry.
func NewRunner(logger zerolog.Logger) *Runner {
	return &Runner{
		running: make(map[string]context.CancelFunc),
		logger:  logger.With().Str("component", "runner").Logger(),
	}
}

// Launch starts fn for the job in the background. A job that is already
// running is not started twice.
func (r *Runner) Launch(jobID string, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return fmt.Errorf("pipeline: runner is shut down")
	}
	if _, exists := r.running[jobID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("pipeline: job %s is already running", jobID)
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.running[jobID] = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.running, jobID)
			r.mu.Unlock()
			cancel()
		}()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error().Str("job_id", jobID).Interface("panic", rec).Msg("job panicked")
			}
		}()
		if err := fn(ctx); err != nil {
			r.logger.Warn().Err(err).Str("job_id", jobID).Msg("job finished with error")
		}
	}()
	return nil
}

// Cancel aborts the job's context. Returns false when the job is not
// currently running.
func (r *Runner) Cancel(jobID string) bool {
	r.mu.Lock()
	cancel, ok := r.running[jobID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Running reports the number of in-flight jobs.
func (r *Runner) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}

// Shutdown cancels everything and waits for the goroutines to drain, bounded
// by ctx.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	for _, cancel := range r.running {
		cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
