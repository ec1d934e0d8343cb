// Package task runs model invocations on a fixed-size worker pool so that at
// most N long-running jobs execute at once. Request handlers submit and then
// block only their own goroutine on the returned future.
package task

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/jaehyun-song/ocr-gateway/constants"
	"github.com/jaehyun-song/ocr-gateway/internal/common"
	"github.com/jaehyun-song/ocr-gateway/internal/model"
)

// Future is the completion handle for a submitted job.
type Future struct {
	done chan struct{}
	dir  string
	err  error
}

// Wait blocks until the job finishes or ctx is done, and returns the result
// directory the model produced.
func (f *Future) Wait(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-f.done:
		return f.dir, f.err
	}
}

func (f *Future) complete(dir string, err error) {
	f.dir = dir
	f.err = err
	close(f.done)
}

type submission struct {
	job Job
	fut *Future
}

// Runner owns the worker pool.
type Runner struct {
	model   model.Model
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan submission
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.Mutex
	closed  bool
	senders sync.WaitGroup
}

type Option func(*Runner)

func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.ch = make(chan submission, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewRunner(m model.Model, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		model:   m,
		logger:  logger,
		workers: 2,
		timeout: 10 * time.Minute,
		ch:      make(chan submission, 256),
	}
	for _, o := range opts {
		o(r)
	}
	r.start()
	return r
}

func (r *Runner) start() {
	r.once.Do(func() {
		for i := 0; i < r.workers; i++ {
			r.wg.Add(1)
			go func(workerID int) {
				defer r.wg.Done()
				r.logger.Info("worker started", "worker_id", workerID)

				for sub := range r.ch {
					jctx, cancel := context.WithTimeout(context.Background(), r.timeout)
					dir, err := r.execute(jctx, sub.job)
					cancel()

					if err != nil {
						r.logger.Error("job failed", "worker_id", workerID, "job_id", sub.job.ID, "kind", sub.job.Kind, "error", err)
					} else {
						r.logger.Info("job completed", "worker_id", workerID, "job_id", sub.job.ID, "kind", sub.job.Kind, "result_dir", dir)
					}
					sub.fut.complete(dir, err)
				}

				r.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (r *Runner) execute(ctx context.Context, job Job) (string, error) {
	var dir string
	var err error
	if job.Kind == constants.TaskParse {
		dir, err = r.model.Parse(ctx, job.InputPath, job.OutputDir)
	} else {
		dir, err = r.model.Recognize(ctx, job.InputPath, job.OutputDir, job.Kind)
	}
	if err != nil {
		return "", common.NewTaskError("model invocation failed", err)
	}
	return dir, nil
}

// Submit queues a job and returns its future. Submissions past queue capacity
// block until a slot frees or ctx is done.
func (r *Runner) Submit(ctx context.Context, job Job) (*Future, error) {
	fut := &Future{done: make(chan struct{})}
	sub := submission{job: job, fut: fut}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("cannot submit: runner is shutting down", "job_id", job.ID)
		return nil, common.ErrShutdown
	}
	select {
	case r.ch <- sub:
		r.mu.Unlock()
		r.logger.Info("queued job", "job_id", job.ID, "kind", job.Kind)
		return fut, nil
	default:
	}
	// Queue is full. Register as an in-flight sender before dropping the lock
	// so Shutdown keeps the channel open until this send resolves; blocking
	// here must not stall other submissions.
	r.senders.Add(1)
	r.mu.Unlock()
	defer r.senders.Done()

	r.logger.Warn("queue full, applying backpressure", "job_id", job.ID)
	select {
	case r.ch <- sub:
		return fut, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops intake, waits for in-flight jobs, bounded by ctx.
func (r *Runner) Shutdown(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	// Senders blocked on backpressure drain as workers free queue slots; the
	// channel must stay open until the last of them resolves.
	r.senders.Wait()
	close(r.ch)

	done := make(chan struct{})
	go func() { defer close(done); r.wg.Wait() }()

	select {
	case <-ctx.Done():
		r.logger.Warn("shutdown interrupted by context")
	case <-done:
		r.logger.Info("queue drained, shutdown complete")
	}
}
