package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jaehyun-song/ocr-gateway/constants"
	"github.com/jaehyun-song/ocr-gateway/internal/common"
)

type fakeModel struct {
	mu       sync.Mutex
	cur      int
	max      int
	runs     int
	delay    time.Duration
	err      error
	honorCtx bool
}

func (f *fakeModel) track() func() {
	f.mu.Lock()
	f.cur++
	if f.cur > f.max {
		f.max = f.cur
	}
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.cur--
		f.runs++
		f.mu.Unlock()
	}
}

func (f *fakeModel) wait(ctx context.Context) error {
	if f.honorCtx {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.delay):
			return nil
		}
	}
	time.Sleep(f.delay)
	return nil
}

func (f *fakeModel) Recognize(ctx context.Context, inputPath, outputDir string, kind constants.TaskKind) (string, error) {
	defer f.track()()
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return outputDir, nil
}

func (f *fakeModel) Parse(ctx context.Context, inputPath, outputDir string) (string, error) {
	defer f.track()()
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return outputDir, nil
}

func (f *fakeModel) Loaded() bool { return true }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Submitting more jobs than the pool has workers queues the excess; no job is
// dropped and total completions equal total submissions.
func TestRunner_QueuesExcessJobs(t *testing.T) {
	m := &fakeModel{delay: 20 * time.Millisecond}
	r := NewRunner(m, quietLogger(), WithWorkers(2), WithQueueSize(16))
	defer r.Shutdown(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const n = 6
	futs := make([]*Future, 0, n)
	for i := 0; i < n; i++ {
		fut, err := r.Submit(ctx, NewJob(constants.TaskText, fmt.Sprintf("in-%d", i), "out"))
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		futs = append(futs, fut)
	}
	for i, fut := range futs {
		if _, err := fut.Wait(ctx); err != nil {
			t.Errorf("job %d failed: %v", i, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs != n {
		t.Errorf("expected %d completions, got %d", n, m.runs)
	}
	if m.max > 2 {
		t.Errorf("concurrency exceeded pool size: %d", m.max)
	}
}

func TestRunner_ErrorPropagation(t *testing.T) {
	cause := errors.New("model exploded")
	m := &fakeModel{err: cause}
	r := NewRunner(m, quietLogger(), WithWorkers(1))
	defer r.Shutdown(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fut, err := r.Submit(ctx, NewJob(constants.TaskText, "in", "out"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	_, err = fut.Wait(ctx)
	if err == nil {
		t.Fatal("expected error from failing model")
	}
	if !errors.Is(err, cause) {
		t.Errorf("error should carry the underlying cause, got %v", err)
	}
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "TASK_EXECUTION" {
		t.Errorf("expected TASK_EXECUTION wrapper, got %v", err)
	}
}

// A job that outlives the configured deadline is cancelled and its future
// reports the deadline through the usual task error wrapper.
func TestRunner_AppliesJobTimeout(t *testing.T) {
	m := &fakeModel{delay: 5 * time.Second, honorCtx: true}
	r := NewRunner(m, quietLogger(), WithWorkers(1), WithJobTimeout(20*time.Millisecond))
	defer r.Shutdown(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fut, err := r.Submit(ctx, NewJob(constants.TaskText, "in", "out"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	_, err = fut.Wait(ctx)
	if err == nil {
		t.Fatal("expected timed-out job to fail")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error should carry the deadline, got %v", err)
	}
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "TASK_EXECUTION" {
		t.Errorf("expected TASK_EXECUTION wrapper, got %v", err)
	}
}

func TestRunner_SubmitAfterShutdown(t *testing.T) {
	r := NewRunner(&fakeModel{}, quietLogger(), WithWorkers(1))
	r.Shutdown(context.Background())

	_, err := r.Submit(context.Background(), NewJob(constants.TaskText, "in", "out"))
	if !errors.Is(err, common.ErrShutdown) {
		t.Errorf("expected ErrShutdown, got %v", err)
	}
}

// Submissions blocked on a full queue are drained by shutdown rather than
// dropped, and a shutdown issued while they wait still completes.
func TestRunner_ShutdownDrainsBackpressuredSubmits(t *testing.T) {
	m := &fakeModel{delay: 50 * time.Millisecond}
	r := NewRunner(m, quietLogger(), WithWorkers(1), WithQueueSize(1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// First job runs, second fills the queue.
	futA, err := r.Submit(ctx, NewJob(constants.TaskText, "in-a", "out"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	futB, err := r.Submit(ctx, NewJob(constants.TaskText, "in-b", "out"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Two more block on backpressure concurrently.
	const blocked = 2
	futs := make([]*Future, blocked)
	errs := make([]error, blocked)
	var wg sync.WaitGroup
	for i := 0; i < blocked; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			futs[i], errs[i] = r.Submit(ctx, NewJob(constants.TaskText, fmt.Sprintf("in-%d", i), "out"))
		}(i)
	}
	time.Sleep(25 * time.Millisecond)

	r.Shutdown(ctx)
	wg.Wait()

	for i := 0; i < blocked; i++ {
		if errs[i] != nil {
			t.Fatalf("backpressured submit %d failed: %v", i, errs[i])
		}
		if _, err := futs[i].Wait(ctx); err != nil {
			t.Errorf("backpressured job %d not drained: %v", i, err)
		}
	}
	for i, fut := range []*Future{futA, futB} {
		if _, err := fut.Wait(ctx); err != nil {
			t.Errorf("job %d not drained: %v", i, err)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs != blocked+2 {
		t.Errorf("expected %d completions after drain, got %d", blocked+2, m.runs)
	}
}

// Shutdown stops intake and waits for in-flight jobs to finish.
func TestRunner_ShutdownDrains(t *testing.T) {
	m := &fakeModel{delay: 30 * time.Millisecond}
	r := NewRunner(m, quietLogger(), WithWorkers(2), WithQueueSize(8))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const n = 4
	futs := make([]*Future, 0, n)
	for i := 0; i < n; i++ {
		fut, err := r.Submit(ctx, NewJob(constants.TaskParse, "in", "out"))
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		futs = append(futs, fut)
	}

	r.Shutdown(ctx)

	for i, fut := range futs {
		if _, err := fut.Wait(ctx); err != nil {
			t.Errorf("job %d not drained: %v", i, err)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs != n {
		t.Errorf("expected %d completions after drain, got %d", n, m.runs)
	}
}

func TestFuture_WaitHonorsContext(t *testing.T) {
	m := &fakeModel{delay: 500 * time.Millisecond}
	r := NewRunner(m, quietLogger(), WithWorkers(1))
	defer r.Shutdown(context.Background())

	fut, err := r.Submit(context.Background(), NewJob(constants.TaskText, "in", "out"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := fut.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
