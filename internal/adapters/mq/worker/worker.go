// Package worker runs per-team odds tasks on a bounded set of goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/podium/internal/adapters/mq/queue"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Handler processes one task.
type Handler func(ctx context.Context, t queue.Task) error

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Task
}

// Worker processes tasks until its queue drains or it is told to stop.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the task in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for a channel-backed queue.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	onError func(error)
	name    string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options. onError
// receives every failed task's error and may be nil.
func NewInMemoryWorker(q Queue, handler Handler, onError func(error), opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		handler:  handler,
		onError:  onError,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			if err := w.process(ctx, task); err != nil {
				w.logger.Debug(ctx, "task failed", logger.Int("index", task.Index), logger.Error(err))
				if w.onError != nil {
					w.onError(err)
				}
			}
		}
	}
}

// Shutdown stops the worker and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, task queue.Task) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %d: %w: %v", task.Index, ErrPanic, r)
		}
		metrics.RecordWorkerTask(float64(time.Since(start).Microseconds())/1000, err != nil)
		if err != nil {
			metrics.RecordError("worker", "task")
		}
	}()
	return w.handler(ctx, task)
}

// Pool fans indexed work out over a fixed number of workers. It satisfies the
// odds engine's Runner, and concurrent Run calls are independent.
type Pool struct {
	workerCount int
	logger      logger.Logger

	// Run holds mu for reading; Stop takes it for writing to wait out
	// in-flight runs.
	mu      sync.RWMutex
	stopped bool
	runs    atomic.Int64
}

// NewPool creates a pool of workerCount workers per run. A count below one
// means one worker per CPU.
func NewPool(workerCount int, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workerCount: workerCount,
		logger:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// WorkerCount returns the number of workers used per run.
func (p *Pool) WorkerCount() int { return p.workerCount }

// Runs returns how many Run calls have completed.
func (p *Pool) Runs() int64 { return p.runs.Load() }

// Run calls fn once for every index in [0, n) and returns the first error.
// The first failure cancels the context passed to the remaining calls.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	defer p.runs.Add(1)

	if n <= 0 {
		return nil
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(n))
	for i := 0; i < n; i++ {
		if !q.Enqueue(ctx, queue.Task{Index: i}) {
			_ = q.Close()
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("task %d: %w", i, ErrQueueFull)
		}
	}
	_ = q.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once     sync.Once
		firstErr error
	)
	onError := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}
	handler := func(ctx context.Context, t queue.Task) error { return fn(ctx, t.Index) }

	count := p.workerCount
	if count > n {
		count = n
	}
	workers := make([]*InMemoryWorker, count)
	for i := range workers {
		workers[i] = NewInMemoryWorker(q, handler, onError,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
		)
		go workers[i].Run(runCtx)
	}
	for _, w := range workers {
		<-w.Done()
	}

	if firstErr != nil {
		return firstErr
	}
	// Workers exit early on cancellation and may leave tasks behind.
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Stop rejects new runs and waits for in-flight runs to finish or ctx to end.
func (p *Pool) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool stop timed out")
		return fmt.Errorf("stop timed out: %w", ctx.Err())
	}
}
