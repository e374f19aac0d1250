package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/drillsheet/internal/adapters/mq/queue"
	"github.com/okian/drillsheet/pkg/logger"
	"github.com/okian/drillsheet/pkg/metrics"
)

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker runs jobs until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	name   string
	logger logger.Logger

	// called after every job with its queue-to-finish latency
	onDone func(time.Duration)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
}

// NewInMemoryWorker creates a worker reading from q.
func NewInMemoryWorker(q Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		name:     "worker",
		logger:   logger.GetOrDiscard(),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
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

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Shutdown signals the worker and waits for it to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// stop tells the worker to return after its current job without waiting.
func (w *InMemoryWorker) stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

// process runs one job, containing panics so one bad job cannot take the
// pool down.
func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) {
	metrics.AddActiveWorkers(1)
	defer func() {
		metrics.AddActiveWorkers(-1)
		if r := recover(); r != nil {
			w.logger.Error(ctx, "job panicked",
				logger.String("job_id", j.ID),
				logger.Any("panic", r))
		}
		latency := time.Since(j.Enqueued)
		metrics.RecordJobLatency(float64(latency.Milliseconds()))
		if w.onDone != nil {
			w.onDone(latency)
		}
	}()

	if j.Run == nil {
		return
	}
	j.Run(ctx)
}

// Stats is a snapshot of pool activity.
type Stats struct {
	Workers   int   `json:"workers"`
	Processed int64 `json:"processed"`
	Running   bool  `json:"running"`
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   queue.Queue
	logger  logger.Logger

	processed atomic.Int64
	running   atomic.Bool
}

// NewPool creates workerCount workers over q. opts apply to every worker.
func NewPool(workerCount int, q queue.Queue, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
	}
	for i := range p.workers {
		w := NewInMemoryWorker(q, append(opts, WithName("worker-"+strconv.Itoa(i)))...)
		w.onDone = func(time.Duration) { p.processed.Add(1) }
		p.workers[i] = w
	}
	probe := &InMemoryWorker{logger: logger.GetOrDiscard()}
	for _, opt := range opts {
		opt(probe)
	}
	p.logger = probe.logger.Named("worker-pool")

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Stats returns a snapshot of the pool.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   len(p.workers),
		Processed: p.processed.Load(),
		Running:   p.running.Load(),
	}
}

// Shutdown closes the queue so workers drain what is already queued, then
// waits for them. When ctx ends first every worker still running is told to
// stop and Shutdown returns without waiting for their current jobs.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	if !p.running.Load() {
		return nil
	}
	defer p.running.Store(false)

	for i, w := range p.workers {
		select {
		case <-w.done:
			continue
		case <-ctx.Done():
		}
		for _, rest := range p.workers[i:] {
			rest.stop()
		}
		p.logger.Warn(ctx, "worker drain cut short", logger.Int("pending_workers", len(p.workers)-i))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
	return nil
}
