// Package worker drains the patient job queue and ranks each patient.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/trialmatch/internal/adapters/mq/queue"
	model "github.com/okian/trialmatch/internal/domain/model"
	"github.com/okian/trialmatch/pkg/logger"
	"github.com/okian/trialmatch/pkg/metrics"
)

// Ranker ranks trials for one patient.
type Ranker interface {
	Rank(p *model.Patient) []model.MatchResult
}

// RankerFunc adapts a plain function to Ranker.
type RankerFunc func(p *model.Patient) []model.MatchResult

// Rank calls f(p).
func (f RankerFunc) Rank(p *model.Patient) []model.MatchResult { return f(p) }

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Slots holds one result list per job index. Each index is written by exactly
// one worker, so no locking is required until all workers have finished.
type Slots [][]model.MatchResult

// NewSlots allocates slots for n jobs.
func NewSlots(n int) Slots { return make(Slots, n) }

// Worker processes jobs until the queue is drained or the context ends.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker by ranking each dequeued patient into its slot.
type InMemoryWorker struct {
	queue  Queue
	ranker Ranker
	slots  Slots
	name   string

	processed atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, ranker Ranker, slots Slots, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		ranker:   ranker,
		slots:    slots,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
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
			if err := w.process(j); err != nil {
				w.logger.Error(ctx, "error processing job", logger.Int("index", j.Index), logger.Error(err))
			}
		}
	}
}

// Processed returns the number of jobs this worker completed.
func (w *InMemoryWorker) Processed() int64 {
	return w.processed.Load()
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown gracefully stops the worker.
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

// process ranks one patient and stores the results in its slot.
func (w *InMemoryWorker) process(j queue.Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	if j.Index < 0 || j.Index >= len(w.slots) {
		metrics.RecordErrorByComponent("worker", "slot_out_of_range")
		return fmt.Errorf("%w: %d of %d", ErrSlotOutOfRange, j.Index, len(w.slots))
	}

	start := time.Now()
	results := w.ranker.Rank(&j.Patient)
	metrics.RecordPatientLatency(float64(time.Since(start).Microseconds()) / 1000) //nolint:mnd // microseconds to milliseconds

	for _, r := range results {
		metrics.RecordMatch(r.Score)
	}
	w.slots[j.Index] = results
	w.processed.Add(1)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a new worker pool. A workerCount below 1 uses one worker
// per CPU.
func NewPool(workerCount int, q Queue, ranker Ranker, slots Slots, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Nop(),
	}

	// Pool-level logger comes from the same options the workers receive.
	settings := &InMemoryWorker{logger: pool.logger}
	for _, opt := range opts {
		opt(settings)
	}
	pool.logger = settings.logger.Named("worker-pool")

	for i := 0; i < workerCount; i++ {
		workerOpts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q, ranker, slots, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has returned and reports how many jobs
// were processed in total.
func (p *Pool) Wait() int {
	total := 0
	for _, w := range p.workers {
		<-w.done
		total += int(w.Processed())
	}
	return total
}

// Shutdown closes the queue and waits for all workers to finish or for ctx
// to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("pool shutdown: %w", ctx.Err())
		}
	}

	return nil
}
