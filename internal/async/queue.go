// Package async runs extractions on a fixed pool of workers.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extraction"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one file to extract. Input wins over Path when set.
type Job struct {
	ID          string
	Path        string
	Input       *entity.ExtractionInput
	SubmittedAt time.Time
	TraceID     string
}

// Result is delivered to the callback once per job.
type Result struct {
	Job    Job
	Input  entity.ExtractionInput
	Report extraction.Report
	Err    error // only load failures; extraction itself never fails
}

// Runner is the extraction engine.
type Runner interface {
	Run(ctx context.Context, in entity.ExtractionInput) extraction.Report
}

// Queue fans jobs out to workers.
type Queue struct {
	engine   Runner
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	callback func(Result)
	load     func(path string) (entity.ExtractionInput, error)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.Mutex
	closed  bool
	done    chan struct{}
	senders sync.WaitGroup
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithCallback receives every result. It is called from worker goroutines.
func WithCallback(fn func(Result)) Option {
	return func(q *Queue) { q.callback = fn }
}

// WithLoader replaces how job paths are read.
func WithLoader(fn func(path string) (entity.ExtractionInput, error)) Option {
	return func(q *Queue) {
		if fn != nil {
			q.load = fn
		}
	}
}

// NewQueue starts the workers.
func NewQueue(engine Runner, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		engine:  engine,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		load:    ingest.ReadInput,
		ch:      make(chan Job, 256),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)
				for job := range q.ch {
					q.process(workerID, job)
				}
				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *Queue) process(workerID int, job Job) {
	res := Result{Job: job}
	if job.Input != nil {
		res.Input = *job.Input
	} else {
		in, err := q.load(job.Path)
		if err != nil {
			q.logger.Error("job load failed", "worker_id", workerID, "job_id", job.ID, "path", job.Path, "error", err)
			res.Err = err
			q.deliver(res)
			return
		}
		res.Input = in
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	res.Report = q.engine.Run(ctx, res.Input)
	cancel()

	q.logger.Info("processed file",
		"worker_id", workerID,
		"job_id", job.ID,
		"filename", res.Input.OriginalFilename,
		"method", res.Report.Method,
		"queued_ms", time.Since(job.SubmittedAt).Milliseconds(),
	)
	q.deliver(res)
}

func (q *Queue) deliver(res Result) {
	if q.callback != nil {
		q.callback(res)
	}
}

// Enqueue submits a job, blocking while the queue is full.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", job.ID)
		return ErrQueueClosed
	}
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	select {
	case q.ch <- job:
		q.logger.Debug("queued file for processing", "job_id", job.ID, "path", job.Path)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "job_id", job.ID)
	select {
	case q.ch <- job:
		return nil
	case <-q.done:
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", job.ID)
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish or ctx
// to end.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	// Blocked senders see done and return; ch closes once none remain.
	q.senders.Wait()
	close(q.ch)

	drained := make(chan struct{})
	go func() { defer close(drained); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-drained:
		q.logger.Info("queue drained, shutdown complete")
	}
}
