package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Errors returned by Dispatcher.Publish.
var (
	ErrQueueClosed = errors.New("notification queue is closed")
	ErrQueueFull   = errors.New("notification queue is full")
)

// DispatcherConfig sizes the dispatcher.
type DispatcherConfig struct {
	// QueueSize is the number of envelopes buffered before Publish fails.
	QueueSize int
	// WorkerCount is the number of goroutines draining the queue.
	// If zero or negative, defaults to 1.
	WorkerCount int
}

type dispatchJob struct {
	ctx   context.Context
	topic string
	env   *Envelope
}

// Dispatcher is an asynchronous Publisher. Publish only enqueues; a pool of
// workers forwards envelopes to the wrapped publisher and logs failures.
type Dispatcher struct {
	next        Publisher
	jobs        chan dispatchJob
	workerCount int
	logger      *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	// errorHandler is called when the wrapped publisher fails.
	// If nil, errors are only logged.
	errorHandler func(topic string, env *Envelope, err error)
}

var _ Publisher = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher forwarding to next. Call Start before
// publishing and Stop on shutdown.
func NewDispatcher(next Publisher, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "notify_dispatcher"))

	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			slog.Int("specified_count", cfg.WorkerCount),
			slog.Int("default_count", 1))
	}
	queueSize := cfg.QueueSize
	if queueSize < 0 {
		queueSize = 0
	}

	return &Dispatcher{
		next:        next,
		jobs:        make(chan dispatchJob, queueSize),
		workerCount: workerCount,
		logger:      logger,
	}
}

// SetErrorHandler installs a callback for failed deliveries.
func (d *Dispatcher) SetErrorHandler(h func(topic string, env *Envelope, err error)) {
	d.errorHandler = h
}

// Start launches the workers.
func (d *Dispatcher) Start() {
	d.logger.Info("starting notification dispatcher",
		slog.Int("worker_count", d.workerCount),
		slog.Int("queue_cap", cap(d.jobs)))

	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Publish enqueues env without blocking. The caller's context values travel
// with the job but its cancellation does not.
func (d *Dispatcher) Publish(ctx context.Context, topic string, env *Envelope) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrQueueClosed
	}

	select {
	case d.jobs <- dispatchJob{ctx: context.WithoutCancel(ctx), topic: topic, env: env}:
		d.logger.Debug("envelope enqueued",
			slog.String("topic", topic),
			slog.String("envelope_id", env.ID.String()),
			slog.Int("queue_len", len(d.jobs)))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(d.jobs))
	}
}

// Stop rejects new envelopes and waits for the queue to drain or ctx to end.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warn("notification dispatcher stop timed out",
			slog.Int("pending", len(d.jobs)))
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	log := d.logger.With(slog.Int("worker_id", id))

	for job := range d.jobs {
		err := d.next.Publish(job.ctx, job.topic, job.env)
		switch {
		case err == nil:
			log.Debug("envelope published",
				slog.String("topic", job.topic),
				slog.String("envelope_id", job.env.ID.String()))
		case errors.Is(err, ErrDuplicate):
			log.Debug("duplicate envelope dropped",
				slog.String("topic", job.topic),
				slog.String("idempotency_key", job.env.IdempotencyKey))
		default:
			log.Error("failed to publish envelope",
				slog.String("error", err.Error()),
				slog.String("topic", job.topic),
				slog.String("envelope_id", job.env.ID.String()),
				slog.String("envelope_type", job.env.Type))
			if d.errorHandler != nil {
				d.errorHandler(job.topic, job.env, err)
			}
		}
	}
}
