package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrDuplicate is returned by publishers that have already accepted an
// envelope with the same idempotency key.
var ErrDuplicate = errors.New("notification already published")

// Publisher delivers envelopes to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, env *Envelope) error
}

// Handler consumes envelopes.
type Handler interface {
	Handle(ctx context.Context, env *Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, env *Envelope) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, env *Envelope) error {
	return f(ctx, env)
}

// InMemoryPublisher delivers envelopes synchronously to handlers registered
// for a topic. Envelopes carrying an idempotency key are delivered at most
// once for the lifetime of the publisher.
type InMemoryPublisher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	seen     map[string]struct{}
	logger   *slog.Logger
}

var _ Publisher = (*InMemoryPublisher)(nil)

// NewInMemoryPublisher creates an empty publisher.
func NewInMemoryPublisher(logger *slog.Logger) *InMemoryPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryPublisher{
		handlers: make(map[string][]Handler),
		seen:     make(map[string]struct{}),
		logger:   logger.With(slog.String("component", "in_memory_publisher")),
	}
}

// Subscribe registers h for topic.
func (p *InMemoryPublisher) Subscribe(topic string, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[topic] = append(p.handlers[topic], h)
	p.logger.Debug("registered handler",
		slog.String("topic", topic),
		slog.Int("handler_count", len(p.handlers[topic])))
}

// Publish hands env to every handler of topic. All handlers run even if one
// fails; the first error is returned and the idempotency key is released so
// the envelope can be published again.
func (p *InMemoryPublisher) Publish(ctx context.Context, topic string, env *Envelope) error {
	p.mu.Lock()
	if env.IdempotencyKey != "" {
		if _, dup := p.seen[env.IdempotencyKey]; dup {
			p.mu.Unlock()
			return ErrDuplicate
		}
		p.seen[env.IdempotencyKey] = struct{}{}
	}
	handlers := make([]Handler, len(p.handlers[topic]))
	copy(handlers, p.handlers[topic])
	p.mu.Unlock()

	if len(handlers) == 0 {
		p.logger.Warn("no handlers registered for topic",
			slog.String("topic", topic),
			slog.String("envelope_id", env.ID.String()),
			slog.String("envelope_type", env.Type))
		return nil
	}

	var firstErr error
	for i, h := range handlers {
		if err := h.Handle(ctx, env); err != nil {
			p.logger.Error("handler failed to process envelope",
				slog.String("error", err.Error()),
				slog.Int("handler_index", i),
				slog.String("topic", topic),
				slog.String("envelope_id", env.ID.String()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil && env.IdempotencyKey != "" {
		p.mu.Lock()
		delete(p.seen, env.IdempotencyKey)
		p.mu.Unlock()
	}
	return firstErr
}
