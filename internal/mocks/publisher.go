package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/apitask/internal/notify"
)

// Published records one Publish call.
type Published struct {
	Topic    string
	Envelope *notify.Envelope
}

// MockPublisher implements notify.Publisher and records every call.
type MockPublisher struct {
	// PublishFn, when set, decides the result of each call. Calls are
	// recorded either way.
	PublishFn func(ctx context.Context, topic string, env *notify.Envelope) error
	Err       error

	mu    sync.Mutex
	calls []Published
}

var _ notify.Publisher = (*MockPublisher)(nil)

// Publish implements notify.Publisher.
func (m *MockPublisher) Publish(ctx context.Context, topic string, env *notify.Envelope) error {
	m.mu.Lock()
	m.calls = append(m.calls, Published{Topic: topic, Envelope: env})
	m.mu.Unlock()

	if m.PublishFn != nil {
		return m.PublishFn(ctx, topic, env)
	}
	return m.Err
}

// Calls returns the recorded calls in order.
func (m *MockPublisher) Calls() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Published(nil), m.calls...)
}
