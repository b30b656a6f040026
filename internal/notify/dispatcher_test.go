package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
	block  chan struct{}
}

func (r *recordingPublisher) Publish(ctx context.Context, topic string, env *Envelope) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return r.err
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics)
}

func TestNewDispatcher_DefaultsWorkerCount(t *testing.T) {
	d := NewDispatcher(&recordingPublisher{}, DispatcherConfig{QueueSize: 4, WorkerCount: 0}, discardLogger())
	assert.Equal(t, 1, d.workerCount)
	assert.Equal(t, 4, cap(d.jobs))
}

func TestDispatcher_DrainsOnStop(t *testing.T) {
	next := &recordingPublisher{}
	d := NewDispatcher(next, DispatcherConfig{QueueSize: 10, WorkerCount: 3}, discardLogger())
	d.Start()

	for i := 0; i < 10; i++ {
		require.NoError(t, d.Publish(context.Background(), "reminders", mustEnvelope(t, "")))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))

	assert.Equal(t, 10, next.count())
	assert.ErrorIs(t, d.Publish(context.Background(), "reminders", mustEnvelope(t, "")), ErrQueueClosed)
}

func TestDispatcher_QueueFull(t *testing.T) {
	d := NewDispatcher(&recordingPublisher{}, DispatcherConfig{QueueSize: 1, WorkerCount: 1}, discardLogger())

	require.NoError(t, d.Publish(context.Background(), "t", mustEnvelope(t, "")))
	err := d.Publish(context.Background(), "t", mustEnvelope(t, ""))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Contains(t, err.Error(), "capacity 1")
}

func TestDispatcher_PublishIgnoresCallerCancellation(t *testing.T) {
	next := &recordingPublisher{}
	d := NewDispatcher(next, DispatcherConfig{QueueSize: 1, WorkerCount: 1}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Publish(ctx, "t", mustEnvelope(t, "")))
	cancel()

	d.Start()
	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, 1, next.count())
}

func TestDispatcher_ErrorHandler(t *testing.T) {
	boom := errors.New("broker down")
	next := &recordingPublisher{err: boom}
	d := NewDispatcher(next, DispatcherConfig{QueueSize: 2, WorkerCount: 1}, discardLogger())

	var mu sync.Mutex
	var failed []error
	d.SetErrorHandler(func(topic string, env *Envelope, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, err)
	})

	d.Start()
	require.NoError(t, d.Publish(context.Background(), "t", mustEnvelope(t, "")))
	require.NoError(t, d.Stop(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0], boom)
}

func TestDispatcher_DuplicatesAreNotFailures(t *testing.T) {
	next := &recordingPublisher{err: ErrDuplicate}
	d := NewDispatcher(next, DispatcherConfig{QueueSize: 1, WorkerCount: 1}, discardLogger())

	called := false
	d.SetErrorHandler(func(string, *Envelope, error) { called = true })

	d.Start()
	require.NoError(t, d.Publish(context.Background(), "t", mustEnvelope(t, "k")))
	require.NoError(t, d.Stop(context.Background()))
	assert.False(t, called)
}

func TestDispatcher_StopTimeout(t *testing.T) {
	next := &recordingPublisher{block: make(chan struct{})}
	d := NewDispatcher(next, DispatcherConfig{QueueSize: 1, WorkerCount: 1}, discardLogger())
	d.Start()
	require.NoError(t, d.Publish(context.Background(), "t", mustEnvelope(t, "")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Stop(ctx), context.DeadlineExceeded)

	close(next.block)
}
