// Package notify defines the messages the core publishes to external delivery
// systems and the publishers that carry them.
//
// An Envelope wraps a typed JSON payload with an optional idempotency key.
// Publishers deliver envelopes to a named topic: InMemoryPublisher hands them
// to registered handlers in-process, Dispatcher decouples callers from a slow
// publisher with a bounded queue and a worker pool, and the Redis Streams
// publisher in platform/redisqueue provides the durable queue.
package notify
