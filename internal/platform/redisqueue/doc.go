// Package redisqueue carries notification envelopes over Redis Streams.
//
// Publisher appends envelopes to a stream per topic and suppresses repeats of
// the same idempotency key with a SET NX marker. Consumer reads streams through
// a consumer group, acknowledges handled entries and reclaims entries left
// pending by crashed or failing workers.
package redisqueue
