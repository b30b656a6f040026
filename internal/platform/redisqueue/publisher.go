package redisqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/apitask/internal/notify"
	"github.com/phrazzld/apitask/internal/platform/logger"
)

// DedupeKeyPrefix prefixes the markers that record published idempotency keys.
const DedupeKeyPrefix = "notify:sent:"

// Publisher appends envelopes to the stream named by the topic.
type Publisher struct {
	client    redis.UniversalClient
	dedupeTTL time.Duration
	logger    *slog.Logger
}

var _ notify.Publisher = (*Publisher)(nil)

// NewPublisher creates a Publisher. Idempotency markers expire after
// dedupeTTL; zero keeps them forever.
func NewPublisher(client redis.UniversalClient, dedupeTTL time.Duration, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		client:    client,
		dedupeTTL: dedupeTTL,
		logger:    log.With(slog.String("component", "redis_publisher")),
	}
}

// Publish implements notify.Publisher. It returns notify.ErrDuplicate when the
// envelope's idempotency key was already published.
func (p *Publisher) Publish(ctx context.Context, topic string, env *notify.Envelope) error {
	log := logger.FromContextOrDefault(ctx, p.logger)

	var marker string
	if env.IdempotencyKey != "" {
		marker = DedupeKeyPrefix + env.IdempotencyKey
		fresh, err := p.client.SetNX(ctx, marker, env.ID.String(), p.dedupeTTL).Result()
		if err != nil {
			return fmt.Errorf("reserve idempotency key: %w", err)
		}
		if !fresh {
			log.Debug("idempotency key already published",
				slog.String("topic", topic),
				slog.String("idempotency_key", env.IdempotencyKey))
			return notify.ErrDuplicate
		}
	}

	entryID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: encodeEnvelope(env),
	}).Result()
	if err != nil {
		if marker != "" {
			// Release the key so a later attempt can publish.
			if delErr := p.client.Del(context.WithoutCancel(ctx), marker).Err(); delErr != nil {
				log.Warn("failed to release idempotency key",
					slog.String("idempotency_key", env.IdempotencyKey),
					slog.String("error", delErr.Error()))
			}
		}
		return fmt.Errorf("append to stream %s: %w", topic, err)
	}

	log.Debug("envelope appended to stream",
		slog.String("topic", topic),
		slog.String("entry_id", entryID),
		slog.String("envelope_id", env.ID.String()),
		slog.String("envelope_type", env.Type))
	return nil
}
