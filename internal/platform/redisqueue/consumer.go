package redisqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/apitask/internal/notify"
)

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Group   string
	Name    string
	Streams []string
	// Workers is the number of concurrent read loops; at least 1.
	Workers   int
	BatchSize int64
	// Block is how long a read waits for new entries. Values <= 0 use
	// DefaultBlock; a read never polls without blocking.
	Block time.Duration
	// ReclaimIdle is how long an entry stays pending before another read
	// loop takes it over. Zero disables reclaiming.
	ReclaimIdle time.Duration
	// MaxDeliveries caps how often an entry is handed to the handler. A
	// reclaimed entry past the cap is copied to its dead-letter stream and
	// acknowledged. Zero means no cap.
	MaxDeliveries int
}

// DefaultBlock is the read wait used when ConsumerConfig.Block is unset.
const DefaultBlock = 5 * time.Second

// DeadLetterSuffix is appended to a stream name to form its dead-letter stream.
const DeadLetterSuffix = ".dead"

// Consumer delivers stream entries to a notify.Handler through a consumer group.
// Entries are acknowledged only after the handler succeeds.
type Consumer struct {
	client  redis.UniversalClient
	cfg     ConsumerConfig
	handler notify.Handler
	logger  *slog.Logger
}

// NewConsumer creates a Consumer.
func NewConsumer(client redis.UniversalClient, cfg ConsumerConfig, handler notify.Handler, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = DefaultBlock
	}
	return &Consumer{
		client:  client,
		cfg:     cfg,
		handler: handler,
		logger: log.With(
			slog.String("component", "redis_consumer"),
			slog.String("group", cfg.Group),
			slog.String("consumer", cfg.Name)),
	}
}

// EnsureGroups creates the consumer group on every stream, creating the
// streams as needed. Existing groups are left alone.
func (c *Consumer) EnsureGroups(ctx context.Context) error {
	for _, stream := range c.cfg.Streams {
		err := c.client.XGroupCreateMkStream(ctx, stream, c.cfg.Group, "0").Err()
		if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("create group %s on %s: %w", c.cfg.Group, stream, err)
		}
	}
	return nil
}

// Run ensures the groups exist and processes entries until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.EnsureGroups(ctx); err != nil {
		return err
	}

	c.logger.Info("starting stream consumer",
		slog.Any("streams", c.cfg.Streams),
		slog.Int("workers", c.cfg.Workers))

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.readLoop(ctx, id)
		}(i)
	}

	if c.cfg.ReclaimIdle > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.reclaimLoop(ctx)
		}()
	}

	wg.Wait()
	c.logger.Info("stream consumer stopped")
	return nil
}

func (c *Consumer) readLoop(ctx context.Context, id int) {
	log := c.logger.With(slog.Int("worker_id", id))
	for ctx.Err() == nil {
		if _, err := c.ReadBatch(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("stream read failed", slog.String("error", err.Error()))
			sleep(ctx, time.Second)
		}
	}
}

func (c *Consumer) reclaimLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.ReclaimIdle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Reclaim(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error("reclaim failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ReadBatch reads up to BatchSize new entries and handles them. It returns the
// number of entries acknowledged.
func (c *Consumer) ReadBatch(ctx context.Context) (int, error) {
	streams := make([]string, 0, 2*len(c.cfg.Streams))
	streams = append(streams, c.cfg.Streams...)
	for range c.cfg.Streams {
		streams = append(streams, ">")
	}

	res, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		Streams:  streams,
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read group: %w", err)
	}

	acked := 0
	for _, stream := range res {
		for _, msg := range stream.Messages {
			if c.handle(ctx, stream.Stream, msg) {
				acked++
			}
		}
	}
	return acked, nil
}

// Reclaim takes over entries pending longer than ReclaimIdle and retries them.
// Entries delivered more than MaxDeliveries times are dead-lettered instead.
// It returns the number of entries acknowledged.
func (c *Consumer) Reclaim(ctx context.Context) (int, error) {
	acked := 0
	for _, stream := range c.cfg.Streams {
		start := "0-0"
		for {
			msgs, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
				Stream:   stream,
				Group:    c.cfg.Group,
				Consumer: c.cfg.Name,
				MinIdle:  c.cfg.ReclaimIdle,
				Start:    start,
				Count:    c.cfg.BatchSize,
			}).Result()
			if err != nil {
				return acked, fmt.Errorf("autoclaim %s: %w", stream, err)
			}
			for _, msg := range msgs {
				exhausted, err := c.exhausted(ctx, stream, msg.ID)
				if err != nil {
					return acked, err
				}
				if exhausted {
					if c.deadLetter(ctx, stream, msg) {
						acked++
					}
					continue
				}
				c.logger.Info("retrying pending entry",
					slog.String("stream", stream),
					slog.String("entry_id", msg.ID))
				if c.handle(ctx, stream, msg) {
					acked++
				}
			}
			if next == "0-0" || next == "" || len(msgs) == 0 {
				break
			}
			start = next
		}
	}
	return acked, nil
}

// handle reports whether the entry was acknowledged.
func (c *Consumer) handle(ctx context.Context, stream string, msg redis.XMessage) bool {
	log := c.logger.With(slog.String("stream", stream), slog.String("entry_id", msg.ID))

	env, err := decodeEnvelope(msg)
	if err != nil {
		// A malformed entry never succeeds; acknowledge it so it is not retried forever.
		log.Error("dropping malformed entry", slog.String("error", err.Error()))
		return c.ack(ctx, log, stream, msg.ID)
	}

	if err := c.handler.Handle(ctx, env); err != nil {
		log.Error("handler failed, entry left pending",
			slog.String("error", err.Error()),
			slog.String("envelope_id", env.ID.String()),
			slog.String("envelope_type", env.Type))
		return false
	}
	return c.ack(ctx, log, stream, msg.ID)
}

// exhausted reports whether the pending entry id has been delivered more than
// MaxDeliveries times, counting the claim that just happened.
func (c *Consumer) exhausted(ctx context.Context, stream, id string) (bool, error) {
	if c.cfg.MaxDeliveries <= 0 {
		return false, nil
	}
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  c.cfg.Group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil {
		return false, fmt.Errorf("pending %s: %w", stream, err)
	}
	if len(pending) == 0 {
		return false, nil
	}
	return pending[0].RetryCount > int64(c.cfg.MaxDeliveries), nil
}

// deadLetter copies msg to the stream's dead-letter stream and acknowledges
// it. The entry stays pending when the copy fails.
func (c *Consumer) deadLetter(ctx context.Context, stream string, msg redis.XMessage) bool {
	log := c.logger.With(slog.String("stream", stream), slog.String("entry_id", msg.ID))
	dead := stream + DeadLetterSuffix

	values := make(map[string]interface{}, len(msg.Values)+1)
	for k, v := range msg.Values {
		values[k] = v
	}
	values["source_id"] = msg.ID

	if err := c.client.XAdd(ctx, &redis.XAddArgs{Stream: dead, Values: values}).Err(); err != nil {
		log.Error("dead-letter append failed", slog.String("error", err.Error()))
		return false
	}
	log.Error("giving up on entry after repeated failures",
		slog.Int("max_deliveries", c.cfg.MaxDeliveries),
		slog.String("dead_letter_stream", dead))
	return c.ack(ctx, log, stream, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, log *slog.Logger, stream, id string) bool {
	if err := c.client.XAck(ctx, stream, c.cfg.Group, id).Err(); err != nil {
		log.Error("ack failed", slog.String("error", err.Error()))
		return false
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
