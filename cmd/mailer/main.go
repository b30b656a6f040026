// Package main runs the mailer: it drains the notification streams and
// delivers each message through SendGrid.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phrazzld/apitask/internal/config"
	"github.com/phrazzld/apitask/internal/mail"
	"github.com/phrazzld/apitask/internal/platform/logger"
	"github.com/phrazzld/apitask/internal/platform/redisqueue"
	"github.com/phrazzld/apitask/internal/platform/sendgrid"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	l, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	if err := run(ctx, cfg, l); err != nil && !errors.Is(err, context.Canceled) {
		l.Error("mailer stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	l.Info("Shutdown complete.")
}

func run(ctx context.Context, cfg *config.Config, l *slog.Logger) error {
	if cfg.Redis.URL == "" {
		return errors.New("redis url is required by the mailer")
	}

	sender, err := sendgrid.NewSender(sendgrid.Config{
		APIKey:    cfg.Mail.SendGridAPIKey,
		Host:      cfg.Mail.SendGridHost,
		FromEmail: cfg.Mail.FromEmail,
		FromName:  cfg.Mail.FromName,
	}, l)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}

	client, err := redisqueue.NewClient(ctx, cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			l.Error("Error closing redis connection", slog.String("error", err.Error()))
		}
	}()

	consumer := redisqueue.NewConsumer(client, redisqueue.ConsumerConfig{
		Group:         cfg.Mail.ConsumerGroup,
		Name:          cfg.Mail.ConsumerName,
		Streams:       []string{cfg.Notify.ReminderTopic, cfg.Notify.WelcomeTopic},
		Workers:       cfg.Mail.WorkerCount,
		BatchSize:     int64(cfg.Mail.BatchSize),
		Block:         time.Duration(cfg.Mail.BlockSeconds) * time.Second,
		ReclaimIdle:   time.Duration(cfg.Mail.ReclaimIdleSeconds) * time.Second,
		MaxDeliveries: cfg.Mail.MaxDeliveries,
	}, mail.NewHandler(sender, l), l)

	l.Info("Mailer started.",
		slog.String("group", cfg.Mail.ConsumerGroup),
		slog.String("consumer", cfg.Mail.ConsumerName))
	return consumer.Run(ctx)
}
