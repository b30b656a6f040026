package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/phrazzld/apitask/internal/config"
)

// ScanFunc performs one scan.
type ScanFunc func(ctx context.Context) (Report, error)

// Scheduler runs a scan on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	cron    *cron.Cron
	scan    ScanFunc
	timeout time.Duration
	logger  *slog.Logger

	// base is the parent context of every scan; cancel ends in-flight scans
	// when Stop gives up waiting.
	base   context.Context
	cancel context.CancelFunc
}

// NewScheduler registers scan under cfg.Schedule, evaluated in loc.
func NewScheduler(scan ScanFunc, cfg config.ReminderConfig, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if scan == nil {
		return nil, fmt.Errorf("scan func cannot be nil")
	}
	if cfg.ScanTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("scan timeout must be positive, got %d", cfg.ScanTimeoutSeconds)
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "reminder_scheduler"))

	cronLog := NewCronLogger(logger)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithSeconds(),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	base, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    c,
		scan:    scan,
		timeout: time.Duration(cfg.ScanTimeoutSeconds) * time.Second,
		logger:  logger,
		base:    base,
		cancel:  cancel,
	}

	if _, err := c.AddFunc(cfg.Schedule, s.runScheduled); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

// Start begins running scans in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("reminder scheduler started", slog.Int("entries", len(s.cron.Entries())))
}

// Stop stops scheduling and waits for a running scan to finish. If ctx ends
// first, the running scan is cancelled and ctx.Err() is returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	defer s.cancel()

	select {
	case <-done.Done():
		s.logger.Info("reminder scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("reminder scheduler stop timed out, cancelling running scan")
		return ctx.Err()
	}
}

// RunOnce runs a single scan bounded by the configured timeout.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	report, err := s.scan(ctx)
	if err != nil {
		s.logger.Error("reminder scan failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return report, err
	}
	s.logger.Debug("reminder scan completed", slog.Duration("elapsed", time.Since(start)))
	return report, nil
}

func (s *Scheduler) runScheduled() {
	_, _ = s.RunOnce(s.base)
}

// cronLogger adapts slog to cron.Logger. Cron's chatty Info output is
// logged at debug level.
type cronLogger struct {
	log *slog.Logger
}

// NewCronLogger returns a cron.Logger writing to log.
func NewCronLogger(log *slog.Logger) cron.Logger {
	return cronLogger{log: log}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err.Error())...)
}
