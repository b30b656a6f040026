package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/notify"
	"github.com/phrazzld/apitask/internal/platform/logger"
	"github.com/phrazzld/apitask/internal/store"
)

// Report summarizes one scan.
type Report struct {
	Horizon time.Time
	// Users is the number of users returned by the candidate query.
	Users int
	// Matched counts tasks that passed the reminder predicate.
	Matched   int
	Published int
	// Skipped counts reminders the publisher had already accepted for the
	// same task and date.
	Skipped int
	Failed  int
}

// Scanner publishes reminders for pending tasks due on the day after today.
type Scanner struct {
	users     store.UserStore
	publisher notify.Publisher
	calendar  domain.Calendar
	topic     string
	logger    *slog.Logger
}

// NewScanner creates a Scanner publishing to topic.
func NewScanner(
	users store.UserStore,
	publisher notify.Publisher,
	calendar domain.Calendar,
	topic string,
	logger *slog.Logger,
) (*Scanner, error) {
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if publisher == nil {
		return nil, domain.NewValidationError("publisher", "cannot be nil", domain.ErrValidation)
	}
	if topic == "" {
		return nil, domain.NewValidationError("topic", "cannot be empty", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		users:     users,
		publisher: publisher,
		calendar:  calendar,
		topic:     topic,
		logger:    logger.With(slog.String("component", "reminder_scanner")),
	}, nil
}

// ReminderKey is the idempotency key of the reminder for taskID on horizon.
func ReminderKey(taskID uuid.UUID, horizon time.Time) string {
	return "reminder:" + taskID.String() + ":" + horizon.Format(domain.DateLayout)
}

// Scan runs one pass. Publish failures are counted and never abort the
// scan. Cancellation is checked before each user; when ctx ends the partial
// report is returned together with ctx.Err().
func (s *Scanner) Scan(ctx context.Context) (Report, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("scan_id", uuid.NewString()))
	ctx = logger.WithLogger(ctx, log)

	horizon := domain.AddDays(s.calendar.Today(), 1)
	report := Report{Horizon: horizon}

	candidates, err := s.users.FindUsersWithPendingTasksDueBy(ctx, horizon)
	if err != nil {
		log.Error("failed to load reminder candidates",
			slog.String("horizon", horizon.Format(domain.DateLayout)),
			slog.String("error", err.Error()))
		return report, fmt.Errorf("load reminder candidates: %w", err)
	}
	report.Users = len(candidates)

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			log.Warn("reminder scan interrupted", reportAttrs(report)...)
			return report, err
		}
		s.remindUser(ctx, candidate, &report)
	}

	log.Info("reminder scan finished", reportAttrs(report)...)
	return report, nil
}

func (s *Scanner) remindUser(ctx context.Context, candidate store.UserWithTasks, report *Report) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	user := candidate.User

	for i := range candidate.Tasks {
		task := &candidate.Tasks[i]
		if !task.DueForReminder(report.Horizon) {
			continue
		}
		report.Matched++

		env, err := notify.NewEnvelope(notify.TypeTaskReminder, ReminderKey(task.ID, report.Horizon),
			notify.ReminderMessage{
				RecipientEmail:       user.Email,
				RecipientDisplayName: user.DisplayName(),
				TaskName:             task.Name,
				DueDate:              task.ExpiresOn.Format(domain.DateLayout),
			})
		if err == nil {
			err = s.publisher.Publish(ctx, s.topic, env)
		}

		switch {
		case err == nil:
			report.Published++
		case errors.Is(err, notify.ErrDuplicate):
			report.Skipped++
			log.Debug("reminder already published",
				slog.String("task_id", task.ID.String()))
		default:
			report.Failed++
			log.Error("failed to publish reminder",
				slog.String("task_id", task.ID.String()),
				slog.String("user_id", user.ID.String()),
				slog.String("error", err.Error()))
		}
	}
}

func reportAttrs(r Report) []any {
	return []any{
		slog.String("horizon", r.Horizon.Format(domain.DateLayout)),
		slog.Int("users", r.Users),
		slog.Int("matched", r.Matched),
		slog.Int("published", r.Published),
		slog.Int("skipped", r.Skipped),
		slog.Int("failed", r.Failed),
	}
}
