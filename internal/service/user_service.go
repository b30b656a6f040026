package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/domain/streak"
	"github.com/phrazzld/apitask/internal/notify"
	"github.com/phrazzld/apitask/internal/platform/logger"
	"github.com/phrazzld/apitask/internal/service/auth"
	"github.com/phrazzld/apitask/internal/store"
)

// WelcomeSubject is the subject of the mail sent after registration.
const WelcomeSubject = "Welcome to apitask"

// Sequence is a user's current streak.
type Sequence struct {
	Points         int
	LastStreakDate *time.Time
}

// UserService provides registration, authentication and user administration.
type UserService interface {
	// Register creates a USER account and publishes a welcome message.
	// Fails with store.ErrEmailExists when the email is taken.
	Register(ctx context.Context, email, password string) (*domain.User, error)

	// Authenticate returns the user owning email when password matches.
	// Any mismatch, including an unknown email, yields auth.ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)

	// GetUser retrieves a user by their ID.
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// ListUsers pages through all users.
	ListUsers(ctx context.Context, page store.PageRequest) (store.Page[domain.User], error)

	// DeleteUser removes a user and, by cascade, their tasks.
	DeleteUser(ctx context.Context, userID uuid.UUID) error

	// CurrentSequence applies streak decay to the caller's points and returns
	// the result. It never moves the last streak date.
	CurrentSequence(ctx context.Context, callerID uuid.UUID) (*Sequence, error)
}

// UserServiceConfig holds the tunables of UserService.
type UserServiceConfig struct {
	BCryptCost   int
	WelcomeTopic string
}

type userServiceImpl struct {
	users     store.UserStore
	verifier  auth.PasswordVerifier
	publisher notify.Publisher
	calendar  domain.Calendar
	policy    streak.Policy
	cfg       UserServiceConfig
	logger    *slog.Logger
}

// NewUserService creates a UserService. A nil publisher disables welcome messages.
func NewUserService(
	users store.UserStore,
	verifier auth.PasswordVerifier,
	publisher notify.Publisher,
	calendar domain.Calendar,
	policy streak.Policy,
	cfg UserServiceConfig,
	logger *slog.Logger,
) (UserService, error) {
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if verifier == nil {
		return nil, domain.NewValidationError("verifier", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &userServiceImpl{
		users:     users,
		verifier:  verifier,
		publisher: publisher,
		calendar:  calendar,
		policy:    policy,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "user_service")),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register implements UserService.Register.
func (s *userServiceImpl) Register(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(normalizeEmail(email), password)
	if err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(password, s.cfg.BCryptCost)
	if err != nil {
		return nil, NewServiceError("user", "register", err)
	}
	user.HashedPassword = hashed

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			log.Debug("attempted to register an existing email")
		} else {
			log.Error("failed to save user", slog.String("error", err.Error()))
		}
		return nil, wrapUnexpected("user", "register", err)
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	s.publishWelcome(ctx, user)
	return user, nil
}

// publishWelcome sends the welcome message. Failures are logged only.
func (s *userServiceImpl) publishWelcome(ctx context.Context, user *domain.User) {
	if s.publisher == nil || s.cfg.WelcomeTopic == "" {
		return
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	env, err := notify.NewEnvelope(notify.TypeWelcome, "welcome:"+user.ID.String(), notify.WelcomeMessage{
		To:      user.Email,
		Subject: WelcomeSubject,
		Body:    fmt.Sprintf("Hello, %s, Welcome to apitask.", user.DisplayName()),
	})
	if err == nil {
		err = s.publisher.Publish(ctx, s.cfg.WelcomeTopic, env)
	}
	if err != nil {
		log.Warn("failed to publish welcome message",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()))
	}
}

// Authenticate implements UserService.Authenticate.
func (s *userServiceImpl) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Debug("login for unknown email")
			return nil, auth.ErrInvalidCredentials
		}
		return nil, NewServiceError("user", "authenticate", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("password mismatch", slog.String("user_id", user.ID.String()))
		return nil, auth.ErrInvalidCredentials
	}
	return user, nil
}

// GetUser implements UserService.GetUser.
func (s *userServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, wrapUnexpected("user", "get", err)
	}
	return user, nil
}

// ListUsers implements UserService.ListUsers.
func (s *userServiceImpl) ListUsers(ctx context.Context, page store.PageRequest) (store.Page[domain.User], error) {
	result, err := s.users.List(ctx, page)
	return result, wrapUnexpected("user", "list", err)
}

// DeleteUser implements UserService.DeleteUser.
func (s *userServiceImpl) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return wrapUnexpected("user", "delete", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("user deleted", slog.String("user_id", userID.String()))
	return nil
}

// CurrentSequence implements UserService.CurrentSequence.
func (s *userServiceImpl) CurrentSequence(ctx context.Context, callerID uuid.UUID) (*Sequence, error) {
	today := s.calendar.Today()

	if cutoff := s.policy.ResetCutoff(today); cutoff != nil {
		if err := s.users.ResetPointsIfDecayed(ctx, callerID, *cutoff); err != nil {
			return nil, wrapUnexpected("user", "current_sequence", err)
		}
	}

	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, wrapUnexpected("user", "current_sequence", err)
	}

	return &Sequence{
		Points:         s.policy.Current(user.Points, user.LastStreakDate, today),
		LastStreakDate: user.LastStreakDate,
	}, nil
}
