// Package mail turns notification envelopes into email messages and hands
// them to a Sender.
package mail

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/phrazzld/apitask/internal/notify"
	"github.com/phrazzld/apitask/internal/platform/logger"
)

// ErrUnsupportedType is returned by Compose for envelope types without a template.
var ErrUnsupportedType = errors.New("unsupported envelope type")

// Message is a rendered email.
type Message struct {
	ToEmail   string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Compose renders env into a Message.
func Compose(env *notify.Envelope) (Message, error) {
	switch env.Type {
	case notify.TypeTaskReminder:
		var m notify.ReminderMessage
		if err := env.UnmarshalPayload(&m); err != nil {
			return Message{}, err
		}
		if m.RecipientEmail == "" {
			return Message{}, fmt.Errorf("%w: reminder without recipient", notify.ErrInvalidEnvelope)
		}
		text := fmt.Sprintf("Hello, %s, your task %q is due on %s.", m.RecipientDisplayName, m.TaskName, m.DueDate)
		return Message{
			ToEmail:   m.RecipientEmail,
			ToName:    m.RecipientDisplayName,
			Subject:   fmt.Sprintf("Reminder: %s is due on %s", m.TaskName, m.DueDate),
			PlainText: text,
			HTML:      "<p>" + html.EscapeString(text) + "</p>",
		}, nil

	case notify.TypeWelcome:
		var m notify.WelcomeMessage
		if err := env.UnmarshalPayload(&m); err != nil {
			return Message{}, err
		}
		if m.To == "" {
			return Message{}, fmt.Errorf("%w: welcome without recipient", notify.ErrInvalidEnvelope)
		}
		return Message{
			ToEmail:   m.To,
			Subject:   m.Subject,
			PlainText: m.Body,
			HTML:      "<p>" + html.EscapeString(m.Body) + "</p>",
		}, nil

	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnsupportedType, env.Type)
	}
}

// Handler is a notify.Handler that composes and sends email.
type Handler struct {
	sender Sender
	logger *slog.Logger
}

var _ notify.Handler = (*Handler)(nil)

// NewHandler creates a Handler.
func NewHandler(sender Sender, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{sender: sender, logger: log.With(slog.String("component", "mail_handler"))}
}

// Handle implements notify.Handler. Envelopes that can never be rendered are
// logged and dropped; send failures are returned so the entry is retried.
func (h *Handler) Handle(ctx context.Context, env *notify.Envelope) error {
	log := logger.FromContextOrDefault(ctx, h.logger).With(
		slog.String("envelope_id", env.ID.String()),
		slog.String("envelope_type", env.Type))

	msg, err := Compose(env)
	if err != nil {
		log.Error("dropping envelope that cannot be rendered", slog.String("error", err.Error()))
		return nil
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s mail: %w", env.Type, err)
	}

	log.Info("mail sent", slog.String("subject", msg.Subject))
	return nil
}
