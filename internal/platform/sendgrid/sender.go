// Package sendgrid delivers mail through the SendGrid v3 API.
package sendgrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/phrazzld/apitask/internal/mail"
	"github.com/phrazzld/apitask/internal/platform/logger"
)

const sendEndpoint = "/v3/mail/send"

// ErrDeliveryFailed is returned when SendGrid rejects a message.
var ErrDeliveryFailed = errors.New("sendgrid delivery failed")

// Config holds SendGrid credentials and the sender identity.
type Config struct {
	APIKey string
	// Host overrides the API host; empty uses https://api.sendgrid.com.
	Host      string
	FromEmail string
	FromName  string
}

// Sender implements mail.Sender.
type Sender struct {
	cfg    Config
	logger *slog.Logger
}

var _ mail.Sender = (*Sender)(nil)

// NewSender validates cfg and creates a Sender.
func NewSender(cfg Config, log *slog.Logger) (*Sender, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if cfg.FromEmail == "" {
		return nil, errors.New("sendgrid from email is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sender{cfg: cfg, logger: log.With(slog.String("component", "sendgrid_sender"))}, nil
}

// Send posts msg to SendGrid. Any status of 400 or above is an error.
func (s *Sender) Send(ctx context.Context, msg mail.Message) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	from := sgmail.NewEmail(s.cfg.FromName, s.cfg.FromEmail)
	to := sgmail.NewEmail(msg.ToName, msg.ToEmail)
	message := sgmail.NewSingleEmail(from, msg.Subject, to, msg.PlainText, msg.HTML)

	req := sendgrid.GetRequest(s.cfg.APIKey, sendEndpoint, s.cfg.Host)
	req.Method = "POST"
	req.Body = sgmail.GetRequestBody(message)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.StatusCode >= 400 {
		log.Error("sendgrid rejected message",
			slog.Int("status", resp.StatusCode),
			slog.String("body", resp.Body))
		return fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}

	log.Debug("sendgrid accepted message", slog.Int("status", resp.StatusCode))
	return nil
}
