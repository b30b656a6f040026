package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope types.
const (
	TypeTaskReminder = "task_reminder"
	TypeWelcome      = "welcome"
)

// ErrInvalidEnvelope is returned when an envelope cannot be built or decoded.
var ErrInvalidEnvelope = errors.New("invalid envelope")

// Envelope is the unit handed to a Publisher.
type Envelope struct {
	ID   uuid.UUID `json:"id"`
	Type string    `json:"type"`
	// IdempotencyKey, when set, lets publishers drop repeated sends of the
	// same logical message.
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewEnvelope marshals payload into a new envelope of the given type.
func NewEnvelope(typ, idempotencyKey string, payload interface{}) (*Envelope, error) {
	if typ == "" {
		return nil, fmt.Errorf("%w: type is required", ErrInvalidEnvelope)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal payload: %v", ErrInvalidEnvelope, err)
	}

	return &Envelope{
		ID:             uuid.New(),
		Type:           typ,
		IdempotencyKey: idempotencyKey,
		Payload:        raw,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// UnmarshalPayload decodes the payload into v.
func (e *Envelope) UnmarshalPayload(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidEnvelope)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: decode %s payload: %v", ErrInvalidEnvelope, e.Type, err)
	}
	return nil
}

// ReminderMessage tells a user one of their tasks is about to expire.
type ReminderMessage struct {
	RecipientEmail       string `json:"recipient_email"`
	RecipientDisplayName string `json:"recipient_display_name"`
	TaskName             string `json:"task_name"`
	// DueDate is formatted as YYYY-MM-DD.
	DueDate string `json:"due_date"`
}

// WelcomeMessage is sent once after registration.
type WelcomeMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
