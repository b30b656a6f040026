package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	msg := ReminderMessage{
		RecipientEmail:       "ana@example.com",
		RecipientDisplayName: "ana",
		TaskName:             "Pay rent",
		DueDate:              "2025-01-02",
	}

	env, err := NewEnvelope(TypeTaskReminder, "reminder:x:2025-01-02", msg)
	require.NoError(t, err)

	assert.NotEmpty(t, env.ID)
	assert.Equal(t, TypeTaskReminder, env.Type)
	assert.Equal(t, "reminder:x:2025-01-02", env.IdempotencyKey)
	assert.False(t, env.CreatedAt.IsZero())
	assert.JSONEq(t, `{
		"recipient_email": "ana@example.com",
		"recipient_display_name": "ana",
		"task_name": "Pay rent",
		"due_date": "2025-01-02"
	}`, string(env.Payload))

	var decoded ReminderMessage
	require.NoError(t, env.UnmarshalPayload(&decoded))
	assert.Equal(t, msg, decoded)
}

func TestNewEnvelope_Errors(t *testing.T) {
	_, err := NewEnvelope("", "", WelcomeMessage{})
	assert.ErrorIs(t, err, ErrInvalidEnvelope)

	_, err = NewEnvelope(TypeWelcome, "", func() {})
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}

func TestEnvelope_UnmarshalPayload_Errors(t *testing.T) {
	var msg WelcomeMessage

	err := (&Envelope{Type: TypeWelcome}).UnmarshalPayload(&msg)
	assert.ErrorIs(t, err, ErrInvalidEnvelope)

	err = (&Envelope{Type: TypeWelcome, Payload: json.RawMessage(`[1,2]`)}).UnmarshalPayload(&msg)
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}
