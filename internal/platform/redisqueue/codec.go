package redisqueue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/apitask/internal/notify"
)

// Stream entry fields.
const (
	fieldID             = "id"
	fieldType           = "type"
	fieldIdempotencyKey = "idempotency_key"
	fieldPayload        = "payload"
	fieldCreatedAt      = "created_at"
)

func encodeEnvelope(env *notify.Envelope) map[string]interface{} {
	return map[string]interface{}{
		fieldID:             env.ID.String(),
		fieldType:           env.Type,
		fieldIdempotencyKey: env.IdempotencyKey,
		fieldPayload:        string(env.Payload),
		fieldCreatedAt:      env.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeEnvelope(msg redis.XMessage) (*notify.Envelope, error) {
	str := func(field string) string {
		s, _ := msg.Values[field].(string)
		return s
	}

	id, err := uuid.Parse(str(fieldID))
	if err != nil {
		return nil, fmt.Errorf("%w: entry %s: bad id: %v", notify.ErrInvalidEnvelope, msg.ID, err)
	}

	typ := str(fieldType)
	if typ == "" {
		return nil, fmt.Errorf("%w: entry %s: missing type", notify.ErrInvalidEnvelope, msg.ID)
	}

	payload := str(fieldPayload)
	if !json.Valid([]byte(payload)) {
		return nil, fmt.Errorf("%w: entry %s: payload is not JSON", notify.ErrInvalidEnvelope, msg.ID)
	}

	env := &notify.Envelope{
		ID:             id,
		Type:           typ,
		IdempotencyKey: str(fieldIdempotencyKey),
		Payload:        json.RawMessage(payload),
	}
	if ts := str(fieldCreatedAt); ts != "" {
		if env.CreatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("%w: entry %s: bad created_at: %v", notify.ErrInvalidEnvelope, msg.ID, err)
		}
	}
	return env, nil
}
