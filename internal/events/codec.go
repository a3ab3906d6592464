// Package events carries domain events between producers and handlers. Events
// travel as JSON envelopes and are decoded into the closed domain.Event set at
// the boundary, before any handler sees them.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"limitguard/internal/domain"
)

// Envelope is the wire form of an event.
type Envelope struct {
	ID         uuid.UUID        `json:"id"`
	Name       domain.EventName `json:"name"`
	OccurredAt time.Time        `json:"occurred_at"`
	Payload    json.RawMessage  `json:"payload"`
}

// Encode wraps event in a fresh envelope and marshals it.
func Encode(event domain.Event, at time.Time) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("events.Encode: %s: %w", event.Name(), err)
	}
	return json.Marshal(Envelope{
		ID:         uuid.New(),
		Name:       event.Name(),
		OccurredAt: at.UTC(),
		Payload:    payload,
	})
}

// Decode parses an envelope and its payload. Unknown event names fail with
// domain.ErrUnknownEvent.
func Decode(data []byte) (Envelope, domain.Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, nil, fmt.Errorf("events.Decode: envelope: %w", err)
	}
	event, err := decodePayload(env.Name, env.Payload)
	if err != nil {
		return env, nil, fmt.Errorf("events.Decode: %w", err)
	}
	return env, event, nil
}

func decodePayload(name domain.EventName, payload json.RawMessage) (domain.Event, error) {
	switch name {
	case domain.EventFieldsUpdated:
		var e domain.FieldsUpdated
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("%s payload: %w", name, err)
		}
		if e.TenantID == "" || e.DocumentID == "" {
			return nil, fmt.Errorf("%s payload: tenant_id and doc_id are required", name)
		}
		return e, nil
	case domain.EventLimitsRecalculated:
		var e domain.LimitsRecalculated
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("%s payload: %w", name, err)
		}
		if e.TenantID == "" {
			return nil, fmt.Errorf("%s payload: tenant_id is required", name)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEvent, name)
	}
}
