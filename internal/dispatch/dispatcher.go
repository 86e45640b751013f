// Package dispatch delivers domain events to interested collaborators
// (messaging, notifications, analytics). Delivery is fire-and-forget with
// at-least-once semantics: a transport failure is logged and retried but
// never surfaced to the state transition that emitted the event.
package dispatch

import (
	"context"
	"time"

	"greenloop/internal/utils"
	"greenloop/pkg/types"
)

type Dispatcher interface {
	// Emit publishes one domain event. It must not block the caller on
	// transport failures and must never return an error to it.
	Emit(ctx context.Context, eventType string, payload any)
}

func newEnvelope(eventType string, payload any) types.Event {
	return types.Event{
		ID:         utils.NanoID(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}
