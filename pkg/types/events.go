package types

import "time"

// Domain event types emitted by the pickup and support managers. The
// dispatcher delivers them at-least-once; a delivery failure never fails the
// state transition that produced the event.
const (
	EventPickupProposed  = "pickup.proposed"
	EventPickupConfirmed = "pickup.confirmed"
	EventPickupStarted   = "pickup.started"
	EventPickupArrived   = "pickup.arrived"
	EventPickupCompleted = "pickup.completed"
	EventPickupCancelled = "pickup.cancelled"
	EventPickupUpdated   = "pickup.updated"
	EventPickupReminder  = "pickup.reminder"

	EventSupportOffered          = "support.offered"
	EventSupportMaterialAccepted = "support.material_accepted"
	EventSupportMaterialDeclined = "support.material_declined"
	EventSupportAccepted         = "support.accepted"
	EventSupportDeclined         = "support.declined"
	EventSupportScheduled        = "support.scheduled"
	EventSupportCompleted        = "support.completed"
	EventSupportCancelled        = "support.cancelled"
)

// Event is the envelope published to the event transport.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}
