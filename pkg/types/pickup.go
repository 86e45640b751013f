package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type PickupStatus string

const (
	PickupStatusProposed  PickupStatus = "PROPOSED"
	PickupStatusConfirmed PickupStatus = "CONFIRMED"
	PickupStatusInTransit PickupStatus = "IN_TRANSIT"
	PickupStatusArrived   PickupStatus = "ARRIVED_AT_PICKUP"
	PickupStatusCompleted PickupStatus = "COMPLETED"
	PickupStatusCancelled PickupStatus = "CANCELLED"
)

// Terminal reports whether the status is an end state. Terminal pickups are
// retained for history and reputation computation, never deleted.
func (s PickupStatus) Terminal() bool {
	return s == PickupStatusCompleted || s == PickupStatusCancelled
}

// StringSlice is a jsonb-backed list of strings (waste type names).
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		s = StringSlice{}
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(src any) error {
	if src == nil {
		*s = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", src)
	}
}

// Pickup is one scheduled physical hand-off tied to exactly one post. At most
// one pickup in a non-terminal status may exist per post.
type Pickup struct {
	ID        string   `db:"id" json:"id"`
	PostID    string   `db:"post_id" json:"post_id"`
	PostType  PostType `db:"post_type" json:"post_type"`
	PostTitle string   `db:"post_title" json:"post_title"`

	GiverID     string `db:"giver_id" json:"giver_id"`
	CollectorID string `db:"collector_id" json:"collector_id"`
	ProposedBy  string `db:"proposed_by" json:"proposed_by"`

	PickupDate     time.Time `db:"pickup_date" json:"pickup_date"`
	PickupTime     string    `db:"pickup_time" json:"pickup_time"` // "15:04"
	PickupLocation string    `db:"pickup_location" json:"pickup_location"`
	ContactPerson  string    `db:"contact_person" json:"contact_person"`
	ContactNumber  string    `db:"contact_number" json:"contact_number"`

	ExpectedTypes   StringSlice `db:"expected_types" json:"expected_types"` // jsonb
	EstimatedAmount float64     `db:"estimated_amount" json:"estimated_amount"`
	EstimatedUnit   string      `db:"estimated_unit" json:"estimated_unit"`

	ActualTypes StringSlice `db:"actual_types" json:"actual_types"` // jsonb
	FinalAmount *float64    `db:"final_amount" json:"final_amount"`
	FinalUnit   *string     `db:"final_unit" json:"final_unit"`
	WasteNotes  *string     `db:"waste_notes" json:"waste_notes"`

	PaymentReceived    *float64 `db:"payment_received" json:"payment_received"`
	PaymentMethod      *string  `db:"payment_method" json:"payment_method"`
	IdentityVerified   bool     `db:"identity_verified" json:"identity_verified"`
	VerificationMethod *string  `db:"verification_method" json:"verification_method"`

	Status PickupStatus `db:"status" json:"status"`

	CancellationReason *string `db:"cancellation_reason" json:"cancellation_reason"`
	CancellationBy     *string `db:"cancellation_by" json:"cancellation_by"`

	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmed_at"`
	InTransitAt *time.Time `db:"in_transit_at" json:"in_transit_at"`
	ArrivedAt   *time.Time `db:"arrived_at" json:"arrived_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduledAt combines the pickup date and wall-clock time into a single
// instant in server-local time. Only the calendar day of PickupDate matters:
// the date column scans back from Postgres as UTC midnight, so its location
// must not leak into the instant.
func (p *Pickup) ScheduledAt() (time.Time, error) {
	t, err := time.Parse("15:04", p.PickupTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse pickup time %q: %w", p.PickupTime, err)
	}

	d := p.PickupDate
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.Local), nil
}

// Party reports whether partyID is one of the two parties to the pickup.
func (p *Pickup) Party(partyID string) bool {
	return partyID == p.GiverID || partyID == p.CollectorID
}
