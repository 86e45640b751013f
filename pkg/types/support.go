package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type SupportStatus string

const (
	SupportStatusPending           SupportStatus = "PENDING"
	SupportStatusPartiallyAccepted SupportStatus = "PARTIALLY_ACCEPTED"
	SupportStatusAccepted          SupportStatus = "ACCEPTED"
	SupportStatusPickupScheduled   SupportStatus = "PICKUP_SCHEDULED"
	SupportStatusCompleted         SupportStatus = "COMPLETED"
	SupportStatusDeclined          SupportStatus = "DECLINED"
	SupportStatusCancelled         SupportStatus = "CANCELLED"
)

func (s SupportStatus) Terminal() bool {
	return s == SupportStatusCompleted || s == SupportStatusDeclined || s == SupportStatusCancelled
}

type MaterialStatus string

const (
	MaterialStatusPending  MaterialStatus = "PENDING"
	MaterialStatusAccepted MaterialStatus = "ACCEPTED"
	MaterialStatusDeclined MaterialStatus = "DECLINED"
)

// SupportMaterial is one line of a multi-material pledge. Its status is
// independently mutable until it reaches Accepted or Declined.
type SupportMaterial struct {
	MaterialID      string         `json:"material_id"`
	MaterialName    string         `json:"material_name"`
	Quantity        float64        `json:"quantity"`
	Unit            string         `json:"unit"`
	Status          MaterialStatus `json:"status"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
}

// SupportMaterials is the jsonb-backed ordered material list.
type SupportMaterials []SupportMaterial

func (m SupportMaterials) Value() (driver.Value, error) {
	if m == nil {
		m = SupportMaterials{}
	}
	return json.Marshal(m)
}

func (m *SupportMaterials) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into SupportMaterials", src)
	}
}

// ByID returns a pointer into the list for in-place mutation, or nil.
func (m SupportMaterials) ByID(materialID string) *SupportMaterial {
	for i := range m {
		if m[i].MaterialID == materialID {
			return &m[i]
		}
	}
	return nil
}

// Support is one giver's pledge of one or more materials toward an initiative
// post. The aggregate Status is derived from the material statuses except for
// the workflow-driven PickupScheduled/Completed/Cancelled overrides.
type Support struct {
	ID              string `db:"id" json:"id"`
	InitiativeID    string `db:"initiative_id" json:"initiative_id"`
	InitiativeTitle string `db:"initiative_title" json:"initiative_title"`

	GiverID     string `db:"giver_id" json:"giver_id"`
	CollectorID string `db:"collector_id" json:"collector_id"`

	Materials SupportMaterials `db:"materials" json:"materials"` // jsonb
	Status    SupportStatus    `db:"status" json:"status"`
	Notes     *string          `db:"notes" json:"notes"`

	PickupID *string `db:"pickup_id" json:"pickup_id"`

	CompletionNotes    *string `db:"completion_notes" json:"completion_notes"`
	CancellationReason *string `db:"cancellation_reason" json:"cancellation_reason"`
	CancellationBy     *string `db:"cancellation_by" json:"cancellation_by"`

	AcceptedAt  *time.Time `db:"accepted_at" json:"accepted_at"`
	DeclinedAt  *time.Time `db:"declined_at" json:"declined_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (s *Support) Party(partyID string) bool {
	return partyID == s.GiverID || partyID == s.CollectorID
}
