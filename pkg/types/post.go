package types

import (
	"time"
)

type PostType string

const (
	PostTypeWaste      PostType = "WASTE"
	PostTypeInitiative PostType = "INITIATIVE"
)

type PostStatus string

const (
	PostStatusAvailable PostStatus = "AVAILABLE"
	PostStatusClaimed   PostStatus = "CLAIMED"
	PostStatusCompleted PostStatus = "COMPLETED"
	PostStatusClosed    PostStatus = "CLOSED"
)

// Post is the registry's view of a listing. The coordination core reads it
// and requests status transitions; it never owns or duplicates post content
// beyond the display title cached on Pickup/Support records.
type Post struct {
	ID        string     `db:"id" json:"id"`
	OwnerID   string     `db:"owner_id" json:"owner_id"`
	PostType  PostType   `db:"post_type" json:"post_type"`
	Status    PostStatus `db:"status" json:"status"`
	Title     string     `db:"title" json:"title"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// MaterialProgress is one idempotent progress entry recorded when a support
// completes: the pledged quantity of one material counted toward an
// initiative's running total. Keyed by (support_id, material_id) so retries
// cannot double-count.
type MaterialProgress struct {
	SupportID    string    `db:"support_id" json:"support_id"`
	MaterialID   string    `db:"material_id" json:"material_id"`
	InitiativeID string    `db:"initiative_id" json:"initiative_id"`
	MaterialName string    `db:"material_name" json:"material_name"`
	Quantity     float64   `db:"quantity" json:"quantity"`
	Unit         string    `db:"unit" json:"unit"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// MaterialTotal is an aggregated running total per material for one initiative.
type MaterialTotal struct {
	MaterialName string  `db:"material_name" json:"material_name"`
	Unit         string  `db:"unit" json:"unit"`
	Total        float64 `db:"total" json:"total"`
	Supports     int     `db:"supports" json:"supports"`
}
