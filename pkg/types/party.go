package types

import "time"

// Party is the directory's view of a user: identity plus role flags. The core
// consults the flags when resolving who may propose against which post type.
type Party struct {
	ID          string    `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	IsGiver     bool      `db:"is_giver" json:"is_giver"`
	IsCollector bool      `db:"is_collector" json:"is_collector"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
