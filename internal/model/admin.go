package model

import (
	"time"
)

// Admin marks a user as holding administrative rights. The earliest row is
// the bootstrap admin and cannot be removed.
type Admin struct {
	UserID  string    `db:"user_id" json:"userId"`
	AddedBy *string   `db:"added_by" json:"addedBy,omitempty"`
	AddedAt time.Time `db:"added_at" json:"addedAt"`
}

// AdminListing is an admin row joined with the user's display names.
type AdminListing struct {
	UserID             string    `db:"user_id" json:"userId"`
	PlatformUsername   *string   `db:"platform_username" json:"platformUsername,omitempty"`
	RegisteredUsername *string   `db:"registered_username" json:"registeredUsername,omitempty"`
	AddedAt            time.Time `db:"added_at" json:"addedAt"`
}

// DisplayName prefers the self-registered name over the platform handle.
func (a *AdminListing) DisplayName() string {
	if a.RegisteredUsername != nil && *a.RegisteredUsername != "" {
		return *a.RegisteredUsername
	}
	if a.PlatformUsername != nil && *a.PlatformUsername != "" {
		return *a.PlatformUsername
	}
	return a.UserID
}
