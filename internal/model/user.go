package model

import (
	"time"
)

// User is created on first interaction with the bot. RegisteredUsername is
// nil until the user completes the registration flow.
type User struct {
	ID                 string    `db:"id" json:"id"`
	PlatformUsername   *string   `db:"platform_username" json:"platformUsername,omitempty"`
	RegisteredUsername *string   `db:"registered_username" json:"registeredUsername,omitempty"`
	RegistrationDate   time.Time `db:"registration_date" json:"registrationDate"`
}

// DisplayName picks the best available name for leaderboards and admin lists.
func (u *User) DisplayName() string {
	if u.RegisteredUsername != nil && *u.RegisteredUsername != "" {
		return *u.RegisteredUsername
	}
	if u.PlatformUsername != nil && *u.PlatformUsername != "" {
		return *u.PlatformUsername
	}
	return "Unknown"
}

type UpsertUserParams struct {
	ID               string
	PlatformUsername *string
}
