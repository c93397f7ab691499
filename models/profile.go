package models

import "time"

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleHost  UserRole = "host"
	RoleVoter UserRole = "voter"
)

// Profile is a registered user. TotalVotesReceived mirrors the sum of votes of the
// contestants linked to this profile (best effort).
type Profile struct {
	ID                 string    `json:"id" db:"id"`
	Email              string    `json:"email" db:"email"`
	PasswordHash       string    `json:"-" db:"password_hash"`
	DisplayName        string    `json:"display_name" db:"display_name"`
	Role               UserRole  `json:"role" db:"role"`
	TotalVotesReceived int       `json:"total_votes_received" db:"total_votes_received"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}
