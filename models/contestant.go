package models

import "time"

// Contestant holds a denormalized running vote total.
type Contestant struct {
	ID            string    `json:"id" db:"id"`
	CompetitionID string    `json:"competition_id" db:"competition_id"`
	UserID        *string   `json:"user_id,omitempty" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	Bio           *string   `json:"bio,omitempty" db:"bio"`
	Votes         int       `json:"votes" db:"votes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
