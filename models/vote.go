package models

import "time"

// Vote is an immutable ledger row. AmountPaid is 0 for free votes.
type Vote struct {
	ID              string    `json:"id" db:"id"`
	VoterID         string    `json:"voter_id" db:"voter_id"`
	VoterEmail      string    `json:"-" db:"voter_email"`
	CompetitionID   string    `json:"competition_id" db:"competition_id"`
	ContestantID    string    `json:"contestant_id" db:"contestant_id"`
	VoteCount       int       `json:"vote_count" db:"vote_count"`
	AmountPaid      int       `json:"amount_paid" db:"amount_paid"`
	PaymentIntentID *string   `json:"payment_intent_id,omitempty" db:"payment_intent_id"`
	IsDoubleVote    bool      `json:"is_double_vote" db:"is_double_vote"`
	VoteDay         string    `json:"vote_day" db:"vote_day"` // YYYY-MM-DD in the vote-day timezone
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

func (v *Vote) IsFree() bool {
	return v.AmountPaid == 0
}
