package models

import (
	"encoding/json"
	"time"
)

// CompetitionStatus is the raw status stored on a competition row. Legacy rows may carry
// synonyms (e.g. "coming_soon", "active"); editability.NormalizeStatus maps them to a stage.
type CompetitionStatus string

const (
	CompetitionDraft     CompetitionStatus = "draft"
	CompetitionPublish   CompetitionStatus = "publish"
	CompetitionLive      CompetitionStatus = "live"
	CompetitionCompleted CompetitionStatus = "completed"
)

// Competition is the aggregate root edited by admins and hosts.
type Competition struct {
	ID     string            `json:"id" db:"id"`
	HostID *string           `json:"host_id,omitempty" db:"host_id"`
	Status CompetitionStatus `json:"status" db:"status"`

	// Slot attributes, admin controlled.
	Name        string  `json:"name" db:"name"`
	Slug        string  `json:"slug" db:"slug"`
	City        *string `json:"city,omitempty" db:"city"`
	Season      *string `json:"season,omitempty" db:"season"`
	Category    *string `json:"category,omitempty" db:"category"`
	Demographic *string `json:"demographic,omitempty" db:"demographic"`

	// Economics, admin controlled.
	PricePerVote      *float64 `json:"price_per_vote,omitempty" db:"price_per_vote"`
	MinimumPrize      *float64 `json:"minimum_prize,omitempty" db:"minimum_prize"`
	NumberOfWinners   *int     `json:"number_of_winners,omitempty" db:"number_of_winners"`
	MinContestants    *int     `json:"min_contestants,omitempty" db:"min_contestants"`
	MaxContestants    *int     `json:"max_contestants,omitempty" db:"max_contestants"`
	EligibilityRadius *int     `json:"eligibility_radius,omitempty" db:"eligibility_radius"`

	// Marketing.
	AboutTagline   *string  `json:"about_tagline,omitempty" db:"about_tagline"`
	Description    *string  `json:"description,omitempty" db:"description"`
	Traits         []string `json:"traits" db:"traits"`
	AgeRange       *string  `json:"age_range,omitempty" db:"age_range"`
	Requirements   *string  `json:"requirements,omitempty" db:"requirements"`
	ThemePrimary   *string  `json:"theme_primary,omitempty" db:"theme_primary"`
	ThemeSecondary *string  `json:"theme_secondary,omitempty" db:"theme_secondary"`

	// Timeline.
	NominationStart *time.Time `json:"nomination_start,omitempty" db:"nomination_start"`
	NominationEnd   *time.Time `json:"nomination_end,omitempty" db:"nomination_end"`
	VotingStart     *time.Time `json:"voting_start,omitempty" db:"voting_start"`
	VotingEnd       *time.Time `json:"voting_end,omitempty" db:"voting_end"`
	FinaleDate      *time.Time `json:"finale_date,omitempty" db:"finale_date"`
	DoubleVoteDates []string   `json:"double_vote_dates" db:"double_vote_dates"` // YYYY-MM-DD

	// Host-editable collections, stored as jsonb.
	Events        json.RawMessage `json:"events,omitempty" db:"events"`
	Sponsors      json.RawMessage `json:"sponsors,omitempty" db:"sponsors"`
	Rules         json.RawMessage `json:"rules,omitempty" db:"rules"`
	Announcements json.RawMessage `json:"announcements,omitempty" db:"announcements"`
	Winners       json.RawMessage `json:"winners,omitempty" db:"winners"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Contestants []Contestant `json:"contestants,omitempty" db:"-"`
}

// VotingWindowOpen reports whether now falls inside the configured voting window.
// Open-ended bounds are treated as unbounded.
func (c *Competition) VotingWindowOpen(now time.Time) bool {
	if c.VotingStart != nil && now.Before(*c.VotingStart) {
		return false
	}
	if c.VotingEnd != nil && !now.Before(*c.VotingEnd) {
		return false
	}
	return true
}

// IsDoubleVoteDay reports whether day (YYYY-MM-DD) is a promotional double-vote day.
func (c *Competition) IsDoubleVoteDay(day string) bool {
	for _, d := range c.DoubleVoteDates {
		if d == day {
			return true
		}
	}
	return false
}
