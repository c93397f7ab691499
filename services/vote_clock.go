package services

import (
	"fmt"
	"time"
)

const voteDayLayout = "2006-01-02"

// VoteClock decides which voting day a moment belongs to. Every day boundary used by the
// vote ledger (query window, stored vote_day, reset countdown) comes from one location.
type VoteClock struct {
	loc *time.Location
	now func() time.Time
}

func NewVoteClock(loc *time.Location, now func() time.Time) *VoteClock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &VoteClock{loc: loc, now: now}
}

func (c *VoteClock) Now() time.Time {
	return c.now().In(c.loc)
}

func (c *VoteClock) Location() *time.Location {
	return c.loc
}

// DayWindow returns [midnight, next midnight) of the day containing t.
// AddDate keeps the window correct across DST changes.
func (c *VoteClock) DayWindow(t time.Time) (time.Time, time.Time) {
	t = t.In(c.loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
	return start, start.AddDate(0, 0, 1)
}

// VoteDay is the YYYY-MM-DD label of the day containing t.
func (c *VoteClock) VoteDay(t time.Time) string {
	return t.In(c.loc).Format(voteDayLayout)
}

// TimeUntilReset is the time left before the next free vote becomes available.
func (c *VoteClock) TimeUntilReset() time.Duration {
	now := c.Now()
	_, end := c.DayWindow(now)
	return end.Sub(now)
}

// FormatResetCountdown renders d as "Xh Ym".
func FormatResetCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", h, m)
}
