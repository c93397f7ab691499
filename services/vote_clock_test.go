package services

import (
	"testing"
	"time"
)

func TestDayWindowAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	clock := NewVoteClock(ny, nil)

	tests := []struct {
		name     string
		at       time.Time
		wantDay  string
		wantSpan time.Duration
	}{
		{"spring forward", time.Date(2026, 3, 8, 12, 0, 0, 0, ny), "2026-03-08", 23 * time.Hour},
		{"fall back", time.Date(2026, 11, 1, 12, 0, 0, 0, ny), "2026-11-01", 25 * time.Hour},
		{"regular day", time.Date(2026, 3, 10, 12, 0, 0, 0, ny), "2026-03-10", 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := clock.DayWindow(tt.at)
			if got := end.Sub(start); got != tt.wantSpan {
				t.Errorf("window length = %v, want %v", got, tt.wantSpan)
			}
			if start.Hour() != 0 || start.Minute() != 0 {
				t.Errorf("window starts at %v, want local midnight", start)
			}
			if got := clock.VoteDay(tt.at); got != tt.wantDay {
				t.Errorf("VoteDay = %q, want %q", got, tt.wantDay)
			}
		})
	}
}

func TestVoteDayUsesConfiguredLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 20:00 UTC on the 10th is already the 11th in Tokyo.
	at := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	if got := NewVoteClock(tokyo, nil).VoteDay(at); got != "2026-03-11" {
		t.Errorf("VoteDay = %q, want 2026-03-11", got)
	}
	if got := NewVoteClock(nil, nil).VoteDay(at); got != "2026-03-10" {
		t.Errorf("default VoteDay = %q, want 2026-03-10", got)
	}
}

func TestTimeUntilReset(t *testing.T) {
	now := time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC)
	clock := NewVoteClock(time.UTC, func() time.Time { return now })
	if got := clock.TimeUntilReset(); got != 90*time.Minute {
		t.Errorf("TimeUntilReset = %v, want 1h30m", got)
	}
}

func TestFormatResetCountdown(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{90 * time.Minute, "1h 30m"},
		{23*time.Hour + 59*time.Minute, "23h 59m"},
		{59*time.Minute + 40*time.Second, "1h 0m"},
		{0, "0h 0m"},
		{-time.Minute, "0h 0m"},
	}
	for _, tt := range tests {
		if got := FormatResetCountdown(tt.in); got != tt.want {
			t.Errorf("FormatResetCountdown(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
