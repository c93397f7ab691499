package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/competition-system/editability"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClock is a settable time source for VoteClock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu    sync.Mutex
	calls []publishedTally
}

type publishedTally struct {
	competitionID, contestantID string
	votes                       int
}

func (p *recordingPublisher) PublishTally(competitionID, contestantID string, votes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishedTally{competitionID, contestantID, votes})
}

func (p *recordingPublisher) last() (publishedTally, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return publishedTally{}, false
	}
	return p.calls[len(p.calls)-1], true
}

// fixture is a live competition with one host, one voter and two contestants, the first of
// them linked to a profile.
type fixture struct {
	store       *repositories.MemoryStore
	clock       *testClock
	voteClock   *VoteClock
	publisher   *recordingPublisher
	host        *models.Profile
	voter       *models.Profile
	performer   *models.Profile
	competition *models.Competition
	contestant  *models.Contestant
	other       *models.Contestant
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:     repositories.NewMemoryStore(),
		clock:     &testClock{now: time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)},
		publisher: &recordingPublisher{},
	}
	f.voteClock = NewVoteClock(time.UTC, f.clock.Now)

	profiles := f.store.Profiles()
	f.host = mustProfile(t, profiles, "host@example.com", models.RoleHost)
	f.voter = mustProfile(t, profiles, "voter@example.com", models.RoleVoter)
	f.performer = mustProfile(t, profiles, "performer@example.com", models.RoleVoter)

	start := f.clock.Now().Add(-48 * time.Hour)
	end := f.clock.Now().Add(10 * 24 * time.Hour)
	f.competition = &models.Competition{
		HostID:          &f.host.ID,
		Status:          models.CompetitionLive,
		Name:            "Spring Stars",
		Slug:            "spring-stars",
		VotingStart:     &start,
		VotingEnd:       &end,
		DoubleVoteDates: []string{"2026-03-12"},
	}
	if err := f.store.Competitions().Create(ctx, f.competition); err != nil {
		t.Fatalf("create competition: %v", err)
	}

	f.contestant = &models.Contestant{CompetitionID: f.competition.ID, Name: "Alice", UserID: &f.performer.ID}
	if err := f.store.Contestants().Create(ctx, f.contestant); err != nil {
		t.Fatalf("create contestant: %v", err)
	}
	f.other = &models.Contestant{CompetitionID: f.competition.ID, Name: "Bob"}
	if err := f.store.Contestants().Create(ctx, f.other); err != nil {
		t.Fatalf("create contestant: %v", err)
	}
	return f
}

func mustProfile(t *testing.T, repo repositories.ProfileRepository, email string, role models.UserRole) *models.Profile {
	t.Helper()
	p := &models.Profile{Email: email, DisplayName: email, Role: role, PasswordHash: "x"}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("create profile %s: %v", email, err)
	}
	return p
}

func (f *fixture) voteService(allowNonAtomic bool) *VoteService {
	return NewVoteService(f.store.Votes(), f.store.Contestants(), f.store.Profiles(), f.voteClock, f.publisher, allowNonAtomic, discardLogger())
}

func (f *fixture) competitionService() *CompetitionService {
	policy := editability.NewPolicy(editability.DefaultRules(), editability.DefaultMessages(), discardLogger())
	return NewCompetitionService(f.store.Competitions(), f.store.Contestants(), policy, f.voteClock, discardLogger())
}

func (f *fixture) contestantVotes(t *testing.T, id string) int {
	t.Helper()
	c, err := f.store.Contestants().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get contestant: %v", err)
	}
	return c.Votes
}

func (f *fixture) profileVotes(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Profiles().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	return p.TotalVotesReceived
}

func (f *fixture) ledger(t *testing.T) []models.Vote {
	t.Helper()
	votes, err := f.store.Votes().ListByCompetition(context.Background(), f.competition.ID)
	if err != nil {
		t.Fatalf("list votes: %v", err)
	}
	return votes
}

func (f *fixture) freeVote(contestantID string) FreeVoteInput {
	return FreeVoteInput{
		VoterID:       f.voter.ID,
		Email:         f.voter.Email,
		CompetitionID: f.competition.ID,
		ContestantID:  contestantID,
		VotingActive:  true,
	}
}

func settingsUpdate(name string, value any) repositories.SettingsUpdate {
	return repositories.SettingsUpdate{Values: map[string]any{name: value}, UpdatedAt: time.Now().UTC()}
}
