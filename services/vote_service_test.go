package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
)

func TestSubmitFreeVoteOncePerDay(t *testing.T) {
	f := newFixture(t)
	svc := f.voteService(false)
	ctx := context.Background()

	used, err := svc.HasUsedFreeVoteToday(ctx, f.voter.ID, f.competition.ID)
	if err != nil || used {
		t.Fatalf("HasUsedFreeVoteToday before voting = (%v, %v), want (false, nil)", used, err)
	}

	result, err := svc.SubmitFreeVote(ctx, f.freeVote(f.contestant.ID))
	if err != nil {
		t.Fatalf("SubmitFreeVote: %v", err)
	}
	if result.VotesAdded != 1 || result.Warning != "" {
		t.Fatalf("result = %+v, want 1 vote and no warning", result)
	}

	_, err = svc.SubmitFreeVote(ctx, f.freeVote(f.other.ID))
	if !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("second SubmitFreeVote error = %v, want AlreadyVoted", err)
	}

	used, err = svc.HasUsedFreeVoteToday(ctx, f.voter.ID, f.competition.ID)
	if err != nil || !used {
		t.Fatalf("HasUsedFreeVoteToday after voting = (%v, %v), want (true, nil)", used, err)
	}
	picked, found, err := svc.GetTodaysVote(ctx, f.voter.ID, f.competition.ID)
	if err != nil || !found || picked != f.contestant.ID {
		t.Fatalf("GetTodaysVote = (%q, %v, %v), want (%q, true, nil)", picked, found, err, f.contestant.ID)
	}

	if got := f.contestantVotes(t, f.contestant.ID); got != 1 {
		t.Errorf("contestant votes = %d, want 1", got)
	}
	if got := f.contestantVotes(t, f.other.ID); got != 0 {
		t.Errorf("other contestant votes = %d, want 0", got)
	}
	if got := f.profileVotes(t, f.performer.ID); got != 1 {
		t.Errorf("linked profile total = %d, want 1", got)
	}
	if votes := f.ledger(t); len(votes) != 1 || votes[0].VoteDay != "2026-03-10" || !votes[0].IsFree() {
		t.Errorf("ledger = %+v, want one free vote on 2026-03-10", votes)
	}
	if tally, ok := f.publisher.last(); !ok || tally.contestantID != f.contestant.ID || tally.votes != 1 {
		t.Errorf("published tally = %+v, %v", tally, ok)
	}
}

func TestSubmitFreeVoteNextDay(t *testing.T) {
	f := newFixture(t)
	svc := f.voteService(false)
	ctx := context.Background()

	if _, err := svc.SubmitFreeVote(ctx, f.freeVote(f.contestant.ID)); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	f.clock.Advance(9*time.Hour + time.Minute) // 00:01 the next day

	if _, err := svc.SubmitFreeVote(ctx, f.freeVote(f.contestant.ID)); err != nil {
		t.Fatalf("vote on the next day: %v", err)
	}
	if got := f.contestantVotes(t, f.contestant.ID); got != 2 {
		t.Errorf("contestant votes = %d, want 2", got)
	}
}

func TestSubmitFreeVoteDoubleVoteDay(t *testing.T) {
	f := newFixture(t)
	svc := f.voteService(false)

	in := f.freeVote(f.contestant.ID)
	in.IsDoubleVoteDay = true
	result, err := svc.SubmitFreeVote(context.Background(), in)
	if err != nil {
		t.Fatalf("SubmitFreeVote: %v", err)
	}
	if result.VotesAdded != 2 {
		t.Errorf("VotesAdded = %d, want 2", result.VotesAdded)
	}
	votes := f.ledger(t)
	if len(votes) != 1 || votes[0].VoteCount != 2 || !votes[0].IsDoubleVote {
		t.Errorf("ledger = %+v, want one double vote row", votes)
	}
}

func TestSubmitFreeVoteRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foreign := &models.Competition{Name: "Other", Slug: "other", Status: models.CompetitionLive}
	if err := f.store.Competitions().Create(ctx, foreign); err != nil {
		t.Fatal(err)
	}
	stranger := &models.Contestant{CompetitionID: foreign.ID, Name: "Carol"}
	if err := f.store.Contestants().Create(ctx, stranger); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		svc   *VoteService
		input func() FreeVoteInput
		want  error
	}{
		{
			name:  "voting closed",
			svc:   f.voteService(false),
			input: func() FreeVoteInput { in := f.freeVote(f.contestant.ID); in.VotingActive = false; return in },
			want:  ErrVotingClosed,
		},
		{
			name:  "missing voter",
			svc:   f.voteService(false),
			input: func() FreeVoteInput { in := f.freeVote(f.contestant.ID); in.VoterID = ""; return in },
			want:  ErrVoteInvalidInput,
		},
		{
			name:  "unknown contestant",
			svc:   f.voteService(false),
			input: func() FreeVoteInput { return f.freeVote("missing") },
			want:  ErrVoteInvalidInput,
		},
		{
			name:  "contestant of another competition",
			svc:   f.voteService(false),
			input: func() FreeVoteInput { return f.freeVote(stranger.ID) },
			want:  ErrVoteInvalidInput,
		},
		{
			name:  "store not configured",
			svc:   NewVoteService(nil, nil, nil, f.voteClock, nil, false, discardLogger()),
			input: func() FreeVoteInput { return f.freeVote(f.contestant.ID) },
			want:  ErrVoteNotConfigured,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.SubmitFreeVote(ctx, tt.input())
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var verr *VoteError
			if !errors.As(err, &verr) || verr.Message == "" {
				t.Fatalf("error %v is not a VoteError with a message", err)
			}
		})
	}
	if votes := f.ledger(t); len(votes) != 0 {
		t.Errorf("ledger has %d rows after rejected votes", len(votes))
	}
}

func TestSubmitFreeVoteConcurrent(t *testing.T) {
	f := newFixture(t)
	svc := f.voteService(false)

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		already   int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitFreeVote(context.Background(), f.freeVote(f.contestant.ID))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAlreadyVoted):
				already++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || already != attempts-1 {
		t.Fatalf("successes = %d, already voted = %d, want 1 and %d", successes, already, attempts-1)
	}
	if got := f.contestantVotes(t, f.contestant.ID); got != 1 {
		t.Errorf("contestant votes = %d, want 1", got)
	}
	if votes := f.ledger(t); len(votes) != 1 {
		t.Errorf("ledger rows = %d, want 1", len(votes))
	}
}

func TestCounterWithoutAtomicIncrement(t *testing.T) {
	tests := []struct {
		name           string
		allowNonAtomic bool
		wantWarning    string
		wantVotes      int
		wantProfile    int
		wantPublished  bool
	}{
		{"degraded mode on", true, counterFallbackWarning, 1, 1, true},
		{"degraded mode off", false, counterPendingWarning, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.SetAtomicIncrementAvailable(false)
			svc := f.voteService(tt.allowNonAtomic)

			result, err := svc.SubmitFreeVote(context.Background(), f.freeVote(f.contestant.ID))
			if err != nil {
				t.Fatalf("SubmitFreeVote: %v", err)
			}
			if result.Warning != tt.wantWarning {
				t.Errorf("Warning = %q, want %q", result.Warning, tt.wantWarning)
			}
			if len(f.ledger(t)) != 1 {
				t.Errorf("vote was not recorded")
			}
			if got := f.contestantVotes(t, f.contestant.ID); got != tt.wantVotes {
				t.Errorf("contestant votes = %d, want %d", got, tt.wantVotes)
			}
			if got := f.profileVotes(t, f.performer.ID); got != tt.wantProfile {
				t.Errorf("profile total = %d, want %d", got, tt.wantProfile)
			}
			if _, ok := f.publisher.last(); ok != tt.wantPublished {
				t.Errorf("tally published = %v, want %v", ok, tt.wantPublished)
			}
		})
	}
}

func TestRecordPaidVoteIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := f.voteService(false)
	ctx := context.Background()
	in := PaidVoteInput{
		VoterID:         f.voter.ID,
		Email:           f.voter.Email,
		CompetitionID:   f.competition.ID,
		ContestantID:    f.contestant.ID,
		VoteCount:       5,
		PaymentIntentID: "pi_123",
	}

	first, err := svc.RecordPaidVote(ctx, in)
	if err != nil {
		t.Fatalf("RecordPaidVote: %v", err)
	}
	if first.VotesAdded != 5 || first.Duplicate {
		t.Fatalf("first result = %+v", first)
	}

	second, err := svc.RecordPaidVote(ctx, in)
	if err != nil {
		t.Fatalf("RecordPaidVote again: %v", err)
	}
	if !second.Duplicate || second.VotesAdded != 5 {
		t.Fatalf("second result = %+v, want duplicate of 5 votes", second)
	}
	if got := f.contestantVotes(t, f.contestant.ID); got != 5 {
		t.Errorf("contestant votes = %d, want 5", got)
	}

	// a paid vote does not use up the free vote
	if _, err := svc.SubmitFreeVote(ctx, f.freeVote(f.contestant.ID)); err != nil {
		t.Fatalf("free vote after paid vote: %v", err)
	}
	votes := f.ledger(t)
	if len(votes) != 2 {
		t.Fatalf("ledger rows = %d, want 2", len(votes))
	}
}

func TestRecordPaidVoteValidation(t *testing.T) {
	f := newFixture(t)
	svc := f.voteService(false)
	in := PaidVoteInput{VoterID: f.voter.ID, CompetitionID: f.competition.ID, ContestantID: f.contestant.ID, VoteCount: 0, PaymentIntentID: "pi_1"}
	if _, err := svc.RecordPaidVote(context.Background(), in); !errors.Is(err, ErrVoteInvalidInput) {
		t.Fatalf("zero vote count error = %v, want InvalidInput", err)
	}
	in.VoteCount = 1
	in.PaymentIntentID = ""
	if _, err := svc.RecordPaidVote(context.Background(), in); !errors.Is(err, ErrVoteInvalidInput) {
		t.Fatalf("missing intent error = %v, want InvalidInput", err)
	}
}

type panickingContestants struct {
	repositories.ContestantRepository
}

func (panickingContestants) GetByID(context.Context, string) (*models.Contestant, error) {
	panic("boom")
}

func TestSubmitFreeVoteRecoversPanic(t *testing.T) {
	f := newFixture(t)
	svc := NewVoteService(f.store.Votes(), panickingContestants{f.store.Contestants()}, f.store.Profiles(),
		f.voteClock, nil, false, discardLogger())

	result, err := svc.SubmitFreeVote(context.Background(), f.freeVote(f.contestant.ID))
	if result != nil {
		t.Fatalf("result = %+v, want nil", result)
	}
	if !errors.Is(err, ErrVoteUnknown) {
		t.Fatalf("error = %v, want Unknown", err)
	}
}
