package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
)

// TallyPublisher pushes a contestant's new vote total to connected clients.
type TallyPublisher interface {
	PublishTally(competitionID, contestantID string, votes int)
}

const (
	counterFallbackWarning = "Your vote was recorded. The vote total was updated in degraded mode and may be briefly inaccurate."
	counterPendingWarning  = "Your vote was recorded, but the vote total could not be updated yet."
)

type FreeVoteInput struct {
	VoterID         string
	Email           string
	CompetitionID   string
	ContestantID    string
	IsDoubleVoteDay bool
	// VotingActive is decided by the caller from the competition's stage and voting window.
	VotingActive bool
}

type PaidVoteInput struct {
	VoterID         string
	Email           string
	CompetitionID   string
	ContestantID    string
	VoteCount       int
	PaymentIntentID string
}

// VoteService writes the vote ledger and keeps the contestant and profile counters in step.
// The ledger row is the source of truth; counters are updated after the insert without a
// shared transaction.
type VoteService struct {
	votes       repositories.VoteRepository
	contestants repositories.ContestantRepository
	profiles    repositories.ProfileRepository
	clock       *VoteClock
	publisher   TallyPublisher
	logger      *slog.Logger

	// allowNonAtomic enables the read-add-write counter path when the atomic functions are missing.
	allowNonAtomic bool
}

func NewVoteService(
	votes repositories.VoteRepository,
	contestants repositories.ContestantRepository,
	profiles repositories.ProfileRepository,
	clock *VoteClock,
	publisher TallyPublisher,
	allowNonAtomic bool,
	logger *slog.Logger,
) *VoteService {
	if clock == nil {
		clock = NewVoteClock(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VoteService{
		votes:          votes,
		contestants:    contestants,
		profiles:       profiles,
		clock:          clock,
		publisher:      publisher,
		allowNonAtomic: allowNonAtomic,
		logger:         logger,
	}
}

func (s *VoteService) Clock() *VoteClock {
	return s.clock
}

func (s *VoteService) configured() bool {
	return s.votes != nil && s.contestants != nil
}

// recoverVote turns a panic from a collaborator into an Unknown vote error.
func (s *VoteService) recoverVote(op string, err *error) {
	if r := recover(); r != nil {
		s.logger.Error("unexpected failure in vote operation", slog.String("operation", op), slog.Any("panic", r))
		*err = newVoteError(VoteErrUnknown, "Something went wrong while recording your vote. Please try again.", fmt.Errorf("panic: %v", r))
	}
}

// HasUsedFreeVoteToday reports whether the voter already cast a free vote in the current voting day.
func (s *VoteService) HasUsedFreeVoteToday(ctx context.Context, voterID, competitionID string) (used bool, err error) {
	defer s.recoverVote("has_used_free_vote", &err)

	_, found, err := s.todaysVote(ctx, voterID, competitionID)
	return found, err
}

// GetTodaysVote returns the contestant the voter picked with today's free vote.
func (s *VoteService) GetTodaysVote(ctx context.Context, voterID, competitionID string) (contestantID string, found bool, err error) {
	defer s.recoverVote("get_todays_vote", &err)

	vote, found, err := s.todaysVote(ctx, voterID, competitionID)
	if err != nil || !found {
		return "", false, err
	}
	return vote.ContestantID, true, nil
}

func (s *VoteService) todaysVote(ctx context.Context, voterID, competitionID string) (*models.Vote, bool, error) {
	if !s.configured() {
		return nil, false, newVoteError(VoteErrNotConfigured, "Voting is not available right now.", nil)
	}
	if strings.TrimSpace(voterID) == "" || strings.TrimSpace(competitionID) == "" {
		return nil, false, newVoteError(VoteErrInvalidInput, "Missing voter or competition.", nil)
	}

	from, to := s.clock.DayWindow(s.clock.Now())
	vote, err := s.votes.FindFreeVote(ctx, voterID, competitionID, from, to)
	if err != nil {
		if errors.Is(err, repositories.ErrVoteNotFound) {
			return nil, false, nil
		}
		return nil, false, newVoteError(VoteErrPersistence, err.Error(), err)
	}
	return vote, true, nil
}

// SubmitFreeVote records the voter's free vote for today. The unique index on the ledger is the
// authoritative guard: of two concurrent submissions only one insert succeeds.
func (s *VoteService) SubmitFreeVote(ctx context.Context, in FreeVoteInput) (result *VoteResult, err error) {
	defer s.recoverVote("submit_free_vote", &err)

	if !s.configured() {
		return nil, newVoteError(VoteErrNotConfigured, "Voting is not available right now.", nil)
	}
	if !in.VotingActive {
		return nil, newVoteError(VoteErrVotingClosed, "Voting is not open for this competition.", nil)
	}
	if in.VoterID == "" || in.CompetitionID == "" || in.ContestantID == "" {
		return nil, newVoteError(VoteErrInvalidInput, "Missing voter, competition or contestant.", nil)
	}

	contestant, err := s.contestantFor(ctx, in.CompetitionID, in.ContestantID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	from, to := s.clock.DayWindow(now)
	if _, err := s.votes.FindFreeVote(ctx, in.VoterID, in.CompetitionID, from, to); err == nil {
		return nil, newVoteError(VoteErrAlreadyVoted, alreadyVotedMessage, nil)
	} else if !errors.Is(err, repositories.ErrVoteNotFound) {
		return nil, newVoteError(VoteErrPersistence, err.Error(), err)
	}

	voteCount := 1
	if in.IsDoubleVoteDay {
		voteCount = 2
	}
	vote := &models.Vote{
		VoterID:       in.VoterID,
		VoterEmail:    in.Email,
		CompetitionID: in.CompetitionID,
		ContestantID:  in.ContestantID,
		VoteCount:     voteCount,
		AmountPaid:    0,
		IsDoubleVote:  in.IsDoubleVoteDay,
		VoteDay:       s.clock.VoteDay(now),
		CreatedAt:     now.UTC(),
	}
	if err := s.votes.Create(ctx, vote); err != nil {
		if errors.Is(err, repositories.ErrDuplicateFreeVote) {
			return nil, newVoteError(VoteErrAlreadyVoted, alreadyVotedMessage, nil)
		}
		return nil, newVoteError(VoteErrPersistence, err.Error(), err)
	}

	s.logger.InfoContext(ctx, "free vote recorded",
		slog.String("vote_id", vote.ID),
		slog.String("competition_id", vote.CompetitionID),
		slog.String("contestant_id", vote.ContestantID),
		slog.Int("vote_count", voteCount),
	)

	return s.propagate(ctx, contestant, voteCount), nil
}

// RecordPaidVote writes a paid ledger row keyed by the payment intent. Recording the same intent
// twice is a success that leaves the counters untouched.
func (s *VoteService) RecordPaidVote(ctx context.Context, in PaidVoteInput) (result *VoteResult, err error) {
	defer s.recoverVote("record_paid_vote", &err)

	if !s.configured() {
		return nil, newVoteError(VoteErrNotConfigured, "Voting is not available right now.", nil)
	}
	if in.VoterID == "" || in.CompetitionID == "" || in.ContestantID == "" || in.PaymentIntentID == "" {
		return nil, newVoteError(VoteErrInvalidInput, "Missing voter, competition, contestant or payment.", nil)
	}
	if in.VoteCount <= 0 {
		return nil, newVoteError(VoteErrInvalidInput, "Vote count must be positive.", nil)
	}

	if existing, err := s.votes.GetByPaymentIntent(ctx, in.PaymentIntentID); err == nil {
		return &VoteResult{VotesAdded: existing.VoteCount, Duplicate: true}, nil
	} else if !errors.Is(err, repositories.ErrVoteNotFound) {
		return nil, newVoteError(VoteErrPersistence, err.Error(), err)
	}

	contestant, err := s.contestantFor(ctx, in.CompetitionID, in.ContestantID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	intentID := in.PaymentIntentID
	vote := &models.Vote{
		VoterID:         in.VoterID,
		VoterEmail:      in.Email,
		CompetitionID:   in.CompetitionID,
		ContestantID:    in.ContestantID,
		VoteCount:       in.VoteCount,
		AmountPaid:      in.VoteCount,
		PaymentIntentID: &intentID,
		VoteDay:         s.clock.VoteDay(now),
		CreatedAt:       now.UTC(),
	}
	if err := s.votes.Create(ctx, vote); err != nil {
		if errors.Is(err, repositories.ErrDuplicatePaymentIntent) {
			return &VoteResult{VotesAdded: in.VoteCount, Duplicate: true}, nil
		}
		return nil, newVoteError(VoteErrPersistence, err.Error(), err)
	}

	s.logger.InfoContext(ctx, "paid vote recorded",
		slog.String("vote_id", vote.ID),
		slog.String("payment_intent_id", intentID),
		slog.String("competition_id", vote.CompetitionID),
		slog.String("contestant_id", vote.ContestantID),
		slog.Int("vote_count", vote.VoteCount),
	)

	return s.propagate(ctx, contestant, in.VoteCount), nil
}

func (s *VoteService) contestantFor(ctx context.Context, competitionID, contestantID string) (*models.Contestant, error) {
	contestant, err := s.contestants.GetByID(ctx, contestantID)
	if err != nil {
		if errors.Is(err, repositories.ErrContestantNotFound) {
			return nil, newVoteError(VoteErrInvalidInput, "This contestant does not exist.", err)
		}
		return nil, newVoteError(VoteErrPersistence, err.Error(), err)
	}
	if contestant.CompetitionID != competitionID {
		return nil, newVoteError(VoteErrInvalidInput, "This contestant is not part of the competition.", nil)
	}
	return contestant, nil
}

// propagate applies delta to the contestant counter and, best effort, to the linked profile.
func (s *VoteService) propagate(ctx context.Context, contestant *models.Contestant, delta int) *VoteResult {
	result := &VoteResult{VotesAdded: delta}

	votes, warning := s.bumpContestant(ctx, contestant, delta)
	result.Warning = warning
	if votes >= 0 && s.publisher != nil {
		s.publisher.PublishTally(contestant.CompetitionID, contestant.ID, votes)
	}

	if contestant.UserID != nil && s.profiles != nil {
		s.bumpProfile(ctx, *contestant.UserID, delta)
	}
	return result
}

// bumpContestant returns the new total, or -1 when it is unknown, and a warning for the voter.
func (s *VoteService) bumpContestant(ctx context.Context, contestant *models.Contestant, delta int) (int, string) {
	log := s.logger.With(slog.String("contestant_id", contestant.ID), slog.Int("delta", delta))

	votes, err := s.contestants.IncrementVotes(ctx, contestant.ID, delta)
	if err == nil {
		return votes, ""
	}
	if !errors.Is(err, repositories.ErrAtomicIncrementUnavailable) {
		log.ErrorContext(ctx, "contestant counter update failed, vote needs reconciliation", slog.Any("error", err))
		return -1, counterPendingWarning
	}
	if !s.allowNonAtomic {
		log.ErrorContext(ctx, "atomic contestant counter unavailable and degraded mode is off, vote needs reconciliation")
		return -1, counterPendingWarning
	}

	log.WarnContext(ctx, "atomic contestant counter unavailable, using non-atomic fallback")
	current, err := s.contestants.GetByID(ctx, contestant.ID)
	if err != nil {
		log.ErrorContext(ctx, "fallback read of contestant counter failed", slog.Any("error", err))
		return -1, counterPendingWarning
	}
	next := current.Votes + delta
	if err := s.contestants.SetVotes(ctx, contestant.ID, next); err != nil {
		log.ErrorContext(ctx, "fallback write of contestant counter failed", slog.Any("error", err))
		return -1, counterPendingWarning
	}
	return next, counterFallbackWarning
}

func (s *VoteService) bumpProfile(ctx context.Context, userID string, delta int) {
	log := s.logger.With(slog.String("user_id", userID), slog.Int("delta", delta))

	_, err := s.profiles.IncrementTotalVotes(ctx, userID, delta)
	if err == nil {
		return
	}
	if !errors.Is(err, repositories.ErrAtomicIncrementUnavailable) || !s.allowNonAtomic {
		log.WarnContext(ctx, "profile vote total not updated", slog.Any("error", err))
		return
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		log.WarnContext(ctx, "fallback read of profile vote total failed", slog.Any("error", err))
		return
	}
	if err := s.profiles.SetTotalVotes(ctx, userID, profile.TotalVotesReceived+delta); err != nil {
		log.WarnContext(ctx, "fallback write of profile vote total failed", slog.Any("error", err))
	}
}
