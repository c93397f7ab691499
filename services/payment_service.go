package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/Dosada05/competition-system/payments"
)

type PaymentIntentView struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	VoteCount       int    `json:"vote_count"`
}

// PaymentService runs the paid vote flow across HTTP requests: one request creates the intent,
// a later one confirms it against the provider and records the votes.
type PaymentService struct {
	provider     payments.Provider
	votes        PaidVoteRecorder
	competitions *CompetitionService
	currency     string
	logger       *slog.Logger
}

// NewPaymentService accepts a nil provider; every call then fails with NotConfigured.
func NewPaymentService(provider payments.Provider, votes PaidVoteRecorder, competitions *CompetitionService, currency string, logger *slog.Logger) *PaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentService{provider: provider, votes: votes, competitions: competitions, currency: currency, logger: logger}
}

func (s *PaymentService) CreateVotePaymentIntent(ctx context.Context, actor Actor, email, competitionID, contestantID string, voteCount int) (*PaymentIntentView, error) {
	_, status, err := s.competitions.VotingStatus(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	// the charge must map to a contestant the ledger will accept once it succeeds
	if _, err := s.competitions.GetContestant(ctx, competitionID, contestantID); err != nil {
		if errors.Is(err, ErrContestantNotFound) {
			return nil, newVoteError(VoteErrInvalidInput, "This contestant is not part of the competition.", err)
		}
		return nil, err
	}

	flow := NewPaidVoteFlow(s.provider, s.votes, s.currency, s.logger)
	intent, err := flow.Start(ctx, PaidVoteRequest{
		VoterID:       actor.UserID,
		Email:         email,
		CompetitionID: competitionID,
		ContestantID:  contestantID,
		VoteCount:     voteCount,
		VotingActive:  status.Active,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "vote payment intent created",
		slog.String("payment_intent_id", intent.ID),
		slog.String("competition_id", competitionID),
		slog.Int("vote_count", voteCount),
	)
	return &PaymentIntentView{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountCents:     intent.AmountCents,
		Currency:        intent.Currency,
		VoteCount:       voteCount,
	}, nil
}

// ConfirmPaidVote reads the intent back from the provider, checks that it was bought by actor for
// this competition, and feeds its status to the flow.
func (s *PaymentService) ConfirmPaidVote(ctx context.Context, actor Actor, email, competitionID, paymentIntentID string) (*PaidVoteOutcome, error) {
	if s.provider == nil {
		return nil, newVoteError(VoteErrNotConfigured, "Paid voting is not available right now.", nil)
	}
	if paymentIntentID == "" {
		return nil, newVoteError(VoteErrInvalidInput, "Missing payment.", nil)
	}

	intent, err := s.provider.GetIntent(ctx, paymentIntentID)
	if err != nil {
		if errors.Is(err, payments.ErrIntentNotFound) {
			return nil, newVoteError(VoteErrInvalidInput, "This payment does not exist.", err)
		}
		return nil, newVoteError(VoteErrPaymentFailed, providerMessage(err), err)
	}

	meta := intent.Metadata
	if meta[payments.MetaCompetitionID] != competitionID || meta[payments.MetaVoterID] != actor.UserID {
		s.logger.WarnContext(ctx, "payment intent does not belong to caller",
			slog.String("payment_intent_id", paymentIntentID),
			slog.String("user_id", actor.UserID),
			slog.String("competition_id", competitionID),
		)
		return nil, newVoteError(VoteErrInvalidInput, "This payment does not belong to this vote.", nil)
	}
	voteCount, err := strconv.Atoi(meta[payments.MetaVoteCount])
	if err != nil || voteCount <= 0 {
		return nil, newVoteError(VoteErrInvalidInput, "This payment is missing its vote count.", err)
	}
	if intent.AmountCents != 0 && intent.AmountCents != payments.VoteAmountCents(voteCount) {
		return nil, newVoteError(VoteErrInvalidInput, "This payment amount does not match its vote count.", nil)
	}

	flow := NewPaidVoteFlow(s.provider, s.votes, s.currency, s.logger)
	if err := flow.Resume(PaidVoteRequest{
		VoterID:       actor.UserID,
		Email:         email,
		CompetitionID: competitionID,
		ContestantID:  meta[payments.MetaContestantID],
		VoteCount:     voteCount,
	}, intent); err != nil {
		return nil, err
	}
	return flow.HandleProviderResult(ctx, intent.Status, intent.Message)
}
