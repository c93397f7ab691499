package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/Dosada05/competition-system/payments"
)

type PaidFlowState int

const (
	FlowIdle PaidFlowState = iota
	FlowCreatingPaymentIntent
	FlowAwaitingPaymentConfirmation
	FlowRecording
	FlowSucceeded
	FlowFailed
)

func (s PaidFlowState) String() string {
	switch s {
	case FlowCreatingPaymentIntent:
		return "creating_payment_intent"
	case FlowAwaitingPaymentConfirmation:
		return "awaiting_payment_confirmation"
	case FlowRecording:
		return "recording"
	case FlowSucceeded:
		return "succeeded"
	case FlowFailed:
		return "failed"
	default:
		return "idle"
	}
}

// MaxPaidVotesPerPayment caps a single purchase.
const MaxPaidVotesPerPayment = 1000

const processingMessage = "Your payment is processing. Your votes will be added as soon as it completes."

var (
	ErrFlowBusy          = errors.New("a payment is already in progress")
	ErrFlowInvalidState  = errors.New("payment flow is not in a state that allows this action")
	ErrFlowNotCancelable = errors.New("payment can no longer be canceled")
)

type PaidVoteRequest struct {
	VoterID       string
	Email         string
	CompetitionID string
	ContestantID  string
	VoteCount     int
	VotingActive  bool
}

// PaidVoteOutcome is what the flow reports after the provider answered.
type PaidVoteOutcome struct {
	State           PaidFlowState `json:"-"`
	PaymentIntentID string        `json:"payment_intent_id"`
	Message         string        `json:"message,omitempty"`
	Result          *VoteResult   `json:"result,omitempty"`
}

// PaidVoteRecorder writes a paid vote to the ledger.
type PaidVoteRecorder interface {
	RecordPaidVote(ctx context.Context, in PaidVoteInput) (*VoteResult, error)
}

// PaidVoteFlow is the payment state machine for one purchase:
// Idle -> CreatingPaymentIntent -> AwaitingPaymentConfirmation -> Recording -> Succeeded | Failed.
// Recording is entered only after the provider reports succeeded.
type PaidVoteFlow struct {
	provider payments.Provider
	recorder PaidVoteRecorder
	currency string
	logger   *slog.Logger

	mu              sync.Mutex
	state           PaidFlowState
	request         PaidVoteRequest
	intent          *payments.Intent
	recordingFailed bool
	lastErr         error
}

func NewPaidVoteFlow(provider payments.Provider, recorder PaidVoteRecorder, currency string, logger *slog.Logger) *PaidVoteFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaidVoteFlow{provider: provider, recorder: recorder, currency: currency, logger: logger}
}

func (f *PaidVoteFlow) State() PaidFlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err is the error that moved the flow to Failed.
func (f *PaidVoteFlow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Start creates a payment intent for req. Any failure returns the flow to Idle.
func (f *PaidVoteFlow) Start(ctx context.Context, req PaidVoteRequest) (*payments.Intent, error) {
	f.mu.Lock()
	if f.state != FlowIdle && f.state != FlowFailed {
		f.mu.Unlock()
		return nil, ErrFlowBusy
	}
	f.reset()

	if !req.VotingActive {
		f.mu.Unlock()
		return nil, newVoteError(VoteErrVotingClosed, "Voting is not open for this competition.", nil)
	}
	if f.provider == nil {
		f.mu.Unlock()
		return nil, newVoteError(VoteErrNotConfigured, "Paid voting is not available right now.", nil)
	}
	if req.VoterID == "" || req.CompetitionID == "" || req.ContestantID == "" {
		f.mu.Unlock()
		return nil, newVoteError(VoteErrInvalidInput, "Missing voter, competition or contestant.", nil)
	}
	if req.VoteCount <= 0 || req.VoteCount > MaxPaidVotesPerPayment {
		f.mu.Unlock()
		return nil, newVoteError(VoteErrInvalidInput,
			fmt.Sprintf("You can buy between 1 and %d votes at a time.", MaxPaidVotesPerPayment), nil)
	}
	f.state = FlowCreatingPaymentIntent
	f.request = req
	f.mu.Unlock()

	intent, err := f.provider.CreateIntent(ctx, payments.IntentParams{
		AmountCents:  payments.VoteAmountCents(req.VoteCount),
		Currency:     f.currency,
		Description:  fmt.Sprintf("%d votes", req.VoteCount),
		ReceiptEmail: req.Email,
		Metadata: map[string]string{
			payments.MetaCompetitionID: req.CompetitionID,
			payments.MetaContestantID:  req.ContestantID,
			payments.MetaVoterID:       req.VoterID,
			payments.MetaVoteCount:     strconv.Itoa(req.VoteCount),
		},
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.reset()
		f.logger.WarnContext(ctx, "payment intent creation failed",
			slog.String("competition_id", req.CompetitionID), slog.Any("error", err))
		return nil, newVoteError(VoteErrPaymentFailed, providerMessage(err), err)
	}
	f.state = FlowAwaitingPaymentConfirmation
	f.intent = intent
	return intent, nil
}

// Resume puts a fresh flow into AwaitingPaymentConfirmation for an intent created earlier.
func (f *PaidVoteFlow) Resume(req PaidVoteRequest, intent *payments.Intent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != FlowIdle {
		return ErrFlowBusy
	}
	if intent == nil || intent.ID == "" {
		return newVoteError(VoteErrInvalidInput, "Missing payment.", nil)
	}
	f.request = req
	f.intent = intent
	f.state = FlowAwaitingPaymentConfirmation
	return nil
}

// HandleProviderResult reacts to the provider's answer for the pending intent. Only succeeded
// moves the flow to Recording; processing keeps it waiting; anything else fails it with the
// provider's message.
func (f *PaidVoteFlow) HandleProviderResult(ctx context.Context, status payments.Status, message string) (*PaidVoteOutcome, error) {
	f.mu.Lock()
	if f.state != FlowAwaitingPaymentConfirmation {
		f.mu.Unlock()
		return nil, ErrFlowInvalidState
	}
	intentID := f.intent.ID

	switch status {
	case payments.StatusSucceeded:
		f.state = FlowRecording
		f.mu.Unlock()
		return f.record(ctx)

	case payments.StatusProcessing:
		f.mu.Unlock()
		return &PaidVoteOutcome{State: FlowAwaitingPaymentConfirmation, PaymentIntentID: intentID, Message: processingMessage}, nil

	default:
		if message == "" {
			message = fmt.Sprintf("The payment did not complete (status %s).", status)
		}
		err := newVoteError(VoteErrPaymentFailed, message, nil)
		f.state = FlowFailed
		f.lastErr = err
		f.mu.Unlock()
		f.logger.InfoContext(ctx, "paid vote payment not completed",
			slog.String("payment_intent_id", intentID), slog.String("status", string(status)))
		return &PaidVoteOutcome{State: FlowFailed, PaymentIntentID: intentID, Message: message}, err
	}
}

// Retry re-runs Recording after a failed ledger write, with the same payment intent.
func (f *PaidVoteFlow) Retry(ctx context.Context) (*PaidVoteOutcome, error) {
	f.mu.Lock()
	if f.state != FlowFailed || !f.recordingFailed {
		f.mu.Unlock()
		return nil, ErrFlowInvalidState
	}
	f.state = FlowRecording
	f.mu.Unlock()
	return f.record(ctx)
}

// Cancel abandons the purchase. It is refused once Recording has started.
func (f *PaidVoteFlow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case FlowRecording, FlowSucceeded:
		return ErrFlowNotCancelable
	case FlowFailed:
		if f.recordingFailed {
			return ErrFlowNotCancelable
		}
	}
	f.reset()
	return nil
}

func (f *PaidVoteFlow) record(ctx context.Context) (*PaidVoteOutcome, error) {
	f.mu.Lock()
	req, intentID := f.request, f.intent.ID
	f.mu.Unlock()

	result, err := f.recorder.RecordPaidVote(ctx, PaidVoteInput{
		VoterID:         req.VoterID,
		Email:           req.Email,
		CompetitionID:   req.CompetitionID,
		ContestantID:    req.ContestantID,
		VoteCount:       req.VoteCount,
		PaymentIntentID: intentID,
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = FlowFailed
		f.recordingFailed = true
		f.lastErr = err
		f.logger.ErrorContext(ctx, "paid vote recording failed after successful payment",
			slog.String("payment_intent_id", intentID), slog.Any("error", err))
		return &PaidVoteOutcome{State: FlowFailed, PaymentIntentID: intentID, Message: voteErrorMessage(err)}, err
	}
	f.state = FlowSucceeded
	f.recordingFailed = false
	f.lastErr = nil
	return &PaidVoteOutcome{State: FlowSucceeded, PaymentIntentID: intentID, Result: result, Message: result.Warning}, nil
}

// reset must be called with f.mu held.
func (f *PaidVoteFlow) reset() {
	f.state = FlowIdle
	f.request = PaidVoteRequest{}
	f.intent = nil
	f.recordingFailed = false
	f.lastErr = nil
}

func providerMessage(err error) string {
	var perr *payments.ProviderError
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	return "The payment could not be started. Please try again."
}

func voteErrorMessage(err error) string {
	var verr *VoteError
	if errors.As(err, &verr) && verr.Message != "" {
		return verr.Message
	}
	return err.Error()
}
