package payments

import (
	"context"
	"errors"
	"fmt"
)

// Status is a payment intent status as reported by the provider.
type Status string

const (
	StatusSucceeded             Status = "succeeded"
	StatusProcessing            Status = "processing"
	StatusRequiresAction        Status = "requires_action"
	StatusRequiresConfirmation  Status = "requires_confirmation"
	StatusRequiresPaymentMethod Status = "requires_payment_method"
	StatusCanceled              Status = "canceled"
	StatusFailed                Status = "failed"
)

// Metadata keys attached to every vote payment intent.
const (
	MetaCompetitionID = "competition_id"
	MetaContestantID  = "contestant_id"
	MetaVoterID       = "voter_id"
	MetaVoteCount     = "vote_count"
)

// CentsPerVote prices one paid vote at one currency unit.
const CentsPerVote = 100

var ErrIntentNotFound = errors.New("payment intent not found")

type IntentParams struct {
	AmountCents  int64
	Currency     string
	Description  string
	ReceiptEmail string
	Metadata     map[string]string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       Status
	AmountCents  int64
	Currency     string
	Metadata     map[string]string
	// Message is the provider's last error text, if any.
	Message string
}

// Provider creates and reads payment intents. Implementations are built once at start and
// shared by every request.
type Provider interface {
	CreateIntent(ctx context.Context, params IntentParams) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}

// ProviderError carries the provider's user-facing message.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment provider: %s: %v", e.Message, e.Err)
	}
	return "payment provider: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// VoteAmountCents is the charge for the given number of paid votes.
func VoteAmountCents(votes int) int64 {
	return int64(votes) * CentsPerVote
}
