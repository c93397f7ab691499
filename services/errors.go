package services

import (
	"errors"
	"fmt"
)

// Errors shared by the services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// validation and business rules
	ErrValidationFailed                   = errors.New("validation failed")
	ErrPasswordTooShort                   = errors.New("password is too short")
	ErrInvalidCredentials                 = errors.New("invalid email or password")
	ErrCompetitionInvalidStatus           = errors.New("invalid competition status provided")
	ErrCompetitionInvalidStatusTransition = errors.New("invalid competition status transition")
	ErrCompetitionInvalidVotingWindow     = errors.New("voting end must be after voting start")
	ErrCompetitionClosedForContestants    = errors.New("competition no longer accepts contestants")
	ErrCompetitionFull                    = errors.New("competition has reached its maximum number of contestants")
	ErrSaveInProgress                     = errors.New("a save is already in progress")
	ErrNothingPending                     = errors.New("no change is waiting for confirmation")

	// conflicts
	ErrUserEmailConflict       = errors.New("email address is already in use")
	ErrCompetitionSlugConflict = errors.New("competition slug is already in use")
	ErrCompetitionInUse        = errors.New("competition still has contestants or votes")
	ErrCompetitionNotDraft     = errors.New("only draft competitions can be deleted")

	// authentication and authorization
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	ErrUserNotFound        = errors.New("user not found")
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrContestantNotFound  = errors.New("contestant not found")

	// optional collaborators
	ErrStorageNotConfigured = errors.New("object storage is not configured")
	ErrInvalidLedgerExport  = errors.New("invalid ledger export name")
)

// VoteErrorKind classifies a failed vote or payment operation.
type VoteErrorKind int

const (
	VoteErrUnknown VoteErrorKind = iota
	VoteErrNotConfigured
	VoteErrInvalidInput
	VoteErrVotingClosed
	VoteErrAlreadyVoted
	VoteErrPaymentFailed
	VoteErrPersistence
)

func (k VoteErrorKind) String() string {
	switch k {
	case VoteErrNotConfigured:
		return "not_configured"
	case VoteErrInvalidInput:
		return "invalid_input"
	case VoteErrVotingClosed:
		return "voting_closed"
	case VoteErrAlreadyVoted:
		return "already_voted"
	case VoteErrPaymentFailed:
		return "payment_failed"
	case VoteErrPersistence:
		return "persistence_error"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is against a *VoteError.
var (
	ErrVoteNotConfigured = &VoteError{Kind: VoteErrNotConfigured}
	ErrVoteInvalidInput  = &VoteError{Kind: VoteErrInvalidInput}
	ErrVotingClosed      = &VoteError{Kind: VoteErrVotingClosed}
	ErrAlreadyVoted      = &VoteError{Kind: VoteErrAlreadyVoted}
	ErrPaymentFailed     = &VoteError{Kind: VoteErrPaymentFailed}
	ErrVotePersistence   = &VoteError{Kind: VoteErrPersistence}
	ErrVoteUnknown       = &VoteError{Kind: VoteErrUnknown}
)

const alreadyVotedMessage = "You have already used your free vote for this competition today. Come back after the daily reset."

// VoteError is the failure side of a vote or payment operation. Message is safe to show to the
// voter; Err keeps the underlying cause for logs.
type VoteError struct {
	Kind    VoteErrorKind
	Message string
	Err     error
}

func (e *VoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *VoteError) Unwrap() error { return e.Err }

// Is matches any *VoteError of the same kind.
func (e *VoteError) Is(target error) bool {
	t, ok := target.(*VoteError)
	return ok && t.Kind == e.Kind
}

func newVoteError(kind VoteErrorKind, message string, cause error) *VoteError {
	return &VoteError{Kind: kind, Message: message, Err: cause}
}

// VoteResult is the success side of a vote operation. A non-empty Warning means the vote is
// durable but the counters may not reflect it yet.
type VoteResult struct {
	VotesAdded int    `json:"votes_added"`
	Warning    string `json:"warning,omitempty"`
	Duplicate  bool   `json:"duplicate,omitempty"`
}
