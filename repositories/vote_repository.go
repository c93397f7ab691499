package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Dosada05/competition-system/models"
)

var (
	ErrVoteNotFound           = errors.New("vote not found")
	ErrDuplicateFreeVote      = errors.New("free vote already recorded for this day")
	ErrDuplicatePaymentIntent = errors.New("payment intent already recorded")
	ErrVoteInvalidReference   = errors.New("invalid voter, competition or contestant reference")
)

// VoteRepository is the append-only vote ledger. Create enforces one free vote per voter,
// competition and vote day, and one row per payment intent.
type VoteRepository interface {
	Create(ctx context.Context, vote *models.Vote) error
	// FindFreeVote returns the voter's free vote created in [from, to).
	FindFreeVote(ctx context.Context, voterID, competitionID string, from, to time.Time) (*models.Vote, error)
	GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Vote, error)
	ListByCompetition(ctx context.Context, competitionID string) ([]models.Vote, error)
}

type postgresVoteRepository struct {
	db *sql.DB
}

func NewPostgresVoteRepository(db *sql.DB) VoteRepository {
	return &postgresVoteRepository{db: db}
}

const voteColumns = `id, voter_id, voter_email, competition_id, contestant_id, vote_count, amount_paid,
	payment_intent_id, is_double_vote, to_char(vote_day, 'YYYY-MM-DD'), created_at`

func scanVote(row rowScanner) (*models.Vote, error) {
	v := &models.Vote{}
	err := row.Scan(
		&v.ID, &v.VoterID, &v.VoterEmail, &v.CompetitionID, &v.ContestantID, &v.VoteCount, &v.AmountPaid,
		&v.PaymentIntentID, &v.IsDoubleVote, &v.VoteDay, &v.CreatedAt,
	)
	return v, err
}

func (r *postgresVoteRepository) Create(ctx context.Context, v *models.Vote) error {
	query := `
		INSERT INTO votes (
			voter_id, voter_email, competition_id, contestant_id, vote_count, amount_paid,
			payment_intent_id, is_double_vote, vote_day, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
		v.CreatedAt = createdAt
	}
	err := r.db.QueryRowContext(ctx, query,
		v.VoterID, v.VoterEmail, v.CompetitionID, v.ContestantID, v.VoteCount, v.AmountPaid,
		v.PaymentIntentID, v.IsDoubleVote, v.VoteDay, createdAt,
	).Scan(&v.ID)
	return r.handleVoteError(err)
}

func (r *postgresVoteRepository) FindFreeVote(ctx context.Context, voterID, competitionID string, from, to time.Time) (*models.Vote, error) {
	query := `SELECT ` + voteColumns + `
		FROM votes
		WHERE voter_id = $1 AND competition_id = $2 AND amount_paid = 0
		  AND created_at >= $3 AND created_at < $4
		ORDER BY created_at DESC
		LIMIT 1`
	v, err := scanVote(r.db.QueryRowContext(ctx, query, voterID, competitionID, from, to))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVoteNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *postgresVoteRepository) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Vote, error) {
	query := `SELECT ` + voteColumns + ` FROM votes WHERE payment_intent_id = $1`
	v, err := scanVote(r.db.QueryRowContext(ctx, query, paymentIntentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVoteNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *postgresVoteRepository) ListByCompetition(ctx context.Context, competitionID string) ([]models.Vote, error) {
	query := `SELECT ` + voteColumns + ` FROM votes WHERE competition_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, competitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := make([]models.Vote, 0)
	for rows.Next() {
		v, scanErr := scanVote(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		votes = append(votes, *v)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *postgresVoteRepository) handleVoteError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok {
		switch pqErr.Code {
		case pqUniqueViolation:
			switch pqErr.Constraint {
			case "votes_payment_intent_key":
				return ErrDuplicatePaymentIntent
			default:
				return ErrDuplicateFreeVote
			}
		case pqForeignKeyViolation:
			return ErrVoteInvalidReference
		}
	}
	return err
}
