package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/competition-system/models"
)

var (
	ErrContestantNotFound           = errors.New("contestant not found")
	ErrContestantInvalidCompetition = errors.New("invalid competition reference")
	ErrContestantInvalidUser        = errors.New("invalid user reference")
)

// ContestantRepository stores contestants and their running vote totals. IncrementVotes is the
// concurrency-safe counter path; SetVotes exists only for the degraded read-add-write path.
type ContestantRepository interface {
	Create(ctx context.Context, contestant *models.Contestant) error
	GetByID(ctx context.Context, id string) (*models.Contestant, error)
	ListByCompetition(ctx context.Context, competitionID string) ([]models.Contestant, error)
	IncrementVotes(ctx context.Context, id string, delta int) (int, error)
	SetVotes(ctx context.Context, id string, votes int) error
}

type postgresContestantRepository struct {
	db *sql.DB
}

func NewPostgresContestantRepository(db *sql.DB) ContestantRepository {
	return &postgresContestantRepository{db: db}
}

func (r *postgresContestantRepository) Create(ctx context.Context, c *models.Contestant) error {
	query := `
		INSERT INTO contestants (competition_id, user_id, name, bio)
		VALUES ($1, $2, $3, $4)
		RETURNING id, votes, created_at`
	err := r.db.QueryRowContext(ctx, query, c.CompetitionID, c.UserID, c.Name, c.Bio).
		Scan(&c.ID, &c.Votes, &c.CreatedAt)
	return r.handleContestantError(err)
}

func (r *postgresContestantRepository) GetByID(ctx context.Context, id string) (*models.Contestant, error) {
	query := `
		SELECT id, competition_id, user_id, name, bio, votes, created_at
		FROM contestants
		WHERE id = $1`
	c := &models.Contestant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.CompetitionID, &c.UserID, &c.Name, &c.Bio, &c.Votes, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContestantNotFound
		}
		if pqErr, ok := asPQError(err); ok && pqErr.Code == "22P02" {
			return nil, ErrContestantNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresContestantRepository) ListByCompetition(ctx context.Context, competitionID string) ([]models.Contestant, error) {
	query := `
		SELECT id, competition_id, user_id, name, bio, votes, created_at
		FROM contestants
		WHERE competition_id = $1
		ORDER BY votes DESC, name ASC`
	rows, err := r.db.QueryContext(ctx, query, competitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contestants := make([]models.Contestant, 0)
	for rows.Next() {
		var c models.Contestant
		if err := rows.Scan(&c.ID, &c.CompetitionID, &c.UserID, &c.Name, &c.Bio, &c.Votes, &c.CreatedAt); err != nil {
			return nil, err
		}
		contestants = append(contestants, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return contestants, nil
}

func (r *postgresContestantRepository) IncrementVotes(ctx context.Context, id string, delta int) (int, error) {
	var votes sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT increment_contestant_votes($1, $2)`, id, delta).Scan(&votes)
	if err = mapIncrementError(err, ErrContestantNotFound); err != nil {
		return 0, err
	}
	if !votes.Valid {
		return 0, ErrContestantNotFound
	}
	return int(votes.Int64), nil
}

func (r *postgresContestantRepository) SetVotes(ctx context.Context, id string, votes int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE contestants SET votes = $1 WHERE id = $2`, votes, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrContestantNotFound)
}

func (r *postgresContestantRepository) handleContestantError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok && pqErr.Code == pqForeignKeyViolation {
		switch pqErr.Constraint {
		case "contestants_user_id_fkey":
			return ErrContestantInvalidUser
		default:
			return ErrContestantInvalidCompetition
		}
	}
	return err
}
