package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Dosada05/competition-system/models"
)

var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrProfileEmailConflict = errors.New("email already registered")
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	IncrementTotalVotes(ctx context.Context, id string, delta int) (int, error)
	SetTotalVotes(ctx context.Context, id string, total int) error
}

type postgresProfileRepository struct {
	db *sql.DB
}

func NewPostgresProfileRepository(db *sql.DB) ProfileRepository {
	return &postgresProfileRepository{db: db}
}

func (r *postgresProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, total_votes_received, created_at`
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(p.Email), p.PasswordHash, p.DisplayName, p.Role).
		Scan(&p.ID, &p.TotalVotesReceived, &p.CreatedAt)
	if err != nil {
		if pqErr, ok := asPQError(err); ok && pqErr.Code == pqUniqueViolation {
			return ErrProfileEmailConflict
		}
		return err
	}
	return nil
}

func (r *postgresProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *postgresProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return r.getOne(ctx, `WHERE email = $1`, strings.ToLower(email))
}

func (r *postgresProfileRepository) getOne(ctx context.Context, where string, arg any) (*models.Profile, error) {
	query := `
		SELECT id, email, password_hash, display_name, role, total_votes_received, created_at
		FROM profiles ` + where
	p := &models.Profile{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.DisplayName, &p.Role, &p.TotalVotesReceived, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		if pqErr, ok := asPQError(err); ok && pqErr.Code == "22P02" {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresProfileRepository) IncrementTotalVotes(ctx context.Context, id string, delta int) (int, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT increment_profile_votes($1, $2)`, id, delta).Scan(&total)
	if err = mapIncrementError(err, ErrProfileNotFound); err != nil {
		return 0, err
	}
	if !total.Valid {
		return 0, ErrProfileNotFound
	}
	return int(total.Int64), nil
}

func (r *postgresProfileRepository) SetTotalVotes(ctx context.Context, id string, total int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE profiles SET total_votes_received = $1 WHERE id = $2`, total, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrProfileNotFound)
}
