package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/competition-system/editability"
	"github.com/Dosada05/competition-system/models"
	"github.com/lib/pq"
)

var (
	ErrCompetitionNotFound     = errors.New("competition not found")
	ErrCompetitionSlugConflict = errors.New("competition slug already in use")
	ErrCompetitionInvalidHost  = errors.New("invalid host reference")
	ErrCompetitionInUse        = errors.New("competition is in use (contestants/votes exist)")
	ErrEmptySettingsUpdate     = errors.New("settings update has no fields")
)

type ListCompetitionsFilter struct {
	Status *models.CompetitionStatus
	HostID *string
	Limit  int
	Offset int
}

// SettingsUpdate is one partial update of a competition. Values are keyed by settings field
// name and hold the output of models.DecodeSettingValue; nil writes NULL.
type SettingsUpdate struct {
	Values    map[string]any
	UpdatedAt time.Time
}

type CompetitionRepository interface {
	Create(ctx context.Context, competition *models.Competition) error
	GetByID(ctx context.Context, id string) (*models.Competition, error)
	List(ctx context.Context, filter ListCompetitionsFilter) ([]models.Competition, error)
	UpdateStatus(ctx context.Context, id string, status models.CompetitionStatus) error
	// UpdateSettings writes every value in one statement.
	UpdateSettings(ctx context.Context, id string, update SettingsUpdate) error
	Delete(ctx context.Context, id string) error
	GetCompetitionsForAutoStageAdvance(ctx context.Context, now time.Time) ([]*models.Competition, error)
}

type postgresCompetitionRepository struct {
	db *sql.DB
}

func NewPostgresCompetitionRepository(db *sql.DB) CompetitionRepository {
	return &postgresCompetitionRepository{db: db}
}

const competitionColumns = `
	id, host_id, status, name, slug, city, season, category, demographic,
	price_per_vote, minimum_prize, number_of_winners, min_contestants, max_contestants, eligibility_radius,
	about_tagline, description, traits, age_range, requirements, theme_primary, theme_secondary,
	nomination_start, nomination_end, voting_start, voting_end, finale_date, double_vote_dates,
	events, sponsors, rules, announcements, winners, created_at, updated_at`

// normalizedStatusSQL folds a stored status the way editability.NormalizeStatus does.
const normalizedStatusSQL = `replace(lower(trim(status)), '-', '_')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompetition(row rowScanner) (*models.Competition, error) {
	var (
		c                                               models.Competition
		traits, doubleVoteDates                         pq.StringArray
		events, sponsors, rules, announcements, winners []byte
	)
	err := row.Scan(
		&c.ID, &c.HostID, &c.Status, &c.Name, &c.Slug, &c.City, &c.Season, &c.Category, &c.Demographic,
		&c.PricePerVote, &c.MinimumPrize, &c.NumberOfWinners, &c.MinContestants, &c.MaxContestants, &c.EligibilityRadius,
		&c.AboutTagline, &c.Description, &traits, &c.AgeRange, &c.Requirements, &c.ThemePrimary, &c.ThemeSecondary,
		&c.NominationStart, &c.NominationEnd, &c.VotingStart, &c.VotingEnd, &c.FinaleDate, &doubleVoteDates,
		&events, &sponsors, &rules, &announcements, &winners, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Traits = []string(traits)
	c.DoubleVoteDates = []string(doubleVoteDates)
	c.Events = rawJSON(events)
	c.Sponsors = rawJSON(sponsors)
	c.Rules = rawJSON(rules)
	c.Announcements = rawJSON(announcements)
	c.Winners = rawJSON(winners)
	return &c, nil
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

func jsonbArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func (r *postgresCompetitionRepository) Create(ctx context.Context, c *models.Competition) error {
	if c.Status == "" {
		c.Status = models.CompetitionDraft
	}
	query := `
		INSERT INTO competitions (
			host_id, status, name, slug, city, season, category, demographic,
			price_per_vote, minimum_prize, number_of_winners, min_contestants, max_contestants, eligibility_radius,
			about_tagline, description, traits, age_range, requirements, theme_primary, theme_secondary,
			nomination_start, nomination_end, voting_start, voting_end, finale_date, double_vote_dates,
			events, sponsors, rules, announcements, winners
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21,
			$22, $23, $24, $25, $26, $27,
			$28, $29, $30, $31, $32
		)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		c.HostID, c.Status, c.Name, c.Slug, c.City, c.Season, c.Category, c.Demographic,
		c.PricePerVote, c.MinimumPrize, c.NumberOfWinners, c.MinContestants, c.MaxContestants, c.EligibilityRadius,
		c.AboutTagline, c.Description, pq.Array(c.Traits), c.AgeRange, c.Requirements, c.ThemePrimary, c.ThemeSecondary,
		c.NominationStart, c.NominationEnd, c.VotingStart, c.VotingEnd, c.FinaleDate, pq.Array(c.DoubleVoteDates),
		jsonbArg(c.Events), jsonbArg(c.Sponsors), jsonbArg(c.Rules), jsonbArg(c.Announcements), jsonbArg(c.Winners),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	return r.handleCompetitionError(err)
}

func (r *postgresCompetitionRepository) GetByID(ctx context.Context, id string) (*models.Competition, error) {
	query := `SELECT ` + competitionColumns + ` FROM competitions WHERE id = $1`

	c, err := scanCompetition(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCompetitionNotFound
		}
		if pqErr, ok := asPQError(err); ok && pqErr.Code == "22P02" {
			// malformed uuid
			return nil, ErrCompetitionNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresCompetitionRepository) List(ctx context.Context, filter ListCompetitionsFilter) ([]models.Competition, error) {
	query := `SELECT ` + competitionColumns + ` FROM competitions WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.HostID != nil {
		query += fmt.Sprintf(" AND host_id = $%d", argID)
		args = append(args, *filter.HostID)
		argID++
	}

	query += " ORDER BY voting_start DESC NULLS LAST, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	competitions := make([]models.Competition, 0)
	for rows.Next() {
		c, scanErr := scanCompetition(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		competitions = append(competitions, *c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return competitions, nil
}

func (r *postgresCompetitionRepository) UpdateStatus(ctx context.Context, id string, status models.CompetitionStatus) error {
	query := `UPDATE competitions SET status = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleCompetitionError(err)
	}
	return checkAffectedRows(result, ErrCompetitionNotFound)
}

func (r *postgresCompetitionRepository) UpdateSettings(ctx context.Context, id string, update SettingsUpdate) error {
	if len(update.Values) == 0 {
		return ErrEmptySettingsUpdate
	}

	query, args, err := buildSettingsUpdate(id, update)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return r.handleCompetitionError(err)
	}
	return checkAffectedRows(result, ErrCompetitionNotFound)
}

// buildSettingsUpdate renders the UPDATE statement. Column names come from the settings
// catalog only, never from the caller; fields are emitted in catalog order.
func buildSettingsUpdate(id string, update SettingsUpdate) (string, []any, error) {
	for name := range update.Values {
		if _, ok := models.LookupSettingsField(name); !ok {
			return "", nil, fmt.Errorf("%w: %s", models.ErrUnknownSettingsField, name)
		}
	}

	sets := make([]string, 0, len(update.Values)+1)
	args := make([]any, 0, len(update.Values)+2)
	for _, name := range models.SettingsFieldNames() {
		value, ok := update.Values[name]
		if !ok {
			continue
		}
		field, _ := models.LookupSettingsField(name)
		args = append(args, settingsArg(field, value))
		sets = append(sets, fmt.Sprintf("%s = $%d", field.Column, len(args)))
	}

	updatedAt := update.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	args = append(args, updatedAt)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	args = append(args, id)
	query := fmt.Sprintf("UPDATE competitions SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	return query, args, nil
}

func settingsArg(field models.SettingsField, value any) any {
	if value == nil {
		return nil
	}
	switch field.Kind {
	case models.KindTextList, models.KindDateList:
		list, _ := value.([]string)
		return pq.Array(list)
	case models.KindJSON:
		raw, _ := value.(json.RawMessage)
		return jsonbArg(raw)
	default:
		return value
	}
}

func (r *postgresCompetitionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM competitions WHERE id = $1`, id)
	if err != nil {
		return r.handleCompetitionError(err)
	}
	return checkAffectedRows(result, ErrCompetitionNotFound)
}

// GetCompetitionsForAutoStageAdvance returns published competitions whose voting has started and
// live competitions whose voting has ended. Legacy status spellings count as their stage.
func (r *postgresCompetitionRepository) GetCompetitionsForAutoStageAdvance(ctx context.Context, now time.Time) ([]*models.Competition, error) {
	query := `SELECT ` + competitionColumns + `
		FROM competitions
		WHERE (` + normalizedStatusSQL + ` = ANY($1) AND voting_start IS NOT NULL AND voting_start <= $3)
		   OR (` + normalizedStatusSQL + ` = ANY($2) AND voting_end IS NOT NULL AND voting_end <= $3)`

	rows, err := r.db.QueryContext(ctx, query,
		pq.Array(editability.StatusesFor(editability.StagePublish)),
		pq.Array(editability.StatusesFor(editability.StageLive)),
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query competitions for stage advance: %w", err)
	}
	defer rows.Close()

	var competitions []*models.Competition
	for rows.Next() {
		c, scanErr := scanCompetition(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan competition for stage advance: %w", scanErr)
		}
		competitions = append(competitions, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during competition rows iteration: %w", err)
	}
	return competitions, nil
}

func (r *postgresCompetitionRepository) handleCompetitionError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok {
		switch pqErr.Code {
		case pqUniqueViolation:
			if pqErr.Constraint == "competitions_slug_key" {
				return ErrCompetitionSlugConflict
			}
		case pqForeignKeyViolation:
			if pqErr.Constraint == "competitions_host_id_fkey" {
				return ErrCompetitionInvalidHost
			}
			return ErrCompetitionInUse
		}
	}
	return err
}
