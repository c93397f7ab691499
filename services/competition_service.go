package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/competition-system/editability"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
	"golang.org/x/sync/errgroup"
)

type CreateCompetitionInput struct {
	HostID            *string    `json:"host_id"`
	Name              string     `json:"name"`
	Slug              string     `json:"slug"`
	City              *string    `json:"city"`
	Season            *string    `json:"season"`
	Category          *string    `json:"category"`
	Demographic       *string    `json:"demographic"`
	PricePerVote      *float64   `json:"price_per_vote"`
	MinimumPrize      *float64   `json:"minimum_prize"`
	NumberOfWinners   *int       `json:"number_of_winners"`
	MinContestants    *int       `json:"min_contestants"`
	MaxContestants    *int       `json:"max_contestants"`
	EligibilityRadius *int       `json:"eligibility_radius"`
	VotingStart       *time.Time `json:"voting_start"`
	VotingEnd         *time.Time `json:"voting_end"`
}

type AddContestantInput struct {
	Name   string  `json:"name"`
	Bio    *string `json:"bio"`
	UserID *string `json:"user_id"`
}

// SettingsRequest is one round trip of the settings form.
type SettingsRequest struct {
	Changes         []FieldChange `json:"changes"`
	ConfirmedFields []string      `json:"confirmed_fields"`
}

// VotingStatus is what a voter's client needs to decide which vote controls to show.
type VotingStatus struct {
	Active        bool   `json:"active"`
	DoubleVoteDay bool   `json:"double_vote_day"`
	VoteDay       string `json:"vote_day"`
}

type CompetitionService struct {
	competitions repositories.CompetitionRepository
	contestants  repositories.ContestantRepository
	policy       *editability.Policy
	clock        *VoteClock
	logger       *slog.Logger
}

func NewCompetitionService(
	competitions repositories.CompetitionRepository,
	contestants repositories.ContestantRepository,
	policy *editability.Policy,
	clock *VoteClock,
	logger *slog.Logger,
) *CompetitionService {
	if clock == nil {
		clock = NewVoteClock(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CompetitionService{
		competitions: competitions,
		contestants:  contestants,
		policy:       policy,
		clock:        clock,
		logger:       logger,
	}
}

func (s *CompetitionService) CreateCompetition(ctx context.Context, actor Actor, in CreateCompetitionInput) (*models.Competition, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	if in.Name == "" || in.Slug == "" {
		return nil, fmt.Errorf("%w: name and slug are required", ErrValidationFailed)
	}
	if in.MinContestants != nil && in.MaxContestants != nil && *in.MinContestants > *in.MaxContestants {
		return nil, fmt.Errorf("%w: min_contestants cannot exceed max_contestants", ErrValidationFailed)
	}
	if err := validateVotingWindow(in.VotingStart, in.VotingEnd); err != nil {
		return nil, err
	}

	c := &models.Competition{
		HostID:            in.HostID,
		Status:            models.CompetitionDraft,
		Name:              in.Name,
		Slug:              in.Slug,
		City:              in.City,
		Season:            in.Season,
		Category:          in.Category,
		Demographic:       in.Demographic,
		PricePerVote:      in.PricePerVote,
		MinimumPrize:      in.MinimumPrize,
		NumberOfWinners:   in.NumberOfWinners,
		MinContestants:    in.MinContestants,
		MaxContestants:    in.MaxContestants,
		EligibilityRadius: in.EligibilityRadius,
		VotingStart:       in.VotingStart,
		VotingEnd:         in.VotingEnd,
	}
	if err := s.competitions.Create(ctx, c); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "competition created", slog.String("competition_id", c.ID), slog.String("slug", c.Slug))
	return c, nil
}

func (s *CompetitionService) GetCompetition(ctx context.Context, id string) (*models.Competition, error) {
	c, err := s.competitions.GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return c, nil
}

func (s *CompetitionService) ListCompetitions(ctx context.Context, filter repositories.ListCompetitionsFilter) ([]models.Competition, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	list, err := s.competitions.List(ctx, filter)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return list, nil
}

// GetCompetitionView loads the competition and its contestants concurrently.
func (s *CompetitionService) GetCompetitionView(ctx context.Context, id string) (*models.Competition, error) {
	var (
		competition *models.Competition
		contestants []models.Contestant
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.competitions.GetByID(gCtx, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		competition = c
		return nil
	})
	g.Go(func() error {
		list, err := s.contestants.ListByCompetition(gCtx, id)
		if err != nil {
			s.logger.WarnContext(gCtx, "failed to load contestants for competition view",
				slog.String("competition_id", id), slog.Any("error", err))
			return nil
		}
		contestants = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if contestants == nil {
		contestants = []models.Contestant{}
	}
	competition.Contestants = contestants
	return competition, nil
}

// UpdateStatus moves a competition forward through its stages. Only admins may do this.
func (s *CompetitionService) UpdateStatus(ctx context.Context, actor Actor, id string, rawStatus string) (*models.Competition, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	next, ok := parseStage(rawStatus)
	if !ok {
		return nil, ErrCompetitionInvalidStatus
	}

	c, err := s.competitions.GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	current := editability.NormalizeStatus(string(c.Status))
	if !isValidStageTransition(current, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrCompetitionInvalidStatusTransition, current, next)
	}
	if err := s.competitions.UpdateStatus(ctx, id, models.CompetitionStatus(next)); err != nil {
		return nil, handleRepositoryError(err)
	}
	c.Status = models.CompetitionStatus(next)

	s.logger.InfoContext(ctx, "competition status changed",
		slog.String("competition_id", id), slog.String("from", string(current)), slog.String("to", string(next)))
	return c, nil
}

// DeleteCompetition removes a draft competition. Admins only.
func (s *CompetitionService) DeleteCompetition(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrForbiddenOperation
	}
	c, err := s.competitions.GetByID(ctx, id)
	if err != nil {
		return handleRepositoryError(err)
	}
	if editability.NormalizeStatus(string(c.Status)) != editability.StageDraft {
		return ErrCompetitionNotDraft
	}
	if err := s.competitions.Delete(ctx, id); err != nil {
		return handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "competition deleted", slog.String("competition_id", id), slog.String("slug", c.Slug))
	return nil
}

// parseStage accepts canonical names and known synonyms, and rejects anything else instead of
// defaulting to draft.
func parseStage(raw string) (editability.Stage, bool) {
	stage := editability.NormalizeStatus(raw)
	if stage == editability.StageDraft && strings.ToLower(strings.TrimSpace(raw)) != string(editability.StageDraft) {
		return "", false
	}
	return stage, true
}

// EditableFields describes every settings field for the competition's current stage.
func (s *CompetitionService) EditableFields(ctx context.Context, actor Actor, id string) (editability.Stage, []editability.FieldState, error) {
	c, err := s.authorizeHost(ctx, actor, id)
	if err != nil {
		return "", nil, err
	}
	stage := editability.NormalizeStatus(string(c.Status))
	return stage, s.policy.Describe(stage), nil
}

// UpdateSettings runs one round of the settings editor for the competition.
func (s *CompetitionService) UpdateSettings(ctx context.Context, actor Actor, id string, req SettingsRequest) (*EditOutcome, error) {
	if len(req.Changes) == 0 {
		return nil, fmt.Errorf("%w: no changes submitted", ErrValidationFailed)
	}
	c, err := s.authorizeHost(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	stage := editability.NormalizeStatus(string(c.Status))
	if err := s.validateSettingsWindow(c, stage, req.Changes); err != nil {
		return nil, err
	}

	editor := NewSettingsEditor(s.policy, s.competitions, c.ID, stage, s.logger).
		WithConfirmed(req.ConfirmedFields...)
	outcome, err := editor.Submit(ctx, req.Changes)
	if err != nil {
		if outcome != nil && outcome.State == EditorFailed {
			return outcome, handleRepositoryError(err)
		}
		return nil, err
	}
	return outcome, nil
}

// validateSettingsWindow checks the voting window the change set would leave behind. Changes to
// fields locked at stage are ignored since the editor drops them; undecodable values are left
// for the editor to report.
func (s *CompetitionService) validateSettingsWindow(c *models.Competition, stage editability.Stage, changes []FieldChange) error {
	start, end := c.VotingStart, c.VotingEnd
	for _, ch := range changes {
		if ch.Field != "voting_start" && ch.Field != "voting_end" {
			continue
		}
		if s.policy.Editability(ch.Field, stage) == editability.Locked {
			continue
		}
		value, err := models.DecodeSettingValue(ch.Field, ch.Value)
		if err != nil {
			continue
		}
		var p *time.Time
		if t, ok := value.(time.Time); ok {
			p = &t
		}
		if ch.Field == "voting_start" {
			start = p
		} else {
			end = p
		}
	}
	return validateVotingWindow(start, end)
}

func (s *CompetitionService) authorizeHost(ctx context.Context, actor Actor, id string) (*models.Competition, error) {
	c, err := s.competitions.GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if actor.IsAdmin() {
		return c, nil
	}
	if actor.Role != models.RoleHost || c.HostID == nil || *c.HostID != actor.UserID {
		return nil, ErrForbiddenOperation
	}
	return c, nil
}

func (s *CompetitionService) AddContestant(ctx context.Context, actor Actor, competitionID string, in AddContestantInput) (*models.Contestant, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: contestant name is required", ErrValidationFailed)
	}
	c, err := s.authorizeHost(ctx, actor, competitionID)
	if err != nil {
		return nil, err
	}
	if editability.NormalizeStatus(string(c.Status)) == editability.StageCompleted {
		return nil, ErrCompetitionClosedForContestants
	}
	if c.MaxContestants != nil {
		existing, err := s.contestants.ListByCompetition(ctx, competitionID)
		if err != nil {
			return nil, handleRepositoryError(err)
		}
		if len(existing) >= *c.MaxContestants {
			return nil, ErrCompetitionFull
		}
	}

	contestant := &models.Contestant{
		CompetitionID: competitionID,
		UserID:        in.UserID,
		Name:          in.Name,
		Bio:           in.Bio,
	}
	if err := s.contestants.Create(ctx, contestant); err != nil {
		return nil, handleRepositoryError(err)
	}
	return contestant, nil
}

func (s *CompetitionService) ListContestants(ctx context.Context, competitionID string) ([]models.Contestant, error) {
	if _, err := s.competitions.GetByID(ctx, competitionID); err != nil {
		return nil, handleRepositoryError(err)
	}
	list, err := s.contestants.ListByCompetition(ctx, competitionID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return list, nil
}

// GetContestant returns the contestant only when it belongs to competitionID.
func (s *CompetitionService) GetContestant(ctx context.Context, competitionID, contestantID string) (*models.Contestant, error) {
	contestant, err := s.contestants.GetByID(ctx, contestantID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if contestant.CompetitionID != competitionID {
		return nil, ErrContestantNotFound
	}
	return contestant, nil
}

// VotingStatus tells whether the competition accepts votes right now and whether today is a
// double-vote day.
func (s *CompetitionService) VotingStatus(ctx context.Context, competitionID string) (*models.Competition, VotingStatus, error) {
	c, err := s.competitions.GetByID(ctx, competitionID)
	if err != nil {
		return nil, VotingStatus{}, handleRepositoryError(err)
	}
	now := s.clock.Now()
	day := s.clock.VoteDay(now)
	return c, VotingStatus{
		Active:        VotingActive(c, now),
		DoubleVoteDay: c.IsDoubleVoteDay(day),
		VoteDay:       day,
	}, nil
}

// AutoAdvanceStages opens voting for published competitions whose voting start has passed and
// completes live competitions whose voting end has passed.
func (s *CompetitionService) AutoAdvanceStages(ctx context.Context) error {
	now := s.clock.Now()
	candidates, err := s.competitions.GetCompetitionsForAutoStageAdvance(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to load competitions for stage advance: %w", err)
	}

	var errs []error
	for _, c := range candidates {
		current := editability.NormalizeStatus(string(c.Status))
		var next editability.Stage
		switch {
		case current == editability.StagePublish && c.VotingStart != nil && !c.VotingStart.After(now):
			next = editability.StageLive
			if c.VotingEnd != nil && !c.VotingEnd.After(now) {
				next = editability.StageCompleted
			}
		case current == editability.StageLive && c.VotingEnd != nil && !c.VotingEnd.After(now):
			next = editability.StageCompleted
		default:
			continue
		}

		if err := s.competitions.UpdateStatus(ctx, c.ID, models.CompetitionStatus(next)); err != nil {
			s.logger.ErrorContext(ctx, "auto stage advance failed",
				slog.String("competition_id", c.ID), slog.String("to", string(next)), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		s.logger.InfoContext(ctx, "competition stage advanced automatically",
			slog.String("competition_id", c.ID), slog.String("from", string(current)), slog.String("to", string(next)))
	}
	return errors.Join(errs...)
}

