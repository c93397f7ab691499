package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/competition-system/editability"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// handleRepositoryError maps repository sentinels to service errors.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrCompetitionNotFound):
		return ErrCompetitionNotFound
	case errors.Is(err, repositories.ErrContestantNotFound):
		return ErrContestantNotFound
	case errors.Is(err, repositories.ErrProfileNotFound):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrCompetitionSlugConflict):
		return ErrCompetitionSlugConflict
	case errors.Is(err, repositories.ErrProfileEmailConflict):
		return ErrUserEmailConflict
	case errors.Is(err, repositories.ErrCompetitionInUse):
		return ErrCompetitionInUse
	case errors.Is(err, repositories.ErrCompetitionInvalidHost),
		errors.Is(err, repositories.ErrContestantInvalidUser):
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	case errors.Is(err, models.ErrUnknownSettingsField):
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	default:
		return err
	}
}

func isValidStageTransition(current, next editability.Stage) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[editability.Stage][]editability.Stage{
		editability.StageDraft:     {editability.StagePublish, editability.StageLive, editability.StageCompleted},
		editability.StagePublish:   {editability.StageLive, editability.StageCompleted},
		editability.StageLive:      {editability.StageCompleted},
		editability.StageCompleted: {},
	}
	for _, allowedNext := range allowedTransitions[current] {
		if next == allowedNext {
			return true
		}
	}
	return false
}

func validateVotingWindow(start, end *time.Time) error {
	if start != nil && end != nil && !start.Before(*end) {
		return fmt.Errorf("%w: voting start (%s) must be before voting end (%s)",
			ErrCompetitionInvalidVotingWindow, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

// VotingActive reports whether c accepts votes at now: the stage is live and now is inside
// the voting window.
func VotingActive(c *models.Competition, now time.Time) bool {
	if c == nil {
		return false
	}
	return editability.NormalizeStatus(string(c.Status)) == editability.StageLive && c.VotingWindowOpen(now)
}
