package repositories

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/competition-system/editability"
	"github.com/Dosada05/competition-system/models"
	"github.com/google/uuid"
)

// MemoryStore keeps every table in process memory behind one mutex. It applies the same
// uniqueness rules as the postgres schema and is used for local development and tests.
type MemoryStore struct {
	mu           sync.Mutex
	competitions map[string]*models.Competition
	contestants  map[string]*models.Contestant
	profiles     map[string]*models.Profile
	votes        []models.Vote

	atomicUnavailable bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		competitions: make(map[string]*models.Competition),
		contestants:  make(map[string]*models.Contestant),
		profiles:     make(map[string]*models.Profile),
	}
}

// SetAtomicIncrementAvailable simulates a database without the counter functions.
func (s *MemoryStore) SetAtomicIncrementAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.atomicUnavailable = !available
}

func (s *MemoryStore) Competitions() CompetitionRepository { return &memoryCompetitionRepository{s} }
func (s *MemoryStore) Contestants() ContestantRepository   { return &memoryContestantRepository{s} }
func (s *MemoryStore) Profiles() ProfileRepository         { return &memoryProfileRepository{s} }
func (s *MemoryStore) Votes() VoteRepository               { return &memoryVoteRepository{s} }

func copyCompetition(c *models.Competition) *models.Competition {
	out := *c
	out.Traits = append([]string(nil), c.Traits...)
	out.DoubleVoteDates = append([]string(nil), c.DoubleVoteDates...)
	out.Events = append(json.RawMessage(nil), c.Events...)
	out.Sponsors = append(json.RawMessage(nil), c.Sponsors...)
	out.Rules = append(json.RawMessage(nil), c.Rules...)
	out.Announcements = append(json.RawMessage(nil), c.Announcements...)
	out.Winners = append(json.RawMessage(nil), c.Winners...)
	out.Contestants = nil
	return &out
}

type memoryCompetitionRepository struct{ s *MemoryStore }

func (r *memoryCompetitionRepository) Create(_ context.Context, c *models.Competition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.competitions {
		if existing.Slug == c.Slug {
			return ErrCompetitionSlugConflict
		}
	}
	if c.HostID != nil {
		if _, ok := r.s.profiles[*c.HostID]; !ok {
			return ErrCompetitionInvalidHost
		}
	}
	if c.Status == "" {
		c.Status = models.CompetitionDraft
	}
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.competitions[c.ID] = copyCompetition(c)
	return nil
}

func (r *memoryCompetitionRepository) GetByID(_ context.Context, id string) (*models.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.competitions[id]
	if !ok {
		return nil, ErrCompetitionNotFound
	}
	return copyCompetition(c), nil
}

func (r *memoryCompetitionRepository) List(_ context.Context, filter ListCompetitionsFilter) ([]models.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.Competition, 0, len(r.s.competitions))
	for _, c := range r.s.competitions {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.HostID != nil && (c.HostID == nil || *c.HostID != *filter.HostID) {
			continue
		}
		out = append(out, *copyCompetition(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []models.Competition{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memoryCompetitionRepository) UpdateStatus(_ context.Context, id string, status models.CompetitionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.competitions[id]
	if !ok {
		return ErrCompetitionNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryCompetitionRepository) UpdateSettings(_ context.Context, id string, update SettingsUpdate) error {
	if len(update.Values) == 0 {
		return ErrEmptySettingsUpdate
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.competitions[id]
	if !ok {
		return ErrCompetitionNotFound
	}
	// apply to a copy so a bad value leaves the row untouched
	next := copyCompetition(c)
	for name, value := range update.Values {
		if err := next.ApplySetting(name, value); err != nil {
			return err
		}
	}
	if next.Slug != c.Slug {
		for otherID, other := range r.s.competitions {
			if otherID != id && other.Slug == next.Slug {
				return ErrCompetitionSlugConflict
			}
		}
	}
	next.UpdatedAt = update.UpdatedAt
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now().UTC()
	}
	r.s.competitions[id] = next
	return nil
}

func (r *memoryCompetitionRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.competitions[id]; !ok {
		return ErrCompetitionNotFound
	}
	for _, c := range r.s.contestants {
		if c.CompetitionID == id {
			return ErrCompetitionInUse
		}
	}
	delete(r.s.competitions, id)
	return nil
}

func (r *memoryCompetitionRepository) GetCompetitionsForAutoStageAdvance(_ context.Context, now time.Time) ([]*models.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Competition
	for _, c := range r.s.competitions {
		stage := editability.NormalizeStatus(string(c.Status))
		switch {
		case stage == editability.StagePublish && c.VotingStart != nil && !c.VotingStart.After(now):
			out = append(out, copyCompetition(c))
		case stage == editability.StageLive && c.VotingEnd != nil && !c.VotingEnd.After(now):
			out = append(out, copyCompetition(c))
		}
	}
	return out, nil
}

type memoryContestantRepository struct{ s *MemoryStore }

func (r *memoryContestantRepository) Create(_ context.Context, c *models.Contestant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.competitions[c.CompetitionID]; !ok {
		return ErrContestantInvalidCompetition
	}
	if c.UserID != nil {
		if _, ok := r.s.profiles[*c.UserID]; !ok {
			return ErrContestantInvalidUser
		}
	}
	c.ID = uuid.NewString()
	c.Votes = 0
	c.CreatedAt = time.Now().UTC()
	stored := *c
	r.s.contestants[c.ID] = &stored
	return nil
}

func (r *memoryContestantRepository) GetByID(_ context.Context, id string) (*models.Contestant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contestants[id]
	if !ok {
		return nil, ErrContestantNotFound
	}
	out := *c
	return &out, nil
}

func (r *memoryContestantRepository) ListByCompetition(_ context.Context, competitionID string) ([]models.Contestant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Contestant, 0)
	for _, c := range r.s.contestants {
		if c.CompetitionID == competitionID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Votes != out[j].Votes {
			return out[i].Votes > out[j].Votes
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *memoryContestantRepository) IncrementVotes(_ context.Context, id string, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.atomicUnavailable {
		return 0, ErrAtomicIncrementUnavailable
	}
	c, ok := r.s.contestants[id]
	if !ok {
		return 0, ErrContestantNotFound
	}
	c.Votes += delta
	return c.Votes, nil
}

func (r *memoryContestantRepository) SetVotes(_ context.Context, id string, votes int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contestants[id]
	if !ok {
		return ErrContestantNotFound
	}
	c.Votes = votes
	return nil
}

type memoryProfileRepository struct{ s *MemoryStore }

func (r *memoryProfileRepository) Create(_ context.Context, p *models.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := strings.ToLower(p.Email)
	for _, existing := range r.s.profiles {
		if existing.Email == email {
			return ErrProfileEmailConflict
		}
	}
	p.ID = uuid.NewString()
	p.Email = email
	p.TotalVotesReceived = 0
	p.CreatedAt = time.Now().UTC()
	stored := *p
	r.s.profiles[p.ID] = &stored
	return nil
}

func (r *memoryProfileRepository) GetByID(_ context.Context, id string) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	out := *p
	return &out, nil
}

func (r *memoryProfileRepository) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = strings.ToLower(email)
	for _, p := range r.s.profiles {
		if p.Email == email {
			out := *p
			return &out, nil
		}
	}
	return nil, ErrProfileNotFound
}

func (r *memoryProfileRepository) IncrementTotalVotes(_ context.Context, id string, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.atomicUnavailable {
		return 0, ErrAtomicIncrementUnavailable
	}
	p, ok := r.s.profiles[id]
	if !ok {
		return 0, ErrProfileNotFound
	}
	p.TotalVotesReceived += delta
	return p.TotalVotesReceived, nil
}

func (r *memoryProfileRepository) SetTotalVotes(_ context.Context, id string, total int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return ErrProfileNotFound
	}
	p.TotalVotesReceived = total
	return nil
}

type memoryVoteRepository struct{ s *MemoryStore }

func (r *memoryVoteRepository) Create(_ context.Context, v *models.Vote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.competitions[v.CompetitionID]; !ok {
		return ErrVoteInvalidReference
	}
	if _, ok := r.s.contestants[v.ContestantID]; !ok {
		return ErrVoteInvalidReference
	}
	for _, existing := range r.s.votes {
		if v.PaymentIntentID != nil && existing.PaymentIntentID != nil && *existing.PaymentIntentID == *v.PaymentIntentID {
			return ErrDuplicatePaymentIntent
		}
		if v.IsFree() && existing.IsFree() &&
			existing.VoterID == v.VoterID && existing.CompetitionID == v.CompetitionID && existing.VoteDay == v.VoteDay {
			return ErrDuplicateFreeVote
		}
	}

	v.ID = uuid.NewString()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	r.s.votes = append(r.s.votes, *v)
	return nil
}

func (r *memoryVoteRepository) FindFreeVote(_ context.Context, voterID, competitionID string, from, to time.Time) (*models.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.votes) - 1; i >= 0; i-- {
		v := r.s.votes[i]
		if v.VoterID != voterID || v.CompetitionID != competitionID || !v.IsFree() {
			continue
		}
		if !v.CreatedAt.Before(from) && v.CreatedAt.Before(to) {
			return &v, nil
		}
	}
	return nil, ErrVoteNotFound
}

func (r *memoryVoteRepository) GetByPaymentIntent(_ context.Context, paymentIntentID string) (*models.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.votes {
		if v.PaymentIntentID != nil && *v.PaymentIntentID == paymentIntentID {
			out := v
			return &out, nil
		}
	}
	return nil, ErrVoteNotFound
}

func (r *memoryVoteRepository) ListByCompetition(_ context.Context, competitionID string) ([]models.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Vote, 0)
	for _, v := range r.s.votes {
		if v.CompetitionID == competitionID {
			out = append(out, v)
		}
	}
	return out, nil
}
