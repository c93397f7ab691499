package services

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/Dosada05/competition-system/editability"
	"github.com/Dosada05/competition-system/models"
)

var admin = Actor{UserID: "admin-1", Role: models.RoleAdmin}

func TestCreateCompetition(t *testing.T) {
	f := newFixture(t)
	svc := f.competitionService()
	ctx := context.Background()

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	tests := []struct {
		name  string
		actor Actor
		input CreateCompetitionInput
		want  error
	}{
		{"host cannot create", Actor{UserID: f.host.ID, Role: models.RoleHost}, CreateCompetitionInput{Name: "A", Slug: "a"}, ErrForbiddenOperation},
		{"missing slug", admin, CreateCompetitionInput{Name: "A"}, ErrValidationFailed},
		{"duplicate slug", admin, CreateCompetitionInput{Name: "A", Slug: "Spring-Stars"}, ErrCompetitionSlugConflict},
		{"voting window reversed", admin, CreateCompetitionInput{Name: "A", Slug: "a", VotingStart: &start, VotingEnd: &end}, ErrCompetitionInvalidVotingWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateCompetition(ctx, tt.actor, tt.input); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}

	c, err := svc.CreateCompetition(ctx, admin, CreateCompetitionInput{Name: " Autumn ", Slug: " Autumn-2026 "})
	if err != nil {
		t.Fatalf("CreateCompetition: %v", err)
	}
	if c.ID == "" || c.Status != models.CompetitionDraft || c.Slug != "autumn-2026" || c.Name != "Autumn" {
		t.Errorf("created = %+v", c)
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	svc := f.competitionService()
	ctx := context.Background()

	c, err := svc.CreateCompetition(ctx, admin, CreateCompetitionInput{Name: "Autumn", Slug: "autumn"})
	if err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		actor  Actor
		status string
		want   error
		stage  models.CompetitionStatus
	}{
		{Actor{UserID: f.host.ID, Role: models.RoleHost}, "publish", ErrForbiddenOperation, models.CompetitionDraft},
		{admin, "bogus", ErrCompetitionInvalidStatus, models.CompetitionDraft},
		{admin, "coming_soon", nil, models.CompetitionPublish},
		{admin, "draft", ErrCompetitionInvalidStatusTransition, models.CompetitionPublish},
		{admin, "Active", nil, models.CompetitionLive},
		{admin, "completed", nil, models.CompetitionCompleted},
		{admin, "live", ErrCompetitionInvalidStatusTransition, models.CompetitionCompleted},
	}
	for _, step := range steps {
		_, err := svc.UpdateStatus(ctx, step.actor, c.ID, step.status)
		if !errors.Is(err, step.want) {
			t.Fatalf("UpdateStatus(%q) error = %v, want %v", step.status, err, step.want)
		}
		got, err := svc.GetCompetition(ctx, c.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != step.stage {
			t.Fatalf("after %q status = %q, want %q", step.status, got.Status, step.stage)
		}
	}

	if _, err := svc.UpdateStatus(ctx, admin, "missing", "live"); !errors.Is(err, ErrCompetitionNotFound) {
		t.Errorf("missing competition error = %v", err)
	}
}

func TestUpdateSettingsThroughService(t *testing.T) {
	f := newFixture(t)
	svc := f.competitionService()
	ctx := context.Background()
	host := Actor{UserID: f.host.ID, Role: models.RoleHost}

	req := SettingsRequest{Changes: []FieldChange{
		change("about_tagline", "Changed"),
		change("theme_primary", "#123456"),
	}}
	outcome, err := svc.UpdateSettings(ctx, host, f.competition.ID, req)
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if outcome.State != EditorPendingWarning || outcome.WarningField != "theme_primary" {
		t.Fatalf("outcome = %+v, want warning for theme_primary", outcome)
	}

	req.ConfirmedFields = []string{outcome.WarningField}
	outcome, err = svc.UpdateSettings(ctx, host, f.competition.ID, req)
	if err != nil {
		t.Fatalf("confirmed UpdateSettings: %v", err)
	}
	if outcome.State != EditorSaved {
		t.Fatalf("state = %v, want saved", outcome.State)
	}

	c, err := svc.GetCompetition(ctx, f.competition.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.ThemePrimary == nil || *c.ThemePrimary != "#123456" {
		t.Errorf("theme_primary = %v", c.ThemePrimary)
	}
	if c.AboutTagline != nil {
		t.Errorf("about_tagline was written while locked: %q", *c.AboutTagline)
	}

	t.Run("other host", func(t *testing.T) {
		stranger := Actor{UserID: f.voter.ID, Role: models.RoleHost}
		if _, err := svc.UpdateSettings(ctx, stranger, f.competition.ID, req); !errors.Is(err, ErrForbiddenOperation) {
			t.Fatalf("error = %v, want forbidden", err)
		}
	})
	t.Run("empty request", func(t *testing.T) {
		if _, err := svc.UpdateSettings(ctx, host, f.competition.ID, SettingsRequest{}); !errors.Is(err, ErrValidationFailed) {
			t.Fatalf("error = %v, want validation failure", err)
		}
	})
}

func TestUpdateSettingsVotingWindow(t *testing.T) {
	f := newFixture(t)
	svc := f.competitionService()
	ctx := context.Background()
	host := Actor{UserID: f.host.ID, Role: models.RoleHost}
	if err := f.store.Competitions().UpdateStatus(ctx, f.competition.ID, models.CompetitionDraft); err != nil {
		t.Fatal(err)
	}
	start := *f.competition.VotingStart

	tests := []struct {
		name    string
		changes []FieldChange
		wantErr error
	}{
		{"end before stored start", []FieldChange{change("voting_end", start.Add(-24*time.Hour).Format(time.RFC3339))}, ErrCompetitionInvalidVotingWindow},
		{"start after stored end", []FieldChange{change("voting_start", f.competition.VotingEnd.Add(time.Hour).Format(time.RFC3339))}, ErrCompetitionInvalidVotingWindow},
		{"both moved in order", []FieldChange{
			change("voting_start", "2026-04-01T00:00:00Z"),
			change("voting_end", "2026-04-10T00:00:00Z"),
		}, nil},
		{"end cleared", []FieldChange{change("voting_end", "")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := svc.GetCompetition(ctx, f.competition.ID)
			if err != nil {
				t.Fatal(err)
			}
			_, err = svc.UpdateSettings(ctx, host, f.competition.ID, SettingsRequest{Changes: tt.changes})
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("UpdateSettings: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			after, err := svc.GetCompetition(ctx, f.competition.ID)
			if err != nil {
				t.Fatal(err)
			}
			if !after.UpdatedAt.Equal(before.UpdatedAt) {
				t.Error("competition was written despite the invalid window")
			}
		})
	}
}

func TestEditableFieldsCoverSettingsCatalog(t *testing.T) {
	f := newFixture(t)
	svc := f.competitionService()

	stage, fields, err := svc.EditableFields(context.Background(), admin, f.competition.ID)
	if err != nil {
		t.Fatalf("EditableFields: %v", err)
	}
	if stage != editability.StageLive {
		t.Errorf("stage = %q, want live", stage)
	}

	var described []string
	for _, fs := range fields {
		described = append(described, fs.Field)
		if fs.Outcome == editability.Locked && fs.Reason == "" {
			t.Errorf("locked field %s has no reason", fs.Field)
		}
	}
	catalog := models.SettingsFieldNames()
	sort.Strings(described)
	sort.Strings(catalog)
	if len(described) != len(catalog) {
		t.Fatalf("policy fields %v do not match settings catalog %v", described, catalog)
	}
	for i := range catalog {
		if described[i] != catalog[i] {
			t.Fatalf("policy fields %v do not match settings catalog %v", described, catalog)
		}
	}
}

func TestAddContestant(t *testing.T) {
	f := newFixture(t)
	svc := f.competitionService()
	ctx := context.Background()
	host := Actor{UserID: f.host.ID, Role: models.RoleHost}

	contestant, err := svc.AddContestant(ctx, host, f.competition.ID, AddContestantInput{Name: " Dana "})
	if err != nil {
		t.Fatalf("AddContestant: %v", err)
	}
	if contestant.Name != "Dana" || contestant.Votes != 0 {
		t.Errorf("contestant = %+v", contestant)
	}

	maxThree := 3
	if err := f.store.Competitions().UpdateSettings(ctx, f.competition.ID, settingsUpdate("max_contestants", maxThree)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddContestant(ctx, host, f.competition.ID, AddContestantInput{Name: "Eve"}); !errors.Is(err, ErrCompetitionFull) {
		t.Fatalf("error = %v, want ErrCompetitionFull", err)
	}

	if err := f.store.Competitions().UpdateStatus(ctx, f.competition.ID, models.CompetitionCompleted); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddContestant(ctx, admin, f.competition.ID, AddContestantInput{Name: "Eve"}); !errors.Is(err, ErrCompetitionClosedForContestants) {
		t.Fatalf("error = %v, want ErrCompetitionClosedForContestants", err)
	}
	if _, err := svc.AddContestant(ctx, host, f.competition.ID, AddContestantInput{Name: ""}); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("error = %v, want ErrValidationFailed", err)
	}
}

func TestGetCompetitionView(t *testing.T) {
	f := newFixture(t)
	svc := f.competitionService()
	ctx := context.Background()

	if _, err := f.store.Contestants().IncrementVotes(ctx, f.other.ID, 3); err != nil {
		t.Fatal(err)
	}
	view, err := svc.GetCompetitionView(ctx, f.competition.ID)
	if err != nil {
		t.Fatalf("GetCompetitionView: %v", err)
	}
	if len(view.Contestants) != 2 || view.Contestants[0].ID != f.other.ID {
		t.Errorf("contestants = %+v, want Bob first", view.Contestants)
	}
	if _, err := svc.GetCompetitionView(ctx, "missing"); !errors.Is(err, ErrCompetitionNotFound) {
		t.Errorf("missing view error = %v", err)
	}
}

func TestVotingStatus(t *testing.T) {
	f := newFixture(t)
	svc := f.competitionService()
	ctx := context.Background()

	_, status, err := svc.VotingStatus(ctx, f.competition.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !status.Active || status.DoubleVoteDay || status.VoteDay != "2026-03-10" {
		t.Errorf("status = %+v", status)
	}

	f.clock.Advance(48 * time.Hour)
	_, status, _ = svc.VotingStatus(ctx, f.competition.ID)
	if !status.DoubleVoteDay || status.VoteDay != "2026-03-12" {
		t.Errorf("status on double-vote day = %+v", status)
	}

	f.clock.Advance(30 * 24 * time.Hour)
	_, status, _ = svc.VotingStatus(ctx, f.competition.ID)
	if status.Active {
		t.Error("voting active after voting end")
	}
}

func TestVotingActive(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	before, after := now.Add(-time.Hour), now.Add(time.Hour)
	tests := []struct {
		name string
		c    *models.Competition
		want bool
	}{
		{"nil", nil, false},
		{"live open window", &models.Competition{Status: "live", VotingStart: &before, VotingEnd: &after}, true},
		{"live synonym", &models.Competition{Status: "Active"}, true},
		{"published", &models.Competition{Status: "publish", VotingStart: &before}, false},
		{"live before start", &models.Competition{Status: "live", VotingStart: &after}, false},
		{"live at end", &models.Competition{Status: "live", VotingEnd: &now}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VotingActive(tt.c, now); got != tt.want {
				t.Errorf("VotingActive = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAutoAdvanceStages(t *testing.T) {
	f := newFixture(t)
	svc := f.competitionService()
	ctx := context.Background()
	now := f.clock.Now()
	past, farPast, future := now.Add(-time.Hour), now.Add(-2*time.Hour), now.Add(time.Hour)

	create := func(slug string, status models.CompetitionStatus, start, end *time.Time) string {
		t.Helper()
		c := &models.Competition{Name: slug, Slug: slug, Status: status, VotingStart: start, VotingEnd: end}
		if err := f.store.Competitions().Create(ctx, c); err != nil {
			t.Fatal(err)
		}
		return c.ID
	}
	opening := create("opening", models.CompetitionPublish, &past, &future)
	closing := create("closing", models.CompetitionLive, &farPast, &past)
	skipped := create("skipped", models.CompetitionPublish, &farPast, &past)
	waiting := create("waiting", models.CompetitionPublish, &future, nil)
	legacyOpening := create("legacy-opening", "coming_soon", &past, &future)
	legacyClosing := create("legacy-closing", "Active", &farPast, &past)

	if err := svc.AutoAdvanceStages(ctx); err != nil {
		t.Fatalf("AutoAdvanceStages: %v", err)
	}

	want := map[string]models.CompetitionStatus{
		opening:          models.CompetitionLive,
		closing:          models.CompetitionCompleted,
		skipped:          models.CompetitionCompleted,
		waiting:          models.CompetitionPublish,
		legacyOpening:    models.CompetitionLive,
		legacyClosing:    models.CompetitionCompleted,
		f.competition.ID: models.CompetitionLive,
	}
	for id, status := range want {
		c, err := svc.GetCompetition(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if c.Status != status {
			t.Errorf("%s status = %q, want %q", c.Slug, c.Status, status)
		}
	}
}

func TestDeleteCompetition(t *testing.T) {
	f := newFixture(t)
	svc := f.competitionService()
	ctx := context.Background()

	draft, err := svc.CreateCompetition(ctx, admin, CreateCompetitionInput{Name: "Empty", Slug: "empty"})
	if err != nil {
		t.Fatal(err)
	}
	busy, err := svc.CreateCompetition(ctx, admin, CreateCompetitionInput{Name: "Busy", Slug: "busy"})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.store.Contestants().Create(ctx, &models.Contestant{CompetitionID: busy.ID, Name: "Cleo"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		actor Actor
		id    string
		want  error
	}{
		{"host", Actor{UserID: f.host.ID, Role: models.RoleHost}, draft.ID, ErrForbiddenOperation},
		{"live competition", admin, f.competition.ID, ErrCompetitionNotDraft},
		{"draft with contestants", admin, busy.ID, ErrCompetitionInUse},
		{"missing", admin, "missing", ErrCompetitionNotFound},
		{"empty draft", admin, draft.ID, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.DeleteCompetition(ctx, tt.actor, tt.id); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := svc.GetCompetition(ctx, draft.ID); !errors.Is(err, ErrCompetitionNotFound) {
		t.Errorf("deleted competition still readable: %v", err)
	}
	if _, err := svc.GetCompetition(ctx, busy.ID); err != nil {
		t.Errorf("competition in use was removed: %v", err)
	}
}
