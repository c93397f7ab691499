package editability

import (
	"io"
	"log/slog"
	"reflect"
	"testing"
)

func newTestPolicy() *Policy {
	return NewPolicy(DefaultRules(), DefaultMessages(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEditabilityIsTotalAndDeterministic(t *testing.T) {
	p := newTestPolicy()
	for _, field := range p.Fields() {
		for _, stage := range Stages {
			first := p.Editability(field, stage)
			switch first {
			case Locked, Editable, Warn:
			default:
				t.Fatalf("%s@%s: unexpected outcome %d", field, stage, first)
			}
			if again := p.Editability(field, stage); again != first {
				t.Errorf("%s@%s: got %s then %s", field, stage, first, again)
			}
		}
	}
}

func TestAlwaysLockedFields(t *testing.T) {
	p := newTestPolicy()
	fields := []string{
		"name", "city", "season", "slug", "category", "demographic",
		"minimum_prize", "number_of_winners", "price_per_vote", "eligibility_radius",
		"min_contestants", "max_contestants",
	}
	for _, field := range fields {
		for _, stage := range Stages {
			if got := p.Editability(field, stage); got != Locked {
				t.Errorf("%s@%s = %s, want locked", field, stage, got)
			}
			if got, want := p.LockedReason(field, stage), DefaultMessages().AlwaysLocked[field]; got != want {
				t.Errorf("LockedReason(%s, %s) = %q, want %q", field, stage, got, want)
			}
		}
	}
}

func TestEditabilityByStage(t *testing.T) {
	p := newTestPolicy()
	tests := []struct {
		field string
		stage Stage
		want  Outcome
	}{
		{"about_tagline", StageDraft, Editable},
		{"about_tagline", StageLive, Locked},
		{"theme_primary", StagePublish, Editable},
		{"theme_primary", StageLive, Warn},
		{"theme_primary", StageCompleted, Locked},
		{"announcements", StageCompleted, Editable},
		{"winners", StageLive, Locked},
		{"winners", StageCompleted, Editable},
		{"events", StageLive, Editable},
		// raw statuses are normalized on the way in
		{"theme_primary", Stage("Active"), Warn},
		{"winners", Stage("finished"), Editable},
	}
	for _, tt := range tests {
		if got := p.Editability(tt.field, tt.stage); got != tt.want {
			t.Errorf("Editability(%q, %q) = %s, want %s", tt.field, tt.stage, got, tt.want)
		}
	}
}

func TestUnknownFieldFallback(t *testing.T) {
	p := newTestPolicy()
	tests := []struct {
		stage Stage
		want  Outcome
	}{
		{StageDraft, Editable},
		{StagePublish, Editable},
		{StageLive, Locked},
		{StageCompleted, Locked},
	}
	for _, tt := range tests {
		if got := p.Editability("not_a_field", tt.stage); got != tt.want {
			t.Errorf("unknown field @%s = %s, want %s", tt.stage, got, tt.want)
		}
	}
}

func TestFieldsNeedingWarning(t *testing.T) {
	p := newTestPolicy()

	got := p.FieldsNeedingWarning([]string{"voting_end", "about_tagline", "theme_primary", "voting_end", "events"}, StageLive)
	want := []string{"voting_end", "theme_primary"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FieldsNeedingWarning = %v, want %v", got, want)
	}

	if got := p.FieldsNeedingWarning([]string{"theme_primary"}, StageDraft); len(got) != 0 {
		t.Errorf("draft should never warn, got %v", got)
	}
}

func TestWarnAndLockedFieldsPartitionTable(t *testing.T) {
	p := newTestPolicy()
	for _, stage := range Stages {
		locked := p.LockedFields(stage)
		warn := p.WarnFields(stage)
		seen := map[string]bool{}
		for _, f := range append(append([]string{}, locked...), warn...) {
			if seen[f] {
				t.Fatalf("%s listed twice at %s", f, stage)
			}
			seen[f] = true
		}
		for _, f := range warn {
			if p.Editability(f, stage) != Warn {
				t.Errorf("WarnFields(%s) contains %s which is not warn", stage, f)
			}
		}
	}
	if warn := p.WarnFields(StageDraft); len(warn) != 0 {
		t.Errorf("draft warn fields = %v, want none", warn)
	}
}

func TestLockedReasonAndWarningMessages(t *testing.T) {
	p := newTestPolicy()
	msgs := DefaultMessages()

	if got := p.LockedReason("about_tagline", StageLive); got != msgs.StageLocked[StageLive] {
		t.Errorf("live reason = %q", got)
	}
	if got := p.LockedReason("description", StageCompleted); got != msgs.StageLocked[StageCompleted] {
		t.Errorf("completed reason = %q", got)
	}
	if got := p.EditWarningMessage("theme_primary"); got != msgs.FieldWarnings["theme_primary"] {
		t.Errorf("theme warning = %q", got)
	}
	if got := p.EditWarningMessage("events"); got != msgs.GenericWarn {
		t.Errorf("fallback warning = %q", got)
	}

	bare := NewPolicy(DefaultRules(), Messages{Generic: "nope"}, nil)
	if got := bare.LockedReason("about_tagline", StageLive); got != "nope" {
		t.Errorf("generic fallback = %q", got)
	}
}

func TestDescribe(t *testing.T) {
	p := newTestPolicy()
	states := p.Describe(StageLive)
	if len(states) != len(p.Fields()) {
		t.Fatalf("Describe returned %d fields, want %d", len(states), len(p.Fields()))
	}
	for _, s := range states {
		switch s.Outcome {
		case Locked:
			if s.Reason == "" {
				t.Errorf("%s: locked without reason", s.Field)
			}
		case Warn:
			if s.Warning == "" {
				t.Errorf("%s: warn without message", s.Field)
			}
		}
	}
}

func TestNewRulesRejectsDuplicates(t *testing.T) {
	_, err := NewRules(
		FieldRule{Field: "number_of_winners", AlwaysLocked: true},
		FieldRule{Field: "number_of_winners", Rule: Rule{Draft: Editable, Publish: Editable}},
	)
	if err == nil {
		t.Fatal("expected duplicate field error")
	}
}

func TestRulesFieldsIsACopy(t *testing.T) {
	rules := DefaultRules()
	fields := rules.Fields()
	fields[0] = "mutated"
	if rules.Fields()[0] == "mutated" {
		t.Fatal("Fields exposed internal slice")
	}
}
