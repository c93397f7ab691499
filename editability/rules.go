package editability

import "fmt"

// Outcome is the result of an editability lookup. The zero value is Locked.
type Outcome int

const (
	Locked Outcome = iota
	Editable
	Warn
)

func (o Outcome) String() string {
	switch o {
	case Editable:
		return "editable"
	case Warn:
		return "warn"
	default:
		return "locked"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Rule holds the outcome of one field for each stage.
type Rule struct {
	Draft     Outcome
	Publish   Outcome
	Live      Outcome
	Completed Outcome
}

// For returns the outcome for stage. Stages outside the canonical set are normalized first.
func (r Rule) For(stage Stage) Outcome {
	if !stage.Valid() {
		stage = NormalizeStatus(string(stage))
	}
	switch stage {
	case StagePublish:
		return r.Publish
	case StageLive:
		return r.Live
	case StageCompleted:
		return r.Completed
	default:
		return r.Draft
	}
}

// FieldRule binds a rule to a field name.
type FieldRule struct {
	Field string
	Rule  Rule
	// AlwaysLocked marks admin-controlled fields that carry one explanation at every stage.
	AlwaysLocked bool
}

// Rules is an immutable rule table. Build it with NewRules and pass it to NewPolicy.
type Rules struct {
	order        []string
	byField      map[string]Rule
	alwaysLocked map[string]bool
}

// NewRules builds a table from entries, keeping their order. A field listed twice is an error.
func NewRules(entries ...FieldRule) (*Rules, error) {
	r := &Rules{
		order:        make([]string, 0, len(entries)),
		byField:      make(map[string]Rule, len(entries)),
		alwaysLocked: make(map[string]bool),
	}
	for _, entry := range entries {
		if entry.Field == "" {
			return nil, fmt.Errorf("editability: empty field name in rule table")
		}
		if _, dup := r.byField[entry.Field]; dup {
			return nil, fmt.Errorf("editability: duplicate rule for field %q", entry.Field)
		}
		fieldRule := entry.Rule
		if entry.AlwaysLocked {
			fieldRule = Rule{}
			r.alwaysLocked[entry.Field] = true
		}
		r.order = append(r.order, entry.Field)
		r.byField[entry.Field] = fieldRule
	}
	return r, nil
}

// Lookup returns the rule for field.
func (r *Rules) Lookup(field string) (Rule, bool) {
	rule, ok := r.byField[field]
	return rule, ok
}

// IsAlwaysLocked reports whether field is admin controlled.
func (r *Rules) IsAlwaysLocked(field string) bool {
	return r.alwaysLocked[field]
}

// Fields returns the field names in table order.
func (r *Rules) Fields() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

const (
	e = Editable
	l = Locked
	w = Warn
)

func rule(draft, publish, live, completed Outcome) Rule {
	return Rule{Draft: draft, Publish: publish, Live: live, Completed: completed}
}

func locked(field string) FieldRule {
	return FieldRule{Field: field, AlwaysLocked: true}
}

// DefaultRules is the competition settings policy. number_of_winners is admin controlled
// at every stage.
func DefaultRules() *Rules {
	rules, err := NewRules(
		// slot
		locked("name"),
		locked("city"),
		locked("season"),
		locked("slug"),
		locked("category"),
		locked("demographic"),

		// economics
		locked("minimum_prize"),
		locked("number_of_winners"),
		locked("price_per_vote"),
		locked("eligibility_radius"),
		locked("min_contestants"),
		locked("max_contestants"),

		// marketing
		FieldRule{Field: "about_tagline", Rule: rule(e, e, l, l)},
		FieldRule{Field: "description", Rule: rule(e, e, w, l)},
		FieldRule{Field: "traits", Rule: rule(e, e, w, l)},
		FieldRule{Field: "age_range", Rule: rule(e, e, l, l)},
		FieldRule{Field: "requirements", Rule: rule(e, e, l, l)},
		FieldRule{Field: "theme_primary", Rule: rule(e, e, w, l)},
		FieldRule{Field: "theme_secondary", Rule: rule(e, e, w, l)},

		// timeline
		FieldRule{Field: "nomination_start", Rule: rule(e, e, l, l)},
		FieldRule{Field: "nomination_end", Rule: rule(e, e, w, l)},
		FieldRule{Field: "voting_start", Rule: rule(e, e, l, l)},
		FieldRule{Field: "voting_end", Rule: rule(e, e, w, l)},
		FieldRule{Field: "finale_date", Rule: rule(e, e, w, l)},
		FieldRule{Field: "double_vote_dates", Rule: rule(e, e, w, l)},

		// collections
		FieldRule{Field: "events", Rule: rule(e, e, e, l)},
		FieldRule{Field: "sponsors", Rule: rule(e, e, e, l)},
		FieldRule{Field: "rules", Rule: rule(e, e, w, l)},
		FieldRule{Field: "announcements", Rule: rule(e, e, e, e)},
		FieldRule{Field: "winners", Rule: rule(l, l, l, e)},
	)
	if err != nil {
		panic(err)
	}
	return rules
}
