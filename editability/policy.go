package editability

import (
	"log/slog"
	"sync"
)

// Policy answers which competition fields a host may edit at a given stage.
// Lookups never fail; unknown fields fall back to a default and are logged once.
type Policy struct {
	rules    *Rules
	messages Messages
	logger   *slog.Logger

	reported sync.Map // field -> struct{}, unknown fields already logged
}

// FieldState describes one field for the settings UI.
type FieldState struct {
	Field   string  `json:"field"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
	Warning string  `json:"warning,omitempty"`
}

func NewPolicy(rules *Rules, messages Messages, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{rules: rules, messages: messages, logger: logger}
}

// Editability returns the outcome for field at stage.
func (p *Policy) Editability(field string, stage Stage) Outcome {
	if !stage.Valid() {
		stage = NormalizeStatus(string(stage))
	}
	rule, ok := p.rules.Lookup(field)
	if !ok {
		p.reportMissing(field)
		if stage == StageDraft || stage == StagePublish {
			return Editable
		}
		return Locked
	}
	return rule.For(stage)
}

func (p *Policy) reportMissing(field string) {
	if _, seen := p.reported.LoadOrStore(field, struct{}{}); seen {
		return
	}
	p.logger.Warn("editability rule missing for field, using stage default", slog.String("field", field))
}

// Fields returns every field known to the rule table, in table order.
func (p *Policy) Fields() []string {
	return p.rules.Fields()
}

// LockedFields returns the fields locked at stage, in table order.
func (p *Policy) LockedFields(stage Stage) []string {
	return p.fieldsWith(stage, Locked)
}

// WarnFields returns the fields that need confirmation at stage, in table order.
func (p *Policy) WarnFields(stage Stage) []string {
	return p.fieldsWith(stage, Warn)
}

func (p *Policy) fieldsWith(stage Stage, outcome Outcome) []string {
	var out []string
	for _, field := range p.rules.Fields() {
		if p.Editability(field, stage) == outcome {
			out = append(out, field)
		}
	}
	return out
}

// FieldsNeedingWarning returns the candidates that need confirmation at stage. The result keeps
// the order of candidates and lists each field once.
func (p *Policy) FieldsNeedingWarning(candidates []string, stage Stage) []string {
	var out []string
	seen := make(map[string]bool, len(candidates))
	for _, field := range candidates {
		if seen[field] {
			continue
		}
		seen[field] = true
		if p.Editability(field, stage) == Warn {
			out = append(out, field)
		}
	}
	return out
}

// LockedReason explains why field cannot be edited at stage.
func (p *Policy) LockedReason(field string, stage Stage) string {
	if msg, ok := p.messages.AlwaysLocked[field]; ok {
		return msg
	}
	if !stage.Valid() {
		stage = NormalizeStatus(string(stage))
	}
	if msg, ok := p.messages.StageLocked[stage]; ok {
		return msg
	}
	return p.messages.Generic
}

// EditWarningMessage is shown in the confirmation dialog for a warn field.
func (p *Policy) EditWarningMessage(field string) string {
	if msg, ok := p.messages.FieldWarnings[field]; ok {
		return msg
	}
	return p.messages.GenericWarn
}

// Describe lists every field with its outcome at stage and the text the UI should show.
func (p *Policy) Describe(stage Stage) []FieldState {
	fields := p.rules.Fields()
	out := make([]FieldState, 0, len(fields))
	for _, field := range fields {
		state := FieldState{Field: field, Outcome: p.Editability(field, stage)}
		switch state.Outcome {
		case Locked:
			state.Reason = p.LockedReason(field, stage)
		case Warn:
			state.Warning = p.EditWarningMessage(field)
		}
		out = append(out, state)
	}
	return out
}
