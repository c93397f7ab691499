package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/competition-system/editability"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
)

type EditorState int

const (
	EditorIdle EditorState = iota
	EditorPendingWarning
	EditorSaving
	EditorSaved
	EditorFailed
)

func (s EditorState) String() string {
	switch s {
	case EditorPendingWarning:
		return "warning_required"
	case EditorSaving:
		return "saving"
	case EditorSaved:
		return "saved"
	case EditorFailed:
		return "failed"
	default:
		return "idle"
	}
}

// FieldChange is one edited field as sent by the settings form.
type FieldChange struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

type SkippedField struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// EditOutcome reports what one Submit or Confirm did.
type EditOutcome struct {
	State          EditorState
	WarningField   string
	WarningMessage string
	Confirmed      []string
	Saved          []string
	Skipped        []SkippedField
	// Changes holds the submitted set after a failed save so it can be resubmitted.
	Changes []FieldChange
	Err     error
}

// SettingsStore persists one partial competition update.
type SettingsStore interface {
	UpdateSettings(ctx context.Context, id string, update repositories.SettingsUpdate) error
}

// SettingsEditor drives the confirm-before-save workflow for one competition.
// Locked fields are dropped from the update, warn fields are confirmed one at a time in the order
// they were changed, and everything else is written in a single store call.
type SettingsEditor struct {
	policy        *editability.Policy
	store         SettingsStore
	competitionID string
	stage         editability.Stage
	now           func() time.Time
	logger        *slog.Logger

	mu           sync.Mutex
	state        EditorState
	confirmed    []string
	pending      []FieldChange
	pendingField string
}

func NewSettingsEditor(policy *editability.Policy, store SettingsStore, competitionID string, stage editability.Stage, logger *slog.Logger) *SettingsEditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsEditor{
		policy:        policy,
		store:         store,
		competitionID: competitionID,
		stage:         editability.NormalizeStatus(string(stage)),
		now:           time.Now,
		logger:        logger,
	}
}

// WithConfirmed seeds confirmations made in an earlier round trip.
func (e *SettingsEditor) WithConfirmed(fields ...string) *SettingsEditor {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, f := range fields {
		e.confirmed = appendUnique(e.confirmed, f)
	}
	return e
}

func (e *SettingsEditor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// PendingField is the field waiting for confirmation, if any.
func (e *SettingsEditor) PendingField() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingField
}

// Submit runs one round of the workflow for changes.
func (e *SettingsEditor) Submit(ctx context.Context, changes []FieldChange) (*EditOutcome, error) {
	e.mu.Lock()
	if e.state == EditorSaving {
		e.mu.Unlock()
		return nil, ErrSaveInProgress
	}

	changes = mergeChanges(changes)
	values := make(map[string]any, len(changes))
	var allowed []string
	var skipped []SkippedField
	for _, change := range changes {
		if e.policy.Editability(change.Field, e.stage) == editability.Locked {
			skipped = append(skipped, SkippedField{Field: change.Field, Reason: e.policy.LockedReason(change.Field, e.stage)})
			continue
		}
		value, err := models.DecodeSettingValue(change.Field, change.Value)
		if err != nil {
			e.mu.Unlock()
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		values[change.Field] = value
		allowed = append(allowed, change.Field)
	}

	if field, ok := e.firstUnconfirmed(allowed); ok {
		e.state = EditorPendingWarning
		e.pending = changes
		e.pendingField = field
		outcome := &EditOutcome{
			State:          EditorPendingWarning,
			WarningField:   field,
			WarningMessage: e.policy.EditWarningMessage(field),
			Confirmed:      append([]string(nil), e.confirmed...),
			Skipped:        skipped,
		}
		e.mu.Unlock()
		return outcome, nil
	}

	e.pending = nil
	e.pendingField = ""
	if len(allowed) == 0 {
		e.state = EditorIdle
		e.confirmed = nil
		e.mu.Unlock()
		return &EditOutcome{State: EditorSaved, Skipped: skipped}, nil
	}
	e.state = EditorSaving
	e.mu.Unlock()

	err := e.store.UpdateSettings(ctx, e.competitionID, repositories.SettingsUpdate{
		Values:    values,
		UpdatedAt: e.now().UTC(),
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = EditorIdle
	if err != nil {
		e.logger.WarnContext(ctx, "competition settings save failed",
			slog.String("competition_id", e.competitionID),
			slog.Any("fields", allowed),
			slog.Any("error", err),
		)
		return &EditOutcome{State: EditorFailed, Skipped: skipped, Changes: changes, Err: err}, err
	}

	e.confirmed = nil
	e.logger.InfoContext(ctx, "competition settings saved",
		slog.String("competition_id", e.competitionID),
		slog.String("stage", string(e.stage)),
		slog.Any("fields", allowed),
	)
	return &EditOutcome{State: EditorSaved, Saved: allowed, Skipped: skipped}, nil
}

// Confirm accepts the pending warning and resubmits the full change set.
func (e *SettingsEditor) Confirm(ctx context.Context) (*EditOutcome, error) {
	e.mu.Lock()
	if e.state != EditorPendingWarning {
		e.mu.Unlock()
		return nil, ErrNothingPending
	}
	e.confirmed = appendUnique(e.confirmed, e.pendingField)
	changes := e.pending
	e.state = EditorIdle
	e.mu.Unlock()

	return e.Submit(ctx, changes)
}

// Cancel discards the pending changes. Nothing has been written at this point.
func (e *SettingsEditor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == EditorSaving {
		return
	}
	e.state = EditorIdle
	e.pending = nil
	e.pendingField = ""
	e.confirmed = nil
}

func (e *SettingsEditor) firstUnconfirmed(fields []string) (string, bool) {
	for _, field := range e.policy.FieldsNeedingWarning(fields, e.stage) {
		if !contains(e.confirmed, field) {
			return field, true
		}
	}
	return "", false
}

// mergeChanges keeps the first position of each field and its last value.
func mergeChanges(changes []FieldChange) []FieldChange {
	index := make(map[string]int, len(changes))
	out := make([]FieldChange, 0, len(changes))
	for _, c := range changes {
		if i, ok := index[c.Field]; ok {
			out[i].Value = c.Value
			continue
		}
		index[c.Field] = len(out)
		out = append(out, c)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func appendUnique(list []string, s string) []string {
	if s == "" || contains(list, s) {
		return list
	}
	return append(list, s)
}
