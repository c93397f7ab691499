package editability

import (
	"sort"
	"strings"
)

// Stage is the normalized lifecycle position of a competition.
type Stage string

const (
	StageDraft     Stage = "draft"
	StagePublish   Stage = "publish"
	StageLive      Stage = "live"
	StageCompleted Stage = "completed"
)

// Stages lists every stage in lifecycle order.
var Stages = []Stage{StageDraft, StagePublish, StageLive, StageCompleted}

var statusSynonyms = map[string]Stage{
	"draft":     StageDraft,
	"publish":   StagePublish,
	"live":      StageLive,
	"completed": StageCompleted,

	"coming_soon": StagePublish,
	"comingsoon":  StagePublish,

	"active":      StageLive,
	"in_progress": StageLive,

	"finished": StageCompleted,
	"ended":    StageCompleted,
	"done":     StageCompleted,
}

// NormalizeStatus maps a free-form status string to a Stage. Matching ignores case and
// treats '-' and '_' alike. Empty or unknown input yields StageDraft.
func NormalizeStatus(status string) Stage {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(status)), "-", "_")
	if stage, ok := statusSynonyms[key]; ok {
		return stage
	}
	return StageDraft
}

// StatusesFor lists every normalized status spelling that maps to s, the canonical name first.
// Stored values still need case folding and '-' to '_' before they are compared.
func StatusesFor(s Stage) []string {
	var synonyms []string
	for status, stage := range statusSynonyms {
		if stage == s && status != string(s) {
			synonyms = append(synonyms, status)
		}
	}
	sort.Strings(synonyms)
	if _, ok := statusSynonyms[string(s)]; !ok {
		return synonyms
	}
	return append([]string{string(s)}, synonyms...)
}

// Valid reports whether s is one of the four canonical stages.
func (s Stage) Valid() bool {
	switch s {
	case StageDraft, StagePublish, StageLive, StageCompleted:
		return true
	}
	return false
}

// Next returns the stage that follows s, or false when s is terminal.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case StageDraft:
		return StagePublish, true
	case StagePublish:
		return StageLive, true
	case StageLive:
		return StageCompleted, true
	}
	return "", false
}
