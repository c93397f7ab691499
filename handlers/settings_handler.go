package handlers

import (
	"net/http"

	"github.com/Dosada05/competition-system/services"
	"github.com/go-chi/chi/v5"
)

type SettingsHandler struct {
	competitionService *services.CompetitionService
}

func NewSettingsHandler(cs *services.CompetitionService) *SettingsHandler {
	return &SettingsHandler{competitionService: cs}
}

// GetEditability lists every settings field with its outcome for the competition's stage.
func (h *SettingsHandler) GetEditability(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	stage, fields, err := h.competitionService.EditableFields(r.Context(), actor, chi.URLParam(r, "competitionID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"stage": stage, "fields": fields}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateSettings answers 200 when the change set was saved and 409 when a field needs the
// user's confirmation first. The client confirms by resending the same changes with the field
// added to confirmed_fields.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	var input services.SettingsRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.competitionService.UpdateSettings(r.Context(), actor, chi.URLParam(r, "competitionID"), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	skipped := outcome.Skipped
	if skipped == nil {
		skipped = []services.SkippedField{}
	}

	if outcome.State == services.EditorPendingWarning {
		confirmed := outcome.Confirmed
		if confirmed == nil {
			confirmed = []string{}
		}
		response := jsonResponse{
			"status":           outcome.State.String(),
			"field":            outcome.WarningField,
			"message":          outcome.WarningMessage,
			"confirmed_fields": confirmed,
			"skipped":          skipped,
		}
		if err := writeJSON(w, http.StatusConflict, response, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
		return
	}

	saved := outcome.Saved
	if saved == nil {
		saved = []string{}
	}
	response := jsonResponse{
		"status":  outcome.State.String(),
		"saved":   saved,
		"skipped": skipped,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
