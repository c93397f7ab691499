package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/competition-system/middleware"
	"github.com/Dosada05/competition-system/services"
	"github.com/go-chi/chi/v5"
)

type VoteHandler struct {
	voteService        *services.VoteService
	competitionService *services.CompetitionService
}

func NewVoteHandler(vs *services.VoteService, cs *services.CompetitionService) *VoteHandler {
	return &VoteHandler{voteService: vs, competitionService: cs}
}

// GetTodaysVote tells the voter whether today's free vote is used and when it resets.
func (h *VoteHandler) GetTodaysVote(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	competitionID := chi.URLParam(r, "competitionID")

	_, status, err := h.competitionService.VotingStatus(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	contestantID, found, err := h.voteService.GetTodaysVote(r.Context(), actor.UserID, competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	resetIn := h.voteService.Clock().TimeUntilReset()
	response := jsonResponse{
		"voting":            status,
		"has_voted":         found,
		"resets_in":         services.FormatResetCountdown(resetIn),
		"resets_in_seconds": int64(resetIn.Seconds()),
	}
	if found {
		response["contestant_id"] = contestantID
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *VoteHandler) SubmitFreeVote(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	var input struct {
		ContestantID string `json:"contestant_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if strings.TrimSpace(input.ContestantID) == "" {
		badRequestResponse(w, r, errors.New("contestant_id is required"))
		return
	}
	competitionID := chi.URLParam(r, "competitionID")

	_, status, err := h.competitionService.VotingStatus(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	result, err := h.voteService.SubmitFreeVote(r.Context(), services.FreeVoteInput{
		VoterID:         actor.UserID,
		Email:           middleware.GetEmailFromContext(r.Context()),
		CompetitionID:   competitionID,
		ContestantID:    input.ContestantID,
		IsDoubleVoteDay: status.DoubleVoteDay,
		VotingActive:    status.Active,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
