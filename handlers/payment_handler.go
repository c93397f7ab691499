package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/competition-system/middleware"
	"github.com/Dosada05/competition-system/services"
	"github.com/go-chi/chi/v5"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(ps *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: ps}
}

func (h *PaymentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	var input struct {
		ContestantID string `json:"contestant_id"`
		VoteCount    int    `json:"vote_count"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if strings.TrimSpace(input.ContestantID) == "" {
		badRequestResponse(w, r, errors.New("contestant_id is required"))
		return
	}

	view, err := h.paymentService.CreateVotePaymentIntent(r.Context(), actor,
		middleware.GetEmailFromContext(r.Context()), chi.URLParam(r, "competitionID"), input.ContestantID, input.VoteCount)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"payment_intent": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ConfirmPaidVote records the votes of a confirmed payment. A payment that is still processing
// answers 202 and can be confirmed again later.
func (h *PaymentHandler) ConfirmPaidVote(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	var input struct {
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.paymentService.ConfirmPaidVote(r.Context(), actor,
		middleware.GetEmailFromContext(r.Context()), chi.URLParam(r, "competitionID"), strings.TrimSpace(input.PaymentIntentID))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusOK
	if outcome.State == services.FlowAwaitingPaymentConfirmation {
		status = http.StatusAccepted
	}
	response := jsonResponse{"status": outcome.State.String(), "payment": outcome}
	if err := writeJSON(w, status, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
