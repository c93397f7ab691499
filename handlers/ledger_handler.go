package handlers

import (
	"net/http"

	"github.com/Dosada05/competition-system/services"
	"github.com/go-chi/chi/v5"
)

type LedgerHandler struct {
	exporter *services.LedgerExporter
}

func NewLedgerHandler(exporter *services.LedgerExporter) *LedgerHandler {
	return &LedgerHandler{exporter: exporter}
}

func (h *LedgerHandler) ExportLedger(w http.ResponseWriter, r *http.Request) {
	export, err := h.exporter.ExportLedger(r.Context(), chi.URLParam(r, "competitionID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"export": export}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LedgerHandler) DeleteLedgerExport(w http.ResponseWriter, r *http.Request) {
	err := h.exporter.DeleteLedgerExport(r.Context(), chi.URLParam(r, "competitionID"), chi.URLParam(r, "exportName"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
