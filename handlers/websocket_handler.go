package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/competition-system/live"
	"github.com/Dosada05/competition-system/services"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub                *live.Hub
	competitionService *services.CompetitionService
	upgrader           websocket.Upgrader
}

// NewWebSocketHandler accepts connections from allowedOrigins; "*" or an empty list allows any.
func NewWebSocketHandler(hub *live.Hub, cs *services.CompetitionService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:                hub,
		competitionService: cs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// ServeWs subscribes the connection to vote tally updates of one competition.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	competitionID := chi.URLParam(r, "competitionID")
	if _, err := h.competitionService.GetCompetition(r.Context(), competitionID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("competition_id", competitionID), slog.Any("error", err))
		return
	}

	client := live.NewClient(h.hub, conn, live.RoomForCompetition(competitionID))
	if !h.hub.Register(client) {
		conn.Close()
		return
	}
	go client.WritePump()
	go client.ReadPump()
}
