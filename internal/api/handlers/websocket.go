package handlers

import (
	"log/slog"
	"net/http"

	"github.com/dom/doctree/internal/api/middleware"
	"github.com/dom/doctree/internal/api/response"
	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/websocket"
	ws "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *websocket.Hub
	upgrader ws.Upgrader
}

// NewWebSocketHandler accepts handshakes from origin, or from anywhere when
// origin is "*".
func NewWebSocketHandler(hub *websocket.Hub, origin string) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if origin == "*" {
					return true
				}
				o := r.Header.Get("Origin")
				return o == "" || o == origin
			},
		},
	}
}

// Handle upgrades an already authorized request onto the change feed.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Message(w, http.StatusUnauthorized, domain.KindUnauthorized, "authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "component", "handlers.websocket", "error", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, principal.UserID, middleware.Credential(r))
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
