package handler

import (
	"log/slog"
	"net/http"

	"notevault-server/internal/middleware"
	"notevault-server/internal/websocket"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

// WebSocketHandler upgrades authenticated connections into change event
// subscribers. The token may arrive via query parameter, cookie or bearer
// header; browser websocket clients cannot set arbitrary headers.
type WebSocketHandler struct {
	manager  *websocket.Manager
	resolver middleware.TokenResolver
	logger   *slog.Logger
	upgrader ws.Upgrader
}

func NewWebSocketHandler(manager *websocket.Manager, resolver middleware.TokenResolver, logger *slog.Logger, readBuf, writeBuf int) *WebSocketHandler {
	return &WebSocketHandler{
		manager:  manager,
		resolver: resolver,
		logger:   logger,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBuf,
			WriteBufferSize: writeBuf,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = middleware.TokenFromRequest(r)
	}

	if token == "" {
		http.Error(w, "missing authentication token", http.StatusUnauthorized)
		return
	}

	user, err := h.resolver.ResolveToken(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := websocket.NewClient(uuid.New().String(), user.ID, conn, h.manager)
	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
