package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/gateway/domain"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/gateway/ws"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/service"
	"github.com/gorilla/websocket"
)

// Watcher decides whether a player may subscribe to a game's events.
type Watcher interface {
	CanWatch(ctx context.Context, gameID string, playerID int64) (bool, error)
}

// Handler upgrades game subscriptions to websockets.
type Handler struct {
	useCase domain.GatewayUseCase
	manager *ws.Manager
	tokens  service.TokenValidator
	watcher Watcher
}

func NewHandler(useCase domain.GatewayUseCase, manager *ws.Manager, tokens service.TokenValidator, watcher Watcher) *Handler {
	return &Handler{
		useCase: useCase,
		manager: manager,
		tokens:  tokens,
		watcher: watcher,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the cors middleware in front
	},
}

// HandleWebSocket serves GET /ws?game_id=...&token=...
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WebSocketContext(r)
	requestID := logger.GetRequestID(ctx)

	gameID := r.URL.Query().Get("game_id")
	if gameID == "" {
		http.Error(w, "missing game_id", http.StatusBadRequest)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		if auth := r.Header.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
			token = auth[7:]
		}
	}
	if token == "" {
		logger.Warn(ctx).Msg("🔌 [WS] missing token")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, _, _, err := h.tokens.ValidateToken(r.Context(), token)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("🔌 [WS] token rejected")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ok, err := h.watcher.CanWatch(r.Context(), gameID, userID)
	if err != nil {
		logger.Error(ctx).Err(err).Str("game_id", gameID).Msg("🔌 [WS] watch check failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("🔌 [WS] upgrade failed")
		return
	}

	logger.Info(ctx).
		Int64("user_id", userID).
		Str("game_id", gameID).
		Msg("🔌 [WS] connected")

	client := h.manager.Register(conn, userID, gameID)

	go client.WritePump()
	go client.ReadPump(func(c *ws.Connection, message []byte) {
		msgCtx := logger.WithRequestID(context.Background(), logger.GenerateRequestID())
		msgCtx = logger.WithFields(msgCtx, map[string]interface{}{
			"user_id":       c.UserID,
			"game_id":       c.GameID,
			"ws_request_id": requestID,
		})

		response, err := h.useCase.HandleMessage(msgCtx, c.GameID, c.UserID, message)
		if err != nil {
			logger.Warn(msgCtx).Err(err).Msg("🔌 [WS] bad message")
			if body, mErr := json.Marshal(map[string]interface{}{"type": "error", "error": err.Error()}); mErr == nil {
				h.manager.SendToUser(c.GameID, c.UserID, body)
			}
			return
		}
		if response != nil {
			h.manager.SendToUser(c.GameID, c.UserID, response)
		}
	})
}
