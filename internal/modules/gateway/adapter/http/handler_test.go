package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gatewayhttp "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/gateway/adapter/http"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/gateway/ws"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
)

func init() {
	logger.Init(logger.Config{Level: "error", Format: "console"})
}

// tokenTable maps tokens to player ids.
type tokenTable map[string]int64

func (t tokenTable) ValidateToken(_ context.Context, token string) (int64, string, time.Time, error) {
	id, ok := t[token]
	if !ok {
		return 0, "", time.Time{}, errors.New("unknown token")
	}
	return id, "", time.Now().Add(time.Hour), nil
}

// roster lets listed players watch game "g1".
type roster map[int64]bool

func (r roster) CanWatch(_ context.Context, gameID string, playerID int64) (bool, error) {
	return gameID == "g1" && r[playerID], nil
}

// echoUseCase replies with the player id and message.
type echoUseCase struct{}

func (echoUseCase) HandleMessage(_ context.Context, gameID string, userID int64, message []byte) ([]byte, error) {
	if string(message) == "bad" {
		return nil, errors.New("invalid message format")
	}
	return []byte(gameID + ":" + string(message)), nil
}

func newServer(t *testing.T) (*httptest.Server, *ws.Manager) {
	t.Helper()

	manager := ws.NewManager()
	h := gatewayhttp.NewHandler(echoUseCase{}, manager,
		tokenTable{"tok-alice": 2, "tok-bob": 3, "tok-eve": 66},
		roster{2: true, 3: true},
	)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(func() {
		manager.Shutdown()
		srv.Close()
	})
	return srv, manager
}

func dial(t *testing.T, srv *httptest.Server, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	return websocket.DefaultDialer.Dial(url, nil)
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(msg)
}

func TestWebSocketRejects(t *testing.T) {
	srv, _ := newServer(t)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{name: "no game", query: "token=tok-alice", status: http.StatusBadRequest},
		{name: "no token", query: "game_id=g1", status: http.StatusUnauthorized},
		{name: "bad token", query: "game_id=g1&token=nope", status: http.StatusUnauthorized},
		{name: "not in game", query: "game_id=g1&token=tok-eve", status: http.StatusForbidden},
		{name: "other game", query: "game_id=g2&token=tok-alice", status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := dial(t, srv, tt.query)
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestWebSocketCommandAndBroadcast(t *testing.T) {
	srv, manager := newServer(t)

	alice, _, err := dial(t, srv, "game_id=g1&token=tok-alice")
	require.NoError(t, err)
	defer alice.Close()
	bob, _, err := dial(t, srv, "game_id=g1&token=tok-bob")
	require.NoError(t, err)
	defer bob.Close()

	require.Eventually(t, func() bool { return manager.RoomSize("g1") == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("hello")))
	assert.Equal(t, "g1:hello", readText(t, alice))

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("bad")))
	assert.Contains(t, readText(t, alice), "invalid message format")

	manager.BroadcastToGame("g1", []byte(`{"type":"game_finale"}`))
	assert.Equal(t, `{"type":"game_finale"}`, readText(t, alice))
	assert.Equal(t, `{"type":"game_finale"}`, readText(t, bob))
}

func TestWebSocketReplacesOlderConnection(t *testing.T) {
	srv, manager := newServer(t)

	first, _, err := dial(t, srv, "game_id=g1&token=tok-alice")
	require.NoError(t, err)
	defer first.Close()
	require.Eventually(t, func() bool { return manager.RoomSize("g1") == 1 }, time.Second, 10*time.Millisecond)

	second, _, err := dial(t, srv, "game_id=g1&token=tok-alice")
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = first.ReadMessage()
	assert.Error(t, err, "replaced connection is closed")

	manager.BroadcastToGame("g1", []byte("ping"))
	assert.Equal(t, "ping", readText(t, second))
	assert.Equal(t, 1, manager.RoomSize("g1"))
}
