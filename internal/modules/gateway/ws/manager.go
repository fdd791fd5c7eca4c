package ws

import (
	"context"
	"sync"
	"time"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
	"github.com/gorilla/websocket"
)

type CloseReason string

const (
	ReasonWriteError CloseReason = "write_error"
	ReasonPingError  CloseReason = "ping_error"
	ReasonReadError  CloseReason = "read_error"
	ReasonReplaced   CloseReason = "replaced_by_new_connection"
	ReasonShutdown   CloseReason = "server_shutdown"
	ReasonBufferFull CloseReason = "buffer_full"
	ReasonTimeout    CloseReason = "timeout"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	maxMessage = 4096
	sendBuffer = 256
)

// Connection is one player's websocket subscription to one game.
type Connection struct {
	UserID    int64
	GameID    string
	Conn      *websocket.Conn
	Send      chan []byte
	manager   *Manager
	closeOnce sync.Once
}

// Manager tracks connections grouped into per-game rooms. A player holds at
// most one connection per game; a newer one replaces the older.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]map[int64]*Connection
}

func NewManager() *Manager {
	return &Manager{
		rooms: make(map[string]map[int64]*Connection),
	}
}

// Register adds conn to the game's room.
func (m *Manager) Register(conn *websocket.Conn, userID int64, gameID string) *Connection {
	c := &Connection{
		UserID:  userID,
		GameID:  gameID,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		manager: m,
	}

	m.mu.Lock()
	room, ok := m.rooms[gameID]
	if !ok {
		room = make(map[int64]*Connection)
		m.rooms[gameID] = room
	}
	old := room[userID]
	room[userID] = c
	m.mu.Unlock()

	if old != nil {
		old.CloseWithReason(ReasonReplaced, nil)
	}
	return c
}

// Unregister drops c unless it was already replaced.
func (m *Manager) Unregister(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[c.GameID]
	if !ok {
		return
	}
	if room[c.UserID] == c {
		delete(room, c.UserID)
	}
	if len(room) == 0 {
		delete(m.rooms, c.GameID)
	}
}

// BroadcastToGame sends message to every connection in the game's room.
// Slow clients whose buffer is full are disconnected.
func (m *Manager) BroadcastToGame(gameID string, message []byte) {
	m.mu.RLock()
	room := m.rooms[gameID]
	targets := make([]*Connection, 0, len(room))
	for _, c := range room {
		targets = append(targets, c)
	}
	m.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.Send <- message:
		default:
			c.CloseWithReason(ReasonBufferFull, nil)
		}
	}
}

// SendToUser sends message to one player's connection in a game.
func (m *Manager) SendToUser(gameID string, userID int64, message []byte) {
	m.mu.RLock()
	c, ok := m.rooms[gameID][userID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case c.Send <- message:
		return
	default:
	}

	select {
	case c.Send <- message:
	case <-time.After(5 * time.Second):
		c.CloseWithReason(ReasonTimeout, nil)
	}
}

// RoomSize reports how many connections watch a game.
func (m *Manager) RoomSize(gameID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[gameID])
}

// Shutdown closes every connection.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	var all []*Connection
	for _, room := range m.rooms {
		for _, c := range room {
			all = append(all, c)
		}
	}
	m.rooms = make(map[string]map[int64]*Connection)
	m.mu.Unlock()

	for _, c := range all {
		c.CloseWithReason(ReasonShutdown, nil)
	}
}

// CloseWithReason closes the underlying socket once.
func (c *Connection) CloseWithReason(r CloseReason, err error) {
	c.closeOnce.Do(func() {
		ev := logger.Info(context.Background())
		if err != nil {
			ev = logger.Warn(context.Background()).Err(err)
		}
		ev.Int64("user_id", c.UserID).
			Str("game_id", c.GameID).
			Str("reason", string(r)).
			Msg("ws connection closed")
		c.Conn.Close()
	})
}

// WritePump forwards queued messages to the socket and keeps it alive.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.Send:
			// a client that never reads must not pin the writer
			c.Conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.CloseWithReason(ReasonWriteError, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.CloseWithReason(ReasonPingError, err)
				return
			}
		}
	}
}

// ReadPump hands inbound messages to handle until the socket fails.
func (c *Connection) ReadPump(handle func(c *Connection, message []byte)) {
	var readErr error
	defer func() {
		c.manager.Unregister(c)
		c.CloseWithReason(ReasonReadError, readErr)
	}()

	c.Conn.SetReadLimit(maxMessage)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				readErr = err
			}
			return
		}
		handle(c, message)
	}
}
