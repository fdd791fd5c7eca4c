package domain

import (
	"context"
)

// GatewayUseCase handles commands sent over a game's websocket.
type GatewayUseCase interface {
	// HandleMessage runs one command for userID in gameID and returns the
	// reply for that user, if any.
	HandleMessage(ctx context.Context, gameID string, userID int64, message []byte) ([]byte, error)
}

// GatewayBroadcaster delivers encoded messages to connected clients.
type GatewayBroadcaster interface {
	// SendToUser sends a message to one player watching a game
	SendToUser(gameID string, userID int64, message []byte)

	// BroadcastToGame sends a message to everyone watching a game
	BroadcastToGame(gameID string, message []byte)
}
