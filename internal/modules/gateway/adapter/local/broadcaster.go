// Package local provides local adapters for the gateway module.
package local

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/gateway/domain"
	partyDomain "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
)

// Broadcaster pushes party game events to the websocket clients of this
// process.
type Broadcaster struct {
	gateway domain.GatewayBroadcaster
}

func NewBroadcaster(gateway domain.GatewayBroadcaster) *Broadcaster {
	return &Broadcaster{
		gateway: gateway,
	}
}

// Publish implements the party game broadcast sink.
func (b *Broadcaster) Publish(_ context.Context, event partyDomain.Event) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	b.gateway.BroadcastToGame(event.GameID, msg)
	return nil
}

// Deliver forwards an already encoded event, as received from another
// process.
func (b *Broadcaster) Deliver(gameID string, payload []byte) {
	b.gateway.BroadcastToGame(gameID, payload)
}
