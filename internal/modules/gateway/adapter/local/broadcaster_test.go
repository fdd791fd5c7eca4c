package local

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	partyDomain "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
)

type sent struct {
	gameID string
	msg    []byte
}

type fakeGateway struct {
	broadcasts []sent
}

func (f *fakeGateway) SendToUser(string, int64, []byte) {}

func (f *fakeGateway) BroadcastToGame(gameID string, message []byte) {
	f.broadcasts = append(f.broadcasts, sent{gameID: gameID, msg: message})
}

func TestPublishEncodesEvent(t *testing.T) {
	gw := &fakeGateway{}
	b := NewBroadcaster(gw)

	ev := partyDomain.NewEvent(partyDomain.EventShotTaken, "g1", map[string]interface{}{"bet": 3})
	require.NoError(t, b.Publish(context.Background(), ev))
	require.Len(t, gw.broadcasts, 1)
	assert.Equal(t, "g1", gw.broadcasts[0].gameID)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(gw.broadcasts[0].msg, &got))
	assert.Equal(t, "shot_taken", got["type"])
	assert.Equal(t, "g1", got["gameId"])

	b.Deliver("g2", []byte(`{}`))
	assert.Equal(t, "g2", gw.broadcasts[1].gameID)
}

func TestPublishUnencodable(t *testing.T) {
	gw := &fakeGateway{}
	b := NewBroadcaster(gw)

	err := b.Publish(context.Background(), partyDomain.NewEvent(partyDomain.EventShotTaken, "g1", make(chan int)))
	assert.Error(t, err)
	assert.Empty(t, gw.broadcasts)
}
