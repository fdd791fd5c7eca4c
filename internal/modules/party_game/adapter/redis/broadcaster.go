// Package redis fans party game events out across processes over a redis
// pub/sub channel.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
)

// DefaultChannel carries every game's events.
const DefaultChannel = "party_game:events"

// Publisher is a domain.Broadcaster that publishes to redis. Every process,
// the publishing one included, receives the event through its Subscriber.
type Publisher struct {
	client  *redis.Client
	channel string
}

func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// Deliverer hands an encoded event to local websocket clients.
type Deliverer interface {
	Deliver(gameID string, payload []byte)
}

// Subscriber relays events from the channel to local clients.
type Subscriber struct {
	client  *redis.Client
	channel string
	local   Deliverer
}

func NewSubscriber(client *redis.Client, channel string, local Deliverer) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Subscriber{client: client, channel: channel, local: local}
}

// Run blocks relaying messages until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	// block until redis confirms the subscription
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}
	logger.Info(ctx).Str("channel", s.channel).Msg("📡 [Relay] subscribed")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			s.relay(ctx, []byte(msg.Payload))
		}
	}
}

func (s *Subscriber) relay(ctx context.Context, payload []byte) {
	gameID, err := gameIDOf(payload)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("📡 [Relay] dropping malformed event")
		return
	}
	s.local.Deliver(gameID, payload)
}

func gameIDOf(payload []byte) (string, error) {
	var head struct {
		GameID string `json:"gameId"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return "", err
	}
	if head.GameID == "" {
		return "", errors.New("event has no gameId")
	}
	return head.GameID, nil
}
