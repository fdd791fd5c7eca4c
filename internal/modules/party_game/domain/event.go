package domain

import (
	"context"
	"time"
)

// EventType names a state change pushed to subscribers.
type EventType string

const (
	EventPlayerJoined      EventType = "player_joined"
	EventStateTransition   EventType = "state_transition"
	EventQuestionCreated   EventType = "question_created"
	EventQuestionDrawn     EventType = "question_drawn"
	EventQuestionFlagged   EventType = "question_flagged"
	EventTargetSet         EventType = "target_set"
	EventRoundPhaseChanged EventType = "round_phase_changed"
	EventShotTaken         EventType = "shot_taken"
	EventActionPerformed   EventType = "action_performed"
	EventGameFinale        EventType = "game_finale"
	EventGameReset         EventType = "game_reset"
)

// Event is the envelope every broadcast carries.
type Event struct {
	Type      EventType   `json:"type"`
	GameID    string      `json:"gameId"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"` // unix millis
}

// NewEvent stamps an envelope with the current time.
func NewEvent(t EventType, gameID string, data interface{}) Event {
	return Event{
		Type:      t,
		GameID:    gameID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Broadcaster pushes committed state changes to subscribers.
type Broadcaster interface {
	Publish(ctx context.Context, event Event) error
}
