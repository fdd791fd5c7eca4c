package domain

import (
	"time"

	"gorm.io/datatypes"
)

// GameStatus is the coarse lifecycle status persisted on the game row.
type GameStatus string

const (
	GameStatusWaiting   GameStatus = "waiting"
	GameStatusPlaying   GameStatus = "playing"
	GameStatusFinished  GameStatus = "finished"
	GameStatusCancelled GameStatus = "cancelled"
)

// GameState is the fine-grained session phase driven by the state machine.
type GameState string

const (
	StateLobby         GameState = "LOBBY"
	StateQuestionBuild GameState = "QUESTION_BUILD"
	StateRoundActive   GameState = "ROUND_ACTIVE"
	StateRoundResults  GameState = "ROUND_RESULTS"
	StateGameFinished  GameState = "GAME_FINISHED"
	StateCancelled     GameState = "CANCELLED"
)

// AllStates lists every session phase.
var AllStates = []GameState{
	StateLobby,
	StateQuestionBuild,
	StateRoundActive,
	StateRoundResults,
	StateGameFinished,
	StateCancelled,
}

// ParseGameState validates a client supplied state name.
func ParseGameState(s string) (GameState, error) {
	for _, st := range AllStates {
		if string(st) == s {
			return st, nil
		}
	}
	return "", ErrUnknownState.With("unknown game state: "+s, map[string]string{"state": s})
}

// Metadata keys stored on Game.Metadata.
const (
	MetaPhase           = "phase"
	MetaCreatedAt       = "createdAt"
	MetaQuestionBuildAt = "questionBuildAt"
	MetaStartedAt       = "startedAt"
	MetaEndedAt         = "endedAt"
	MetaCancelledAt     = "cancelledAt"
	MetaResetAt         = "resetAt"
	MetaFinale          = "finale"
)

// Game is a party game session.
type Game struct {
	ID            string            `json:"id" gorm:"primaryKey;type:varchar(36)"`
	HostID        int64             `json:"hostId" gorm:"column:host_id;index;not null"`
	Status        GameStatus        `json:"status" gorm:"column:status;type:varchar(16);index;not null"`
	RoundsPerGame int               `json:"roundsPerGame" gorm:"column:rounds_per_game;not null"`
	TimePerRound  int               `json:"timePerRound" gorm:"column:time_per_round;not null"`
	ChillMode     bool              `json:"chillMode" gorm:"column:chill_mode;not null;default:false"`
	RoundSeq      int               `json:"-" gorm:"column:round_seq;not null;default:0"`
	Metadata      datatypes.JSONMap `json:"metadata" gorm:"column:metadata"`
	CreatedAt     time.Time         `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}

func (Game) TableName() string {
	return "games"
}

// State derives the session phase. A terminal status wins over the recorded
// phase, and a missing phase falls back to the coarse status.
func (g *Game) State() GameState {
	switch g.Status {
	case GameStatusCancelled:
		return StateCancelled
	case GameStatusFinished:
		return StateGameFinished
	}
	if phase, ok := g.Metadata[MetaPhase].(string); ok && phase != "" {
		return GameState(phase)
	}
	if g.Status == GameStatusPlaying {
		return StateRoundActive
	}
	return StateLobby
}

// SetMeta writes a metadata key, allocating the map when needed.
func (g *Game) SetMeta(key string, value interface{}) {
	if g.Metadata == nil {
		g.Metadata = datatypes.JSONMap{}
	}
	g.Metadata[key] = value
}

// Stamp records t under key as an RFC3339 timestamp.
func (g *Game) Stamp(key string, t time.Time) {
	g.SetMeta(key, t.UTC().Format(time.RFC3339Nano))
}

// IsClosed reports whether the game no longer accepts play.
func (g *Game) IsClosed() bool {
	return g.Status == GameStatusFinished || g.Status == GameStatusCancelled
}

// AcceptsQuestions reports whether players may still add to the deck.
func (g *Game) AcceptsQuestions() bool {
	s := g.State()
	return s == StateLobby || s == StateQuestionBuild
}
