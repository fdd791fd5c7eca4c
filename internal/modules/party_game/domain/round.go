package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// RoundStatus is the persisted status of a round.
type RoundStatus string

const (
	RoundStatusPending   RoundStatus = "pending"
	RoundStatusActive    RoundStatus = "active"
	RoundStatusFinished  RoundStatus = "finished"
	RoundStatusCancelled RoundStatus = "cancelled"
)

// RoundPhase is the in-round phase kept inside RoundData.
type RoundPhase string

const (
	PhaseResponse     RoundPhase = "response"
	PhaseRevealGamble RoundPhase = "reveal_gamble"
)

// Shot is the responder's wager on their answer.
type Shot struct {
	PlayerID      int64     `json:"playerId"`
	Answer        string    `json:"answer"`
	Bet           int64     `json:"bet"`
	TransactionID string    `json:"transactionId"`
	TakenAt       time.Time `json:"takenAt"`
}

// ActionRecord is one player's action in a round.
type ActionRecord struct {
	Action         ActionType      `json:"action"`
	TargetPlayerID *int64          `json:"targetPlayerId,omitempty"`
	Result         FlipResult      `json:"result"`
	Deltas         map[int64]int64 `json:"deltas,omitempty"`
	PerformedAt    time.Time       `json:"performedAt"`
}

// RoundState is the transient in-round data stored as JSON on the round.
type RoundState struct {
	Phase          RoundPhase             `json:"phase,omitempty"`
	TargetPlayerID int64                  `json:"targetPlayerId,omitempty"`
	Shot           *Shot                  `json:"shot,omitempty"`
	Actions        map[int64]ActionRecord `json:"actions,omitempty"`
	Forced         map[int64]int64        `json:"forced,omitempty"`   // target -> actor
	Shielded       map[int64]bool         `json:"shielded,omitempty"` // actor -> true
	Results        map[int64]int64        `json:"results,omitempty"`  // player -> score delta
	ActivatedAt    *time.Time             `json:"activatedAt,omitempty"`
	FinishedAt     *time.Time             `json:"finishedAt,omitempty"`
}

func (s *RoundState) init() {
	if s.Actions == nil {
		s.Actions = map[int64]ActionRecord{}
	}
	if s.Forced == nil {
		s.Forced = map[int64]int64{}
	}
	if s.Shielded == nil {
		s.Shielded = map[int64]bool{}
	}
	if s.Results == nil {
		s.Results = map[int64]int64{}
	}
}

// Round is one question-and-resolution cycle. Deck rounds are submitted by
// players; drawn rounds are active copies pointing back at their source.
type Round struct {
	ID            string                         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	GameID        string                         `json:"gameId" gorm:"column:game_id;type:varchar(36);not null;uniqueIndex:idx_rounds_game_number,priority:1"`
	RoundNumber   int                            `json:"roundNumber" gorm:"column:round_number;not null;uniqueIndex:idx_rounds_game_number,priority:2"`
	Status        RoundStatus                    `json:"status" gorm:"column:status;type:varchar(16);index;not null"`
	AuthorID      int64                          `json:"-" gorm:"column:author_id;index;not null"`
	Question      string                         `json:"question" gorm:"column:question;type:text;not null"`
	Answer        string                         `json:"-" gorm:"column:answer;type:text"`
	FlagCount     int                            `json:"flagCount" gorm:"column:flag_count;not null;default:0"`
	SourceRoundID *string                        `json:"sourceRoundId,omitempty" gorm:"column:source_round_id;type:varchar(36);index"`
	Consumed      bool                           `json:"consumed" gorm:"column:consumed;not null;default:false"`
	RoundData     datatypes.JSONType[RoundState] `json:"roundData" gorm:"column:round_data"`
	CreatedAt     time.Time                      `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                      `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}

func (Round) TableName() string {
	return "rounds"
}

// State returns the round data with all maps allocated.
func (r *Round) State() RoundState {
	s := r.RoundData.Data()
	s.init()
	return s
}

// SetState replaces the round data.
func (r *Round) SetState(s RoundState) {
	r.RoundData = datatypes.NewJSONType(s)
}

// IsSeeded reports whether the round is part of the authored deck.
func (r *Round) IsSeeded() bool {
	return r.SourceRoundID == nil
}

// IsCorrect compares a shot answer with the expected answer. Rounds without
// an expected answer never count as correct.
func (r *Round) IsCorrect(answer string) bool {
	expected := strings.TrimSpace(r.Answer)
	if expected == "" {
		return false
	}
	return strings.EqualFold(expected, strings.TrimSpace(answer))
}

// Activate puts the round into play in the response phase.
func (r *Round) Activate(targetPlayerID int64, now time.Time) {
	s := r.State()
	s.Phase = PhaseResponse
	if s.TargetPlayerID == 0 {
		s.TargetPlayerID = targetPlayerID
	}
	s.ActivatedAt = &now
	r.Status = RoundStatusActive
	r.SetState(s)
}

// Finish closes the round and records its result deltas. A correct shot
// earns the responder one point plus the tokens they staked.
func (r *Round) Finish(now time.Time) {
	s := r.State()
	if s.Shot != nil && r.IsCorrect(s.Shot.Answer) {
		s.Results[s.Shot.PlayerID] += 1 + s.Shot.Bet
	}
	s.FinishedAt = &now
	r.Status = RoundStatusFinished
	r.SetState(s)
}

// PickResponder rotates the responder through the contestants in join
// order, based on how many rounds were already played.
func PickResponder(players []*GamePlayer, played int64) int64 {
	contestants := make([]int64, 0, len(players))
	for _, p := range players {
		if !p.IsSpectator {
			contestants = append(contestants, p.PlayerID)
		}
	}
	if len(contestants) == 0 {
		return 0
	}
	return contestants[played%int64(len(contestants))]
}

// RoundCounts summarises the rounds of one game.
type RoundCounts struct {
	SeededTotal    int64 `json:"seededTotal"`    // deck rounds
	SeededUsed     int64 `json:"seededUsed"`     // deck rounds that reached active or finished
	Active         int64 `json:"active"`         // played rounds currently active
	FinishedPlayed int64 `json:"finishedPlayed"` // played rounds finished
}

// Played returns the number of rounds that were put into play.
func (c RoundCounts) Played() int64 {
	return c.Active + c.FinishedPlayed
}

// DeckUsagePercent floors the used share of the deck. An empty deck is 0%.
func (c RoundCounts) DeckUsagePercent() int64 {
	if c.SeededTotal == 0 {
		return 0
	}
	return c.SeededUsed * 100 / c.SeededTotal
}

// MinDeckUsagePercent is the finale floor for deck usage.
const MinDeckUsagePercent = 50

// DeckUsageMet compares without rounding so 50.0% passes exactly.
func (c RoundCounts) DeckUsageMet() bool {
	return c.SeededTotal > 0 && c.SeededUsed*100 >= c.SeededTotal*MinDeckUsagePercent
}
