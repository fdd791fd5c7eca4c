package domain

import "time"

// TransitionResult is returned by a successful state transition.
type TransitionResult struct {
	GameID    string      `json:"gameId"`
	From      GameState   `json:"from"`
	To        GameState   `json:"to"`
	Status    GameStatus  `json:"status"`
	Round     *Round      `json:"round,omitempty"`
	Draw      *DrawResult `json:"draw,omitempty"` // set when the transition drew a question
	Available []GameState `json:"availableTransitions"`
}

// DrawResult summarises a freshly drawn round.
type DrawResult struct {
	Round          *Round `json:"round"`
	SourceRoundID  string `json:"sourceRoundId"`
	Author         string `json:"author"` // anonymized
	TargetPlayerID int64  `json:"targetPlayerId"`
	PlayedRounds   int64  `json:"playedRounds"`
	RoundsPerGame  int    `json:"roundsPerGame"`
}

// WagerResult is returned by a committed shot.
type WagerResult struct {
	RoundID       string     `json:"roundId"`
	PlayerID      int64      `json:"playerId"`
	Answer        string     `json:"answer"`
	Bet           int64      `json:"bet"`
	BalanceBefore int64      `json:"balanceBefore"`
	BalanceAfter  int64      `json:"balanceAfter"`
	TransactionID string     `json:"transactionId"`
	Phase         RoundPhase `json:"phase"`
	ChillMode     bool       `json:"chillMode"`
}

// ScoreChange brackets one player's score mutation.
type ScoreChange struct {
	PlayerID int64 `json:"playerId"`
	Before   int64 `json:"before"`
	After    int64 `json:"after"`
	Delta    int64 `json:"delta"`
}

// RoundStatePatch is the part of the round data an action touched.
type RoundStatePatch struct {
	Action   ActionRecord    `json:"action"`
	Forced   map[int64]int64 `json:"forced"`
	Shielded map[int64]bool  `json:"shielded"`
}

// ActionResult is returned by a committed action.
type ActionResult struct {
	Success  bool            `json:"success"`
	Action   ActionType      `json:"action"`
	Result   FlipResult      `json:"result"`
	PlayerID int64           `json:"playerId"`
	Changes  []ScoreChange   `json:"scoreChanges"`
	Patch    RoundStatePatch `json:"roundState"`
}

// RankedPlayer is one row of the final standings.
type RankedPlayer struct {
	Rank           int   `json:"rank"`
	PlayerID       int64 `json:"playerId"`
	BaseScore      int64 `json:"baseScore"`
	RoundBonus     int64 `json:"roundBonus"`
	FinalScore     int64 `json:"finalScore"`
	CorrectAnswers int   `json:"correctAnswers"`
	TotalAnswers   int   `json:"totalAnswers"`
}

// TokenGrant is a finale credit for undrawn authored rounds.
type TokenGrant struct {
	PlayerID      int64  `json:"playerId"`
	UnusedRounds  int64  `json:"unusedRounds"`
	Amount        int64  `json:"amount"`
	BalanceBefore int64  `json:"balanceBefore"`
	BalanceAfter  int64  `json:"balanceAfter"`
	TransactionID string `json:"transactionId"`
}

// FinaleResult is the settled outcome of a game.
type FinaleResult struct {
	GameID           string         `json:"gameId"`
	WinnerID         int64          `json:"winnerId"`
	Rankings         []RankedPlayer `json:"rankings"`
	Grants           []TokenGrant   `json:"tokenGrants"`
	DeckUsagePercent int64          `json:"deckUsagePercent"`
	CancelledRounds  int64          `json:"cancelledRounds"`
	FinalizedAt      time.Time      `json:"finalizedAt"`
}

// GameView is the read projection of a game.
type GameView struct {
	Game                 *Game         `json:"game"`
	State                GameState     `json:"state"`
	Players              []*GamePlayer `json:"players"`
	Rounds               []*Round      `json:"rounds"`
	Counts               RoundCounts   `json:"counts"`
	AvailableTransitions []GameState   `json:"availableTransitions"`
}
