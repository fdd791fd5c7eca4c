package domain

import "context"

// CreateGameInput carries the host's choices for a new game. Zero values
// fall back to configured defaults.
type CreateGameInput struct {
	HostID        int64
	RoundsPerGame int
	TimePerRound  int
	ChillMode     bool
}

// PartyGameUseCase is the surface adapters (HTTP, websocket, CLI) call.
type PartyGameUseCase interface {
	CreateGame(ctx context.Context, in CreateGameInput) (*Game, error)
	JoinGame(ctx context.Context, gameID string, playerID int64, spectator bool) (*GamePlayer, error)
	SubmitQuestion(ctx context.Context, gameID string, playerID int64, question, answer string) (*Round, error)
	FlagRound(ctx context.Context, gameID, roundID string, playerID int64) error
	GetGameState(ctx context.Context, gameID string) (*GameView, error)
	AuthorizeHost(ctx context.Context, gameID string, playerID int64) error
	CanWatch(ctx context.Context, gameID string, playerID int64) (bool, error)

	TransitionGame(ctx context.Context, gameID string, target GameState, roundID string) (*TransitionResult, error)
	AvailableTransitions(ctx context.Context, gameID string, roundID string) ([]GameState, error)
	CanTransitionTo(ctx context.Context, gameID string, target GameState, roundID string) (bool, error)

	DrawNextQuestion(ctx context.Context, gameID string) (*DrawResult, error)
	SetTarget(ctx context.Context, gameID, roundID string, hostID, targetID int64) (*Round, error)
	AdvanceRoundPhase(ctx context.Context, gameID, roundID string, hostID int64) (*Round, error)
	TakeWager(ctx context.Context, gameID, roundID string, playerID int64, answer string, bet *int64) (*WagerResult, error)
	PerformAction(ctx context.Context, gameID, roundID string, playerID int64, action ActionType, targetID *int64) (*ActionResult, error)
	FinalizeGame(ctx context.Context, gameID string) (*FinaleResult, error)
	ResetGame(ctx context.Context, gameID string, hostID int64) (*Game, error)

	GetBalance(ctx context.Context, playerID int64) (*TokenBalance, error)
	ListTransactions(ctx context.Context, playerID int64) ([]*TokenTransaction, error)
	AuditLedger(ctx context.Context) ([]LedgerAudit, error)
}
