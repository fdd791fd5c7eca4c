package domain

import "context"

// GameRepository persists games.
type GameRepository interface {
	Create(ctx context.Context, game *Game) error
	Get(ctx context.Context, id string) (*Game, error)
	// GetForUpdate reads the game with an exclusive row lock.
	GetForUpdate(ctx context.Context, id string) (*Game, error)
	Update(ctx context.Context, game *Game) error
	// NextRoundNumber bumps and returns the game's round counter.
	NextRoundNumber(ctx context.Context, id string) (int, error)
}

// PendingQuery selects the next pending deck round.
type PendingQuery struct {
	GameID string
	// Chill restricts candidates to rounds nobody flagged.
	Chill bool
	// SkipLocked makes the query lock the row and skip rows other
	// transactions have locked.
	SkipLocked bool
}

// RoundRepository persists rounds.
type RoundRepository interface {
	Create(ctx context.Context, round *Round) error
	Get(ctx context.Context, id string) (*Round, error)
	GetForUpdate(ctx context.Context, id string) (*Round, error)
	Update(ctx context.Context, round *Round) error
	ListByGame(ctx context.Context, gameID string) ([]*Round, error)
	// FindActive returns the lowest numbered active played round, or nil.
	FindActive(ctx context.Context, gameID string) (*Round, error)
	// NextPending returns the oldest pending deck round, or nil.
	NextPending(ctx context.Context, q PendingQuery) (*Round, error)
	// Claim marks a pending deck round consumed. It returns false when
	// another caller claimed it first.
	Claim(ctx context.Context, id string) (bool, error)
	Counts(ctx context.Context, gameID string) (RoundCounts, error)
	// PendingByAuthor counts undrawn deck rounds per author.
	PendingByAuthor(ctx context.Context, gameID string) (map[int64]int64, error)
	CancelPending(ctx context.Context, gameID string) (int64, error)
	IncrementFlags(ctx context.Context, id string) error
	// ReturnToDeck cancels drawn copies and puts every played deck round
	// back into the pending pool.
	ReturnToDeck(ctx context.Context, gameID string) (int64, error)
}

// PlayerRepository persists game membership.
type PlayerRepository interface {
	Add(ctx context.Context, player *GamePlayer) error
	Get(ctx context.Context, gameID string, playerID int64) (*GamePlayer, error)
	// List returns members in join order.
	List(ctx context.Context, gameID string) ([]*GamePlayer, error)
	CountContestants(ctx context.Context, gameID string) (int64, error)
	AddScore(ctx context.Context, gameID string, playerID int64, delta int64) error
	Update(ctx context.Context, player *GamePlayer) error
	ResetScores(ctx context.Context, gameID string) error
}

// LedgerRepository persists token balances and the transaction log.
type LedgerRepository interface {
	// OpenBalance inserts an empty balance row and reports whether it was new.
	OpenBalance(ctx context.Context, playerID int64) (bool, error)
	GetBalance(ctx context.Context, playerID int64) (*TokenBalance, error)
	GetBalanceForUpdate(ctx context.Context, playerID int64) (*TokenBalance, error)
	SaveBalance(ctx context.Context, balance *TokenBalance) error
	AppendTransaction(ctx context.Context, tx *TokenTransaction) error
	// ListTransactions returns a player's log oldest first.
	ListTransactions(ctx context.Context, playerID int64) ([]*TokenTransaction, error)
	ListBalances(ctx context.Context) ([]*TokenBalance, error)
}

// Repositories groups the repositories bound to one database handle.
type Repositories interface {
	Games() GameRepository
	Rounds() RoundRepository
	Players() PlayerRepository
	Ledger() LedgerRepository
}

// Store runs work against the database, optionally inside a transaction.
type Store interface {
	Repositories
	// Transaction commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(repos Repositories) error) error
	Migrate(ctx context.Context) error
}
