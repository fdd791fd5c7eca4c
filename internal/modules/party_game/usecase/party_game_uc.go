// Package usecase implements the party game session core: allocation, wagers,
// actions, finale and the session operations around them.
package usecase

import (
	"context"
	"math/rand"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/machine"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/anonymizer"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
)

const (
	MinBet     = 1
	MaxBet     = 100
	DefaultBet = 1

	minTimePerRound = 5
	maxTimePerRound = 600
)

// Settings are the tunables loaded from configuration.
type Settings struct {
	MinPlayers           int
	DefaultRoundsPerGame int
	MaxRoundsPerGame     int
	DefaultTimePerRound  int
	StartingBalance      int64
	MaxQuestionLength    int
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		MinPlayers:           2,
		DefaultRoundsPerGame: 5,
		MaxRoundsPerGame:     50,
		DefaultTimePerRound:  30,
		StartingBalance:      10,
		MaxQuestionLength:    500,
	}
}

// PartyGameUseCase wires the session core together.
type PartyGameUseCase struct {
	store       domain.Store
	machine     *machine.StateMachine
	broadcaster domain.Broadcaster
	anon        *anonymizer.Anonymizer
	flipper     domain.Flipper
	settings    Settings
}

// NewPartyGameUseCase creates the use case. A nil flipper uses math/rand.
func NewPartyGameUseCase(
	store domain.Store,
	sm *machine.StateMachine,
	broadcaster domain.Broadcaster,
	anon *anonymizer.Anonymizer,
	flipper domain.Flipper,
	settings Settings,
) *PartyGameUseCase {
	if flipper == nil {
		flipper = RandomFlipper{}
	}
	return &PartyGameUseCase{
		store:       store,
		machine:     sm,
		broadcaster: broadcaster,
		anon:        anon,
		flipper:     flipper,
		settings:    settings,
	}
}

var _ domain.PartyGameUseCase = (*PartyGameUseCase)(nil)

// RandomFlipper flips with math/rand.
type RandomFlipper struct{}

func (RandomFlipper) Flip(rate float64) bool {
	return rand.Float64() < rate
}

func (uc *PartyGameUseCase) publish(ctx context.Context, event domain.Event) {
	if uc.broadcaster == nil {
		return
	}
	if err := uc.broadcaster.Publish(ctx, event); err != nil {
		logger.Warn(ctx).Err(err).Str("event", string(event.Type)).Msg("failed to broadcast event")
	}
}

// TransitionGame delegates to the state machine.
func (uc *PartyGameUseCase) TransitionGame(ctx context.Context, gameID string, target domain.GameState, roundID string) (*domain.TransitionResult, error) {
	res, err := uc.machine.TransitionTo(ctx, gameID, target, roundID)
	if err != nil {
		return nil, err
	}
	if res.Draw != nil {
		uc.announceDraw(logger.WithGame(ctx, gameID, ""), res)
	}
	return res, nil
}

func (uc *PartyGameUseCase) AvailableTransitions(ctx context.Context, gameID string, roundID string) ([]domain.GameState, error) {
	return uc.machine.AvailableTransitions(ctx, gameID, roundID)
}

func (uc *PartyGameUseCase) CanTransitionTo(ctx context.Context, gameID string, target domain.GameState, roundID string) (bool, error) {
	return uc.machine.CanTransitionTo(ctx, gameID, target, roundID)
}

// loadRoundInGame reads a round with its row locked and checks that it
// belongs to gameID.
func loadRoundInGame(ctx context.Context, repos domain.Repositories, gameID, roundID string) (*domain.Round, error) {
	round, err := repos.Rounds().GetForUpdate(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.GameID != gameID {
		return nil, domain.ErrRoundNotInGame.With("", map[string]string{"game_id": gameID, "round_id": roundID})
	}
	return round, nil
}

// loadContestant reads a non-spectator member of the game.
func loadContestant(ctx context.Context, repos domain.Repositories, gameID string, playerID int64) (*domain.GamePlayer, error) {
	player, err := repos.Players().Get(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if player.IsSpectator {
		return nil, domain.ErrSpectatorNotAllowed
	}
	return player, nil
}
