package usecase

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CreateGame opens a new game in the lobby with the host as first player.
func (uc *PartyGameUseCase) CreateGame(ctx context.Context, in domain.CreateGameInput) (*domain.Game, error) {
	ctx = logger.WithFields(ctx, map[string]interface{}{
		"host_id": in.HostID,
	})

	if in.RoundsPerGame == 0 {
		in.RoundsPerGame = uc.settings.DefaultRoundsPerGame
	}
	if in.TimePerRound == 0 {
		in.TimePerRound = uc.settings.DefaultTimePerRound
	}
	if in.RoundsPerGame < 1 || in.RoundsPerGame > uc.settings.MaxRoundsPerGame {
		return nil, domain.Invalid("roundsPerGame must be between 1 and %d", uc.settings.MaxRoundsPerGame)
	}
	if in.TimePerRound < minTimePerRound || in.TimePerRound > maxTimePerRound {
		return nil, domain.Invalid("timePerRound must be between %d and %d seconds", minTimePerRound, maxTimePerRound)
	}

	game := &domain.Game{
		ID:            uuid.NewString(),
		HostID:        in.HostID,
		Status:        domain.GameStatusWaiting,
		RoundsPerGame: in.RoundsPerGame,
		TimePerRound:  in.TimePerRound,
		ChillMode:     in.ChillMode,
		Metadata:      datatypes.JSONMap{domain.MetaPhase: string(domain.StateLobby)},
	}
	game.Stamp(domain.MetaCreatedAt, time.Now())

	err := uc.store.Transaction(ctx, func(repos domain.Repositories) error {
		if err := repos.Games().Create(ctx, game); err != nil {
			return err
		}
		if err := repos.Players().Add(ctx, &domain.GamePlayer{
			GameID:   game.ID,
			PlayerID: in.HostID,
			IsHost:   true,
		}); err != nil {
			return err
		}
		return uc.openAccount(ctx, repos, in.HostID, game.ID)
	})
	if err != nil {
		logger.Error(ctx).Err(err).Msg("failed to create game")
		return nil, err
	}

	logger.Info(ctx).
		Str("game_id", game.ID).
		Int("rounds_per_game", game.RoundsPerGame).
		Bool("chill_mode", game.ChillMode).
		Msg("🎉 [Session] game created")
	return game, nil
}

// JoinGame adds a player or spectator. Joining twice returns the existing
// membership.
func (uc *PartyGameUseCase) JoinGame(ctx context.Context, gameID string, playerID int64, spectator bool) (*domain.GamePlayer, error) {
	ctx = logger.WithFields(ctx, map[string]interface{}{
		"game_id":   gameID,
		"player_id": playerID,
	})

	var member *domain.GamePlayer
	created := false
	err := uc.store.Transaction(ctx, func(repos domain.Repositories) error {
		game, err := repos.Games().Get(ctx, gameID)
		if err != nil {
			return err
		}
		if game.IsClosed() {
			return domain.ErrInvalidState.With("game is over", map[string]string{"state": string(game.State())})
		}

		existing, err := repos.Players().Get(ctx, gameID, playerID)
		if err == nil {
			member = existing
			return nil
		}
		if !errors.Is(err, domain.ErrPlayerNotInGame) {
			return err
		}

		if !spectator && !game.AcceptsQuestions() {
			return domain.ErrInvalidState.With("game already started, join as a spectator", map[string]string{"state": string(game.State())})
		}

		member = &domain.GamePlayer{
			GameID:      gameID,
			PlayerID:    playerID,
			IsSpectator: spectator,
		}
		if err := repos.Players().Add(ctx, member); err != nil {
			return err
		}
		created = true
		if spectator {
			return nil
		}
		return uc.openAccount(ctx, repos, playerID, gameID)
	})
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("join rejected")
		return nil, err
	}

	if created {
		logger.Info(ctx).Bool("spectator", spectator).Msg("👋 [Session] player joined")
		uc.publish(ctx, domain.NewEvent(domain.EventPlayerJoined, gameID, map[string]interface{}{
			"playerId":    playerID,
			"isSpectator": spectator,
		}))
	}
	return member, nil
}

// SubmitQuestion adds an authored round to the deck while the game is still
// being set up.
func (uc *PartyGameUseCase) SubmitQuestion(ctx context.Context, gameID string, playerID int64, question, answer string) (*domain.Round, error) {
	ctx = logger.WithFields(ctx, map[string]interface{}{
		"game_id":   gameID,
		"player_id": playerID,
	})

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.Invalid("question text is required")
	}
	if utf8.RuneCountInString(question) > uc.settings.MaxQuestionLength {
		return nil, domain.Invalid("question is longer than %d characters", uc.settings.MaxQuestionLength)
	}

	var round *domain.Round
	err := uc.store.Transaction(ctx, func(repos domain.Repositories) error {
		game, err := repos.Games().Get(ctx, gameID)
		if err != nil {
			return err
		}
		if !game.AcceptsQuestions() {
			return domain.ErrInvalidState.With("questions can only be added before play starts", map[string]string{"state": string(game.State())})
		}
		if _, err := loadContestant(ctx, repos, gameID, playerID); err != nil {
			return err
		}

		number, err := repos.Games().NextRoundNumber(ctx, gameID)
		if err != nil {
			return err
		}

		round = &domain.Round{
			ID:          uuid.NewString(),
			GameID:      gameID,
			RoundNumber: number,
			Status:      domain.RoundStatusPending,
			AuthorID:    playerID,
			Question:    question,
			Answer:      strings.TrimSpace(answer),
		}
		return repos.Rounds().Create(ctx, round)
	})
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("question rejected")
		return nil, err
	}

	logger.Info(ctx).
		Str("round_id", round.ID).
		Int("round_number", round.RoundNumber).
		Msg("📝 [Session] question submitted")

	uc.publish(ctx, domain.NewEvent(domain.EventQuestionCreated, gameID, map[string]interface{}{
		"roundId":     round.ID,
		"roundNumber": round.RoundNumber,
		"author":      uc.anon.Token(playerID),
	}))
	return round, nil
}

// FlagRound bumps a round's moderation counter. Chill mode skips flagged
// rounds.
func (uc *PartyGameUseCase) FlagRound(ctx context.Context, gameID, roundID string, playerID int64) error {
	err := uc.store.Transaction(ctx, func(repos domain.Repositories) error {
		if _, err := repos.Players().Get(ctx, gameID, playerID); err != nil {
			return err
		}
		round, err := repos.Rounds().Get(ctx, roundID)
		if err != nil {
			return err
		}
		if round.GameID != gameID {
			return domain.ErrRoundNotInGame
		}
		return repos.Rounds().IncrementFlags(ctx, roundID)
	})
	if err != nil {
		return err
	}
	uc.publish(ctx, domain.NewEvent(domain.EventQuestionFlagged, gameID, map[string]interface{}{
		"roundId": roundID,
	}))
	return nil
}

// SetTarget lets the host choose the responder of the active round.
func (uc *PartyGameUseCase) SetTarget(ctx context.Context, gameID, roundID string, hostID, targetID int64) (*domain.Round, error) {
	ctx = logger.WithGame(ctx, gameID, roundID)

	var round *domain.Round
	err := uc.store.Transaction(ctx, func(repos domain.Repositories) error {
		if err := requireHost(ctx, repos, gameID, hostID); err != nil {
			return err
		}

		var err error
		round, err = loadRoundInGame(ctx, repos, gameID, roundID)
		if err != nil {
			return err
		}
		state := round.State()
		if round.Status != domain.RoundStatusActive {
			return domain.ErrRoundNotActive
		}
		if state.Phase != domain.PhaseResponse || state.Shot != nil {
			return domain.ErrWrongRoundPhase.With("target can only change before the shot", map[string]string{"phase": string(state.Phase)})
		}

		target, err := repos.Players().Get(ctx, gameID, targetID)
		if err != nil {
			if errors.Is(err, domain.ErrPlayerNotInGame) {
				return domain.ErrTargetNotFound
			}
			return err
		}
		if target.IsSpectator {
			return domain.ErrTargetIsSpectator
		}

		state.TargetPlayerID = targetID
		round.SetState(state)
		return repos.Rounds().Update(ctx, round)
	})
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("set target rejected")
		return nil, err
	}

	logger.Info(ctx).Int64("target_id", targetID).Msg("🎯 [Session] target set")
	uc.publish(ctx, domain.NewEvent(domain.EventTargetSet, gameID, map[string]interface{}{
		"roundId":        roundID,
		"targetPlayerId": targetID,
	}))
	return round, nil
}

// AdvanceRoundPhase closes the response window of the active round.
func (uc *PartyGameUseCase) AdvanceRoundPhase(ctx context.Context, gameID, roundID string, hostID int64) (*domain.Round, error) {
	var round *domain.Round
	err := uc.store.Transaction(ctx, func(repos domain.Repositories) error {
		if err := requireHost(ctx, repos, gameID, hostID); err != nil {
			return err
		}

		var err error
		round, err = loadRoundInGame(ctx, repos, gameID, roundID)
		if err != nil {
			return err
		}
		if round.Status != domain.RoundStatusActive {
			return domain.ErrRoundNotActive
		}
		state := round.State()
		if state.Phase != domain.PhaseResponse {
			return domain.ErrWrongRoundPhase.With("round already left the response phase", map[string]string{"phase": string(state.Phase)})
		}
		state.Phase = domain.PhaseRevealGamble
		round.SetState(state)
		return repos.Rounds().Update(ctx, round)
	})
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, domain.NewEvent(domain.EventRoundPhaseChanged, gameID, map[string]interface{}{
		"roundId": roundID,
		"phase":   domain.PhaseRevealGamble,
	}))
	return round, nil
}

// ResetGame sends an unfinished game back to the lobby: scores cleared,
// drawn rounds dropped and every played question returned to the deck.
// Tokens already staked stay spent.
func (uc *PartyGameUseCase) ResetGame(ctx context.Context, gameID string, hostID int64) (*domain.Game, error) {
	ctx = logger.WithGame(ctx, gameID, "")

	var (
		game     *domain.Game
		restored int64
	)
	err := uc.store.Transaction(ctx, func(repos domain.Repositories) error {
		var err error
		game, err = repos.Games().GetForUpdate(ctx, gameID)
		if err != nil {
			return err
		}
		if game.HostID != hostID {
			return domain.ErrNotHost
		}
		switch game.Status {
		case domain.GameStatusFinished:
			return domain.ErrAlreadyFinalized
		case domain.GameStatusCancelled:
			return domain.ErrInvalidState.With("cancelled games cannot be reset", nil)
		}

		restored, err = repos.Rounds().ReturnToDeck(ctx, gameID)
		if err != nil {
			return err
		}
		if err := repos.Players().ResetScores(ctx, gameID); err != nil {
			return err
		}

		game.Status = domain.GameStatusWaiting
		for _, key := range []string{domain.MetaQuestionBuildAt, domain.MetaStartedAt, domain.MetaEndedAt} {
			delete(game.Metadata, key)
		}
		game.SetMeta(domain.MetaPhase, string(domain.StateLobby))
		game.Stamp(domain.MetaResetAt, time.Now())
		return repos.Games().Update(ctx, game)
	})
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("reset rejected")
		return nil, err
	}

	logger.Info(ctx).Int64("restored_rounds", restored).Msg("♻️ [Session] game reset")
	uc.publish(ctx, domain.NewEvent(domain.EventGameReset, gameID, map[string]interface{}{
		"restoredRounds": restored,
		"state":          domain.StateLobby,
	}))
	return game, nil
}

// GetGameState assembles the read projection of a game.
func (uc *PartyGameUseCase) GetGameState(ctx context.Context, gameID string) (*domain.GameView, error) {
	game, err := uc.store.Games().Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	players, err := uc.store.Players().List(ctx, gameID)
	if err != nil {
		return nil, err
	}
	rounds, err := uc.store.Rounds().ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	counts, err := uc.store.Rounds().Counts(ctx, gameID)
	if err != nil {
		return nil, err
	}
	available, err := uc.machine.AvailableTransitions(ctx, gameID, "")
	if err != nil {
		return nil, err
	}

	return &domain.GameView{
		Game:                 game,
		State:                game.State(),
		Players:              players,
		Rounds:               rounds,
		Counts:               counts,
		AvailableTransitions: available,
	}, nil
}

// AuthorizeHost fails unless playerID hosts the game.
func (uc *PartyGameUseCase) AuthorizeHost(ctx context.Context, gameID string, playerID int64) error {
	return requireHost(ctx, uc.store, gameID, playerID)
}

// CanWatch reports whether the player may subscribe to the game's events.
func (uc *PartyGameUseCase) CanWatch(ctx context.Context, gameID string, playerID int64) (bool, error) {
	_, err := uc.store.Players().Get(ctx, gameID, playerID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrPlayerNotInGame) {
		return false, nil
	}
	return false, err
}

func requireHost(ctx context.Context, repos domain.Repositories, gameID string, playerID int64) error {
	game, err := repos.Games().Get(ctx, gameID)
	if err != nil {
		return err
	}
	if game.HostID != playerID {
		return domain.ErrNotHost
	}
	return nil
}
