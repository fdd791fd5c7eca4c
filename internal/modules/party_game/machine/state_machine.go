package machine

import (
	"context"
	"time"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
)

// StateMachine validates and performs session lifecycle transitions. It holds
// no game state of its own; every call reads the game from the store and
// writes back inside one transaction with the game row locked.
type StateMachine struct {
	store       domain.Store
	broadcaster domain.Broadcaster
	edges       []Edge
	now         func() time.Time
}

// NewStateMachine creates a state machine over the default lifecycle.
func NewStateMachine(store domain.Store, broadcaster domain.Broadcaster, minPlayers int) *StateMachine {
	return &StateMachine{
		store:       store,
		broadcaster: broadcaster,
		edges:       DefaultEdges(minPlayers),
		now:         time.Now,
	}
}

// Edges returns a copy of the transition table.
func (sm *StateMachine) Edges() []Edge {
	out := make([]Edge, len(sm.edges))
	copy(out, sm.edges)
	return out
}

func (sm *StateMachine) edge(from, to domain.GameState) (Edge, bool) {
	for _, e := range sm.edges {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// snapshot gathers what guards need. With lock set the next pending round is
// selected with SKIP LOCKED so a concurrent draw keeps its row.
func (sm *StateMachine) snapshot(ctx context.Context, repos domain.Repositories, game *domain.Game, roundID string, lock bool) (*Snapshot, error) {
	s := &Snapshot{Game: game, State: game.State()}

	counts, err := repos.Rounds().Counts(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	s.Counts = counts

	contestants, err := repos.Players().CountContestants(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	s.Contestants = contestants

	next, err := repos.Rounds().NextPending(ctx, domain.PendingQuery{
		GameID:     game.ID,
		Chill:      game.ChillMode,
		SkipLocked: lock,
	})
	if err != nil {
		return nil, err
	}
	s.HasPending = next != nil

	// The edge decides which round it acts on: the active one, or the next
	// question the draw would take. A caller-named round is only checked
	// against it, never activated directly.
	if s.State == domain.StateRoundActive {
		active, err := repos.Rounds().FindActive(ctx, game.ID)
		if err != nil {
			return nil, err
		}
		if active != nil && lock {
			// re-read under the row lock wagers and actions take
			if active, err = repos.Rounds().GetForUpdate(ctx, active.ID); err != nil {
				return nil, err
			}
		}
		s.Round = active
	} else {
		s.Round = next
	}

	if roundID != "" {
		round, err := repos.Rounds().Get(ctx, roundID)
		if err != nil {
			return nil, err
		}
		if round.GameID != game.ID {
			return nil, domain.ErrRoundNotInGame.With("", map[string]string{"game_id": game.ID, "round_id": roundID})
		}
		s.RequestedRoundID = roundID
	}
	return s, nil
}

func (sm *StateMachine) check(s *Snapshot, target domain.GameState) (Edge, error) {
	e, ok := sm.edge(s.State, target)
	if !ok {
		return Edge{}, domain.ErrInvalidTransition.With(
			"cannot move from "+string(s.State)+" to "+string(target),
			map[string]string{"from": string(s.State), "to": string(target)},
		)
	}
	if err := e.Guard(s); err != nil {
		failed := domain.ErrTransitionGuardFailed.With(
			string(s.State)+" -> "+string(target)+": "+err.Error(),
			map[string]string{"from": string(s.State), "to": string(target), "reason": err.Error()},
		)
		// domain guard errors stay reachable through errors.Is
		failed.Cause = err
		return Edge{}, failed
	}
	return e, nil
}

// TransitionTo moves the game to target. roundID optionally names the round
// the transition is about; otherwise the current one is derived.
func (sm *StateMachine) TransitionTo(ctx context.Context, gameID string, target domain.GameState, roundID string) (*domain.TransitionResult, error) {
	ctx = logger.WithFields(ctx, map[string]interface{}{
		"game_id": gameID,
		"target":  string(target),
	})

	var result *domain.TransitionResult
	err := sm.store.Transaction(ctx, func(repos domain.Repositories) error {
		game, err := repos.Games().GetForUpdate(ctx, gameID)
		if err != nil {
			return err
		}

		s, err := sm.snapshot(ctx, repos, game, roundID, true)
		if err != nil {
			return err
		}

		e, err := sm.check(s, target)
		if err != nil {
			return err
		}

		if err := e.Effect(ctx, repos, s, sm.now()); err != nil {
			return err
		}

		game.SetMeta(domain.MetaPhase, string(target))
		if err := repos.Games().Update(ctx, game); err != nil {
			return err
		}

		result = &domain.TransitionResult{
			GameID: gameID,
			From:   s.State,
			To:     target,
			Status: game.Status,
			Round:  s.Round,
			Draw:   s.Drawn,
		}
		return nil
	})
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("⛔ [Session] transition rejected")
		return nil, err
	}

	logger.Info(ctx).
		Str("from", string(result.From)).
		Str("to", string(result.To)).
		Msg("🔄 [Session] state transition")

	available, err := sm.AvailableTransitions(ctx, gameID, "")
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("failed to list transitions after commit")
	}
	result.Available = available

	data := map[string]interface{}{
		"from":   result.From,
		"to":     result.To,
		"status": result.Status,
	}
	if result.Round != nil {
		data["roundId"] = result.Round.ID
		data["roundNumber"] = result.Round.RoundNumber
	}
	sm.publish(ctx, domain.NewEvent(domain.EventStateTransition, gameID, data))

	return result, nil
}

// AvailableTransitions lists every target whose guard currently passes.
func (sm *StateMachine) AvailableTransitions(ctx context.Context, gameID string, roundID string) ([]domain.GameState, error) {
	game, err := sm.store.Games().Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	s, err := sm.snapshot(ctx, sm.store, game, roundID, false)
	if err != nil {
		return nil, err
	}

	out := []domain.GameState{}
	for _, e := range sm.edges {
		if e.From != s.State {
			continue
		}
		if e.Guard(s) == nil {
			out = append(out, e.To)
		}
	}
	return out, nil
}

// CanTransitionTo reports whether TransitionTo would currently succeed. The
// error is only set when the game or round cannot be read.
func (sm *StateMachine) CanTransitionTo(ctx context.Context, gameID string, target domain.GameState, roundID string) (bool, error) {
	game, err := sm.store.Games().Get(ctx, gameID)
	if err != nil {
		return false, err
	}
	s, err := sm.snapshot(ctx, sm.store, game, roundID, false)
	if err != nil {
		return false, err
	}
	_, err = sm.check(s, target)
	return err == nil, nil
}

func (sm *StateMachine) publish(ctx context.Context, event domain.Event) {
	if sm.broadcaster == nil {
		return
	}
	if err := sm.broadcaster.Publish(ctx, event); err != nil {
		logger.Warn(ctx).Err(err).Str("event", string(event.Type)).Msg("failed to broadcast event")
	}
}
