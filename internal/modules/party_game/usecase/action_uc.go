package usecase

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
)

// PerformAction resolves a roll, force or shield. Every check runs before
// the coin is flipped, and only player scores change; the token ledger is
// never touched here.
func (uc *PartyGameUseCase) PerformAction(ctx context.Context, gameID, roundID string, playerID int64, action domain.ActionType, targetID *int64) (*domain.ActionResult, error) {
	ctx = logger.WithFields(ctx, map[string]interface{}{
		"game_id":   gameID,
		"round_id":  roundID,
		"player_id": playerID,
		"action":    string(action),
	})

	if _, ok := domain.ActionSuccessRates[action]; !ok {
		return nil, domain.ErrInvalidAction.With("", map[string]string{"action": string(action)})
	}

	var result *domain.ActionResult
	err := uc.store.Transaction(ctx, func(repos domain.Repositories) error {
		// 1. Round must be in the reveal & gamble phase
		round, err := loadRoundInGame(ctx, repos, gameID, roundID)
		if err != nil {
			return err
		}
		state := round.State()
		if round.Status != domain.RoundStatusActive {
			return domain.ErrRoundNotActive.With("", map[string]string{"status": string(round.Status)})
		}
		if state.Phase != domain.PhaseRevealGamble {
			return domain.ErrWrongRoundPhase.With("actions are only allowed during reveal & gamble", map[string]string{"phase": string(state.Phase)})
		}

		// 2. Actor
		actor, err := loadContestant(ctx, repos, gameID, playerID)
		if err != nil {
			return err
		}
		if action == domain.ActionShield && state.Shielded[playerID] {
			return domain.ErrAlreadyShielded
		}
		if prev, ok := state.Actions[playerID]; ok {
			return domain.ErrActionAlreadyPerformed.With("", map[string]string{"previous_action": string(prev.Action)})
		}

		// 3. Force target
		var target *domain.GamePlayer
		if action == domain.ActionForce {
			target, err = validateForceTarget(ctx, repos, gameID, playerID, targetID, state)
			if err != nil {
				return err
			}
		} else {
			targetID = nil
		}

		// 4. Flip
		outcome := domain.Tails
		if uc.flipper.Flip(domain.ActionSuccessRates[action]) {
			outcome = domain.Heads
		}
		deltas := domain.Deltas(action, playerID, targetID, outcome)

		// 5. Scores
		baseline := map[int64]int64{actor.PlayerID: actor.Score}
		if target != nil {
			baseline[target.PlayerID] = target.Score
		}
		changes := make([]domain.ScoreChange, 0, len(deltas))
		for pid, delta := range deltas {
			if err := repos.Players().AddScore(ctx, gameID, pid, delta); err != nil {
				return err
			}
			changes = append(changes, domain.ScoreChange{
				PlayerID: pid,
				Before:   baseline[pid],
				After:    baseline[pid] + delta,
				Delta:    delta,
			})
		}
		sort.Slice(changes, func(i, j int) bool { return changes[i].PlayerID < changes[j].PlayerID })

		// 6. Round data
		record := domain.ActionRecord{
			Action:         action,
			TargetPlayerID: targetID,
			Result:         outcome,
			Deltas:         deltas,
			PerformedAt:    time.Now(),
		}
		state.Actions[playerID] = record
		if outcome == domain.Heads {
			switch action {
			case domain.ActionForce:
				state.Forced[*targetID] = playerID
			case domain.ActionShield:
				state.Shielded[playerID] = true
			}
		}
		round.SetState(state)
		if err := repos.Rounds().Update(ctx, round); err != nil {
			return err
		}

		result = &domain.ActionResult{
			Success:  true,
			Action:   action,
			Result:   outcome,
			PlayerID: playerID,
			Changes:  changes,
			Patch: domain.RoundStatePatch{
				Action:   record,
				Forced:   state.Forced,
				Shielded: state.Shielded,
			},
		}
		return nil
	})
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("action rejected")
		return nil, err
	}

	logger.Info(ctx).
		Str("result", string(result.Result)).
		Int("score_changes", len(result.Changes)).
		Msg("🎲 [Action] action performed")

	data := map[string]interface{}{
		"roundId":      roundID,
		"playerId":     playerID,
		"action":       action,
		"result":       result.Result,
		"scoreChanges": result.Changes,
	}
	if targetID != nil {
		data["targetPlayerId"] = *targetID
	}
	uc.publish(ctx, domain.NewEvent(domain.EventActionPerformed, gameID, data))
	return result, nil
}

func validateForceTarget(ctx context.Context, repos domain.Repositories, gameID string, actorID int64, targetID *int64, state domain.RoundState) (*domain.GamePlayer, error) {
	if targetID == nil || *targetID == 0 {
		return nil, domain.ErrForceTargetRequired
	}
	if *targetID == actorID {
		return nil, domain.ErrCannotForceSelf
	}

	target, err := repos.Players().Get(ctx, gameID, *targetID)
	if err != nil {
		if errors.Is(err, domain.ErrPlayerNotInGame) {
			return nil, domain.ErrTargetNotFound.With("", map[string]string{"target_player_id": strconv.FormatInt(*targetID, 10)})
		}
		return nil, err
	}
	if target.IsSpectator {
		return nil, domain.ErrTargetIsSpectator
	}
	if by, ok := state.Forced[*targetID]; ok {
		return nil, domain.ErrAlreadyForced.With("", map[string]string{
			"target_player_id": strconv.FormatInt(*targetID, 10),
			"forced_by":        strconv.FormatInt(by, 10),
		})
	}
	if state.Shielded[*targetID] {
		return nil, domain.ErrTargetShielded.With("", map[string]string{"target_player_id": strconv.FormatInt(*targetID, 10)})
	}
	return target, nil
}
