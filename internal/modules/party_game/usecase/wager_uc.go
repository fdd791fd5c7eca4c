package usecase

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
	"gorm.io/datatypes"
)

// TakeWager records the responder's shot. The round row and then the balance
// row are locked for the whole transaction, so a second wager on the same
// round always sees the first one's shot.
func (uc *PartyGameUseCase) TakeWager(ctx context.Context, gameID, roundID string, playerID int64, answer string, bet *int64) (*domain.WagerResult, error) {
	ctx = logger.WithFields(ctx, map[string]interface{}{
		"game_id":   gameID,
		"round_id":  roundID,
		"player_id": playerID,
	})

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, domain.Invalid("answer is required")
	}

	logger.Info(ctx).Msg("wager request")

	var result *domain.WagerResult
	err := uc.store.Transaction(ctx, func(repos domain.Repositories) error {
		// 1. Round must belong to the game and be waiting for a shot
		round, err := loadRoundInGame(ctx, repos, gameID, roundID)
		if err != nil {
			return err
		}
		game, err := repos.Games().Get(ctx, gameID)
		if err != nil {
			return err
		}
		if _, err := loadContestant(ctx, repos, gameID, playerID); err != nil {
			return err
		}

		state := round.State()
		if round.Status != domain.RoundStatusActive {
			return domain.ErrRoundNotActive.With("", map[string]string{"status": string(round.Status)})
		}
		if state.Shot != nil {
			return domain.ErrDuplicateWager.With("", map[string]string{"transaction_id": state.Shot.TransactionID})
		}
		if state.Phase != domain.PhaseResponse {
			return domain.ErrWrongRoundPhase.With("wagers are only accepted in the response phase", map[string]string{"phase": string(state.Phase)})
		}
		if state.TargetPlayerID != playerID {
			return domain.ErrNotRoundTarget.With("", map[string]string{"target_player_id": strconv.FormatInt(state.TargetPlayerID, 10)})
		}

		// 2. Resolve the stake
		amount, err := resolveBet(bet, game.ChillMode)
		if err != nil {
			return err
		}

		if err := uc.openAccount(ctx, repos, playerID, gameID); err != nil {
			return err
		}
		bal, err := repos.Ledger().GetBalanceForUpdate(ctx, playerID)
		if err != nil {
			return err
		}
		if amount > bal.Balance {
			return domain.ErrInsufficientFunds.With("", map[string]string{
				"balance":   strconv.FormatInt(bal.Balance, 10),
				"bet":       strconv.FormatInt(amount, 10),
				"shortfall": strconv.FormatInt(amount-bal.Balance, 10),
			})
		}

		// 3. Debit and log
		tx, err := postEntry(ctx, repos, ledgerEntry{
			PlayerID: playerID,
			GameID:   gameID,
			RoundID:  &round.ID,
			Type:     domain.TxWager,
			Amount:   -amount,
			Metadata: datatypes.JSONMap{
				"answer":    answer,
				"chillMode": game.ChillMode,
			},
		})
		if err != nil {
			return err
		}

		// 4. Stamp the shot and open the gamble phase
		state.Shot = &domain.Shot{
			PlayerID:      playerID,
			Answer:        answer,
			Bet:           amount,
			TransactionID: tx.ID,
			TakenAt:       time.Now(),
		}
		state.Phase = domain.PhaseRevealGamble
		round.SetState(state)
		if err := repos.Rounds().Update(ctx, round); err != nil {
			return err
		}

		result = &domain.WagerResult{
			RoundID:       round.ID,
			PlayerID:      playerID,
			Answer:        answer,
			Bet:           amount,
			BalanceBefore: tx.BalanceBefore,
			BalanceAfter:  tx.BalanceAfter,
			TransactionID: tx.ID,
			Phase:         state.Phase,
			ChillMode:     game.ChillMode,
		}
		return nil
	})
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("wager rejected")
		return nil, err
	}

	logger.Info(ctx).
		Int64("bet", result.Bet).
		Int64("balance_before", result.BalanceBefore).
		Int64("balance_after", result.BalanceAfter).
		Str("transaction_id", result.TransactionID).
		Msg("💰 [Wager] shot taken")

	uc.publish(ctx, domain.NewEvent(domain.EventShotTaken, gameID, map[string]interface{}{
		"roundId":  result.RoundID,
		"playerId": result.PlayerID,
		"bet":      result.Bet,
		"phase":    result.Phase,
	}))
	return result, nil
}

// resolveBet applies the default stake and bounds. Chill games stake nothing.
func resolveBet(bet *int64, chill bool) (int64, error) {
	if chill {
		return 0, nil
	}
	amount := int64(DefaultBet)
	if bet != nil {
		amount = *bet
	}
	if amount < MinBet || amount > MaxBet {
		return 0, domain.ErrInvalidWager.With(
			"bet must be between 1 and 100 tokens",
			map[string]string{"bet": strconv.FormatInt(amount, 10)},
		)
	}
	return amount, nil
}
