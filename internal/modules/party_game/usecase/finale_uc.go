package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
	"gorm.io/datatypes"
)

// FinalizeGame settles a game once: final scores and ranks, a token per
// undrawn authored question, and the game closed as finished. Nothing is
// visible until the whole settlement commits.
func (uc *PartyGameUseCase) FinalizeGame(ctx context.Context, gameID string) (*domain.FinaleResult, error) {
	ctx = logger.WithGame(ctx, gameID, "")

	var result *domain.FinaleResult
	err := uc.store.Transaction(ctx, func(repos domain.Repositories) error {
		game, err := repos.Games().GetForUpdate(ctx, gameID)
		if err != nil {
			return err
		}
		switch game.Status {
		case domain.GameStatusFinished:
			return domain.ErrAlreadyFinalized
		case domain.GameStatusCancelled:
			return domain.ErrInvalidState.With("cancelled games cannot be finalized", map[string]string{"state": string(game.State())})
		}

		// 1. Deck usage gate
		counts, err := repos.Rounds().Counts(ctx, gameID)
		if err != nil {
			return err
		}
		usage := counts.DeckUsagePercent()
		if !counts.DeckUsageMet() {
			return domain.ErrDeckUsageNotMet.With(
				fmt.Sprintf("deck usage %d%% is below the required %d%%", usage, domain.MinDeckUsagePercent),
				map[string]string{
					"deck_usage_percent": strconv.FormatInt(usage, 10),
					"required_percent":   strconv.Itoa(domain.MinDeckUsagePercent),
					"seeded_total":       strconv.FormatInt(counts.SeededTotal, 10),
					"seeded_used":        strconv.FormatInt(counts.SeededUsed, 10),
				},
			)
		}

		now := time.Now()

		// 2. Close rounds still in play and collect their results
		rounds, err := repos.Rounds().ListByGame(ctx, gameID)
		if err != nil {
			return err
		}
		bonus := map[int64]int64{}
		answered := map[int64]int{}
		correct := map[int64]int{}
		for _, round := range rounds {
			// consumed deck rows were copied into a drawn round
			if round.Consumed {
				continue
			}
			if round.Status == domain.RoundStatusActive {
				round.Finish(now)
				if err := repos.Rounds().Update(ctx, round); err != nil {
					return err
				}
			}
			if round.Status != domain.RoundStatusFinished {
				continue
			}
			state := round.State()
			for pid, delta := range state.Results {
				bonus[pid] += delta
			}
			if state.Shot != nil {
				answered[state.Shot.PlayerID]++
				if round.IsCorrect(state.Shot.Answer) {
					correct[state.Shot.PlayerID]++
				}
			}
		}

		// 3. Final scores and ranking
		players, err := repos.Players().List(ctx, gameID)
		if err != nil {
			return err
		}
		rankings := make([]domain.RankedPlayer, 0, len(players))
		for _, p := range players {
			if p.IsSpectator {
				continue
			}
			final := p.Score + bonus[p.PlayerID]
			rankings = append(rankings, domain.RankedPlayer{
				PlayerID:       p.PlayerID,
				BaseScore:      p.Score,
				RoundBonus:     bonus[p.PlayerID],
				FinalScore:     final,
				CorrectAnswers: correct[p.PlayerID],
				TotalAnswers:   answered[p.PlayerID],
			})

			p.Score = final
			p.CorrectAnswers = correct[p.PlayerID]
			p.TotalAnswers = answered[p.PlayerID]
			if err := repos.Players().Update(ctx, p); err != nil {
				return err
			}
		}
		// players come back in join order, so a stable sort keeps ties in it
		sort.SliceStable(rankings, func(i, j int) bool {
			return rankings[i].FinalScore > rankings[j].FinalScore
		})
		for i := range rankings {
			rankings[i].Rank = i + 1
		}
		var winnerID int64
		if len(rankings) > 0 {
			winnerID = rankings[0].PlayerID
		}

		// 4. Token grants for undrawn authored questions
		unused, err := repos.Rounds().PendingByAuthor(ctx, gameID)
		if err != nil {
			return err
		}
		authors := make([]int64, 0, len(unused))
		for author, n := range unused {
			if n > 0 {
				authors = append(authors, author)
			}
		}
		sort.Slice(authors, func(i, j int) bool { return authors[i] < authors[j] })

		grants := make([]domain.TokenGrant, 0, len(authors))
		for _, author := range authors {
			if err := uc.openAccount(ctx, repos, author, gameID); err != nil {
				return err
			}
			tx, err := postEntry(ctx, repos, ledgerEntry{
				PlayerID: author,
				GameID:   gameID,
				Type:     domain.TxFinaleGrant,
				Amount:   unused[author],
				Metadata: datatypes.JSONMap{"unusedRounds": unused[author]},
			})
			if err != nil {
				return err
			}
			grants = append(grants, domain.TokenGrant{
				PlayerID:      author,
				UnusedRounds:  unused[author],
				Amount:        tx.Amount,
				BalanceBefore: tx.BalanceBefore,
				BalanceAfter:  tx.BalanceAfter,
				TransactionID: tx.ID,
			})
		}

		// 5. Archive the rest of the deck and close the game
		cancelled, err := repos.Rounds().CancelPending(ctx, gameID)
		if err != nil {
			return err
		}

		game.Status = domain.GameStatusFinished
		game.SetMeta(domain.MetaPhase, string(domain.StateGameFinished))
		if _, ok := game.Metadata[domain.MetaEndedAt]; !ok {
			game.Stamp(domain.MetaEndedAt, now)
		}
		game.SetMeta(domain.MetaFinale, map[string]interface{}{
			"winnerId":         winnerID,
			"deckUsagePercent": usage,
			"seededTotal":      counts.SeededTotal,
			"seededUsed":       counts.SeededUsed,
			"cancelledRounds":  cancelled,
			"tokenGrants":      len(grants),
			"finalizedAt":      now.UTC().Format(time.RFC3339Nano),
		})
		if err := repos.Games().Update(ctx, game); err != nil {
			return err
		}

		result = &domain.FinaleResult{
			GameID:           gameID,
			WinnerID:         winnerID,
			Rankings:         rankings,
			Grants:           grants,
			DeckUsagePercent: usage,
			CancelledRounds:  cancelled,
			FinalizedAt:      now,
		}
		return nil
	})
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("finale rejected")
		return nil, err
	}

	logger.Info(ctx).
		Int64("winner_id", result.WinnerID).
		Int64("deck_usage_percent", result.DeckUsagePercent).
		Int("token_grants", len(result.Grants)).
		Msg("🏆 [Finale] game finalized")

	uc.publish(ctx, domain.NewEvent(domain.EventGameFinale, gameID, map[string]interface{}{
		"winnerId":         result.WinnerID,
		"rankings":         result.Rankings,
		"tokenGrants":      result.Grants,
		"deckUsagePercent": result.DeckUsagePercent,
	}))
	return result, nil
}
