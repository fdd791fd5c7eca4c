package machine

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
)

// maxClaimAttempts bounds retries when a compare-and-swap claim loses.
const maxClaimAttempts = 3

// Draw hands out the oldest unused deck question as a new active round.
// Concurrent callers never receive the same source: the candidate is selected
// with SKIP LOCKED and then claimed with a compare-and-swap, so the loser of a
// race moves on to the next row or fails with NoQuestionsAvailable.
//
// Draw must run inside the transaction that holds the game row lock. It is
// the effect of every edge into ROUND_ACTIVE.
func Draw(ctx context.Context, repos domain.Repositories, game *domain.Game, now time.Time) (*domain.DrawResult, error) {
	counts, err := repos.Rounds().Counts(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	if err := checkRoundsLeft(game, counts); err != nil {
		return nil, err
	}

	var source *domain.Round
	for attempt := 1; attempt <= maxClaimAttempts && source == nil; attempt++ {
		candidate, err := repos.Rounds().NextPending(ctx, domain.PendingQuery{
			GameID:     game.ID,
			Chill:      game.ChillMode,
			SkipLocked: true,
		})
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			return nil, noQuestions(game)
		}

		claimed, err := repos.Rounds().Claim(ctx, candidate.ID)
		if err != nil {
			return nil, err
		}
		if claimed {
			source = candidate
			break
		}
		logger.Debug(ctx).
			Str("round_id", candidate.ID).
			Int("attempt", attempt).
			Msg("lost claim on question, retrying")
	}
	if source == nil {
		return nil, domain.ErrNoQuestionsAvailable.With("questions are being drawn concurrently, try again", nil)
	}

	// the counter update serialises draws on the game row, so re-check the
	// round budget after it
	number, err := repos.Games().NextRoundNumber(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	counts, err = repos.Rounds().Counts(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	if err := checkRoundsLeft(game, counts); err != nil {
		return nil, err
	}

	players, err := repos.Players().List(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	sourceID := source.ID
	round := &domain.Round{
		ID:            uuid.NewString(),
		GameID:        game.ID,
		RoundNumber:   number,
		AuthorID:      source.AuthorID,
		Question:      source.Question,
		Answer:        source.Answer,
		FlagCount:     source.FlagCount,
		SourceRoundID: &sourceID,
	}
	round.Activate(domain.PickResponder(players, counts.Played()), now)
	if err := repos.Rounds().Create(ctx, round); err != nil {
		return nil, err
	}

	return &domain.DrawResult{
		Round:          round,
		SourceRoundID:  sourceID,
		TargetPlayerID: round.State().TargetPlayerID,
		PlayedRounds:   counts.Played() + 1,
		RoundsPerGame:  game.RoundsPerGame,
	}, nil
}

func checkRoundsLeft(game *domain.Game, counts domain.RoundCounts) error {
	if counts.Played() >= int64(game.RoundsPerGame) {
		return domain.ErrRoundsExhausted.With("", map[string]string{
			"played":          strconv.FormatInt(counts.Played(), 10),
			"rounds_per_game": strconv.Itoa(game.RoundsPerGame),
		})
	}
	return nil
}

func noQuestions(game *domain.Game) error {
	if game.ChillMode {
		return domain.ErrNoQuestionsAvailable.With(
			"no unflagged questions left; chill mode skips flagged questions",
			map[string]string{"chill_mode": "true"},
		)
	}
	return domain.ErrNoQuestionsAvailable.With(
		"the question deck is exhausted",
		map[string]string{"chill_mode": "false"},
	)
}
