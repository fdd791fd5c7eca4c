package usecase

import (
	"context"
	"errors"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
)

// DrawNextQuestion moves the game into ROUND_ACTIVE by drawing the oldest
// unused deck question. It is only valid from QUESTION_BUILD or
// ROUND_RESULTS with no round in play; see machine.Draw for how concurrent
// draws are kept apart.
func (uc *PartyGameUseCase) DrawNextQuestion(ctx context.Context, gameID string) (*domain.DrawResult, error) {
	ctx = logger.WithGame(ctx, gameID, "")

	res, err := uc.machine.TransitionTo(ctx, gameID, domain.StateRoundActive, "")
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("draw failed")
		return nil, drawError(err)
	}
	return uc.announceDraw(ctx, res), nil
}

// announceDraw anonymizes the author of a drawn round and publishes
// question_drawn. Every transition into ROUND_ACTIVE goes through it.
func (uc *PartyGameUseCase) announceDraw(ctx context.Context, res *domain.TransitionResult) *domain.DrawResult {
	draw := res.Draw
	draw.Author = uc.anon.Token(draw.Round.AuthorID)

	logger.Info(ctx).
		Str("round_id", draw.Round.ID).
		Str("source_round_id", draw.SourceRoundID).
		Int("round_number", draw.Round.RoundNumber).
		Msg("🃏 [Allocator] question drawn")

	uc.publish(ctx, domain.NewEvent(domain.EventQuestionDrawn, res.GameID, map[string]interface{}{
		"roundId":        draw.Round.ID,
		"roundNumber":    draw.Round.RoundNumber,
		"sourceRoundId":  draw.SourceRoundID,
		"question":       draw.Round.Question,
		"author":         draw.Author,
		"targetPlayerId": draw.TargetPlayerID,
	}))
	return draw
}

// drawError surfaces the allocator's own code when a guard failed for lack
// of questions or rounds.
func drawError(err error) error {
	var guard *domain.Error
	if !errors.As(err, &guard) || guard.Code != domain.ErrTransitionGuardFailed.Code {
		return err
	}
	var cause *domain.Error
	if errors.As(guard.Cause, &cause) &&
		(errors.Is(cause, domain.ErrNoQuestionsAvailable) || errors.Is(cause, domain.ErrRoundsExhausted)) {
		return cause
	}
	return err
}
