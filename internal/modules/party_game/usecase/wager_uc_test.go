package usecase_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
)

func TestTakeWager_DebitsAndLogs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.newGame(t, 5, false, alice)
	f.submit(t, game.ID, alice, "Capital of France?", "Paris")
	drawn := f.draw(t, game.ID)

	res, err := f.uc.TakeWager(ctx, game.ID, drawn.Round.ID, host, "  paris ", int64p(3))
	require.NoError(t, err)

	assert.Equal(t, "paris", res.Answer)
	assert.Equal(t, int64(3), res.Bet)
	assert.Equal(t, int64(10), res.BalanceBefore)
	assert.Equal(t, int64(7), res.BalanceAfter)
	assert.Equal(t, domain.PhaseRevealGamble, res.Phase)
	assert.NotEmpty(t, res.TransactionID)
	assert.Equal(t, int64(7), f.balance(t, host))

	txs, err := f.uc.ListTransactions(ctx, host)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, domain.TxStartingGrant, txs[0].Type)
	last := txs[1]
	assert.Equal(t, domain.TxWager, last.Type)
	assert.Equal(t, res.TransactionID, last.ID)
	assert.Equal(t, int64(-3), last.Amount)
	assert.Equal(t, last.BalanceBefore+last.Amount, last.BalanceAfter)
	require.NotNil(t, last.RoundID)
	assert.Equal(t, drawn.Round.ID, *last.RoundID)

	round, err := f.store.Rounds().Get(ctx, drawn.Round.ID)
	require.NoError(t, err)
	shot := round.State().Shot
	require.NotNil(t, shot)
	assert.Equal(t, res.TransactionID, shot.TransactionID)
	assert.Equal(t, int64(3), shot.Bet)

	assert.Len(t, f.events.ofType(domain.EventShotTaken), 1)
}

func TestTakeWager_DefaultsToOneToken(t *testing.T) {
	f := newFixture(t)
	game := f.newGame(t, 5, false, alice)
	f.submit(t, game.ID, alice, "q", "a")
	drawn := f.draw(t, game.ID)

	res, err := f.uc.TakeWager(context.Background(), game.ID, drawn.Round.ID, host, "a", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Bet)
	assert.Equal(t, int64(9), f.balance(t, host))
}

func TestTakeWager_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		player int64
		answer string
		bet    *int64
		want   error
	}{
		{name: "bet below minimum", player: host, answer: "a", bet: int64p(0), want: domain.ErrInvalidWager},
		{name: "bet above maximum", player: host, answer: "a", bet: int64p(101), want: domain.ErrInvalidWager},
		{name: "more than balance", player: host, answer: "a", bet: int64p(11), want: domain.ErrInsufficientFunds},
		{name: "not the responder", player: alice, answer: "a", bet: int64p(1), want: domain.ErrNotRoundTarget},
		{name: "not in game", player: 77, answer: "a", bet: int64p(1), want: domain.ErrPlayerNotInGame},
		{name: "empty answer", player: host, answer: "   ", bet: int64p(1), want: domain.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			game := f.newGame(t, 5, false, alice)
			f.submit(t, game.ID, alice, "q", "a")
			drawn := f.draw(t, game.ID)

			_, err := f.uc.TakeWager(context.Background(), game.ID, drawn.Round.ID, tt.player, tt.answer, tt.bet)
			require.ErrorIs(t, err, tt.want)

			assert.Equal(t, int64(10), f.balance(t, host), "rejected wagers never touch the balance")
			txs, err := f.uc.ListTransactions(context.Background(), host)
			require.NoError(t, err)
			assert.Len(t, txs, 1)
		})
	}
}

func TestTakeWager_InsufficientFundsReportsShortfall(t *testing.T) {
	f := newFixture(t)
	game := f.newGame(t, 5, false, alice)
	f.submit(t, game.ID, alice, "q", "a")
	drawn := f.draw(t, game.ID)

	_, err := f.uc.TakeWager(context.Background(), game.ID, drawn.Round.ID, host, "a", int64p(14))
	require.ErrorIs(t, err, domain.ErrInvalidWager)

	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "INSUFFICIENT_FUNDS", de.Code)
	assert.Equal(t, "4", de.Metadata["shortfall"])
	assert.Equal(t, "10", de.Metadata["balance"])
}

func TestTakeWager_SecondShotRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.newGame(t, 5, false, alice)
	f.submit(t, game.ID, alice, "q", "a")
	drawn := f.draw(t, game.ID)

	_, err := f.uc.TakeWager(ctx, game.ID, drawn.Round.ID, host, "a", int64p(2))
	require.NoError(t, err)

	_, err = f.uc.TakeWager(ctx, game.ID, drawn.Round.ID, host, "a", int64p(2))
	require.ErrorIs(t, err, domain.ErrDuplicateWager)
	assert.ErrorIs(t, err, domain.ErrActionAlreadyPerformed)
	assert.Equal(t, int64(8), f.balance(t, host))
}

func TestTakeWager_ConcurrentShotsOnlyOneWins(t *testing.T) {
	const attempts = 6

	f := newFixture(t)
	game := f.newGame(t, 5, false, alice)
	f.submit(t, game.ID, alice, "q", "a")
	drawn := f.draw(t, game.ID)

	var (
		wins, dupes atomic.Int32
		g           errgroup.Group
	)
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := f.uc.TakeWager(context.Background(), game.ID, drawn.Round.ID, host, "a", int64p(2))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrActionAlreadyPerformed):
				dupes.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(attempts-1), dupes.Load())
	assert.Equal(t, int64(8), f.balance(t, host))
}

func TestTakeWager_ChillModeStakesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.newGame(t, 5, true, alice)
	f.submit(t, game.ID, alice, "q", "a")
	drawn := f.draw(t, game.ID)

	res, err := f.uc.TakeWager(ctx, game.ID, drawn.Round.ID, host, "a", int64p(50))
	require.NoError(t, err)

	assert.Equal(t, int64(0), res.Bet)
	assert.True(t, res.ChillMode)
	assert.Equal(t, res.BalanceBefore, res.BalanceAfter)
	assert.Equal(t, int64(10), f.balance(t, host))

	txs, err := f.uc.ListTransactions(ctx, host)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(0), txs[1].Amount)
}

func TestTakeWager_WrongPhase(t *testing.T) {
	f := newFixture(t)
	game := f.newGame(t, 5, false, alice)
	f.submit(t, game.ID, alice, "q", "a")
	round := f.revealRound(t, game.ID)

	_, err := f.uc.TakeWager(context.Background(), game.ID, round.ID, host, "a", nil)
	require.ErrorIs(t, err, domain.ErrWrongRoundPhase)
}

func TestTakeWager_RoundFromAnotherGame(t *testing.T) {
	f := newFixture(t)
	game := f.newGame(t, 5, false, alice)
	other := f.newGame(t, 5, false, alice)
	f.submit(t, other.ID, alice, "q", "a")
	drawn := f.draw(t, other.ID)

	_, err := f.uc.TakeWager(context.Background(), game.ID, drawn.Round.ID, host, "a", nil)
	require.ErrorIs(t, err, domain.ErrRoundNotInGame)
}
