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

// gambleRound sets up host, alice and bob in a round that is open for
// actions.
func gambleRound(t *testing.T, f *fixture) (*domain.Game, *domain.Round) {
	t.Helper()
	game := f.newGame(t, 5, false, alice, bob)
	f.submit(t, game.ID, alice, "q", "a")
	return game, f.revealRound(t, game.ID)
}

func TestPerformAction_RollHeads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game, round := gambleRound(t, f)

	res, err := f.uc.PerformAction(ctx, game.ID, round.ID, alice, domain.ActionRoll, nil)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, domain.Heads, res.Result)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, domain.ScoreChange{PlayerID: alice, Before: 0, After: 2, Delta: 2}, res.Changes[0])
	assert.Equal(t, int64(2), f.player(t, game.ID, alice).Score)

	stored, err := f.store.Rounds().Get(ctx, round.ID)
	require.NoError(t, err)
	rec, ok := stored.State().Actions[alice]
	require.True(t, ok)
	assert.Equal(t, domain.ActionRoll, rec.Action)
	assert.Equal(t, domain.Heads, rec.Result)

	assert.Len(t, f.events.ofType(domain.EventActionPerformed), 1)
}

func TestPerformAction_NeverTouchesLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game, round := gambleRound(t, f)

	_, err := f.uc.PerformAction(ctx, game.ID, round.ID, alice, domain.ActionForce, int64p(bob))
	require.NoError(t, err)

	for _, p := range []int64{alice, bob} {
		assert.Equal(t, int64(10), f.balance(t, p))
		txs, err := f.uc.ListTransactions(ctx, p)
		require.NoError(t, err)
		assert.Len(t, txs, 1)
	}
}

func TestPerformAction_TailsChangesNothing(t *testing.T) {
	f := newFixture(t)
	f.flipper.heads = false
	game, round := gambleRound(t, f)

	res, err := f.uc.PerformAction(context.Background(), game.ID, round.ID, alice, domain.ActionRoll, nil)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, domain.Tails, res.Result)
	assert.Empty(t, res.Changes)
	assert.Equal(t, int64(0), f.player(t, game.ID, alice).Score)
}

func TestPerformAction_OncePerRoundWhateverTheOutcome(t *testing.T) {
	for _, heads := range []bool{true, false} {
		f := newFixture(t)
		f.flipper.heads = heads
		ctx := context.Background()
		game, round := gambleRound(t, f)

		_, err := f.uc.PerformAction(ctx, game.ID, round.ID, alice, domain.ActionRoll, nil)
		require.NoError(t, err)

		_, err = f.uc.PerformAction(ctx, game.ID, round.ID, alice, domain.ActionForce, int64p(bob))
		require.ErrorIs(t, err, domain.ErrActionAlreadyPerformed, "heads=%v", heads)
		assert.Equal(t, int32(1), f.flipper.calls.Load())
	}
}

func TestPerformAction_ConcurrentCallsOnlyOneWins(t *testing.T) {
	const attempts = 5

	f := newFixture(t)
	game, round := gambleRound(t, f)

	var (
		wins, rejected atomic.Int32
		g              errgroup.Group
	)
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := f.uc.PerformAction(context.Background(), game.ID, round.ID, bob, domain.ActionRoll, nil)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrActionAlreadyPerformed):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(attempts-1), rejected.Load())
	assert.Equal(t, int64(2), f.player(t, game.ID, bob).Score)
}

func TestPerformAction_ForcedTargetCannotBeForcedAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game, round := gambleRound(t, f)

	res, err := f.uc.PerformAction(ctx, game.ID, round.ID, alice, domain.ActionForce, int64p(bob))
	require.NoError(t, err)
	require.Equal(t, domain.Heads, res.Result)
	assert.Equal(t, []domain.ScoreChange{
		{PlayerID: alice, Before: 0, After: 1, Delta: 1},
		{PlayerID: bob, Before: 0, After: -2, Delta: -2},
	}, res.Changes)
	assert.Equal(t, alice, res.Patch.Forced[bob])

	_, err = f.uc.PerformAction(ctx, game.ID, round.ID, host, domain.ActionForce, int64p(bob))
	require.ErrorIs(t, err, domain.ErrAlreadyForced)
	assert.Equal(t, int32(1), f.flipper.calls.Load(), "rejected actions never flip")
}

func TestPerformAction_ShieldedPlayerCannotShieldAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game, round := gambleRound(t, f)

	res, err := f.uc.PerformAction(ctx, game.ID, round.ID, bob, domain.ActionShield, nil)
	require.NoError(t, err)
	assert.True(t, res.Patch.Shielded[bob])

	_, err = f.uc.PerformAction(ctx, game.ID, round.ID, bob, domain.ActionShield, nil)
	require.ErrorIs(t, err, domain.ErrAlreadyShielded)
	assert.ErrorIs(t, err, domain.ErrActionAlreadyPerformed)

	_, err = f.uc.PerformAction(ctx, game.ID, round.ID, alice, domain.ActionForce, int64p(bob))
	require.ErrorIs(t, err, domain.ErrTargetShielded)
	assert.Equal(t, int64(1), f.player(t, game.ID, bob).Score)
}

func TestPerformAction_FailedShieldCanBeForced(t *testing.T) {
	f := newFixture(t)
	f.flipper.heads = false
	ctx := context.Background()
	game, round := gambleRound(t, f)

	_, err := f.uc.PerformAction(ctx, game.ID, round.ID, bob, domain.ActionShield, nil)
	require.NoError(t, err)

	res, err := f.uc.PerformAction(ctx, game.ID, round.ID, alice, domain.ActionForce, int64p(bob))
	require.NoError(t, err)
	assert.Equal(t, domain.Tails, res.Result)
}

func TestPerformAction_ValidationRunsBeforeFlip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game, round := gambleRound(t, f)
	_, err := f.uc.JoinGame(ctx, game.ID, viewer, true)
	require.NoError(t, err)

	tests := []struct {
		name   string
		player int64
		action domain.ActionType
		target *int64
		want   error
	}{
		{name: "unknown action", player: alice, action: "dance", want: domain.ErrInvalidAction},
		{name: "force without target", player: alice, action: domain.ActionForce, want: domain.ErrForceTargetRequired},
		{name: "force self", player: alice, action: domain.ActionForce, target: int64p(alice), want: domain.ErrCannotForceSelf},
		{name: "force stranger", player: alice, action: domain.ActionForce, target: int64p(404), want: domain.ErrTargetNotFound},
		{name: "force spectator", player: alice, action: domain.ActionForce, target: int64p(viewer), want: domain.ErrTargetIsSpectator},
		{name: "spectator acts", player: viewer, action: domain.ActionRoll, want: domain.ErrSpectatorNotAllowed},
		{name: "outsider acts", player: 404, action: domain.ActionRoll, want: domain.ErrPlayerNotInGame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.PerformAction(ctx, game.ID, round.ID, tt.player, tt.action, tt.target)
			require.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, int32(0), f.flipper.calls.Load())

	// none of the rejected attempts used up alice's action
	_, err = f.uc.PerformAction(ctx, game.ID, round.ID, alice, domain.ActionRoll, nil)
	require.NoError(t, err)
}

func TestPerformAction_RequiresGamblePhase(t *testing.T) {
	f := newFixture(t)
	game := f.newGame(t, 5, false, alice)
	f.submit(t, game.ID, alice, "q", "a")
	drawn := f.draw(t, game.ID)

	_, err := f.uc.PerformAction(context.Background(), game.ID, drawn.Round.ID, alice, domain.ActionRoll, nil)
	require.ErrorIs(t, err, domain.ErrWrongRoundPhase)
}
