package usecase_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
)

func TestCreateGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	game, err := f.uc.CreateGame(ctx, domain.CreateGameInput{HostID: host})
	require.NoError(t, err)
	assert.Equal(t, domain.StateLobby, game.State())
	assert.Equal(t, 5, game.RoundsPerGame)
	assert.Equal(t, 30, game.TimePerRound)
	assert.True(t, f.player(t, game.ID, host).IsHost)
	assert.Equal(t, int64(10), f.balance(t, host))

	_, err = f.uc.CreateGame(ctx, domain.CreateGameInput{HostID: host, RoundsPerGame: 51})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = f.uc.CreateGame(ctx, domain.CreateGameInput{HostID: host, TimePerRound: 2})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestJoinGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.newGame(t, 5, false, alice)

	again, err := f.uc.JoinGame(ctx, game.ID, alice, false)
	require.NoError(t, err)
	assert.Equal(t, alice, again.PlayerID)
	assert.Len(t, f.events.ofType(domain.EventPlayerJoined), 1)

	txs, err := f.uc.ListTransactions(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, txs, 1, "starting grant is credited once")

	spectator, err := f.uc.JoinGame(ctx, game.ID, viewer, true)
	require.NoError(t, err)
	assert.True(t, spectator.IsSpectator)
	_, err = f.uc.GetBalance(ctx, viewer)
	require.ErrorIs(t, err, domain.ErrPlayerNotFound)

	_, err = f.uc.JoinGame(ctx, "missing", bob, false)
	require.ErrorIs(t, err, domain.ErrGameNotFound)
}

func TestJoinGame_AfterStartOnlySpectators(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.newGame(t, 5, false, alice)
	f.submit(t, game.ID, alice, "q", "a")
	_, err := f.uc.TransitionGame(ctx, game.ID, domain.StateQuestionBuild, "")
	require.NoError(t, err)
	_, err = f.uc.TransitionGame(ctx, game.ID, domain.StateRoundActive, "")
	require.NoError(t, err)

	_, err = f.uc.JoinGame(ctx, game.ID, bob, false)
	require.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.uc.JoinGame(ctx, game.ID, bob, true)
	require.NoError(t, err)
}

func TestSubmitQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.newGame(t, 5, false, alice)
	_, err := f.uc.JoinGame(ctx, game.ID, viewer, true)
	require.NoError(t, err)

	round, err := f.uc.SubmitQuestion(ctx, game.ID, alice, "  Who won?  ", " me ")
	require.NoError(t, err)
	assert.Equal(t, "Who won?", round.Question)
	assert.Equal(t, "me", round.Answer)
	assert.True(t, round.IsSeeded())
	assert.Equal(t, domain.RoundStatusPending, round.Status)

	created := f.events.ofType(domain.EventQuestionCreated)
	require.Len(t, created, 1)
	assert.Equal(t, f.anon.Token(alice), created[0].Data.(map[string]interface{})["author"])

	_, err = f.uc.SubmitQuestion(ctx, game.ID, alice, "   ", "")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = f.uc.SubmitQuestion(ctx, game.ID, alice, strings.Repeat("x", 501), "")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = f.uc.SubmitQuestion(ctx, game.ID, viewer, "spectator question", "")
	require.ErrorIs(t, err, domain.ErrSpectatorNotAllowed)
	_, err = f.uc.SubmitQuestion(ctx, game.ID, 404, "outsider question", "")
	require.ErrorIs(t, err, domain.ErrPlayerNotInGame)
}

func TestSetTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.newGame(t, 5, false, alice, bob)
	_, err := f.uc.JoinGame(ctx, game.ID, viewer, true)
	require.NoError(t, err)
	f.submit(t, game.ID, alice, "q", "a")
	drawn := f.draw(t, game.ID)

	_, err = f.uc.SetTarget(ctx, game.ID, drawn.Round.ID, alice, bob)
	require.ErrorIs(t, err, domain.ErrNotHost)
	_, err = f.uc.SetTarget(ctx, game.ID, drawn.Round.ID, host, viewer)
	require.ErrorIs(t, err, domain.ErrTargetIsSpectator)
	_, err = f.uc.SetTarget(ctx, game.ID, drawn.Round.ID, host, 404)
	require.ErrorIs(t, err, domain.ErrTargetNotFound)

	round, err := f.uc.SetTarget(ctx, game.ID, drawn.Round.ID, host, bob)
	require.NoError(t, err)
	assert.Equal(t, bob, round.State().TargetPlayerID)

	_, err = f.uc.TakeWager(ctx, game.ID, drawn.Round.ID, host, "a", nil)
	require.ErrorIs(t, err, domain.ErrNotRoundTarget)
	_, err = f.uc.TakeWager(ctx, game.ID, drawn.Round.ID, bob, "a", nil)
	require.NoError(t, err)

	_, err = f.uc.SetTarget(ctx, game.ID, drawn.Round.ID, host, alice)
	require.ErrorIs(t, err, domain.ErrWrongRoundPhase)
}

func TestAdvanceRoundPhase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.newGame(t, 5, false, alice)
	f.submit(t, game.ID, alice, "q", "a")
	drawn := f.draw(t, game.ID)

	_, err := f.uc.AdvanceRoundPhase(ctx, game.ID, drawn.Round.ID, alice)
	require.ErrorIs(t, err, domain.ErrNotHost)

	round, err := f.uc.AdvanceRoundPhase(ctx, game.ID, drawn.Round.ID, host)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseRevealGamble, round.State().Phase)

	_, err = f.uc.AdvanceRoundPhase(ctx, game.ID, drawn.Round.ID, host)
	require.ErrorIs(t, err, domain.ErrWrongRoundPhase)
}

func TestResetGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.newGame(t, 5, false, alice, bob)
	f.submit(t, game.ID, alice, "q1", "a")
	f.submit(t, game.ID, bob, "q2", "a")
	drawn := f.draw(t, game.ID)
	_, err := f.uc.TakeWager(ctx, game.ID, drawn.Round.ID, host, "a", int64p(4))
	require.NoError(t, err)
	_, err = f.uc.PerformAction(ctx, game.ID, drawn.Round.ID, alice, domain.ActionRoll, nil)
	require.NoError(t, err)

	_, err = f.uc.ResetGame(ctx, game.ID, alice)
	require.ErrorIs(t, err, domain.ErrNotHost)

	reset, err := f.uc.ResetGame(ctx, game.ID, host)
	require.NoError(t, err)
	assert.Equal(t, domain.StateLobby, reset.State())
	assert.Equal(t, domain.GameStatusWaiting, reset.Status)

	view, err := f.uc.GetGameState(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.Counts.SeededTotal)
	assert.Equal(t, int64(0), view.Counts.SeededUsed)
	assert.Equal(t, int64(0), view.Counts.Played())
	for _, p := range view.Players {
		assert.Equal(t, int64(0), p.Score)
	}

	// staked tokens stay spent
	assert.Equal(t, int64(6), f.balance(t, host))

	again := f.draw(t, game.ID)
	assert.Equal(t, "q1", again.Round.Question)
	assert.Len(t, f.events.ofType(domain.EventGameReset), 1)
}

func TestResetGame_FinishedGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.newGame(t, 5, false, alice)
	f.submit(t, game.ID, alice, "q", "a")
	f.draw(t, game.ID)
	_, err := f.uc.FinalizeGame(ctx, game.ID)
	require.NoError(t, err)

	_, err = f.uc.ResetGame(ctx, game.ID, host)
	require.ErrorIs(t, err, domain.ErrAlreadyFinalized)
}

func TestGetGameState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game := f.newGame(t, 5, false, alice)
	f.submit(t, game.ID, alice, "q", "a")

	view, err := f.uc.GetGameState(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateLobby, view.State)
	assert.Len(t, view.Players, 2)
	assert.Len(t, view.Rounds, 1)
	assert.Equal(t, []domain.GameState{domain.StateQuestionBuild, domain.StateCancelled}, view.AvailableTransitions)

	ok, err := f.uc.CanWatch(ctx, game.ID, alice)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.uc.CanWatch(ctx, game.ID, 404)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.uc.AuthorizeHost(ctx, game.ID, host))
	require.ErrorIs(t, f.uc.AuthorizeHost(ctx, game.ID, alice), domain.ErrNotHost)
}
