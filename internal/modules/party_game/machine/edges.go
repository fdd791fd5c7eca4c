package machine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
)

// Snapshot is what guards see: the game, the round the transition is about
// and the counters guards compare against.
type Snapshot struct {
	Game        *domain.Game
	State       domain.GameState
	Round       *domain.Round
	Counts      domain.RoundCounts
	HasPending  bool
	Contestants int64
	// RequestedRoundID is the round the caller says the transition is
	// about, if any. It must match Round.
	RequestedRoundID string
	// Drawn is set by the draw effect.
	Drawn *domain.DrawResult
}

// Guard returns nil when the edge may be taken.
type Guard func(s *Snapshot) error

// Effect mutates the game and its rounds inside the transition's database
// transaction. The new phase is persisted by the caller afterwards.
type Effect func(ctx context.Context, repos domain.Repositories, s *Snapshot, now time.Time) error

// Edge is one allowed transition.
type Edge struct {
	From   domain.GameState
	To     domain.GameState
	Guard  Guard
	Effect Effect
}

// DefaultEdges returns the session lifecycle.
func DefaultEdges(minPlayers int) []Edge {
	return []Edge{
		{From: domain.StateLobby, To: domain.StateQuestionBuild, Guard: minContestants(minPlayers), Effect: stamp(domain.MetaQuestionBuildAt)},
		{From: domain.StateLobby, To: domain.StateCancelled, Guard: always, Effect: cancelGame},
		{From: domain.StateQuestionBuild, To: domain.StateCancelled, Guard: always, Effect: cancelGame},
		{From: domain.StateQuestionBuild, To: domain.StateRoundActive, Guard: all(requestedRound, noActiveRound, hasQuestion), Effect: drawRound},
		{From: domain.StateRoundActive, To: domain.StateRoundResults, Guard: all(requestedRound, roundIs(domain.RoundStatusActive)), Effect: finishRound},
		{From: domain.StateRoundResults, To: domain.StateRoundActive, Guard: all(requestedRound, roundsRemaining, noActiveRound, hasQuestion), Effect: drawRound},
		{From: domain.StateRoundResults, To: domain.StateGameFinished, Guard: gameComplete, Effect: stamp(domain.MetaEndedAt)},
	}
}

// guards

func always(*Snapshot) error { return nil }

func all(guards ...Guard) Guard {
	return func(s *Snapshot) error {
		for _, g := range guards {
			if err := g(s); err != nil {
				return err
			}
		}
		return nil
	}
}

func minContestants(n int) Guard {
	return func(s *Snapshot) error {
		if s.Contestants < int64(n) {
			return fmt.Errorf("need at least %d players, have %d", n, s.Contestants)
		}
		return nil
	}
}

func roundIs(status domain.RoundStatus) Guard {
	return func(s *Snapshot) error {
		if s.Round == nil {
			return errors.New("no round to act on")
		}
		if s.Round.Status != status {
			return fmt.Errorf("round %d is %s, want %s", s.Round.RoundNumber, s.Round.Status, status)
		}
		return nil
	}
}

// requestedRound rejects a caller-named round that is not the one the edge
// acts on: the active round, or the next question the draw would pick.
func requestedRound(s *Snapshot) error {
	if s.RequestedRoundID == "" {
		return nil
	}
	if s.Round == nil || s.Round.ID != s.RequestedRoundID {
		return fmt.Errorf("round %s is not the round in play or the next question", s.RequestedRoundID)
	}
	return nil
}

// hasQuestion needs a pending deck round that passes the chill filter.
func hasQuestion(s *Snapshot) error {
	if !s.HasPending {
		return noQuestions(s.Game)
	}
	return nil
}

func noActiveRound(s *Snapshot) error {
	if s.Counts.Active > 0 {
		return errors.New("another round is still active")
	}
	return nil
}

func roundsRemaining(s *Snapshot) error {
	return checkRoundsLeft(s.Game, s.Counts)
}

func gameComplete(s *Snapshot) error {
	if s.Counts.FinishedPlayed >= int64(s.Game.RoundsPerGame) || !s.HasPending {
		return nil
	}
	return fmt.Errorf("%d of %d rounds played and questions remain", s.Counts.FinishedPlayed, s.Game.RoundsPerGame)
}

// effects

func stamp(key string) Effect {
	return func(_ context.Context, _ domain.Repositories, s *Snapshot, now time.Time) error {
		s.Game.Stamp(key, now)
		return nil
	}
}

func cancelGame(_ context.Context, _ domain.Repositories, s *Snapshot, now time.Time) error {
	s.Game.Status = domain.GameStatusCancelled
	s.Game.Stamp(domain.MetaCancelledAt, now)
	return nil
}

// drawRound puts the next deck question into play through Draw, so the
// lifecycle and DrawNextQuestion share one activation path.
func drawRound(ctx context.Context, repos domain.Repositories, s *Snapshot, now time.Time) error {
	drawn, err := Draw(ctx, repos, s.Game, now)
	if err != nil {
		return err
	}

	s.Game.Status = domain.GameStatusPlaying
	if _, ok := s.Game.Metadata[domain.MetaStartedAt]; !ok {
		s.Game.Stamp(domain.MetaStartedAt, now)
	}
	s.Round = drawn.Round
	s.Drawn = drawn
	return nil
}

func finishRound(ctx context.Context, repos domain.Repositories, s *Snapshot, now time.Time) error {
	s.Round.Finish(now)
	return repos.Rounds().Update(ctx, s.Round)
}
