package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/machine"
	partydb "github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/repository/db"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/usecase"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/anonymizer"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
)

func init() {
	// Init logger for all tests in this package
	logger.Init(logger.Config{Level: "error", Format: "console"})
}

const (
	host   int64 = 1
	alice  int64 = 2
	bob    int64 = 3
	viewer int64 = 9
)

// recordingBroadcaster keeps every published event.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *recordingBroadcaster) Publish(_ context.Context, event domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBroadcaster) ofType(t domain.EventType) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Event
	for _, e := range b.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// countingFlipper always lands the same way and counts flips.
type countingFlipper struct {
	heads bool
	calls atomic.Int32
}

func (f *countingFlipper) Flip(float64) bool {
	f.calls.Add(1)
	return f.heads
}

type fixture struct {
	uc      *usecase.PartyGameUseCase
	store   *partydb.Store
	events  *recordingBroadcaster
	flipper *countingFlipper
	anon    *anonymizer.Anonymizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormLog := logger.NewGormLogger()
	gormLog.LogLevel = gormlogger.Silent
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLog})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// sqlite has no row locks; one connection serialises transactions instead
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := partydb.NewStore(gdb)
	require.NoError(t, store.Migrate(context.Background()))

	anon, err := anonymizer.New("test-secret")
	require.NoError(t, err)

	events := &recordingBroadcaster{}
	flipper := &countingFlipper{heads: true}
	sm := machine.NewStateMachine(store, events, 2)

	return &fixture{
		uc:      usecase.NewPartyGameUseCase(store, sm, events, anon, flipper, usecase.DefaultSettings()),
		store:   store,
		events:  events,
		flipper: flipper,
		anon:    anon,
	}
}

// newGame creates a game hosted by host and joins the given players.
func (f *fixture) newGame(t *testing.T, rounds int, chill bool, players ...int64) *domain.Game {
	t.Helper()
	ctx := context.Background()

	game, err := f.uc.CreateGame(ctx, domain.CreateGameInput{
		HostID:        host,
		RoundsPerGame: rounds,
		ChillMode:     chill,
	})
	require.NoError(t, err)

	for _, p := range players {
		_, err := f.uc.JoinGame(ctx, game.ID, p, false)
		require.NoError(t, err)
	}
	return game
}

func (f *fixture) submit(t *testing.T, gameID string, author int64, question, answer string) *domain.Round {
	t.Helper()
	round, err := f.uc.SubmitQuestion(context.Background(), gameID, author, question, answer)
	require.NoError(t, err)
	return round
}

// readyToDraw walks the lifecycle to a state a draw can leave from: the
// lobby opens question building and an active round is closed.
func (f *fixture) readyToDraw(t *testing.T, gameID string) {
	t.Helper()
	ctx := context.Background()
	game, err := f.store.Games().Get(ctx, gameID)
	require.NoError(t, err)

	switch game.State() {
	case domain.StateLobby:
		_, err = f.uc.TransitionGame(ctx, gameID, domain.StateQuestionBuild, "")
	case domain.StateRoundActive:
		_, err = f.uc.TransitionGame(ctx, gameID, domain.StateRoundResults, "")
	}
	require.NoError(t, err)
}

func (f *fixture) draw(t *testing.T, gameID string) *domain.DrawResult {
	t.Helper()
	f.readyToDraw(t, gameID)
	res, err := f.uc.DrawNextQuestion(context.Background(), gameID)
	require.NoError(t, err)
	return res
}

// revealRound draws a question and moves it straight to the gamble phase.
func (f *fixture) revealRound(t *testing.T, gameID string) *domain.Round {
	t.Helper()
	res := f.draw(t, gameID)
	round, err := f.uc.AdvanceRoundPhase(context.Background(), gameID, res.Round.ID, host)
	require.NoError(t, err)
	return round
}

func (f *fixture) balance(t *testing.T, playerID int64) int64 {
	t.Helper()
	bal, err := f.uc.GetBalance(context.Background(), playerID)
	require.NoError(t, err)
	return bal.Balance
}

func (f *fixture) player(t *testing.T, gameID string, playerID int64) *domain.GamePlayer {
	t.Helper()
	p, err := f.store.Players().Get(context.Background(), gameID, playerID)
	require.NoError(t, err)
	return p
}

func int64p(v int64) *int64 { return &v }
