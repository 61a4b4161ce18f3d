package game

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"chess_mate/internal/domain/game"
	"chess_mate/internal/engine"
	apperrors "chess_mate/internal/errors"
	"chess_mate/internal/heuristic"
	"chess_mate/internal/statuses"
)

const (
	testOwner = "user-1"

	// After 1.f3 e5 2.g4, black mates with Qh4#.
	foolsMatePreFEN = "rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq g3 0 2"
	// After 1.e4 d5 2.Bb5+, black is in check.
	bishopCheckFEN = "rnbqkbnr/ppp1pppp/8/1B1p4/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 1 2"
)

type fakeStore struct {
	mu    sync.Mutex
	games map[string]game.Game
}

func newFakeStore() *fakeStore {
	return &fakeStore{games: make(map[string]game.Game)}
}

func (s *fakeStore) CreateGame(_ context.Context, g game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g
	return nil
}

func (s *fakeStore) GetGameByID(_ context.Context, id string) (game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return game.Game{}, apperrors.ErrGameNotFound
	}
	return g, nil
}

func (s *fakeStore) SaveGameVersioned(_ context.Context, g game.Game) (game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.games[g.ID]
	if !ok {
		return game.Game{}, apperrors.ErrGameNotFound
	}
	if cur.Version != g.Version {
		return game.Game{}, apperrors.ErrVersionConflict
	}
	g.Version++
	s.games[g.ID] = g
	return g, nil
}

func (s *fakeStore) DeleteGame(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return apperrors.ErrGameNotFound
	}
	delete(s.games, id)
	return nil
}

type fakeStats struct {
	mu    sync.Mutex
	games []game.Game
}

func (f *fakeStats) Enqueue(g game.Game) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games = append(f.games, g)
}

func (f *fakeStats) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.games)
}

type suggestion struct {
	move string
	err  error
}

type fakeSuggester struct {
	mu        sync.Mutex
	backends  []string
	responses []suggestion
	calls     []string
}

func (f *fakeSuggester) Backends() []string { return f.backends }

func (f *fakeSuggester) Suggest(_ context.Context, backend string, _ game.SuggestionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, backend)
	if len(f.responses) == 0 {
		return "", apperrors.NewAIServiceError(apperrors.AIErrUnknown, backend, errors.New("no scripted response"))
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp.move, resp.err
}

func (f *fakeSuggester) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type testEnv struct {
	uc        *GameUseCase
	store     *fakeStore
	suggester *fakeSuggester
	stats     *fakeStats
}

func newTestEnv() *testEnv {
	eng := engine.New()
	store := newFakeStore()
	suggester := &fakeSuggester{backends: []string{"primary", "secondary"}}
	stats := &fakeStats{}
	uc := NewGameUseCase(store, eng, heuristic.NewMover(eng, 1), suggester, stats, zap.NewNop().Sugar())
	uc.backoffBase = 0
	return &testEnv{uc: uc, store: store, suggester: suggester, stats: stats}
}

// seedGame plants a game directly in the store, bypassing CreateGame.
func (e *testEnv) seedGame(t *testing.T, g game.Game) game.Game {
	t.Helper()
	if g.ID == "" {
		g.ID = "game-1"
	}
	if g.OwnerID == "" {
		g.OwnerID = testOwner
	}
	if g.Version == 0 {
		g.Version = 1
	}
	if g.Status == "" {
		g.Status = statuses.StatusPlaying
	}
	if err := e.store.CreateGame(context.Background(), g); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestCreateGameDefaults(t *testing.T) {
	env := newTestEnv()

	created, err := env.uc.CreateGame(context.Background(), testOwner, game.CreateGameRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if created.Difficulty != statuses.DifficultyMedium {
		t.Errorf("difficulty = %q, want medium", created.Difficulty)
	}
	if created.PlayerColor != statuses.ColorWhite {
		t.Errorf("player color = %q, want white", created.PlayerColor)
	}
	if created.FEN != engine.InitialFEN {
		t.Errorf("FEN = %q, want the initial position", created.FEN)
	}
	if created.CurrentPlayer != statuses.ColorWhite {
		t.Errorf("current player = %q, want white", created.CurrentPlayer)
	}
	if created.Version != 1 {
		t.Errorf("version = %d, want 1", created.Version)
	}
	if created.Completed || created.Result != nil {
		t.Error("a new game must not be completed")
	}
}

func TestCreateGameRejectsBadParameters(t *testing.T) {
	env := newTestEnv()

	if _, err := env.uc.CreateGame(context.Background(), testOwner, game.CreateGameRequest{Difficulty: "impossible"}); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("bad difficulty error = %v, want ErrInvalidState", err)
	}
	if _, err := env.uc.CreateGame(context.Background(), testOwner, game.CreateGameRequest{PlayerColor: "green"}); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("bad color error = %v, want ErrInvalidState", err)
	}
}

func TestGetGameOwnership(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedGame(t, game.Game{FEN: engine.InitialFEN, CurrentPlayer: statuses.ColorWhite, Difficulty: statuses.DifficultyEasy, PlayerColor: statuses.ColorWhite})

	if _, err := env.uc.GetGame(context.Background(), testOwner, seeded.ID); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := env.uc.GetGame(context.Background(), "intruder", seeded.ID); !errors.Is(err, apperrors.ErrNotGameOwner) {
		t.Errorf("foreign read error = %v, want ErrNotGameOwner", err)
	}
	if _, err := env.uc.GetGame(context.Background(), testOwner, "missing"); !errors.Is(err, apperrors.ErrGameNotFound) {
		t.Errorf("missing game error = %v, want ErrGameNotFound", err)
	}
}

func TestApplyPlayerMove(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedGame(t, game.Game{FEN: engine.InitialFEN, CurrentPlayer: statuses.ColorWhite, Difficulty: statuses.DifficultyEasy, PlayerColor: statuses.ColorWhite})

	res, err := env.uc.ApplyPlayerMove(context.Background(), testOwner, seeded.ID, game.PlayerMoveRequest{From: "e2", To: "e4"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Move.Notation != "e4" {
		t.Errorf("notation = %q, want e4", res.Move.Notation)
	}
	if !strings.Contains(res.FEN, " b ") {
		t.Errorf("black should be on the move after e4, FEN = %q", res.FEN)
	}
	if res.Game.CurrentPlayer != statuses.ColorBlack {
		t.Errorf("current player = %q, want black", res.Game.CurrentPlayer)
	}
	if res.Game.Version != 2 {
		t.Errorf("version = %d, want 2", res.Game.Version)
	}
	if len(res.Game.Moves) != 1 {
		t.Errorf("history length = %d, want 1", len(res.Game.Moves))
	}
}

func TestApplyPlayerMoveRejections(t *testing.T) {
	env := newTestEnv()

	outOfTurn := env.seedGame(t, game.Game{ID: "g-turn", FEN: engine.InitialFEN, CurrentPlayer: statuses.ColorWhite, Difficulty: statuses.DifficultyEasy, PlayerColor: statuses.ColorBlack})
	if _, err := env.uc.ApplyPlayerMove(context.Background(), testOwner, outOfTurn.ID, game.PlayerMoveRequest{From: "e7", To: "e5"}); !errors.Is(err, apperrors.ErrTurnViolation) {
		t.Errorf("out of turn error = %v, want ErrTurnViolation", err)
	}

	illegal := env.seedGame(t, game.Game{ID: "g-illegal", FEN: engine.InitialFEN, CurrentPlayer: statuses.ColorWhite, Difficulty: statuses.DifficultyEasy, PlayerColor: statuses.ColorWhite})
	if _, err := env.uc.ApplyPlayerMove(context.Background(), testOwner, illegal.ID, game.PlayerMoveRequest{From: "e2", To: "e5"}); !errors.Is(err, apperrors.ErrInvalidMove) {
		t.Errorf("illegal move error = %v, want ErrInvalidMove", err)
	}

	done := env.seedGame(t, game.Game{ID: "g-done", FEN: engine.InitialFEN, CurrentPlayer: statuses.ColorWhite, Difficulty: statuses.DifficultyEasy, PlayerColor: statuses.ColorWhite, Completed: true, Status: statuses.StatusCheckmate})
	if _, err := env.uc.ApplyPlayerMove(context.Background(), testOwner, done.ID, game.PlayerMoveRequest{From: "e2", To: "e4"}); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("completed game error = %v, want ErrInvalidState", err)
	}
}

func TestApplyPlayerMoveVersionConflict(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedGame(t, game.Game{FEN: engine.InitialFEN, CurrentPlayer: statuses.ColorWhite, Difficulty: statuses.DifficultyEasy, PlayerColor: statuses.ColorWhite})

	// Simulate a concurrent writer bumping the stored version.
	env.store.mu.Lock()
	bumped := env.store.games[seeded.ID]
	bumped.Version = 7
	env.store.games[seeded.ID] = bumped
	env.store.mu.Unlock()

	seeded.Version = 1
	if _, err := env.store.SaveGameVersioned(context.Background(), seeded); !errors.Is(err, apperrors.ErrVersionConflict) {
		t.Errorf("stale write error = %v, want ErrVersionConflict", err)
	}
}

func TestApplyPlayerMoveCompletesGame(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedGame(t, game.Game{
		FEN:           foolsMatePreFEN,
		CurrentPlayer: statuses.ColorBlack,
		Difficulty:    statuses.DifficultyEasy,
		PlayerColor:   statuses.ColorBlack,
		Moves: []game.Move{
			{Notation: "f3"}, {Notation: "e5"}, {Notation: "g4"},
		},
	})

	res, err := env.uc.ApplyPlayerMove(context.Background(), testOwner, seeded.ID, game.PlayerMoveRequest{From: "d8", To: "h4"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != statuses.StatusCheckmate {
		t.Fatalf("status = %q, want checkmate", res.Status)
	}
	if res.Result == nil {
		t.Fatal("expected a result on the completed game")
	}
	if res.Result.Winner != statuses.ColorBlack {
		t.Errorf("winner = %q, want black", res.Result.Winner)
	}
	if res.Result.Reason != statuses.ReasonCheckmate {
		t.Errorf("reason = %q, want checkmate", res.Result.Reason)
	}
	if res.Result.MoveCount != 4 {
		t.Errorf("move count = %d, want 4", res.Result.MoveCount)
	}
	if !res.Game.Completed {
		t.Error("game must be marked completed")
	}
	if env.stats.count() != 1 {
		t.Errorf("stats received %d games, want 1", env.stats.count())
	}
}

func TestUndoReplaysHistory(t *testing.T) {
	env := newTestEnv()
	eng := engine.New()

	fen := engine.InitialFEN
	var moves []game.Move
	for _, san := range []string{"e4", "e5", "Nf3"} {
		v, err := eng.Validate(fen, san)
		if err != nil {
			t.Fatal(err)
		}
		moves = append(moves, game.Move{From: v.From, To: v.To, Notation: v.SAN})
		fen = v.FENAfter
	}
	afterE4, err := eng.Validate(engine.InitialFEN, "e4")
	if err != nil {
		t.Fatal(err)
	}

	seeded := env.seedGame(t, game.Game{FEN: fen, CurrentPlayer: statuses.ColorBlack, Difficulty: statuses.DifficultyEasy, PlayerColor: statuses.ColorWhite, Moves: moves})

	undone, err := env.uc.Undo(context.Background(), testOwner, seeded.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if undone.FEN != afterE4.FENAfter {
		t.Errorf("FEN = %q, want the position after e4", undone.FEN)
	}
	if len(undone.Moves) != 1 {
		t.Errorf("history length = %d, want 1", len(undone.Moves))
	}
	if undone.CurrentPlayer != statuses.ColorBlack {
		t.Errorf("current player = %q, want black", undone.CurrentPlayer)
	}
	if undone.Completed || undone.Result != nil {
		t.Error("an undone game must not be completed")
	}
}

func TestUndoDefaultsToOneMove(t *testing.T) {
	env := newTestEnv()
	eng := engine.New()

	v, err := eng.Validate(engine.InitialFEN, "e4")
	if err != nil {
		t.Fatal(err)
	}
	seeded := env.seedGame(t, game.Game{FEN: v.FENAfter, CurrentPlayer: statuses.ColorBlack, Difficulty: statuses.DifficultyEasy, PlayerColor: statuses.ColorWhite, Moves: []game.Move{{From: "e2", To: "e4", Notation: "e4"}}})

	undone, err := env.uc.Undo(context.Background(), testOwner, seeded.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if undone.FEN != engine.InitialFEN {
		t.Errorf("FEN = %q, want the initial position", undone.FEN)
	}
	if len(undone.Moves) != 0 {
		t.Errorf("history length = %d, want 0", len(undone.Moves))
	}
}

func TestUndoRejections(t *testing.T) {
	env := newTestEnv()

	short := env.seedGame(t, game.Game{ID: "g-short", FEN: engine.InitialFEN, CurrentPlayer: statuses.ColorWhite, Difficulty: statuses.DifficultyEasy, PlayerColor: statuses.ColorWhite})
	if _, err := env.uc.Undo(context.Background(), testOwner, short.ID, 1); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("undo past history error = %v, want ErrInvalidState", err)
	}

	done := env.seedGame(t, game.Game{ID: "g-done", FEN: engine.InitialFEN, CurrentPlayer: statuses.ColorWhite, Difficulty: statuses.DifficultyEasy, PlayerColor: statuses.ColorWhite, Completed: true, Status: statuses.StatusCheckmate, Moves: []game.Move{{Notation: "e4"}}})
	if _, err := env.uc.Undo(context.Background(), testOwner, done.ID, 1); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("undo completed game error = %v, want ErrInvalidState", err)
	}
}

func TestUndoCorruptHistory(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedGame(t, game.Game{
		FEN:           engine.InitialFEN,
		CurrentPlayer: statuses.ColorWhite,
		Difficulty:    statuses.DifficultyEasy,
		PlayerColor:   statuses.ColorWhite,
		Moves:         []game.Move{{Notation: "e4"}, {Notation: "Ke5"}, {Notation: "Nf3"}},
	})

	if _, err := env.uc.Undo(context.Background(), testOwner, seeded.ID, 1); !errors.Is(err, apperrors.ErrReplayError) {
		t.Errorf("corrupt history error = %v, want ErrReplayError", err)
	}
}

func TestReset(t *testing.T) {
	env := newTestEnv()
	eng := engine.New()

	v, err := eng.Validate(engine.InitialFEN, "e4")
	if err != nil {
		t.Fatal(err)
	}
	seeded := env.seedGame(t, game.Game{FEN: v.FENAfter, CurrentPlayer: statuses.ColorBlack, Difficulty: statuses.DifficultyEasy, PlayerColor: statuses.ColorWhite, Moves: []game.Move{{Notation: "e4"}}})

	reset, err := env.uc.Reset(context.Background(), testOwner, seeded.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reset.FEN != engine.InitialFEN {
		t.Errorf("FEN = %q, want the initial position", reset.FEN)
	}
	if len(reset.Moves) != 0 {
		t.Errorf("history length = %d, want 0", len(reset.Moves))
	}
	if reset.Status != statuses.StatusPlaying || reset.CurrentPlayer != statuses.ColorWhite {
		t.Errorf("status/player = %q/%q, want playing/white", reset.Status, reset.CurrentPlayer)
	}
}

func TestListValidMoves(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedGame(t, game.Game{FEN: engine.InitialFEN, CurrentPlayer: statuses.ColorWhite, Difficulty: statuses.DifficultyEasy, PlayerColor: statuses.ColorWhite})

	all, err := env.uc.ListValidMoves(context.Background(), testOwner, seeded.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Moves) != 20 {
		t.Errorf("got %d moves, want 20", len(all.Moves))
	}

	fromE2, err := env.uc.ListValidMoves(context.Background(), testOwner, seeded.ID, "E2")
	if err != nil {
		t.Fatal(err)
	}
	if len(fromE2.Squares) != 2 {
		t.Fatalf("got %d targets from e2, want 2: %v", len(fromE2.Squares), fromE2.Squares)
	}
	targets := map[string]bool{fromE2.Squares[0]: true, fromE2.Squares[1]: true}
	if !targets["e3"] || !targets["e4"] {
		t.Errorf("targets = %v, want e3 and e4", fromE2.Squares)
	}
}

func TestDeleteGame(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedGame(t, game.Game{FEN: engine.InitialFEN, CurrentPlayer: statuses.ColorWhite, Difficulty: statuses.DifficultyEasy, PlayerColor: statuses.ColorWhite})

	if err := env.uc.DeleteGame(context.Background(), "intruder", seeded.ID); !errors.Is(err, apperrors.ErrNotGameOwner) {
		t.Errorf("foreign delete error = %v, want ErrNotGameOwner", err)
	}
	if err := env.uc.DeleteGame(context.Background(), testOwner, seeded.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.uc.GetGame(context.Background(), testOwner, seeded.ID); !errors.Is(err, apperrors.ErrGameNotFound) {
		t.Errorf("read after delete error = %v, want ErrGameNotFound", err)
	}
}
