package heuristic

import (
	"strings"
	"testing"

	"chess_mate/internal/engine"
	"chess_mate/internal/statuses"
)

const (
	// After 1.f3 e5 2.g4, black mates with Qh4#.
	foolsMatePreFEN = "rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq g3 0 2"
	// After 1.e4 d5 2.Bb5+, black is in check.
	bishopCheckFEN = "rnbqkbnr/ppp1pppp/8/1B1p4/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 1 2"
	// The only capture is Rxd5.
	loneCaptureFEN = "k7/8/8/3p4/3R4/8/8/K7 w - - 40 30"
	// White promotes on a8.
	promotionFEN = "8/P6k/8/8/8/8/8/K7 w - - 0 1"
)

func newTestMover() *Mover {
	return NewMover(engine.New(), 1)
}

func assertLegal(t *testing.T, fen, san string) {
	t.Helper()
	if _, err := engine.New().Validate(fen, san); err != nil {
		t.Fatalf("picked illegal move %q in %q: %v", san, fen, err)
	}
}

func TestPickMoveAlwaysLegal(t *testing.T) {
	m := newTestMover()
	for _, difficulty := range []string{statuses.DifficultyEasy, statuses.DifficultyMedium, statuses.DifficultyHard} {
		for i := 0; i < 20; i++ {
			san, err := m.PickMove(engine.InitialFEN, difficulty, 0)
			if err != nil {
				t.Fatalf("%s: %v", difficulty, err)
			}
			assertLegal(t, engine.InitialFEN, san)
		}
	}
}

func TestPickMoveTerminalPosition(t *testing.T) {
	m := newTestMover()
	if _, err := m.PickMove("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", statuses.DifficultyEasy, 10); err == nil {
		t.Fatal("expected an error in a position with no legal moves")
	}
}

func TestMediumAndHardConvertMate(t *testing.T) {
	m := newTestMover()
	for _, difficulty := range []string{statuses.DifficultyMedium, statuses.DifficultyHard} {
		for i := 0; i < 10; i++ {
			san, err := m.PickMove(foolsMatePreFEN, difficulty, 4)
			if err != nil {
				t.Fatal(err)
			}
			if san != "Qh4#" {
				t.Fatalf("%s picked %q, want Qh4#", difficulty, san)
			}
		}
	}
}

func TestHardPrefersCapture(t *testing.T) {
	m := newTestMover()
	for i := 0; i < 10; i++ {
		san, err := m.PickMove(loneCaptureFEN, statuses.DifficultyHard, 58)
		if err != nil {
			t.Fatal(err)
		}
		if san != "Rxd5" {
			t.Fatalf("picked %q, want Rxd5", san)
		}
	}
}

func TestHardConvertsPromotion(t *testing.T) {
	m := newTestMover()
	for i := 0; i < 10; i++ {
		san, err := m.PickMove(promotionFEN, statuses.DifficultyHard, 60)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(san, "=") {
			t.Fatalf("picked %q, want a promotion", san)
		}
	}
}

func TestInCheckAlwaysResolvesCheck(t *testing.T) {
	m := newTestMover()

	// Every legal reply in the position resolves the check, so legality of
	// the pick is the property under test.
	for _, difficulty := range []string{statuses.DifficultyEasy, statuses.DifficultyMedium, statuses.DifficultyHard} {
		for i := 0; i < 10; i++ {
			san, err := m.PickMove(bishopCheckFEN, difficulty, 3)
			if err != nil {
				t.Fatal(err)
			}
			assertLegal(t, bishopCheckFEN, san)
		}
	}
}

func TestSeededMoverIsDeterministic(t *testing.T) {
	a := NewMover(engine.New(), 42)
	b := NewMover(engine.New(), 42)
	for i := 0; i < 10; i++ {
		x, err := a.PickMove(engine.InitialFEN, statuses.DifficultyMedium, 0)
		if err != nil {
			t.Fatal(err)
		}
		y, err := b.PickMove(engine.InitialFEN, statuses.DifficultyMedium, 0)
		if err != nil {
			t.Fatal(err)
		}
		if x != y {
			t.Fatalf("step %d diverged: %q vs %q", i, x, y)
		}
	}
}
