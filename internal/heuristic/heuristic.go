package heuristic

import (
	"fmt"
	"math/rand"
	"sync"

	"chess_mate/internal/engine"
	"chess_mate/internal/statuses"
)

const (
	castlingPlyLimit    = 15
	developmentPlyLimit = 12
	centerPlyLimit      = 20

	easyCaptureBias    = 0.3
	mediumCaptureBias  = 0.7
	mediumCheckBias    = 0.5
	mediumCastlingBias = 0.6
)

// Mover is the rule-based fallback move picker used when the suggestion
// service is unavailable. It only needs the legality oracle and a seeded
// random source, so its choices are reproducible in tests.
type Mover struct {
	engine *engine.Engine
	mu     sync.Mutex
	rnd    *rand.Rand
}

func NewMover(eng *engine.Engine, seed int64) *Mover {
	return &Mover{
		engine: eng,
		rnd:    rand.New(rand.NewSource(seed)),
	}
}

// PickMove selects a move for the side to move, in SAN. ply is the number of
// half-moves already played. It fails only when the position is terminal or
// the FEN cannot be parsed.
func (m *Mover) PickMove(fen, difficulty string, ply int) (string, error) {
	moves, err := m.engine.LegalMoves(fen)
	if err != nil {
		return "", err
	}
	if len(moves) == 0 {
		return "", fmt.Errorf("no legal moves in position %q", fen)
	}
	inCheck, err := m.engine.InCheck(fen)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if inCheck {
		return m.pickInCheck(moves), nil
	}

	switch difficulty {
	case statuses.DifficultyMedium:
		return m.pickMedium(moves, ply), nil
	case statuses.DifficultyHard:
		return m.pickHard(moves, ply), nil
	default:
		return m.pickEasy(moves), nil
	}
}

// pickInCheck resolves a check: take a mate if one exists, then a checking
// reply, then a capture, otherwise any legal escape.
func (m *Mover) pickInCheck(moves []engine.MoveInfo) string {
	if mates := filter(moves, isMate); len(mates) > 0 {
		return m.oneOf(mates)
	}
	if checks := filter(moves, isCheck); len(checks) > 0 {
		return m.oneOf(checks)
	}
	if captures := filter(moves, isCapture); len(captures) > 0 {
		return m.oneOf(captures)
	}
	return m.oneOf(moves)
}

func (m *Mover) pickEasy(moves []engine.MoveInfo) string {
	captures := filter(moves, isCapture)
	if len(captures) > 0 && m.rnd.Float64() < easyCaptureBias {
		return m.oneOf(captures)
	}
	return m.oneOf(moves)
}

func (m *Mover) pickMedium(moves []engine.MoveInfo, ply int) string {
	if mates := filter(moves, isMate); len(mates) > 0 {
		return m.oneOf(mates)
	}
	if captures := filter(moves, isCapture); len(captures) > 0 && m.rnd.Float64() < mediumCaptureBias {
		return m.oneOf(captures)
	}
	if checks := filter(moves, isCheck); len(checks) > 0 && m.rnd.Float64() < mediumCheckBias {
		return m.oneOf(checks)
	}
	if ply < castlingPlyLimit {
		if castles := filter(moves, isCastle); len(castles) > 0 && m.rnd.Float64() < mediumCastlingBias {
			return m.oneOf(castles)
		}
	}
	return m.oneOf(moves)
}

// pickHard always converts a mate or a promotion, then ranks the remaining
// moves into priority buckets and draws uniformly from the best one:
// captures (3), checks and early development (2), early center control (1).
func (m *Mover) pickHard(moves []engine.MoveInfo, ply int) string {
	if mates := filter(moves, isMate); len(mates) > 0 {
		return m.oneOf(mates)
	}
	if promotions := filter(moves, isPromotion); len(promotions) > 0 {
		return m.oneOf(promotions)
	}

	buckets := map[int][]engine.MoveInfo{}
	for _, mv := range moves {
		buckets[hardPriority(mv, ply)] = append(buckets[hardPriority(mv, ply)], mv)
	}
	for _, priority := range []int{3, 2, 1} {
		if len(buckets[priority]) > 0 {
			return m.oneOf(buckets[priority])
		}
	}
	return m.oneOf(moves)
}

func hardPriority(mv engine.MoveInfo, ply int) int {
	switch {
	case mv.IsCapture:
		return 3
	case mv.IsCheck || (isDevelopment(mv) && ply < developmentPlyLimit):
		return 2
	case isCenterControl(mv) && ply < centerPlyLimit:
		return 1
	}
	return 0
}

func (m *Mover) oneOf(moves []engine.MoveInfo) string {
	return moves[m.rnd.Intn(len(moves))].SAN
}

func filter(moves []engine.MoveInfo, keep func(engine.MoveInfo) bool) []engine.MoveInfo {
	var out []engine.MoveInfo
	for _, mv := range moves {
		if keep(mv) {
			out = append(out, mv)
		}
	}
	return out
}

func isMate(mv engine.MoveInfo) bool      { return mv.IsMate }
func isCheck(mv engine.MoveInfo) bool     { return mv.IsCheck }
func isCapture(mv engine.MoveInfo) bool   { return mv.IsCapture }
func isCastle(mv engine.MoveInfo) bool    { return mv.IsCastle }
func isPromotion(mv engine.MoveInfo) bool { return mv.IsPromotion }

// isDevelopment marks a knight or bishop leaving its home rank.
func isDevelopment(mv engine.MoveInfo) bool {
	if mv.Piece != "N" && mv.Piece != "B" {
		return false
	}
	return len(mv.From) == 2 && (mv.From[1] == '1' || mv.From[1] == '8')
}

func isCenterControl(mv engine.MoveInfo) bool {
	switch mv.To {
	case "d4", "e4", "d5", "e5":
		return true
	}
	return false
}
