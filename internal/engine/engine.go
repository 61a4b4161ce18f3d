package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/notnil/chess"

	apperrors "chess_mate/internal/errors"
	"chess_mate/internal/statuses"
)

// InitialFEN is the standard chess starting position.
const InitialFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// MoveInfo describes one legal move in a position.
type MoveInfo struct {
	From        string
	To          string
	SAN         string
	UCI         string
	Piece       string // moving piece letter: K Q R B N P
	Promotion   string
	IsCapture   bool
	IsCheck     bool
	IsMate      bool
	IsCastle    bool
	IsPromotion bool
}

// Validation is the oracle's verdict on a legal candidate move.
type Validation struct {
	From      string
	To        string
	SAN       string
	UCI       string
	Promotion string
	FENAfter  string
	Status    string
}

// Engine wraps the notnil/chess rules engine behind FEN-string inputs.
// It is stateless and safe for concurrent use.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// Validate checks a candidate move, given in SAN ("Nxf7", "O-O", "e8=Q") or
// UCI ("g1f3") notation, against the position. Illegal or unparseable moves
// fail with ErrInvalidMove.
func (e *Engine) Validate(fen string, notation string) (Validation, error) {
	pos, err := parseFEN(fen)
	if err != nil {
		return Validation{}, err
	}
	mv, err := findLegal(pos, notation)
	if err != nil {
		return Validation{}, err
	}
	return buildValidation(pos, mv), nil
}

// ValidateSquares checks a move given as from/to squares plus an optional
// promotion piece ("q", "queen", ...).
func (e *Engine) ValidateSquares(fen, from, to, promotion string) (Validation, error) {
	promo, err := promoLetter(promotion)
	if err != nil {
		return Validation{}, err
	}
	return e.Validate(fen, strings.ToLower(from)+strings.ToLower(to)+promo)
}

// LegalMoves enumerates every legal move in the position.
func (e *Engine) LegalMoves(fen string) ([]MoveInfo, error) {
	pos, err := parseFEN(fen)
	if err != nil {
		return nil, err
	}
	valid := pos.ValidMoves()
	out := make([]MoveInfo, 0, len(valid))
	for _, m := range valid {
		info := MoveInfo{
			From:        m.S1().String(),
			To:          m.S2().String(),
			SAN:         chess.AlgebraicNotation{}.Encode(pos, m),
			UCI:         chess.UCINotation{}.Encode(pos, m),
			Piece:       pieceLetter(pos.Board().Piece(m.S1()).Type()),
			IsCapture:   m.HasTag(chess.Capture) || m.HasTag(chess.EnPassant),
			IsCheck:     m.HasTag(chess.Check),
			IsCastle:    m.HasTag(chess.KingSideCastle) || m.HasTag(chess.QueenSideCastle),
			IsPromotion: m.Promo() != chess.NoPieceType,
		}
		if info.IsPromotion {
			info.Promotion = m.Promo().String()
		}
		if info.IsCheck {
			info.IsMate = pos.Update(m).Status() == chess.Checkmate
		}
		out = append(out, info)
	}
	return out, nil
}

// Status derives the game status from the position alone.
func (e *Engine) Status(fen string) (string, error) {
	pos, err := parseFEN(fen)
	if err != nil {
		return "", err
	}
	return statusOf(pos), nil
}

// InCheck reports whether the side to move is in check.
func (e *Engine) InCheck(fen string) (bool, error) {
	pos, err := parseFEN(fen)
	if err != nil {
		return false, err
	}
	return positionInCheck(pos), nil
}

func parseFEN(fen string) (*chess.Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid position %q: %w", fen, err)
	}
	return chess.NewGame(opt).Position(), nil
}

// findLegal resolves a SAN or UCI string to a member of the position's
// legal-move set. SAN matching tolerates missing or extra +/# suffixes and
// zero-style castling ("0-0").
func findLegal(pos *chess.Position, notation string) (*chess.Move, error) {
	s := strings.TrimSpace(notation)
	if s == "0-0" || s == "0-0-0" {
		s = strings.ReplaceAll(s, "0", "O")
	}
	if s == "" {
		return nil, fmt.Errorf("%w: empty move", apperrors.ErrInvalidMove)
	}

	valid := pos.ValidMoves()
	bare := strings.TrimRight(s, "+#")
	for _, m := range valid {
		san := chess.AlgebraicNotation{}.Encode(pos, m)
		if san == s || strings.TrimRight(san, "+#") == bare {
			return m, nil
		}
	}
	if probe, err := (chess.UCINotation{}).Decode(pos, strings.ToLower(bare)); err == nil {
		for _, m := range valid {
			if m.S1() == probe.S1() && m.S2() == probe.S2() && m.Promo() == probe.Promo() {
				return m, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidMove, notation)
}

func buildValidation(pos *chess.Position, m *chess.Move) Validation {
	after := pos.Update(m)
	v := Validation{
		From:     m.S1().String(),
		To:       m.S2().String(),
		SAN:      chess.AlgebraicNotation{}.Encode(pos, m),
		UCI:      chess.UCINotation{}.Encode(pos, m),
		FENAfter: after.String(),
		Status:   statusOf(after),
	}
	if m.Promo() != chess.NoPieceType {
		v.Promotion = m.Promo().String()
	}
	return v
}

func statusOf(pos *chess.Position) string {
	switch pos.Status() {
	case chess.Checkmate:
		return statuses.StatusCheckmate
	case chess.Stalemate:
		return statuses.StatusStalemate
	}
	if halfmoveClock(pos.String()) >= 100 || insufficientMaterial(pos) {
		return statuses.StatusDraw
	}
	if positionInCheck(pos) {
		return statuses.StatusCheck
	}
	return statuses.StatusPlaying
}

// halfmoveClock reads the fifty-move counter out of a FEN string.
func halfmoveClock(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 5 {
		return 0
	}
	n, err := strconv.Atoi(fields[4])
	if err != nil {
		return 0
	}
	return n
}

// insufficientMaterial covers K vs K, K+minor vs K and positions where all
// remaining minors are same-colored bishops.
func insufficientMaterial(pos *chess.Position) bool {
	minors := 0
	bishops := make([]chess.Square, 0, 2)
	for sq, p := range pos.Board().SquareMap() {
		switch p.Type() {
		case chess.Pawn, chess.Rook, chess.Queen:
			return false
		case chess.Knight:
			minors++
		case chess.Bishop:
			minors++
			bishops = append(bishops, sq)
		}
	}
	if minors <= 1 {
		return true
	}
	if minors == len(bishops) {
		color := squareShade(bishops[0])
		for _, sq := range bishops[1:] {
			if squareShade(sq) != color {
				return false
			}
		}
		return true
	}
	return false
}

func squareShade(sq chess.Square) int {
	return (int(sq.File()) + int(sq.Rank())) % 2
}

func positionInCheck(pos *chess.Position) bool {
	kingSq, ok := kingSquare(pos, pos.Turn())
	if !ok {
		return false
	}
	return squareAttacked(pos.Board(), kingSq, pos.Turn().Other())
}

func kingSquare(pos *chess.Position, color chess.Color) (chess.Square, bool) {
	for sq, p := range pos.Board().SquareMap() {
		if p.Type() == chess.King && p.Color() == color {
			return sq, true
		}
	}
	return 0, false
}

var (
	knightOffsets = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingOffsets   = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	bishopDirs    = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	rookDirs      = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
)

// squareAttacked reports whether any piece of the given color attacks the
// target square. The notnil position API keeps its check detection private,
// so the scan is done against the board directly.
func squareAttacked(b *chess.Board, target chess.Square, by chess.Color) bool {
	tf, tr := int(target.File()), int(target.Rank())

	for _, o := range knightOffsets {
		if pieceAt(b, tf+o[0], tr+o[1], by, chess.Knight) {
			return true
		}
	}
	for _, o := range kingOffsets {
		if pieceAt(b, tf+o[0], tr+o[1], by, chess.King) {
			return true
		}
	}

	// A pawn attacks diagonally toward the enemy side.
	pawnRank := tr - 1
	if by == chess.Black {
		pawnRank = tr + 1
	}
	if pieceAt(b, tf-1, pawnRank, by, chess.Pawn) || pieceAt(b, tf+1, pawnRank, by, chess.Pawn) {
		return true
	}

	for _, d := range bishopDirs {
		if slideHits(b, tf, tr, d, by, chess.Bishop, chess.Queen) {
			return true
		}
	}
	for _, d := range rookDirs {
		if slideHits(b, tf, tr, d, by, chess.Rook, chess.Queen) {
			return true
		}
	}
	return false
}

func pieceAt(b *chess.Board, file, rank int, color chess.Color, pieceType chess.PieceType) bool {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return false
	}
	p := b.Piece(chess.Square(rank*8 + file))
	return p != chess.NoPiece && p.Color() == color && p.Type() == pieceType
}

func slideHits(b *chess.Board, file, rank int, dir [2]int, by chess.Color, types ...chess.PieceType) bool {
	f, r := file+dir[0], rank+dir[1]
	for f >= 0 && f <= 7 && r >= 0 && r <= 7 {
		p := b.Piece(chess.Square(r*8 + f))
		if p != chess.NoPiece {
			if p.Color() == by {
				for _, t := range types {
					if p.Type() == t {
						return true
					}
				}
			}
			return false
		}
		f += dir[0]
		r += dir[1]
	}
	return false
}

func pieceLetter(t chess.PieceType) string {
	switch t {
	case chess.King:
		return "K"
	case chess.Queen:
		return "Q"
	case chess.Rook:
		return "R"
	case chess.Bishop:
		return "B"
	case chess.Knight:
		return "N"
	case chess.Pawn:
		return "P"
	}
	return ""
}

func promoLetter(promotion string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(promotion)) {
	case "":
		return "", nil
	case "q", "queen":
		return "q", nil
	case "r", "rook":
		return "r", nil
	case "b", "bishop":
		return "b", nil
	case "n", "knight":
		return "n", nil
	}
	return "", fmt.Errorf("%w: unknown promotion piece %q", apperrors.ErrInvalidMove, promotion)
}
