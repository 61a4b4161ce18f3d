package game

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chess_mate/internal/domain/game"
	"chess_mate/internal/engine"
	apperrors "chess_mate/internal/errors"
	"chess_mate/internal/statuses"
)

type GameStore interface {
	CreateGame(ctx context.Context, g game.Game) error
	GetGameByID(ctx context.Context, id string) (game.Game, error)
	// SaveGameVersioned overwrites the game only when the stored version
	// still matches; a losing concurrent writer gets ErrVersionConflict.
	SaveGameVersioned(ctx context.Context, g game.Game) (game.Game, error)
	DeleteGame(ctx context.Context, id string) error
}

type RulesOracle interface {
	Validate(fen, notation string) (engine.Validation, error)
	ValidateSquares(fen, from, to, promotion string) (engine.Validation, error)
	LegalMoves(fen string) ([]engine.MoveInfo, error)
	InCheck(fen string) (bool, error)
}

type FallbackMover interface {
	PickMove(fen, difficulty string, ply int) (string, error)
}

type SuggestionService interface {
	Backends() []string
	Suggest(ctx context.Context, backend string, req game.SuggestionRequest) (string, error)
}

type StatsRecorder interface {
	Enqueue(g game.Game)
}

type GameUseCase struct {
	store     GameStore
	oracle    RulesOracle
	mover     FallbackMover
	suggester SuggestionService
	stats     StatsRecorder
	log       *zap.SugaredLogger

	aiTimeout     time.Duration
	aiMaxAttempts int
	backoffBase   time.Duration
	backoffCap    time.Duration
}

func NewGameUseCase(store GameStore, oracle RulesOracle, mover FallbackMover, suggester SuggestionService, stats StatsRecorder, log *zap.SugaredLogger) *GameUseCase {
	return &GameUseCase{
		store:         store,
		oracle:        oracle,
		mover:         mover,
		suggester:     suggester,
		stats:         stats,
		log:           log,
		aiTimeout:     10 * time.Second,
		aiMaxAttempts: 3,
		backoffBase:   time.Second,
		backoffCap:    10 * time.Second,
	}
}

func (g *GameUseCase) SetAITimeout(d time.Duration) {
	if d > 0 {
		g.aiTimeout = d
	}
}

func (g *GameUseCase) CreateGame(ctx context.Context, ownerID string, req game.CreateGameRequest) (game.Game, error) {
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = statuses.DifficultyMedium
	}
	if !statuses.IsValidDifficulty(difficulty) {
		return game.Game{}, fmt.Errorf("%w: unknown difficulty %q", apperrors.ErrInvalidState, req.Difficulty)
	}
	playerColor := req.PlayerColor
	if playerColor == "" {
		playerColor = statuses.ColorWhite
	}
	if !statuses.IsValidColor(playerColor) {
		return game.Game{}, fmt.Errorf("%w: unknown color %q", apperrors.ErrInvalidState, req.PlayerColor)
	}

	now := time.Now()
	newGame := game.Game{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		FEN:           engine.InitialFEN,
		CurrentPlayer: statuses.ColorWhite,
		Status:        statuses.StatusPlaying,
		Difficulty:    difficulty,
		PlayerColor:   playerColor,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := g.store.CreateGame(ctx, newGame); err != nil {
		return game.Game{}, err
	}
	g.log.Infof("new game %s created for user %s (%s, playing %s)", newGame.ID, ownerID, difficulty, playerColor)
	return newGame, nil
}

func (g *GameUseCase) GetGame(ctx context.Context, ownerID, gameID string) (game.Game, error) {
	return g.getOwnedGame(ctx, ownerID, gameID)
}

func (g *GameUseCase) DeleteGame(ctx context.Context, ownerID, gameID string) error {
	if _, err := g.getOwnedGame(ctx, ownerID, gameID); err != nil {
		return err
	}
	return g.store.DeleteGame(ctx, gameID)
}

// ApplyPlayerMove validates and commits one move by the human player.
func (g *GameUseCase) ApplyPlayerMove(ctx context.Context, ownerID, gameID string, req game.PlayerMoveRequest) (game.MoveResult, error) {
	gm, err := g.getOwnedGame(ctx, ownerID, gameID)
	if err != nil {
		return game.MoveResult{}, err
	}
	if gm.Completed {
		return game.MoveResult{}, fmt.Errorf("%w: game is already completed", apperrors.ErrInvalidState)
	}
	if gm.CurrentPlayer != gm.PlayerColor {
		return game.MoveResult{}, fmt.Errorf("%w: it is the opponent's move", apperrors.ErrTurnViolation)
	}

	v, err := g.oracle.ValidateSquares(gm.FEN, req.From, req.To, req.Promotion)
	if err != nil {
		return game.MoveResult{}, err
	}

	applyValidated(&gm, v, time.Now())
	saved, err := g.store.SaveGameVersioned(ctx, gm)
	if err != nil {
		return game.MoveResult{}, err
	}
	if saved.Completed {
		g.stats.Enqueue(saved)
	}

	return game.MoveResult{
		Move:   saved.Moves[len(saved.Moves)-1],
		FEN:    saved.FEN,
		Status: saved.Status,
		Result: saved.Result,
		Game:   saved,
	}, nil
}

// Undo rolls back the last count half-moves by replaying the remaining
// history prefix from the initial position through the oracle.
func (g *GameUseCase) Undo(ctx context.Context, ownerID, gameID string, count int) (game.Game, error) {
	if count <= 0 {
		count = 1
	}

	gm, err := g.getOwnedGame(ctx, ownerID, gameID)
	if err != nil {
		return game.Game{}, err
	}
	if gm.Completed {
		return game.Game{}, fmt.Errorf("%w: cannot undo a completed game", apperrors.ErrInvalidState)
	}
	if count > len(gm.Moves) {
		return game.Game{}, fmt.Errorf("%w: cannot undo %d of %d moves", apperrors.ErrInvalidState, count, len(gm.Moves))
	}

	prefix := gm.Moves[:len(gm.Moves)-count]
	fen, status, err := g.replay(prefix)
	if err != nil {
		return game.Game{}, err
	}

	gm.Moves = append([]game.Move(nil), prefix...)
	gm.FEN = fen
	gm.Status = status
	gm.CurrentPlayer = sideToMove(fen)
	gm.Result = nil
	gm.Completed = false
	gm.UpdatedAt = time.Now()

	return g.store.SaveGameVersioned(ctx, gm)
}

// replay runs a move-history prefix through the oracle and returns the
// resulting position and status. A divergence means the stored history is
// corrupt; it must surface as ErrReplayError and never be swallowed.
func (g *GameUseCase) replay(prefix []game.Move) (fen, status string, err error) {
	fen = engine.InitialFEN
	status = statuses.StatusPlaying
	for i, mv := range prefix {
		v, verr := g.oracle.Validate(fen, mv.Notation)
		if verr != nil {
			return "", "", fmt.Errorf("%w: move %d (%s): %v", apperrors.ErrReplayError, i+1, mv.Notation, verr)
		}
		fen = v.FENAfter
		status = v.Status
	}
	return fen, status, nil
}

// Reset puts the game back to the initial position with an empty history.
func (g *GameUseCase) Reset(ctx context.Context, ownerID, gameID string) (game.Game, error) {
	gm, err := g.getOwnedGame(ctx, ownerID, gameID)
	if err != nil {
		return game.Game{}, err
	}

	gm.FEN = engine.InitialFEN
	gm.Moves = nil
	gm.Status = statuses.StatusPlaying
	gm.CurrentPlayer = statuses.ColorWhite
	gm.Result = nil
	gm.Completed = false
	gm.UpdatedAt = time.Now()

	return g.store.SaveGameVersioned(ctx, gm)
}

// ListValidMoves returns all legal moves in the current position, or, when
// square is given, the target squares reachable from it.
func (g *GameUseCase) ListValidMoves(ctx context.Context, ownerID, gameID, square string) (game.ValidMovesResponse, error) {
	gm, err := g.getOwnedGame(ctx, ownerID, gameID)
	if err != nil {
		return game.ValidMovesResponse{}, err
	}

	moves, err := g.oracle.LegalMoves(gm.FEN)
	if err != nil {
		return game.ValidMovesResponse{}, err
	}

	if square == "" {
		out := make([]game.Move, 0, len(moves))
		for _, mv := range moves {
			out = append(out, game.Move{From: mv.From, To: mv.To, Notation: mv.SAN, Promotion: mv.Promotion})
		}
		return game.ValidMovesResponse{Moves: out}, nil
	}

	square = strings.ToLower(square)
	var targets []string
	seen := make(map[string]bool)
	for _, mv := range moves {
		if mv.From == square && !seen[mv.To] {
			seen[mv.To] = true
			targets = append(targets, mv.To)
		}
	}
	return game.ValidMovesResponse{Squares: targets}, nil
}

func (g *GameUseCase) getOwnedGame(ctx context.Context, ownerID, gameID string) (game.Game, error) {
	gm, err := g.store.GetGameByID(ctx, gameID)
	if err != nil {
		return game.Game{}, err
	}
	if gm.OwnerID != ownerID {
		return game.Game{}, apperrors.ErrNotGameOwner
	}
	return gm, nil
}

// applyValidated appends the validated move and rolls the derived fields
// forward. This is the single mutation path shared by player and AI moves.
func applyValidated(gm *game.Game, v engine.Validation, now time.Time) {
	gm.Moves = append(gm.Moves, game.Move{
		From:      v.From,
		To:        v.To,
		Notation:  v.SAN,
		Promotion: v.Promotion,
		PlayedAt:  now,
	})
	gm.FEN = v.FENAfter
	gm.Status = v.Status
	gm.CurrentPlayer = sideToMove(v.FENAfter)
	gm.UpdatedAt = now

	if statuses.IsTerminal(v.Status) {
		gm.Completed = true
		gm.Result = buildResult(gm, now)
	}
}

func buildResult(gm *game.Game, now time.Time) *game.GameResult {
	res := &game.GameResult{
		MoveCount:       len(gm.Moves),
		DurationSeconds: int64(now.Sub(gm.CreatedAt).Seconds()),
	}
	switch gm.Status {
	case statuses.StatusCheckmate:
		// The side to move at the terminal position is the one mated.
		res.Winner = statuses.OppositeColor(sideToMove(gm.FEN))
		res.Reason = statuses.ReasonCheckmate
	case statuses.StatusStalemate:
		res.Winner = statuses.WinnerDraw
		res.Reason = statuses.ReasonStalemate
	default:
		res.Winner = statuses.WinnerDraw
		res.Reason = statuses.ReasonDraw
	}
	return res
}

func sideToMove(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 1 && fields[1] == "b" {
		return statuses.ColorBlack
	}
	return statuses.ColorWhite
}
