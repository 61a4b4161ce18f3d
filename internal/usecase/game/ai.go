package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chess_mate/internal/domain/game"
	"chess_mate/internal/engine"
	apperrors "chess_mate/internal/errors"
	"chess_mate/internal/statuses"
)

const recentMovesWindow = 10

const (
	reasonQuotaExceeded  = "suggestion quota exceeded"
	reasonServiceFailed  = "suggestion service failed"
	reasonInvalidInCheck = "invalid suggestion while in check"
	reasonInvalidMoves   = "suggestions failed validation"
)

// RequestAIMove produces and commits the AI opponent's move. The suggestion
// service is consulted first, rotating through its backends with exponential
// backoff on retryable failures; the heuristic mover covers quota
// exhaustion, persistent failures and invalid suggestions. Whatever the
// source, the move is validated through the oracle before it is committed.
// No lock is held on the game while the service call is in flight: the game
// is read once up front and the commit is a versioned write.
func (g *GameUseCase) RequestAIMove(ctx context.Context, ownerID, gameID string) (game.AIMoveResult, error) {
	gm, err := g.getOwnedGame(ctx, ownerID, gameID)
	if err != nil {
		return game.AIMoveResult{}, err
	}
	if gm.Completed {
		return game.AIMoveResult{}, fmt.Errorf("%w: game is already completed", apperrors.ErrInvalidState)
	}
	aiColor := statuses.OppositeColor(gm.PlayerColor)
	if gm.CurrentPlayer != aiColor {
		return game.AIMoveResult{}, fmt.Errorf("%w: it is the player's move", apperrors.ErrTurnViolation)
	}

	ctx, cancel := context.WithTimeout(ctx, g.aiTimeout)
	defer cancel()

	inCheck, err := g.oracle.InCheck(gm.FEN)
	if err != nil {
		return game.AIMoveResult{}, err
	}
	req := game.SuggestionRequest{
		FEN:         gm.FEN,
		Difficulty:  gm.Difficulty,
		RecentMoves: gm.RecentNotations(recentMovesWindow),
	}
	backends := g.suggester.Backends()

	var (
		chosen         engine.Validation
		found          bool
		usedFallback   bool
		fallbackReason string
		serviceDown    = len(backends) == 0
		serviceCalls   int
		attempt        int
	)

	for attempt = 1; attempt <= g.aiMaxAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}

		var candidate string
		if !serviceDown {
			backend := backends[serviceCalls%len(backends)]
			serviceCalls++
			raw, serr := g.suggester.Suggest(ctx, backend, req)
			switch {
			case serr == nil:
				candidate = raw
			case aiErrorClass(serr) == apperrors.AIErrQuotaExceeded:
				// Retrying a quota failure only burns more quota:
				// stop consulting the service at once.
				g.log.Warnw("suggestion quota exceeded, switching to heuristic mover", "backend", backend)
				serviceDown = true
				usedFallback = true
				fallbackReason = reasonQuotaExceeded
			default:
				g.log.Warnw("suggestion request failed",
					"backend", backend, "class", aiErrorClass(serr), "error", serr)
				if attempt < g.aiMaxAttempts {
					g.sleepBackoff(ctx, serviceCalls-1)
					continue
				}
				serviceDown = true
				usedFallback = true
				fallbackReason = reasonServiceFailed
			}
		}

		fromFallback := false
		if candidate == "" {
			usedFallback = true
			if fallbackReason == "" {
				fallbackReason = reasonServiceFailed
			}
			candidate = g.heuristicCandidate(&gm)
			fromFallback = true
			if candidate == "" {
				break
			}
		}

		v, verr := g.oracle.Validate(gm.FEN, candidate)
		if verr == nil {
			chosen = v
			found = true
			if fromFallback {
				usedFallback = true
			}
			break
		}
		g.log.Infow("candidate move rejected", "game_id", gm.ID, "move", candidate, "attempt", attempt)

		// While in check, or past the first validation attempt, a single
		// emergency heuristic try replaces further service round-trips.
		// The in-check shortcut mirrors observed production behavior and
		// may deserve re-tuning rather than being a hard requirement.
		if inCheck || attempt >= 2 || fromFallback {
			usedFallback = true
			if fallbackReason == "" {
				if inCheck {
					fallbackReason = reasonInvalidInCheck
				} else {
					fallbackReason = reasonInvalidMoves
				}
			}
			if emergency := g.heuristicCandidate(&gm); emergency != "" {
				if v2, e2 := g.oracle.Validate(gm.FEN, emergency); e2 == nil {
					chosen = v2
					found = true
				}
			}
			break
		}
	}
	if attempt > g.aiMaxAttempts {
		attempt = g.aiMaxAttempts
	}

	if !found {
		return game.AIMoveResult{}, fmt.Errorf("%w after %d attempts", apperrors.ErrAIMoveFailed, attempt)
	}

	applyValidated(&gm, chosen, time.Now())
	saved, err := g.store.SaveGameVersioned(ctx, gm)
	if err != nil {
		return game.AIMoveResult{}, err
	}
	if saved.Completed {
		g.stats.Enqueue(saved)
	}

	return game.AIMoveResult{
		Move:           saved.Moves[len(saved.Moves)-1],
		Notation:       chosen.SAN,
		FEN:            saved.FEN,
		Status:         saved.Status,
		Result:         saved.Result,
		AttemptsUsed:   attempt,
		UsedFallback:   usedFallback,
		FallbackReason: fallbackReason,
	}, nil
}

// heuristicCandidate asks the fallback mover for a move; if even that
// fails, the first enumerated legal move is the last-resort guarantee.
func (g *GameUseCase) heuristicCandidate(gm *game.Game) string {
	mv, err := g.mover.PickMove(gm.FEN, gm.Difficulty, len(gm.Moves))
	if err == nil {
		return mv
	}
	g.log.Warnw("heuristic mover failed, using first legal move", "game_id", gm.ID, "error", err)
	moves, lerr := g.oracle.LegalMoves(gm.FEN)
	if lerr != nil || len(moves) == 0 {
		return ""
	}
	return moves[0].SAN
}

// sleepBackoff waits 1s, 2s, 4s... capped, honoring context cancellation.
func (g *GameUseCase) sleepBackoff(ctx context.Context, retry int) {
	d := g.backoffBase << uint(retry)
	if d > g.backoffCap {
		d = g.backoffCap
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func aiErrorClass(err error) apperrors.AIErrorClass {
	var aiErr *apperrors.AIServiceError
	if errors.As(err, &aiErr) {
		return aiErr.Class
	}
	return apperrors.AIErrUnknown
}
