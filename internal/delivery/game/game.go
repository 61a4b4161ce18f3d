package game

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chess_mate/internal/adapters"
	"chess_mate/internal/bootstrap"
	"chess_mate/internal/delivery/auth"
	gameDomain "chess_mate/internal/domain/game"
	"chess_mate/internal/engine"
	apperrors "chess_mate/internal/errors"
	"chess_mate/internal/heuristic"
	"chess_mate/internal/httpresponse"
	"chess_mate/internal/repository"
	gameuc "chess_mate/internal/usecase/game"
	statsuc "chess_mate/internal/usecase/stats"
	"chess_mate/internal/utils"
)

type GameHandler struct {
	cfg         bootstrap.Config
	log         *zap.SugaredLogger
	gameUC      *gameuc.GameUseCase
	gameRepo    *repository.GameRepository
	statsRepo   *repository.StatsRepository
	authHandler *auth.AuthHandler
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewGameHandler(
	cfg bootstrap.Config,
	log *zap.SugaredLogger,
	mongoAdapter *adapters.AdapterMongo,
	redisAdapter *adapters.AdapterRedis,
	llmAdapter *adapters.LlmAdapter,
	authHandler *auth.AuthHandler,
) *GameHandler {
	eng := engine.New()
	mover := heuristic.NewMover(eng, time.Now().UnixNano())
	gameRepo := repository.NewGameRepository(cfg, log, redisAdapter.GetClient(), mongoAdapter.Database)
	statsRepo := repository.NewStatsRepository(mongoAdapter.Database)
	aggregator := statsuc.NewAggregator(statsRepo, log, 64)
	suggester := repository.NewSuggestionRepository(llmAdapter, log, strings.Split(cfg.MistralModels, ","))

	uc := gameuc.NewGameUseCase(gameRepo, eng, mover, suggester, aggregator, log)
	uc.SetAITimeout(time.Duration(cfg.AiMoveTimeoutSec) * time.Second)

	return &GameHandler{
		cfg:         cfg,
		log:         log,
		gameUC:      uc,
		gameRepo:    gameRepo,
		statsRepo:   statsRepo,
		authHandler: authHandler,
	}
}

func (g *GameHandler) HandleNewGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireUser(w, r)
	if !ok {
		return
	}

	var req gameDomain.CreateGameRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		g.log.Error("NewGame: malformed JSON: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	created, err := g.gameUC.CreateGame(r.Context(), userID, req)
	if err != nil {
		g.writeUsecaseError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, created)
}

func (g *GameHandler) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireUser(w, r)
	if !ok {
		return
	}

	found, err := g.gameUC.GetGame(r.Context(), userID, chi.URLParam(r, "gameID"))
	if err != nil {
		g.writeUsecaseError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, found)
}

func (g *GameHandler) HandlePlayerMove(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireUser(w, r)
	if !ok {
		return
	}

	var req gameDomain.PlayerMoveRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		g.log.Error("PlayerMove: malformed JSON: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	res, err := g.gameUC.ApplyPlayerMove(r.Context(), userID, chi.URLParam(r, "gameID"), req)
	if err != nil {
		g.writeUsecaseError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, res)
}

func (g *GameHandler) HandleAIMove(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireUser(w, r)
	if !ok {
		return
	}

	res, err := g.gameUC.RequestAIMove(r.Context(), userID, chi.URLParam(r, "gameID"))
	if err != nil {
		g.writeUsecaseError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, res)
}

func (g *GameHandler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireUser(w, r)
	if !ok {
		return
	}

	var req gameDomain.UndoRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		g.log.Error("Undo: malformed JSON: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	updated, err := g.gameUC.Undo(r.Context(), userID, chi.URLParam(r, "gameID"), req.Count)
	if err != nil {
		g.writeUsecaseError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, updated)
}

func (g *GameHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireUser(w, r)
	if !ok {
		return
	}

	updated, err := g.gameUC.Reset(r.Context(), userID, chi.URLParam(r, "gameID"))
	if err != nil {
		g.writeUsecaseError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, updated)
}

func (g *GameHandler) HandleDeleteGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireUser(w, r)
	if !ok {
		return
	}

	if err := g.gameUC.DeleteGame(r.Context(), userID, chi.URLParam(r, "gameID")); err != nil {
		g.writeUsecaseError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, nil)
}

func (g *GameHandler) HandleValidMoves(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireUser(w, r)
	if !ok {
		return
	}

	res, err := g.gameUC.ListValidMoves(r.Context(), userID, chi.URLParam(r, "gameID"), r.URL.Query().Get("square"))
	if err != nil {
		g.writeUsecaseError(w, err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, res)
}

func (g *GameHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireUser(w, r)
	if !ok {
		return
	}

	st, err := g.statsRepo.GetUserStats(r.Context(), userID)
	if err != nil {
		g.log.Error("Stats: ", err)
		httpresponse.WriteInternalErrorResponse(w)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, st)
}

// HandleWatch streams the game state over a websocket until the game
// completes or the client goes away.
func (g *GameHandler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.authHandler.GetUserID(r)
	if !ok {
		httpresponse.WriteResponseWithStatus(w, http.StatusUnauthorized,
			httpresponse.ErrorResponse{ErrorDescription: "not authorized"})
		return
	}
	gameID := chi.URLParam(r, "gameID")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Error("Watch: upgrade failed: ", err)
		return
	}
	defer conn.Close()

	// Ownership is checked once on the first full read; after that the
	// cached FEN is enough to tell whether anything changed.
	found, err := g.gameUC.GetGame(r.Context(), userID, gameID)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(err.Error()))
		return
	}
	if err := conn.WriteJSON(found); err != nil {
		return
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	lastFEN := found.FEN
	for !found.Completed {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		fen, err := g.gameRepo.LoadLatestFEN(r.Context(), gameID)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(err.Error()))
			return
		}
		if fen == lastFEN {
			continue
		}

		found, err = g.gameUC.GetGame(r.Context(), userID, gameID)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(err.Error()))
			return
		}
		if err := conn.WriteJSON(found); err != nil {
			return
		}
		lastFEN = found.FEN
	}
}

func (g *GameHandler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := g.authHandler.GetUserID(r)
	if !ok {
		httpresponse.WriteResponseWithStatus(w, http.StatusUnauthorized,
			httpresponse.ErrorResponse{ErrorDescription: "not authorized"})
		return "", false
	}
	return userID, true
}

func (g *GameHandler) writeUsecaseError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrGameNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrNotGameOwner):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrInvalidMove):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrInvalidState),
		errors.Is(err, apperrors.ErrTurnViolation),
		errors.Is(err, apperrors.ErrVersionConflict):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrReplayError):
		g.log.Errorf("history replay diverged: %v", err)
	case errors.Is(err, apperrors.ErrAIMoveFailed):
		g.log.Errorf("ai move generation failed: %v", err)
	}
	if status == http.StatusInternalServerError {
		g.log.Error(err)
	}
	httpresponse.WriteResponseWithStatus(w, status,
		httpresponse.ErrorResponse{ErrorDescription: err.Error()})
}
