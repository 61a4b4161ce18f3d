package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"chess_mate/internal/adapters"
	"chess_mate/internal/bootstrap"
	authDelivery "chess_mate/internal/delivery/auth"
	gameDelivery "chess_mate/internal/delivery/game"
	ownMiddleware "chess_mate/internal/middleware"
)

type mainDeliveryHandler struct {
	auth *authDelivery.AuthHandler
	game *gameDelivery.GameHandler
}

type dataBaseAdapters struct {
	redisAdapter *adapters.AdapterRedis
	mongoAdapter *adapters.AdapterMongo
}

func main() {
	logger := NewLogger()
	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleShutdown(cancel, logger)

	databaseAdapters := initDatabaseAdapters(ctx, logger, *cfg)
	defer databaseAdapters.mongoAdapter.Close(ctx)
	defer databaseAdapters.redisAdapter.Close(ctx)

	llmAdapter := adapters.NewLlmAdapter(cfg.MistralApiKey)

	r := chi.NewRouter()
	handlers := initializeDeliveryHandlers(*cfg, logger, llmAdapter, databaseAdapters)
	handlers.Router(r, cfg.IsLocalCors)

	port := cfg.ServerPort
	if port == "" {
		port = ":8080"
	}
	logger.Infof("Server is running on port %s", port)
	if err := http.ListenAndServe(port, r); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

func (h *mainDeliveryHandler) Router(r *chi.Mux, isLocalCors bool) {
	if isLocalCors {
		r.Use(ownMiddleware.CORS)
	}
	r.Use(middleware.Logger)

	r.Post("/login", h.auth.Login)
	r.Delete("/logout", h.auth.Logout)

	r.Post("/game", h.game.HandleNewGame)
	r.Get("/game/{gameID}", h.game.HandleGetGame)
	r.Delete("/game/{gameID}", h.game.HandleDeleteGame)
	r.Post("/game/{gameID}/move", h.game.HandlePlayerMove)
	r.Post("/game/{gameID}/ai", h.game.HandleAIMove)
	r.Post("/game/{gameID}/undo", h.game.HandleUndo)
	r.Post("/game/{gameID}/reset", h.game.HandleReset)
	r.Get("/game/{gameID}/moves", h.game.HandleValidMoves)
	r.Get("/game/{gameID}/watch", h.game.HandleWatch)

	r.Get("/stats", h.game.HandleStats)
}

func initDatabaseAdapters(ctx context.Context, log *zap.SugaredLogger, cfg bootstrap.Config) *dataBaseAdapters {
	mongoAdapter := adapters.NewAdapterMongo(&cfg)
	if err := mongoAdapter.Init(ctx); err != nil {
		log.Fatal("Failed to initialize MongoDB", zap.Error(err))
	}

	redisAdapter := adapters.NewAdapterRedis(&cfg)
	if err := redisAdapter.Init(ctx); err != nil {
		log.Fatal("Failed to initialize Redis", zap.Error(err))
	}

	log.Info("Database adapters initialized")
	return &dataBaseAdapters{
		redisAdapter: redisAdapter,
		mongoAdapter: mongoAdapter,
	}
}

func initializeDeliveryHandlers(
	cfg bootstrap.Config,
	log *zap.SugaredLogger,
	llmAdapter *adapters.LlmAdapter,
	databaseAdapters *dataBaseAdapters,
) *mainDeliveryHandler {
	authDeliveryHandler := authDelivery.NewAuthHandler(databaseAdapters.redisAdapter, databaseAdapters.mongoAdapter, log)
	gameDeliveryHandler := gameDelivery.NewGameHandler(
		cfg, log,
		databaseAdapters.mongoAdapter,
		databaseAdapters.redisAdapter,
		llmAdapter,
		authDeliveryHandler,
	)

	return &mainDeliveryHandler{
		auth: authDeliveryHandler,
		game: gameDeliveryHandler,
	}
}

func handleShutdown(cancelFunc context.CancelFunc, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Received shutdown signal")
	cancelFunc()
	time.Sleep(1 * time.Second)
}
