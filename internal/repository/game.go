package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"chess_mate/internal/bootstrap"
	"chess_mate/internal/domain/game"
	apperrors "chess_mate/internal/errors"
)

const (
	gamesCollection = "games"
	fenCacheTTL     = 24 * time.Hour
	mongoOpTimeout  = 5 * time.Second
)

type GameRepository struct {
	cfg   bootstrap.Config
	log   *zap.SugaredLogger
	redis *redis.Client
	mongo *mongo.Database
}

func NewGameRepository(cfg bootstrap.Config, log *zap.SugaredLogger, redis *redis.Client, mongo *mongo.Database) *GameRepository {
	return &GameRepository{
		cfg:   cfg,
		log:   log,
		redis: redis,
		mongo: mongo,
	}
}

func (g *GameRepository) CreateGame(ctx context.Context, gameData game.Game) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	_, err := g.mongo.Collection(gamesCollection).InsertOne(ctx, gameData)
	if err != nil {
		g.log.Errorf("failed to insert game %s: %v", gameData.ID, err)
		return fmt.Errorf("%w: %v", apperrors.ErrCreateGameFailed, err)
	}

	g.cacheLatestFEN(ctx, gameData.ID, gameData.FEN)
	return nil
}

func (g *GameRepository) GetGameByID(ctx context.Context, id string) (game.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var found game.Game
	err := g.mongo.Collection(gamesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&found)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return game.Game{}, apperrors.ErrGameNotFound
	}
	if err != nil {
		return game.Game{}, fmt.Errorf("failed to load game %s: %w", id, err)
	}
	return found, nil
}

// SaveGameVersioned overwrites the stored game only when its version still
// equals gameData.Version, so two concurrent movers against the same base
// state cannot both succeed. The stored copy carries the incremented version.
func (g *GameRepository) SaveGameVersioned(ctx context.Context, gameData game.Game) (game.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	expected := gameData.Version
	gameData.Version = expected + 1

	res, err := g.mongo.Collection(gamesCollection).ReplaceOne(ctx,
		bson.M{"_id": gameData.ID, "version": expected}, gameData)
	if err != nil {
		return game.Game{}, fmt.Errorf("failed to save game %s: %w", gameData.ID, err)
	}
	if res.MatchedCount == 0 {
		if _, getErr := g.GetGameByID(ctx, gameData.ID); errors.Is(getErr, apperrors.ErrGameNotFound) {
			return game.Game{}, apperrors.ErrGameNotFound
		}
		return game.Game{}, apperrors.ErrVersionConflict
	}

	g.cacheLatestFEN(ctx, gameData.ID, gameData.FEN)
	return gameData, nil
}

func (g *GameRepository) DeleteGame(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := g.mongo.Collection(gamesCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete game %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrGameNotFound
	}
	g.redis.Del(ctx, fenCacheKey(id))
	return nil
}

// cacheLatestFEN keeps the latest committed position in Redis for cheap
// read paths. Cache failures are logged and ignored.
func (g *GameRepository) cacheLatestFEN(ctx context.Context, id, fen string) {
	if err := g.redis.Set(ctx, fenCacheKey(id), fen, fenCacheTTL).Err(); err != nil {
		g.log.Warnf("failed to cache FEN for game %s: %v", id, err)
	}
}

func (g *GameRepository) LoadLatestFEN(ctx context.Context, id string) (string, error) {
	fen, err := g.redis.Get(ctx, fenCacheKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		found, err := g.GetGameByID(ctx, id)
		if err != nil {
			return "", err
		}
		return found.FEN, nil
	}
	if err != nil {
		return "", err
	}
	return fen, nil
}

func fenCacheKey(id string) string {
	return "game:fen:" + id
}
