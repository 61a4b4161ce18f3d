package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chess_mate/internal/domain/stats"
)

const statsCollection = "user_stats"

type StatsRepository struct {
	mongo *mongo.Database
}

func NewStatsRepository(mongo *mongo.Database) *StatsRepository {
	return &StatsRepository{mongo: mongo}
}

// GetUserStats returns the stored aggregate, or an empty one for users who
// have not completed a game yet.
func (s *StatsRepository) GetUserStats(ctx context.Context, userID string) (stats.UserStats, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var found stats.UserStats
	err := s.mongo.Collection(statsCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&found)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return stats.UserStats{
			UserID:        userID,
			PerDifficulty: make(map[string]stats.DifficultyStats),
		}, nil
	}
	if err != nil {
		return stats.UserStats{}, fmt.Errorf("failed to load stats for user %s: %w", userID, err)
	}
	if found.PerDifficulty == nil {
		found.PerDifficulty = make(map[string]stats.DifficultyStats)
	}
	return found, nil
}

func (s *StatsRepository) SaveUserStats(ctx context.Context, st stats.UserStats) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	_, err := s.mongo.Collection(statsCollection).ReplaceOne(ctx, bson.M{"_id": st.UserID}, st, opts)
	if err != nil {
		return fmt.Errorf("failed to save stats for user %s: %w", st.UserID, err)
	}
	return nil
}
