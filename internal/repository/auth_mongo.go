package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"chess_mate/internal/domain/user"
	apperrors "chess_mate/internal/errors"
)

const usersCollection = "users"

type MongoUserStorage struct {
	mongo *mongo.Database
}

func NewMongoUserStorage(mongo *mongo.Database) *MongoUserStorage {
	return &MongoUserStorage{mongo: mongo}
}

func (m *MongoUserStorage) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var found user.User
	err := m.mongo.Collection(usersCollection).FindOne(ctx, bson.M{"username": username}).Decode(&found)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return user.User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("failed to load user %s: %w", username, err)
	}
	return found, nil
}

func (m *MongoUserStorage) GetUserByID(ctx context.Context, id string) (user.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var found user.User
	err := m.mongo.Collection(usersCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&found)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return user.User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("failed to load user %s: %w", id, err)
	}
	return found, nil
}

func (m *MongoUserStorage) CreateUser(ctx context.Context, u user.User) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	if _, err := m.mongo.Collection(usersCollection).InsertOne(ctx, u); err != nil {
		return fmt.Errorf("failed to insert user %s: %w", u.Username, err)
	}
	return nil
}
