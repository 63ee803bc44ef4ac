package storage

import (
	"context"
	"fmt"

	"github.com/shiftwise/auth-api/internal/config"
	"github.com/shiftwise/auth-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SessionStore holds in-flight OTP challenges. Several sessions may
// transiently exist for one (username, flow) pair; Latest returns the
// authoritative one.
type SessionStore interface {
	Insert(ctx context.Context, session *models.VerificationSession) error
	Latest(ctx context.Context, username string, flow models.Flow) (*models.VerificationSession, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteAll(ctx context.Context, username string, flow models.Flow) error
	IncrementAttempts(ctx context.Context, id primitive.ObjectID, cap int) (int, error)
}

type mongoSessionStore struct{}

// NewSessionStore returns the MongoDB-backed session store
func NewSessionStore() SessionStore {
	return &mongoSessionStore{}
}

func (s *mongoSessionStore) collection() *mongo.Collection {
	return config.MongoDB.Collection(config.AppConfig.SessionCollection)
}

func (s *mongoSessionStore) Insert(ctx context.Context, session *models.VerificationSession) error {
	result, err := s.collection().InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		session.ID = id
	}
	return nil
}

// Latest returns the most recently requested session for the pair
func (s *mongoSessionStore) Latest(ctx context.Context, username string, flow models.Flow) (*models.VerificationSession, error) {
	var session models.VerificationSession
	err := s.collection().FindOne(ctx,
		bson.M{"username": username, "flow": flow},
		options.FindOne().SetSort(bson.D{{Key: "requested_at", Value: -1}}),
	).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &session, nil
}

func (s *mongoSessionStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.collection().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *mongoSessionStore) DeleteAll(ctx context.Context, username string, flow models.Flow) error {
	_, err := s.collection().DeleteMany(ctx, bson.M{"username": username, "flow": flow})
	if err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

// IncrementAttempts bumps the attempt counter atomically, refusing to go
// past the cap. Two racing wrong-code submissions can therefore neither
// lose an increment nor exceed the budget. Returns the post-increment value,
// or models.ErrAttemptsExhausted when the session is gone or already capped.
func (s *mongoSessionStore) IncrementAttempts(ctx context.Context, id primitive.ObjectID, cap int) (int, error) {
	var session models.VerificationSession
	err := s.collection().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "attempts": bson.M{"$lt": cap}},
		bson.M{"$inc": bson.M{"attempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return cap, models.ErrAttemptsExhausted
		}
		return 0, fmt.Errorf("failed to increment attempts: %w", err)
	}
	return session.Attempts, nil
}
