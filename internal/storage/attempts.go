package storage

import (
	"context"
	"fmt"

	"github.com/shiftwise/auth-api/internal/config"
	"github.com/shiftwise/auth-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AttemptLog is the append-only audit trail of login attempts
type AttemptLog interface {
	Record(ctx context.Context, attempt *models.LoginAttempt) error
	History(ctx context.Context, username string, limit int) ([]models.LoginAttempt, error)
}

type mongoAttemptLog struct{}

// NewAttemptLog returns the MongoDB-backed attempt log
func NewAttemptLog() AttemptLog {
	return &mongoAttemptLog{}
}

func (l *mongoAttemptLog) collection() *mongo.Collection {
	return config.MongoDB.Collection(config.AppConfig.AttemptCollection)
}

func (l *mongoAttemptLog) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	_, err := l.collection().InsertOne(ctx, attempt)
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

// History returns the most recent attempts for a username, newest first
func (l *mongoAttemptLog) History(ctx context.Context, username string, limit int) ([]models.LoginAttempt, error) {
	cursor, err := l.collection().Find(ctx,
		bson.M{"username": username},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}
	defer cursor.Close(ctx)

	var attempts []models.LoginAttempt
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, fmt.Errorf("failed to decode login attempts: %w", err)
	}
	return attempts, nil
}
