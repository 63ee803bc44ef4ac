package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shiftwise/auth-api/internal/config"
	"github.com/shiftwise/auth-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AccountStore is the durable username -> account mapping. Uniqueness of
// username and phone is backed by unique indexes; Insert reports violations
// as models.ErrAccountExists or models.ErrPhoneExists so callers never see
// raw storage errors.
type AccountStore interface {
	Insert(ctx context.Context, account *models.Account) error
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByPhone(ctx context.Context, phone string) (*models.Account, error)
	FindActive(ctx context.Context, username string) (*models.Account, error)
	FindLoginCandidate(ctx context.Context, username string) (*models.Account, error)
	SetPhoneVerified(ctx context.Context, username string) error
	SetLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	Delete(ctx context.Context, username string) error
	List(ctx context.Context) ([]models.Account, error)
}

type mongoAccountStore struct{}

// NewAccountStore returns the MongoDB-backed account store
func NewAccountStore() AccountStore {
	return &mongoAccountStore{}
}

func (s *mongoAccountStore) collection() *mongo.Collection {
	return config.MongoDB.Collection(config.AppConfig.AccountCollection)
}

func (s *mongoAccountStore) Insert(ctx context.Context, account *models.Account) error {
	result, err := s.collection().InsertOne(ctx, account)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// The write error names the violated index
			if strings.Contains(err.Error(), "phone_1") {
				return models.ErrPhoneExists
			}
			return models.ErrAccountExists
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		account.ID = id
	}
	return nil
}

func (s *mongoAccountStore) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var account models.Account
	err := s.collection().FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &account, nil
}

func (s *mongoAccountStore) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *mongoAccountStore) FindByPhone(ctx context.Context, phone string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"phone": phone})
}

func (s *mongoAccountStore) FindActive(ctx context.Context, username string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"username": username, "active": true})
}

// FindLoginCandidate only matches accounts allowed to complete a login:
// active with a verified phone
func (s *mongoAccountStore) FindLoginCandidate(ctx context.Context, username string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"username": username, "active": true, "phone_verified": true})
}

func (s *mongoAccountStore) SetPhoneVerified(ctx context.Context, username string) error {
	result, err := s.collection().UpdateOne(ctx,
		bson.M{"username": username},
		bson.M{"$set": bson.M{"phone_verified": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrAccountNotFound
	}
	return nil
}

func (s *mongoAccountStore) SetLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	result, err := s.collection().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_login_at": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrAccountNotFound
	}
	return nil
}

func (s *mongoAccountStore) Delete(ctx context.Context, username string) error {
	_, err := s.collection().DeleteOne(ctx, bson.M{"username": username})
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

func (s *mongoAccountStore) List(ctx context.Context) ([]models.Account, error) {
	cursor, err := s.collection().Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var accounts []models.Account
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}
	return accounts, nil
}
