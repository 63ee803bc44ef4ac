package config

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shiftwise/auth-api/internal/logging"
	"github.com/shiftwise/auth-api/internal/redisclient"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.uber.org/zap"
)

var (
	// MongoDB client
	MongoDB *mongo.Database
	// Redis client
	Redis *redisclient.Client
)

// InitMongoDB initializes the MongoDB connection
func InitMongoDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(AppConfig.MongoURI).
		SetMonitor(otelmongo.NewMonitor()).
		SetMaxPoolSize(100).
		SetMinPoolSize(10).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		log.Fatal(err)
	}

	err = client.Ping(ctx, readpref.Primary())
	if err != nil {
		log.Fatal(err)
	}

	MongoDB = client.Database(AppConfig.MongoDatabase)

	// Ensure indexes exist and start maintenance routine
	if err := EnsureIndexes(); err != nil {
		logging.Logger.Error("failed to ensure indexes on startup", zap.Error(err))
	}
	startIndexMaintenance()

	logging.Logger.Info("connected to MongoDB",
		zap.String("uri", maskMongoURI(AppConfig.MongoURI)),
		zap.String("database", AppConfig.MongoDatabase),
	)
}

// InitRedis initializes the Redis connection
func InitRedis() {
	redisClient := redis.NewClient(&redis.Options{
		Addr:         strings.TrimPrefix(AppConfig.RedisURI, "redis://"),
		Password:     AppConfig.RedisPassword,
		DB:           AppConfig.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	// Wrap with traced client
	Redis = redisclient.NewClient(redisClient)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Redis.Ping(ctx).Err(); err != nil {
		logging.Logger.Error("failed to connect to Redis",
			zap.String("uri", AppConfig.RedisURI),
			zap.Error(err))
		return
	}

	logging.Logger.Info("connected to Redis",
		zap.String("uri", AppConfig.RedisURI))
}

// maskMongoURI masks sensitive information in MongoDB URI
func maskMongoURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	if at == -1 {
		return uri
	}
	return "mongodb://****:****@" + uri[at+1:]
}

// EnsureIndexes creates required indexes if they don't exist
func EnsureIndexes() error {
	logger := zap.L().Named("database")
	logger.Info("ensuring required indexes exist")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := ensureAccountIndexes(ctx, logger); err != nil {
		return err
	}

	if err := ensureSessionIndexes(ctx, logger); err != nil {
		return err
	}

	if err := ensureAttemptIndexes(ctx, logger); err != nil {
		return err
	}

	logger.Info("all required indexes verified")
	return nil
}

// listIndexNames returns the names of the existing indexes on a collection
func listIndexNames(ctx context.Context, collection *mongo.Collection) (map[string]bool, error) {
	cursor, err := collection.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	names := make(map[string]bool)
	for cursor.Next(ctx) {
		var index bson.M
		if err := cursor.Decode(&index); err != nil {
			continue
		}
		if name, ok := index["name"].(string); ok {
			names[name] = true
		}
	}
	return names, nil
}

// createIndexes creates the given index models, tolerating concurrent creation
// by another instance
func createIndexes(ctx context.Context, logger *zap.Logger, collection string, models []mongo.IndexModel) error {
	for _, indexModel := range models {
		_, err := MongoDB.Collection(collection).Indexes().CreateOne(ctx, indexModel)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				logger.Info("index already exists (created by another instance)",
					zap.String("collection", collection))
				continue
			}
			logger.Error("failed to create index",
				zap.String("collection", collection),
				zap.Error(err))
			return err
		}
	}
	if len(models) > 0 {
		logger.Info("created collection indexes",
			zap.String("collection", collection),
			zap.Int("count", len(models)))
	}
	return nil
}

// ensureAccountIndexes creates the unique username and phone indexes for the
// accounts collection
func ensureAccountIndexes(ctx context.Context, logger *zap.Logger) error {
	collection := MongoDB.Collection(AppConfig.AccountCollection)

	existing, err := listIndexNames(ctx, collection)
	if err != nil {
		logger.Error("failed to list indexes", zap.Error(err))
		return err
	}

	indexesToCreate := []mongo.IndexModel{}

	// Uniqueness on username and phone is enforced here; the engine still
	// pre-checks both so callers get a conflict message instead of a raw
	// duplicate-key error.
	if !existing["username_1"] {
		indexesToCreate = append(indexesToCreate, mongo.IndexModel{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetName("username_1").
				SetUnique(true),
		})
	}

	if !existing["phone_1"] {
		indexesToCreate = append(indexesToCreate, mongo.IndexModel{
			Keys: bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().
				SetName("phone_1").
				SetUnique(true),
		})
	}

	return createIndexes(ctx, logger, AppConfig.AccountCollection, indexesToCreate)
}

// ensureSessionIndexes creates the lookup and TTL indexes for the
// verification_sessions collection
func ensureSessionIndexes(ctx context.Context, logger *zap.Logger) error {
	collection := MongoDB.Collection(AppConfig.SessionCollection)

	existing, err := listIndexNames(ctx, collection)
	if err != nil {
		logger.Error("failed to list indexes", zap.Error(err))
		return err
	}

	indexesToCreate := []mongo.IndexModel{}

	// 1. Compound index for most-recent-session lookups
	if !existing["username_1_flow_1_requested_at_-1"] {
		indexesToCreate = append(indexesToCreate, mongo.IndexModel{
			Keys: bson.D{
				{Key: "username", Value: 1},
				{Key: "flow", Value: 1},
				{Key: "requested_at", Value: -1},
			},
			Options: options.Index().
				SetName("username_1_flow_1_requested_at_-1"),
		})
	}

	// 2. TTL index on expires_at for automatic cleanup. Best effort only:
	// the engine checks expiry itself on every read.
	if !existing["expires_at_1"] {
		indexesToCreate = append(indexesToCreate, mongo.IndexModel{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("expires_at_1").
				SetExpireAfterSeconds(0),
		})
	}

	return createIndexes(ctx, logger, AppConfig.SessionCollection, indexesToCreate)
}

// ensureAttemptIndexes creates the history index for the login_attempts
// collection
func ensureAttemptIndexes(ctx context.Context, logger *zap.Logger) error {
	collection := MongoDB.Collection(AppConfig.AttemptCollection)

	existing, err := listIndexNames(ctx, collection)
	if err != nil {
		logger.Error("failed to list indexes", zap.Error(err))
		return err
	}

	indexesToCreate := []mongo.IndexModel{}

	if !existing["username_1_timestamp_-1"] {
		indexesToCreate = append(indexesToCreate, mongo.IndexModel{
			Keys: bson.D{
				{Key: "username", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().
				SetName("username_1_timestamp_-1"),
		})
	}

	return createIndexes(ctx, logger, AppConfig.AttemptCollection, indexesToCreate)
}

// startIndexMaintenance starts a goroutine that periodically ensures indexes exist
func startIndexMaintenance() {
	logger := zap.L().Named("database")

	go func() {
		ticker := time.NewTicker(AppConfig.IndexMaintenanceInterval)
		defer ticker.Stop()

		for range ticker.C {
			if err := EnsureIndexes(); err != nil {
				logger.Error("periodic index check failed", zap.Error(err))
			}
		}
	}()

	logger.Info("started index maintenance routine",
		zap.Duration("interval", AppConfig.IndexMaintenanceInterval))
}
