package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shiftwise/auth-api/internal/config"
	"github.com/shiftwise/auth-api/internal/logging"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// TestContainers holds references to test containers
type TestContainers struct {
	MongoContainer *mongodb.MongoDBContainer
	RedisContainer *redis.RedisContainer
	MongoDB        *mongo.Database
	Cleanup        func()
}

// SetupTestContainers starts MongoDB and Redis containers and points the
// global configuration at them
func SetupTestContainers(t *testing.T) *TestContainers {
	ctx := context.Background()

	if logging.Logger == nil {
		logging.Logger = zap.NewNop()
	}

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx,
		"mongo:7.0",
		mongodb.WithUsername("root"),
		mongodb.WithPassword("password"),
	)
	require.NoError(t, err, "Failed to start MongoDB container")

	// Start Redis container
	redisContainer, err := redis.Run(ctx,
		"redis:7-alpine",
	)
	require.NoError(t, err, "Failed to start Redis container")

	mongoURI, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err, "Failed to get MongoDB connection string")

	redisURI, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err, "Failed to get Redis connection string")

	clientOptions := options.Client().ApplyURI(mongoURI)
	mongoClient, err := mongo.Connect(ctx, clientOptions)
	require.NoError(t, err, "Failed to connect to MongoDB")

	err = mongoClient.Ping(ctx, nil)
	require.NoError(t, err, "Failed to ping MongoDB")

	database := mongoClient.Database("shiftwise_auth_test")

	if config.AppConfig == nil {
		config.AppConfig = &config.Config{}
	}

	config.AppConfig.MongoURI = mongoURI
	config.AppConfig.MongoDatabase = "shiftwise_auth_test"
	config.AppConfig.RedisURI = redisURI
	config.AppConfig.RedisDB = 0
	config.AppConfig.ProfileCacheTTL = time.Minute
	config.AppConfig.AccountCollection = "accounts"
	config.AppConfig.SessionCollection = "verification_sessions"
	config.AppConfig.AttemptCollection = "login_attempts"
	config.AppConfig.SessionTTL = 10 * time.Minute
	config.AppConfig.IndexMaintenanceInterval = time.Hour
	config.AppConfig.PhonePolicy = "il"
	config.AppConfig.SandboxEnabled = true
	config.AppConfig.SandboxPhone = "0500000000"
	config.AppConfig.SandboxCode = "123456"
	config.AppConfig.JWTSecret = "e2e-test-secret"
	config.AppConfig.JWTIssuer = "shiftwise-auth"
	config.AppConfig.JWTAudience = "shiftwise"
	config.AppConfig.JWTExpiration = time.Hour

	// Set global MongoDB reference and create the indexes the engine relies on
	config.MongoDB = database
	require.NoError(t, config.EnsureIndexes(), "Failed to ensure indexes")

	config.InitRedis()

	cleanup := func() {
		if mongoClient != nil {
			ctx := context.Background()
			mongoClient.Disconnect(ctx)
		}

		if mongoContainer != nil {
			mongoContainer.Terminate(ctx)
		}
		if redisContainer != nil {
			redisContainer.Terminate(ctx)
		}
	}

	return &TestContainers{
		MongoContainer: mongoContainer,
		RedisContainer: redisContainer,
		MongoDB:        database,
		Cleanup:        cleanup,
	}
}

// CleanupDatabase drops all collections in the test database
func CleanupDatabase(t *testing.T, db *mongo.Database) {
	ctx := context.Background()
	collections, err := db.ListCollectionNames(ctx, map[string]interface{}{})
	require.NoError(t, err, "Failed to list collections")

	for _, collection := range collections {
		err := db.Collection(collection).Drop(ctx)
		require.NoError(t, err, fmt.Sprintf("Failed to drop collection %s", collection))
	}
}
