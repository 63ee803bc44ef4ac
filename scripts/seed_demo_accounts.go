package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shiftwise/auth-api/internal/config"
	"github.com/shiftwise/auth-api/internal/logging"
	"github.com/shiftwise/auth-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// SeedAccounts are verified demo accounts for local development. The phones
// are reserved test numbers and never receive real codes.
var SeedAccounts = []models.Account{
	{
		Username:      "demo-admin",
		Phone:         "+972501110001",
		PhoneVerified: true,
		Active:        true,
		CreatedAt:     time.Now(),
	},
	{
		Username:      "demo-user",
		Phone:         "+972521110002",
		PhoneVerified: true,
		Active:        true,
		CreatedAt:     time.Now(),
	},
	{
		Username:      "demo-unverified",
		Phone:         "+972541110003",
		PhoneVerified: false,
		Active:        true,
		CreatedAt:     time.Now(),
	},
}

func main() {
	if err := logging.InitLogger(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	config.InitMongoDB()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection := config.MongoDB.Collection(config.AppConfig.AccountCollection)

	usernames := make([]string, len(SeedAccounts))
	for i, account := range SeedAccounts {
		usernames[i] = account.Username
	}

	count, err := collection.CountDocuments(ctx, bson.M{"username": bson.M{"$in": usernames}})
	if err != nil {
		log.Fatalf("Failed to count existing demo accounts: %v", err)
	}

	if count > 0 {
		fmt.Printf("Found %d existing demo accounts. Replace them? (y/N): ", count)
		var response string
		_, err := fmt.Scanln(&response)
		if err != nil {
			fmt.Println("Error reading input")
			return
		}
		if response != "y" && response != "Y" {
			fmt.Println("Seeding cancelled")
			return
		}

		result, err := collection.DeleteMany(ctx, bson.M{"username": bson.M{"$in": usernames}})
		if err != nil {
			log.Fatalf("Failed to delete existing demo accounts: %v", err)
		}
		fmt.Printf("Deleted %d existing demo accounts\n", result.DeletedCount)
	}

	docs := make([]interface{}, len(SeedAccounts))
	for i, account := range SeedAccounts {
		docs[i] = account
	}

	result, err := collection.InsertMany(ctx, docs)
	if err != nil {
		log.Fatalf("Failed to insert demo accounts: %v", err)
	}

	fmt.Printf("Seeded %d demo accounts:\n", len(result.InsertedIDs))
	for _, account := range SeedAccounts {
		status := "unverified"
		if account.PhoneVerified {
			status = "verified"
		}
		fmt.Printf("  %s (%s, %s)\n", account.Username, account.Phone, status)
	}

	fmt.Println("\nSeeding completed successfully")
}
