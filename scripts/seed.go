package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"civiclens/auth"
	"civiclens/config"
	"civiclens/db"
	"civiclens/models"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	cfg.Validate()

	ctx := context.Background()
	firestoreDB, err := db.NewFirestoreDB(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firestore: %v", err)
	}
	defer firestoreDB.Close()

	log.Println("🌱 Starting database seeding...")

	if err := seedUsers(ctx, firestoreDB); err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}

	log.Println("✅ Database seeding completed successfully!")
}

func seedUsers(ctx context.Context, firestoreDB *db.FirestoreDB) error {
	users := []struct {
		User     models.User
		Password string
	}{
		{
			User: models.User{
				UserID:    "user-admin",
				Username:  "admin",
				Role:      models.RoleAdmin,
				LastLogin: time.Now(),
			},
			Password: "admin12345",
		},
		{
			User: models.User{
				UserID:    "user-citizen-asha",
				Username:  "asha",
				Role:      models.RoleUser,
				LastLogin: time.Now(),
			},
			Password: "citizen12345",
		},
		{
			User: models.User{
				UserID:    "user-citizen-ravi",
				Username:  "ravi",
				Role:      models.RoleUser,
				LastLogin: time.Now(),
			},
			Password: "citizen12345",
		},
	}

	for _, userData := range users {
		if err := firestoreDB.CreateUser(ctx, &userData.User); err != nil {
			return fmt.Errorf("failed to create user %s: %w", userData.User.Username, err)
		}

		passwordHash, err := auth.HashPassword(userData.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", userData.User.Username, err)
		}

		if err := firestoreDB.StorePasswordHash(ctx, userData.User.UserID, passwordHash); err != nil {
			return fmt.Errorf("failed to store password for %s: %w", userData.User.Username, err)
		}

		log.Printf("  ✓ Created user: %s (role: %s)", userData.User.Username, userData.User.Role)
	}

	return nil
}
