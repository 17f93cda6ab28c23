// directory.go
// In-memory user directory for memory mode: a fixed set of demo accounts so
// the API runs end to end without Firebase credentials.

package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"civiclens/auth"
	"civiclens/models"
)

type memoryDirectory struct {
	mu     sync.RWMutex
	users  map[string]models.User
	hashes map[string]string
}

func newMemoryDirectory() *memoryDirectory {
	dir := &memoryDirectory{
		users:  make(map[string]models.User),
		hashes: make(map[string]string),
	}

	seed := []struct {
		user     models.User
		password string
	}{
		{
			user: models.User{
				UserID:    "user-admin",
				Username:  "admin",
				Role:      models.RoleAdmin,
				LastLogin: time.Now(),
			},
			password: "admin12345",
		},
		{
			user: models.User{
				UserID:    "user-citizen",
				Username:  "citizen",
				Role:      models.RoleUser,
				LastLogin: time.Now(),
			},
			password: "citizen12345",
		},
	}

	for _, s := range seed {
		hash, err := auth.HashPassword(s.password)
		if err != nil {
			log.Fatalf("❌ Failed to seed user %s: %v", s.user.Username, err)
		}
		dir.users[s.user.UserID] = s.user
		dir.hashes[s.user.UserID] = hash
		log.Printf("  ✓ Seeded user: %s (role: %s)", s.user.Username, s.user.Role)
	}

	return dir
}

func (d *memoryDirectory) GetUser(ctx context.Context, userID string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[userID]
	if !ok {
		return nil, fmt.Errorf("failed to get user: %s", userID)
	}
	return &user, nil
}

func (d *memoryDirectory) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, user := range d.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user not found: %s", username)
}

func (d *memoryDirectory) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	hash, ok := d.hashes[userID]
	if !ok {
		return "", fmt.Errorf("password hash not found for user: %s", userID)
	}
	return hash, nil
}

func (d *memoryDirectory) UpdateUser(ctx context.Context, user *models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.UserID] = *user
	return nil
}
