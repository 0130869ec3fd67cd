package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ivanrubin10/fulbojubilados/internal/db"
	"github.com/ivanrubin10/fulbojubilados/internal/models"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// SeedUser inserts a whitelisted user with predictable fields.
func SeedUser(t *testing.T, database *db.DB, id string) models.User {
	t.Helper()

	user, err := database.Queries.CreateUser(context.Background(), db.CreateUserParams{
		ID:            id,
		Email:         id + "@example.com",
		Name:          "User " + id,
		IsWhitelisted: true,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return user
}

// SeedAdmin inserts a whitelisted admin user.
func SeedAdmin(t *testing.T, database *db.DB, id string) models.User {
	t.Helper()

	user, err := database.Queries.CreateUser(context.Background(), db.CreateUserParams{
		ID:            id,
		Email:         id + "@example.com",
		Name:          "Admin " + id,
		IsAdmin:       true,
		IsWhitelisted: true,
	})
	if err != nil {
		t.Fatalf("seed admin %s: %v", id, err)
	}
	return user
}
