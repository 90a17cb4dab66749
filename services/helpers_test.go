package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-quiz-backend/config"
	"github.com/vnkhanh/e-quiz-backend/models"
	"github.com/vnkhanh/e-quiz-backend/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		Env:      config.EnvTest,
		DBDriver: config.DriverSQLite,
		DBPath:   filepath.Join(t.TempDir(), "quiz.db"),
	}
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		t.Fatalf("ConnectDatabase: %v", err)
	}
	t.Cleanup(func() { _ = config.CloseDatabase(db) })
	if err := config.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func newTestTokens() *utils.TokenManager {
	return utils.NewTokenManager("test-secret", time.Hour)
}

func createUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{Email: email, Name: "Test User", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// createBasicsQuiz seeds "Basics": Q1 [A,B] correct A, Q2 [B,C] correct C.
func createBasicsQuiz(t *testing.T, db *gorm.DB) models.Quiz {
	t.Helper()
	quiz := models.Quiz{
		Slug:        "basics-" + uuid.NewString()[:8],
		Title:       "Basics",
		Description: "two questions",
		Difficulty:  "Beginner",
		TimeLimit:   120,
		Questions: []models.Question{
			{Question: "Q1", Options: []string{"A", "B"}, CorrectAnswer: "A", Position: 1},
			{Question: "Q2", Options: []string{"B", "C"}, CorrectAnswer: "C", Position: 2},
		},
	}
	if err := db.Create(&quiz).Error; err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz
}

func intPtr(v int) *int { return &v }

var bg = context.Background()
