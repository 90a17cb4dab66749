package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/vnkhanh/e-quiz-backend/config"
	"github.com/vnkhanh/e-quiz-backend/seed"
	"github.com/vnkhanh/e-quiz-backend/services"
)

func main() {
	file := flag.String("file", "", "quiz file to import (.json, .csv or .xlsx); default is the built-in set")
	reset := flag.Bool("reset", false, "delete all attempts, questions and quizzes before importing")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Không tìm thấy file .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Lỗi cấu hình: %v", err)
	}

	seeds, err := loadSeeds(*file)
	if err != nil {
		log.Fatal(err)
	}

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer config.CloseDatabase(db)

	if err := config.Migrate(db); err != nil {
		log.Fatal(err)
	}

	result, err := services.NewQuizService(db).Import(context.Background(), seeds, *reset)
	if err != nil {
		log.Fatalf("Seed lỗi: %v", err)
	}
	log.Printf("Seed data created successfully: %d created, %d skipped", result.Created, result.Skipped)
}

func loadSeeds(path string) ([]services.QuizSeed, error) {
	if path == "" {
		return seed.DefaultQuizzes()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return services.ParseQuizFile(path, f)
}
