// Package seed chứa bộ quiz mặc định cho cmd/seed
package seed

import (
	"bytes"
	_ "embed"

	"github.com/vnkhanh/e-quiz-backend/services"
)

//go:embed quizzes.json
var defaultQuizzes []byte

func DefaultQuizzes() ([]services.QuizSeed, error) {
	return services.ParseQuizzesJSON(bytes.NewReader(defaultQuizzes))
}
