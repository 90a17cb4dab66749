package services

import (
	"math/rand/v2"

	"github.com/vnkhanh/e-quiz-backend/models"
)

// shuffleQuestions trả về một hoán vị ngẫu nhiên (Fisher-Yates) của danh sách câu hỏi.
// Slice đầu vào không bị thay đổi.
func shuffleQuestions(questions []models.Question, intn func(int) int) []models.Question {
	if intn == nil {
		intn = rand.IntN
	}
	out := make([]models.Question, len(questions))
	copy(out, questions)
	for i := len(out) - 1; i > 0; i-- {
		j := intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
