package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-quiz-backend/models"
)

// QuestionDTO là câu hỏi trong catalog, có kèm đáp án đúng.
// Các endpoint làm bài dùng AttemptQuestion thay thế.
type QuestionDTO struct {
	ID            uuid.UUID `json:"id"`
	Question      string    `json:"question"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"correctAnswer"`
}

type QuizDTO struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Difficulty  string        `json:"difficulty"`
	TimeLimit   int           `json:"timeLimit"`
	Questions   []QuestionDTO `json:"questions"`
}

// QuizService: đọc catalog quiz và import dữ liệu seed
type QuizService struct {
	db *gorm.DB
}

func NewQuizService(db *gorm.DB) *QuizService {
	return &QuizService{db: db}
}

func (s *QuizService) ListAll(ctx context.Context) ([]QuizDTO, error) {
	return s.list(ctx, "")
}

// ListByDifficulty lọc đúng theo nhãn độ khó; nhãn rỗng thì trả về tất cả
func (s *QuizService) ListByDifficulty(ctx context.Context, difficulty string) ([]QuizDTO, error) {
	return s.list(ctx, difficulty)
}

func (s *QuizService) GetByID(ctx context.Context, id string) (*QuizDTO, error) {
	quizID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrQuizNotFound
	}

	var quiz models.Quiz
	err = s.db.WithContext(ctx).
		Preload("Questions", orderByPosition).
		First(&quiz, "id = ?", quizID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("load quiz: %w", err)
	}

	dto := toQuizDTO(quiz)
	return &dto, nil
}

func (s *QuizService) list(ctx context.Context, difficulty string) ([]QuizDTO, error) {
	query := s.db.WithContext(ctx).Preload("Questions", orderByPosition)
	if difficulty != "" {
		query = query.Where("difficulty = ?", difficulty)
	}

	var quizzes []models.Quiz
	if err := query.Order("created_at ASC").Find(&quizzes).Error; err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}

	out := make([]QuizDTO, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, toQuizDTO(q))
	}
	return out, nil
}

func orderByPosition(tx *gorm.DB) *gorm.DB {
	return tx.Order("position ASC")
}

func toQuizDTO(q models.Quiz) QuizDTO {
	questions := make([]QuestionDTO, 0, len(q.Questions))
	for _, item := range q.Questions {
		questions = append(questions, QuestionDTO{
			ID:            item.ID,
			Question:      item.Question,
			Options:       optionsOf(item),
			CorrectAnswer: item.CorrectAnswer,
		})
	}
	return QuizDTO{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		Difficulty:  q.Difficulty,
		TimeLimit:   q.TimeLimit,
		Questions:   questions,
	}
}

// optionsOf trả về bản sao danh sách lựa chọn
func optionsOf(q models.Question) []string {
	out := make([]string, len(q.Options))
	copy(out, q.Options)
	return out
}
