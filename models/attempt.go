package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuizAttempt được tạo rỗng khi bắt đầu làm bài và chấm một lần khi nộp.
// SubmittedAt = nil cho tới khi chấm; Answers giữ nguyên payload client gửi.
type QuizAttempt struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	User           User           `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	QuizID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"quizId"`
	Quiz           Quiz           `gorm:"constraint:OnDelete:CASCADE;" json:"quiz"`
	Score          int            `gorm:"not null;default:0" json:"score"`
	TotalQuestions int            `gorm:"not null;default:0" json:"totalQuestions"`
	TimeSpent      int            `gorm:"not null;default:0" json:"timeSpent"` // giây
	Answers        datatypes.JSON `json:"answers"`
	SubmittedAt    *time.Time     `json:"submittedAt"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index" json:"createdAt"`

	QuestionAnswers []QuestionAnswer `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE;" json:"questionAnswers"`
}

// QuestionAnswer ghi một lần, không sửa. QuestionID không phải foreign key:
// câu trả lời cho câu hỏi ngoài quiz vẫn được lưu (tính sai).
type QuestionAnswer struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AttemptID           uuid.UUID `gorm:"type:uuid;not null;index" json:"attemptId"`
	QuestionID          uuid.UUID `gorm:"type:uuid;not null;index" json:"questionId"`
	SelectedAnswerIndex int       `json:"selectedAnswerIndex"`
	SelectedAnswer      string    `gorm:"type:text" json:"selectedAnswer"`
	CorrectAnswer       string    `gorm:"type:text" json:"correctAnswer"`
	IsCorrect           bool      `gorm:"not null;default:false" json:"isCorrect"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (a *QuizAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (qa *QuestionAnswer) BeforeCreate(tx *gorm.DB) error {
	if qa.ID == uuid.Nil {
		qa.ID = uuid.New()
	}
	return nil
}
