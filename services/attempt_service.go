package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-quiz-backend/models"
)

// chỉ lấy attempt đã có ít nhất một câu trả lời (đã nộp)
const submittedScope = "EXISTS (SELECT 1 FROM question_answers qa WHERE qa.attempt_id = quiz_attempts.id)"

// ====== INPUT / OUTPUT ======
type StartAttemptInput struct {
	QuizID string `json:"quizId" binding:"required"`
}

// AttemptQuestion là câu hỏi trả về khi làm bài: không kèm đáp án đúng
type AttemptQuestion struct {
	ID       uuid.UUID `json:"id"`
	Question string    `json:"question"`
	Options  []string  `json:"options"`
}

type StartedAttempt struct {
	AttemptID uuid.UUID         `json:"attemptId"`
	TimeLimit int               `json:"timeLimit"`
	Questions []AttemptQuestion `json:"questions"`
}

type SubmittedAnswer struct {
	QuestionID          string `json:"questionId" binding:"required,uuid"`
	SelectedAnswerIndex *int   `json:"selectedAnswerIndex" binding:"required"`
}

type SubmitAttemptInput struct {
	Answers   []SubmittedAnswer `json:"answers" binding:"required,min=1,dive"`
	TimeSpent *int              `json:"timeSpent" binding:"omitempty,gte=0"`
}

type SubmitResult struct {
	ID             uuid.UUID `json:"id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
}

// IndexedAnswers ánh xạ vị trí câu hỏi -> index đáp án đã chọn.
// Nhận cả mảng JSON ([1, 0, 2]) lẫn object ({"0": 1}); Raw giữ nguyên payload client gửi.
type IndexedAnswers struct {
	Raw     json.RawMessage
	Indexes map[int]int
}

func (a *IndexedAnswers) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = IndexedAnswers{}
		return nil
	}

	indexes := map[int]int{}
	if len(data) > 0 && data[0] == '[' {
		var list []*int
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		for i, v := range list {
			if v != nil {
				indexes[i] = *v
			}
		}
	} else {
		var obj map[string]*int
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		for k, v := range obj {
			i, err := strconv.Atoi(k)
			if err != nil {
				return fmt.Errorf("answers key %q is not a question index", k)
			}
			if v != nil {
				indexes[i] = *v
			}
		}
	}

	*a = IndexedAnswers{
		Raw:     append(json.RawMessage(nil), data...),
		Indexes: indexes,
	}
	return nil
}

// MarshalJSON trả lại đúng payload đã nhận
func (a IndexedAnswers) MarshalJSON() ([]byte, error) {
	if len(a.Raw) > 0 {
		return a.Raw, nil
	}
	if a.Indexes == nil {
		return []byte("null"), nil
	}
	return json.Marshal(a.Indexes)
}

func (a IndexedAnswers) isEmpty() bool {
	return len(a.Raw) == 0 && a.Indexes == nil
}

type DirectQuestion struct {
	ID            string   `json:"id" binding:"required,uuid"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// CreateAttemptInput dùng cho luồng làm bài không tính giờ (một request duy nhất).
// Score vẫn nhận từ client nhưng điểm lưu lại luôn là số câu đúng thực tế.
type CreateAttemptInput struct {
	QuizID         string           `json:"quizId" binding:"required"`
	Score          *int             `json:"score" binding:"required,gte=0"`
	TotalQuestions *int             `json:"totalQuestions" binding:"required,gte=0"`
	TimeSpent      *int             `json:"timeSpent" binding:"required,gte=0"`
	Answers        IndexedAnswers   `json:"answers"`
	Questions      []DirectQuestion `json:"questions" binding:"required,dive"`
}

type CreatedAttempt struct {
	ID             uuid.UUID `json:"id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	TimeSpent      int       `json:"timeSpent"`
	CreatedAt      time.Time `json:"createdAt"`
}

type AttemptSummary struct {
	ID             uuid.UUID `json:"id"`
	QuizTitle      string    `json:"quizTitle"`
	QuizID         uuid.UUID `json:"quizId"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Percentage     int       `json:"percentage"`
	TimeSpent      int       `json:"timeSpent"`
	CreatedAt      time.Time `json:"createdAt"`
}

type AnswerBreakdown struct {
	QuestionID     uuid.UUID `json:"questionId"`
	QuestionText   string    `json:"questionText"`
	SelectedAnswer string    `json:"selectedAnswer"`
	CorrectAnswer  string    `json:"correctAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
}

type AttemptDetail struct {
	ID              uuid.UUID         `json:"id"`
	QuizTitle       string            `json:"quizTitle"`
	QuizID          uuid.UUID         `json:"quizId"`
	Score           int               `json:"score"`
	TotalQuestions  int               `json:"totalQuestions"`
	Percentage      int               `json:"percentage"`
	TimeSpent       int               `json:"timeSpent"`
	Answers         json.RawMessage   `json:"answers"`
	QuestionAnswers []AnswerBreakdown `json:"questionAnswers"`
	CreatedAt       time.Time         `json:"createdAt"`
}

type AttemptStats struct {
	TotalAttempts  int `json:"totalAttempts"`
	AverageScore   int `json:"averageScore"`
	TotalTimeSpent int `json:"totalTimeSpent"`
	BestScore      int `json:"bestScore"`
}

// ====== SERVICE ======

// AttemptService: bắt đầu, chấm điểm và thống kê lượt làm bài
type AttemptService struct {
	db   *gorm.DB
	intn func(int) int
	now  func() time.Time
}

func NewAttemptService(db *gorm.DB) *AttemptService {
	return &AttemptService{db: db, now: time.Now}
}

func (s *AttemptService) Start(ctx context.Context, userID uuid.UUID, in StartAttemptInput) (*StartedAttempt, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	quizID, err := uuid.Parse(in.QuizID)
	if err != nil {
		return nil, ErrQuizNotFound
	}

	db := s.db.WithContext(ctx)

	var quiz models.Quiz
	if err := db.Preload("Questions", orderByPosition).First(&quiz, "id = ?", quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("load quiz: %w", err)
	}

	shuffled := shuffleQuestions(quiz.Questions, s.intn)

	attempt := models.QuizAttempt{
		UserID:         userID,
		QuizID:         quiz.ID,
		Score:          0,
		TotalQuestions: len(shuffled),
		TimeSpent:      0,
		Answers:        datatypes.JSON("[]"),
	}
	if err := db.Omit("User", "Quiz").Create(&attempt).Error; err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	questions := make([]AttemptQuestion, 0, len(shuffled))
	for _, q := range shuffled {
		questions = append(questions, AttemptQuestion{
			ID:       q.ID,
			Question: q.Question,
			Options:  optionsOf(q),
		})
	}

	return &StartedAttempt{
		AttemptID: attempt.ID,
		TimeLimit: quiz.TimeLimit,
		Questions: questions,
	}, nil
}

// Authorize tải attempt và kiểm tra userID là chủ sở hữu.
// Gọi trước khi đọc body của request.
func (s *AttemptService) Authorize(ctx context.Context, attemptID string, userID uuid.UUID) (*models.QuizAttempt, error) {
	id, err := uuid.Parse(attemptID)
	if err != nil {
		return nil, ErrAttemptNotFound
	}

	var attempt models.QuizAttempt
	if err := s.db.WithContext(ctx).First(&attempt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if attempt.UserID != userID {
		return nil, ErrNotAttemptOwner
	}
	return &attempt, nil
}

// Submit kiểm tra quyền sở hữu rồi chấm bài
func (s *AttemptService) Submit(ctx context.Context, attemptID string, userID uuid.UUID, in SubmitAttemptInput) (*SubmitResult, error) {
	attempt, err := s.Authorize(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	return s.SubmitAuthorized(ctx, attempt, in)
}

// SubmitAuthorized chấm bài cho attempt đã qua Authorize. Chỉ được nộp một lần:
// lần nộp thứ hai trả về ErrAttemptSubmitted và không ghi gì thêm.
func (s *AttemptService) SubmitAuthorized(ctx context.Context, attempt *models.QuizAttempt, in SubmitAttemptInput) (*SubmitResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if attempt.SubmittedAt != nil {
		return nil, ErrAttemptSubmitted
	}

	payload, err := json.Marshal(in.Answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	timeSpent := attempt.TimeSpent
	if in.TimeSpent != nil {
		timeSpent = *in.TimeSpent
	}

	var score int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var questions []models.Question
		if err := tx.Where("quiz_id = ?", attempt.QuizID).Find(&questions).Error; err != nil {
			return fmt.Errorf("load questions: %w", err)
		}

		var graded []models.QuestionAnswer
		graded, score = gradeAnswers(questions, in.Answers)

		res := tx.Model(&models.QuizAttempt{}).
			Where("id = ? AND submitted_at IS NULL", attempt.ID).
			Updates(map[string]interface{}{
				"score":        score,
				"time_spent":   timeSpent,
				"answers":      datatypes.JSON(payload),
				"submitted_at": s.now(),
			})
		if res.Error != nil {
			return fmt.Errorf("update attempt: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAttemptSubmitted
		}

		for i := range graded {
			graded[i].AttemptID = attempt.ID
		}
		if err := tx.Create(&graded).Error; err != nil {
			return fmt.Errorf("save answers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &SubmitResult{
		ID:             attempt.ID,
		Score:          score,
		TotalQuestions: attempt.TotalQuestions,
	}, nil
}

// gradeAnswers so từng câu trả lời với câu hỏi của quiz. Câu hỏi không thuộc quiz
// hoặc index ngoài phạm vi đều tính sai, text để trống.
func gradeAnswers(questions []models.Question, answers []SubmittedAnswer) ([]models.QuestionAnswer, int) {
	byID := make(map[uuid.UUID]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	score := 0
	out := make([]models.QuestionAnswer, 0, len(answers))
	for _, ans := range answers {
		questionID, _ := uuid.Parse(ans.QuestionID)
		index := -1
		if ans.SelectedAnswerIndex != nil {
			index = *ans.SelectedAnswerIndex
		}

		qa := models.QuestionAnswer{
			QuestionID:          questionID,
			SelectedAnswerIndex: index,
		}
		if q, ok := byID[questionID]; ok {
			qa.SelectedAnswer = optionAt(q.Options, index)
			qa.CorrectAnswer = q.CorrectAnswer
			qa.IsCorrect = index >= 0 && index < len(q.Options) && qa.SelectedAnswer == q.CorrectAnswer
		}
		if qa.IsCorrect {
			score++
		}
		out = append(out, qa)
	}
	return out, score
}

func optionAt(options []string, index int) string {
	if index < 0 || index >= len(options) {
		return ""
	}
	return options[index]
}

// CreateDirect lưu một attempt đã làm xong trong một lần gọi.
// Client gửi kèm câu hỏi; answers[i] là index đáp án của questions[i].
func (s *AttemptService) CreateDirect(ctx context.Context, userID uuid.UUID, in CreateAttemptInput) (*CreatedAttempt, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Answers.isEmpty() {
		return nil, &ValidationError{Details: []FieldError{{Field: "answers", Message: "is required"}}}
	}
	quizID, err := uuid.Parse(in.QuizID)
	if err != nil {
		return nil, ErrQuizNotFound
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Quiz{}).Where("id = ?", quizID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	if count == 0 {
		return nil, ErrQuizNotFound
	}

	payload, err := in.Answers.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	score := 0
	graded := make([]models.QuestionAnswer, 0, len(in.Questions))
	for i, q := range in.Questions {
		questionID, _ := uuid.Parse(q.ID)
		qa := models.QuestionAnswer{
			QuestionID:          questionID,
			SelectedAnswerIndex: -1,
			CorrectAnswer:       q.CorrectAnswer,
		}
		if index, ok := in.Answers.Indexes[i]; ok {
			qa.SelectedAnswerIndex = index
			qa.SelectedAnswer = optionAt(q.Options, index)
			qa.IsCorrect = index >= 0 && index < len(q.Options) && qa.SelectedAnswer == q.CorrectAnswer
		}
		if qa.IsCorrect {
			score++
		}
		graded = append(graded, qa)
	}

	submittedAt := s.now()
	attempt := models.QuizAttempt{
		UserID:          userID,
		QuizID:          quizID,
		Score:           score,
		TotalQuestions:  *in.TotalQuestions,
		TimeSpent:       *in.TimeSpent,
		Answers:         datatypes.JSON(payload),
		SubmittedAt:     &submittedAt,
		QuestionAnswers: graded,
	}
	// gorm tạo attempt và các question answer trong cùng một transaction
	if err := db.Omit("User", "Quiz").Create(&attempt).Error; err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	return &CreatedAttempt{
		ID:             attempt.ID,
		Score:          attempt.Score,
		TotalQuestions: attempt.TotalQuestions,
		TimeSpent:      attempt.TimeSpent,
		CreatedAt:      attempt.CreatedAt,
	}, nil
}

// ====== LỊCH SỬ & THỐNG KÊ ======

// ListForUser trả về các attempt đã nộp, mới nhất trước
func (s *AttemptService) ListForUser(ctx context.Context, userID uuid.UUID) ([]AttemptSummary, error) {
	var attempts []models.QuizAttempt
	err := s.db.WithContext(ctx).
		Preload("Quiz").
		Where("user_id = ?", userID).
		Where(submittedScope).
		Order("created_at DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	out := make([]AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, AttemptSummary{
			ID:             a.ID,
			QuizTitle:      a.Quiz.Title,
			QuizID:         a.QuizID,
			Score:          a.Score,
			TotalQuestions: a.TotalQuestions,
			Percentage:     percentage(a.Score, a.TotalQuestions),
			TimeSpent:      a.TimeSpent,
			CreatedAt:      a.CreatedAt,
		})
	}
	return out, nil
}

func (s *AttemptService) GetByID(ctx context.Context, attemptID string, userID uuid.UUID) (*AttemptDetail, error) {
	id, err := uuid.Parse(attemptID)
	if err != nil {
		return nil, ErrAttemptNotFound
	}

	db := s.db.WithContext(ctx)

	var attempt models.QuizAttempt
	err = db.Preload("Quiz").
		Preload("QuestionAnswers", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC")
		}).
		First(&attempt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if attempt.UserID != userID {
		return nil, ErrNotAttemptOwner
	}

	texts := make(map[uuid.UUID]string)
	if len(attempt.QuestionAnswers) > 0 {
		ids := make([]uuid.UUID, 0, len(attempt.QuestionAnswers))
		for _, qa := range attempt.QuestionAnswers {
			ids = append(ids, qa.QuestionID)
		}
		var questions []models.Question
		if err := db.Select("id", "question").Where("id IN ?", ids).Find(&questions).Error; err != nil {
			return nil, fmt.Errorf("load questions: %w", err)
		}
		for _, q := range questions {
			texts[q.ID] = q.Question
		}
	}

	breakdown := make([]AnswerBreakdown, 0, len(attempt.QuestionAnswers))
	for _, qa := range attempt.QuestionAnswers {
		breakdown = append(breakdown, AnswerBreakdown{
			QuestionID:     qa.QuestionID,
			QuestionText:   texts[qa.QuestionID],
			SelectedAnswer: qa.SelectedAnswer,
			CorrectAnswer:  qa.CorrectAnswer,
			IsCorrect:      qa.IsCorrect,
		})
	}

	answers := json.RawMessage("[]")
	if len(attempt.Answers) > 0 {
		answers = json.RawMessage(attempt.Answers)
	}

	return &AttemptDetail{
		ID:              attempt.ID,
		QuizTitle:       attempt.Quiz.Title,
		QuizID:          attempt.QuizID,
		Score:           attempt.Score,
		TotalQuestions:  attempt.TotalQuestions,
		Percentage:      percentage(attempt.Score, attempt.TotalQuestions),
		TimeSpent:       attempt.TimeSpent,
		Answers:         answers,
		QuestionAnswers: breakdown,
		CreatedAt:       attempt.CreatedAt,
	}, nil
}

// StatsForUser thống kê các attempt đã nộp; chưa có attempt nào thì trả về toàn 0
func (s *AttemptService) StatsForUser(ctx context.Context, userID uuid.UUID) (*AttemptStats, error) {
	var agg struct {
		Count     int64
		Total     int64
		TimeSpent int64
		Best      int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Select("COUNT(*) AS count, COALESCE(SUM(score), 0) AS total, COALESCE(SUM(time_spent), 0) AS time_spent, COALESCE(MAX(score), 0) AS best").
		Where("user_id = ?", userID).
		Where(submittedScope).
		Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("attempt stats: %w", err)
	}

	stats := &AttemptStats{
		TotalAttempts:  int(agg.Count),
		TotalTimeSpent: int(agg.TimeSpent),
		BestScore:      int(agg.Best),
	}
	if agg.Count > 0 {
		stats.AverageScore = int(math.Round(float64(agg.Total) / float64(agg.Count)))
	}
	return stats, nil
}

func percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) * 100 / float64(total)))
}
