package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-quiz-backend/models"
)

type QuestionSeed struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

type QuizSeed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Difficulty  string         `json:"difficulty"`
	TimeLimit   int            `json:"timeLimit"`
	Questions   []QuestionSeed `json:"questions"`
}

type ImportResult struct {
	Created int
	Skipped int
}

func (s QuizSeed) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return errors.New("quiz title is required")
	}
	if s.TimeLimit < 0 {
		return fmt.Errorf("quiz %q: time limit must not be negative", s.Title)
	}
	if len(s.Questions) == 0 {
		return fmt.Errorf("quiz %q: has no questions", s.Title)
	}
	for i, q := range s.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("quiz %q question %d: text is required", s.Title, i+1)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("quiz %q question %d: needs at least 2 options", s.Title, i+1)
		}
		found := false
		for _, opt := range q.Options {
			if opt == q.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("quiz %q question %d: correct answer %q is not one of the options", s.Title, i+1, q.CorrectAnswer)
		}
	}
	return nil
}

// Import tạo các quiz; quiz trùng slug thì bỏ qua.
// reset = true sẽ xoá hết attempt, câu hỏi và quiz trước khi tạo.
func (s *QuizService) Import(ctx context.Context, seeds []QuizSeed, reset bool) (ImportResult, error) {
	var result ImportResult
	for _, seed := range seeds {
		if err := seed.Validate(); err != nil {
			return result, err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if reset {
			for _, model := range []interface{}{
				&models.QuestionAnswer{},
				&models.QuizAttempt{},
				&models.Question{},
				&models.Quiz{},
			} {
				if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
					return fmt.Errorf("reset: %w", err)
				}
			}
		}

		for _, seed := range seeds {
			quizSlug := slug.Make(seed.Title)

			var count int64
			if err := tx.Model(&models.Quiz{}).Where("slug = ?", quizSlug).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				result.Skipped++
				continue
			}

			quiz := models.Quiz{
				Slug:        quizSlug,
				Title:       seed.Title,
				Description: seed.Description,
				Difficulty:  seed.Difficulty,
				TimeLimit:   seed.TimeLimit,
			}
			for i, q := range seed.Questions {
				quiz.Questions = append(quiz.Questions, models.Question{
					Question:      q.Question,
					Options:       append([]string(nil), q.Options...),
					CorrectAnswer: q.CorrectAnswer,
					Position:      i + 1,
				})
			}
			if err := tx.Create(&quiz).Error; err != nil {
				return fmt.Errorf("create quiz %q: %w", seed.Title, err)
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return result, nil
}

// ParseQuizFile chọn parser theo đuôi file (.json, .csv, .xlsx)
func ParseQuizFile(name string, r io.Reader) ([]QuizSeed, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return ParseQuizzesJSON(r)
	case ".csv":
		return ParseQuizzesCSV(r)
	case ".xlsx":
		return ParseQuizzesXLSX(r)
	default:
		return nil, fmt.Errorf("định dạng file không hỗ trợ: %s", filepath.Ext(name))
	}
}

func ParseQuizzesJSON(r io.Reader) ([]QuizSeed, error) {
	var seeds []QuizSeed
	if err := json.NewDecoder(r).Decode(&seeds); err != nil {
		return nil, fmt.Errorf("parse quiz json: %w", err)
	}
	return seeds, nil
}

func ParseQuizzesCSV(r io.Reader) ([]QuizSeed, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse quiz csv: %w", err)
	}
	return quizzesFromRows(records)
}

func ParseQuizzesXLSX(r io.Reader) ([]QuizSeed, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return quizzesFromRows(rows)
}

// ====== CSV / XLSX ======
// Thứ tự cột:
// title, description, difficulty, time_limit, question, option_a, option_b, option_c, option_d, correct
const (
	colTitle = iota
	colDescription
	colDifficulty
	colTimeLimit
	colQuestion
	colOptionA
	colOptionB
	colOptionC
	colOptionD
	colCorrect
	columnCount
)

// quizzesFromRows gom các dòng theo title, giữ thứ tự xuất hiện.
// Dòng đầu tiên là header.
func quizzesFromRows(rows [][]string) ([]QuizSeed, error) {
	var seeds []QuizSeed
	index := make(map[string]int)

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		if len(row) < columnCount {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", i+1, columnCount, len(row))
		}
		for j := range row {
			row[j] = strings.TrimSpace(row[j])
		}

		cells := row[colOptionA : colOptionD+1]
		letter := strings.ToUpper(row[colCorrect])
		if len(letter) != 1 || letter[0] < 'A' || int(letter[0]-'A') >= len(cells) {
			return nil, fmt.Errorf("row %d: correct answer must be an option letter, got %q", i+1, row[colCorrect])
		}
		// chữ cái tính theo cột gốc, trước khi bỏ ô trống
		correct := cells[letter[0]-'A']
		if correct == "" {
			return nil, fmt.Errorf("row %d: correct answer %s points at an empty option", i+1, letter)
		}

		var options []string
		for _, opt := range cells {
			if opt != "" {
				options = append(options, opt)
			}
		}
		question := QuestionSeed{
			Question:      row[colQuestion],
			Options:       options,
			CorrectAnswer: correct,
		}

		title := row[colTitle]
		pos, ok := index[title]
		if !ok {
			timeLimit := 0
			if row[colTimeLimit] != "" {
				v, err := strconv.Atoi(row[colTimeLimit])
				if err != nil {
					return nil, fmt.Errorf("row %d: time_limit must be an integer", i+1)
				}
				timeLimit = v
			}
			seeds = append(seeds, QuizSeed{
				Title:       title,
				Description: row[colDescription],
				Difficulty:  row[colDifficulty],
				TimeLimit:   timeLimit,
			})
			pos = len(seeds) - 1
			index[title] = pos
		}
		seeds[pos].Questions = append(seeds[pos].Questions, question)
	}
	return seeds, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
