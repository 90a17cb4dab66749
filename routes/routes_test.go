package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-quiz-backend/config"
	"github.com/vnkhanh/e-quiz-backend/models"
	"github.com/vnkhanh/e-quiz-backend/utils"
)

type testServer struct {
	t  *testing.T
	db *gorm.DB
	r  *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	r := SetupRouter(gin.New(), db, utils.NewTokenManager("routes-secret", time.Hour))
	return &testServer{t: t, db: db, r: r}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func (s *testServer) signup(email string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/signup", "", gin.H{"email": email, "name": "Tester", "password": "secret1"})
	if rec.Code != http.StatusOK {
		s.t.Fatalf("signup status = %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Token string `json:"token"`
	}
	decode(s.t, rec, &res)
	return res.Token
}

func (s *testServer) createBasics() models.Quiz {
	s.t.Helper()
	quiz := models.Quiz{
		Slug:       "basics",
		Title:      "Basics",
		Difficulty: "Beginner",
		TimeLimit:  60,
		Questions: []models.Question{
			{Question: "Q1", Options: []string{"A", "B"}, CorrectAnswer: "A", Position: 1},
			{Question: "Q2", Options: []string{"B", "C"}, CorrectAnswer: "C", Position: 2},
		},
	}
	if err := s.db.Create(&quiz).Error; err != nil {
		s.t.Fatalf("create quiz: %v", err)
	}
	return quiz
}

func TestBasicsEndToEnd(t *testing.T) {
	s := newTestServer(t)
	quiz := s.createBasics()
	token := s.signup("e2e@example.com")

	rec := s.do(http.MethodPost, "/api/attempts/start", token, gin.H{"quizId": quiz.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}
	var started struct {
		AttemptID string                   `json:"attemptId"`
		TimeLimit int                      `json:"timeLimit"`
		Questions []map[string]interface{} `json:"questions"`
	}
	decode(t, rec, &started)
	if len(started.Questions) != 2 || started.TimeLimit != 60 {
		t.Fatalf("started = %+v", started)
	}
	ids := map[string]string{}
	for _, q := range started.Questions {
		if _, ok := q["correctAnswer"]; ok {
			t.Fatalf("start leaks correctAnswer: %v", q)
		}
		ids[q["question"].(string)] = q["id"].(string)
	}

	rec = s.do(http.MethodPost, "/api/attempts/"+started.AttemptID+"/submit", token, gin.H{
		"answers": []gin.H{
			{"questionId": ids["Q1"], "selectedAnswerIndex": 0},
			{"questionId": ids["Q2"], "selectedAnswerIndex": 1},
		},
		"timeSpent": 25,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}
	var submitted struct {
		Score          int `json:"score"`
		TotalQuestions int `json:"totalQuestions"`
	}
	decode(t, rec, &submitted)
	if submitted.Score != 2 || submitted.TotalQuestions != 2 {
		t.Fatalf("submit = %+v, want 2/2", submitted)
	}

	rec = s.do(http.MethodGet, "/api/attempts/"+started.AttemptID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status = %d: %s", rec.Code, rec.Body.String())
	}
	var detail struct {
		Percentage      int              `json:"percentage"`
		QuestionAnswers []map[string]any `json:"questionAnswers"`
	}
	decode(t, rec, &detail)
	if detail.Percentage != 100 || len(detail.QuestionAnswers) != 2 {
		t.Fatalf("detail = %+v", detail)
	}

	rec = s.do(http.MethodPost, "/api/attempts/"+started.AttemptID+"/submit", token, gin.H{
		"answers": []gin.H{{"questionId": ids["Q1"], "selectedAnswerIndex": 0}},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("resubmit status = %d, want 409", rec.Code)
	}

	rec = s.do(http.MethodGet, "/api/quiz-attempts/stats", token, nil)
	var stats map[string]int
	decode(t, rec, &stats)
	if stats["totalAttempts"] != 1 || stats["bestScore"] != 2 || stats["totalTimeSpent"] != 25 {
		t.Fatalf("stats = %v", stats)
	}

	rec = s.do(http.MethodGet, "/api/attempts/user", token, nil)
	var history []map[string]any
	decode(t, rec, &history)
	if len(history) != 1 || history[0]["quizTitle"] != "Basics" {
		t.Fatalf("history = %v", history)
	}
}

func TestAttemptRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/attempts/user", "/api/quiz-attempts/stats", "/api/auth/me"} {
		rec := s.do(http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s status = %d, want 401", path, rec.Code)
		}
	}
	rec := s.do(http.MethodGet, "/api/attempts/user", "garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token status = %d, want 401", rec.Code)
	}
}

func TestSubmitByOtherUserIsForbidden(t *testing.T) {
	s := newTestServer(t)
	quiz := s.createBasics()
	owner := s.signup("owner@example.com")
	intruder := s.signup("intruder@example.com")

	rec := s.do(http.MethodPost, "/api/attempts/start", owner, gin.H{"quizId": quiz.ID})
	var started struct {
		AttemptID string `json:"attemptId"`
	}
	decode(t, rec, &started)

	// body không hợp lệ nhưng vẫn phải là 403
	rec = s.do(http.MethodPost, "/api/attempts/"+started.AttemptID+"/submit", intruder, gin.H{"answers": "nope"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("intruder submit status = %d, want 403", rec.Code)
	}
	rec = s.do(http.MethodGet, "/api/quiz-attempts/"+started.AttemptID, intruder, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("intruder detail status = %d, want 403", rec.Code)
	}

	rec = s.do(http.MethodPost, "/api/attempts/"+started.AttemptID+"/submit", owner, gin.H{"answers": "nope"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("owner malformed submit status = %d, want 400", rec.Code)
	}
}

func TestSubmitReadsAttemptOnce(t *testing.T) {
	s := newTestServer(t)
	quiz := s.createBasics()
	token := s.signup("once@example.com")

	rec := s.do(http.MethodPost, "/api/attempts/start", token, gin.H{"quizId": quiz.ID})
	var started struct {
		AttemptID string `json:"attemptId"`
	}
	decode(t, rec, &started)

	reads := 0
	err := s.db.Callback().Query().After("gorm:query").Register("test:count_attempt_reads", func(tx *gorm.DB) {
		if tx.Statement.Table == "quiz_attempts" {
			reads++
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	rec = s.do(http.MethodPost, "/api/attempts/"+started.AttemptID+"/submit", token, gin.H{
		"answers": []gin.H{{"questionId": quiz.Questions[0].ID, "selectedAnswerIndex": 0}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}
	if reads != 1 {
		t.Fatalf("submit loaded the attempt %d times, want 1", reads)
	}
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/auth/signup", "", gin.H{"email": "bad", "name": "A", "password": "1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid signup status = %d, want 400", rec.Code)
	}
	var verr struct {
		Error   string `json:"error"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	}
	decode(t, rec, &verr)
	if verr.Error != "Validation error" || len(verr.Details) != 3 {
		t.Fatalf("validation body = %+v", verr)
	}

	token := s.signup("auth@example.com")
	rec = s.do(http.MethodPost, "/api/auth/signup", "", gin.H{"email": "auth@example.com", "name": "Again", "password": "secret1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup status = %d, want 400", rec.Code)
	}

	rec = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "auth@example.com", "password": "wrong-pass"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", rec.Code)
	}
	rec = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "auth@example.com", "password": "secret1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/api/auth/me", token, nil)
	var me map[string]string
	decode(t, rec, &me)
	if rec.Code != http.StatusOK || me["email"] != "auth@example.com" {
		t.Fatalf("me = %d %v", rec.Code, me)
	}
	if _, ok := me["password"]; ok {
		t.Fatalf("me leaks password")
	}
}

func TestQuizRoutes(t *testing.T) {
	s := newTestServer(t)
	quiz := s.createBasics()

	rec := s.do(http.MethodGet, "/api/quizzes", "", nil)
	var quizzes []map[string]any
	decode(t, rec, &quizzes)
	if rec.Code != http.StatusOK || len(quizzes) != 1 {
		t.Fatalf("list = %d %v", rec.Code, quizzes)
	}

	rec = s.do(http.MethodGet, "/api/quizzes/difficulty?difficulty=Advanced", "", nil)
	decode(t, rec, &quizzes)
	if len(quizzes) != 0 {
		t.Fatalf("advanced quizzes = %v, want none", quizzes)
	}

	rec = s.do(http.MethodGet, "/api/quizzes/"+quiz.ID.String(), "", nil)
	var one struct {
		Questions []struct {
			CorrectAnswer string `json:"correctAnswer"`
		} `json:"questions"`
	}
	decode(t, rec, &one)
	if rec.Code != http.StatusOK || len(one.Questions) != 2 || one.Questions[0].CorrectAnswer != "A" {
		t.Fatalf("get quiz = %d %+v", rec.Code, one)
	}

	rec = s.do(http.MethodGet, "/api/quizzes/not-a-uuid", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown quiz status = %d, want 404", rec.Code)
	}
}

func TestDirectAttemptRoute(t *testing.T) {
	s := newTestServer(t)
	quiz := s.createBasics()
	token := s.signup("direct@example.com")

	questions := make([]gin.H, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions = append(questions, gin.H{"id": q.ID, "options": q.Options, "correctAnswer": q.CorrectAnswer})
	}
	rec := s.do(http.MethodPost, "/api/quiz-attempts", token, gin.H{
		"quizId":         quiz.ID,
		"score":          2,
		"totalQuestions": 2,
		"timeSpent":      40,
		"answers":        gin.H{"0": 0, "1": 1},
		"questions":      questions,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created map[string]any
	decode(t, rec, &created)
	if created["score"].(float64) != 2 || created["createdAt"] == nil {
		t.Fatalf("created = %v", created)
	}

	rec = s.do(http.MethodGet, "/api/quiz-attempts/"+created["id"].(string), token, nil)
	var detail struct {
		Answers json.RawMessage `json:"answers"`
	}
	decode(t, rec, &detail)
	if string(detail.Answers) != `{"0":0,"1":1}` {
		t.Fatalf("answers = %s, want the object as sent", detail.Answers)
	}

	rec = s.do(http.MethodGet, "/api/quiz-attempts", token, nil)
	var history []map[string]any
	decode(t, rec, &history)
	if len(history) != 1 || history[0]["percentage"].(float64) != 100 {
		t.Fatalf("history = %v", history)
	}
}

func TestHealthAndNoRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/health", "", nil)
	var health map[string]any
	decode(t, rec, &health)
	if rec.Code != http.StatusOK || health["status"] != "ok" {
		t.Fatalf("health = %d %v", rec.Code, health)
	}

	rec = s.do(http.MethodGet, "/api/nope", "", nil)
	var body map[string]string
	decode(t, rec, &body)
	if rec.Code != http.StatusNotFound || body["error"] != "Route not found" {
		t.Fatalf("no route = %d %v", rec.Code, body)
	}
}
