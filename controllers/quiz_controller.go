package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/e-quiz-backend/services"
)

func GetQuizzes(svc *services.QuizService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quizzes, err := svc.ListAll(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, quizzes)
	}
}

// GetQuizzesByDifficulty lọc theo ?difficulty=; bỏ trống thì trả về tất cả
func GetQuizzesByDifficulty(svc *services.QuizService) gin.HandlerFunc {
	return func(c *gin.Context) {
		difficulty := strings.TrimSpace(c.Query("difficulty"))
		quizzes, err := svc.ListByDifficulty(c.Request.Context(), difficulty)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, quizzes)
	}
}

func GetQuizByID(svc *services.QuizService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quiz, err := svc.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, quiz)
	}
}
