package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/e-quiz-backend/services"
)

// ====== ATTEMPT FLOW (start -> submit) ======
func StartAttempt(svc *services.AttemptService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		var input services.StartAttemptInput
		if !bindJSON(c, &input) {
			return
		}

		started, err := svc.Start(c.Request.Context(), userID, input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, started)
	}
}

func SubmitAttempt(svc *services.AttemptService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		// Kiểm tra quyền sở hữu trước khi đọc body
		attempt, err := svc.Authorize(c.Request.Context(), c.Param("id"), userID)
		if err != nil {
			respondError(c, err)
			return
		}

		var input services.SubmitAttemptInput
		if !bindJSON(c, &input) {
			return
		}

		result, err := svc.SubmitAuthorized(c.Request.Context(), attempt, input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// ====== DIRECT ATTEMPT + HISTORY ======
func CreateQuizAttempt(svc *services.AttemptService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		var input services.CreateAttemptInput
		if !bindJSON(c, &input) {
			return
		}

		created, err := svc.CreateDirect(c.Request.Context(), userID, input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func GetUserQuizAttempts(svc *services.AttemptService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		attempts, err := svc.ListForUser(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, attempts)
	}
}

func GetQuizAttemptDetail(svc *services.AttemptService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		detail, err := svc.GetByID(c.Request.Context(), c.Param("id"), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}
