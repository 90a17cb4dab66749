package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-quiz-backend/controllers"
	"github.com/vnkhanh/e-quiz-backend/middleware"
	"github.com/vnkhanh/e-quiz-backend/services"
	"github.com/vnkhanh/e-quiz-backend/utils"
)

func SetupRouter(r *gin.Engine, db *gorm.DB, tokens *utils.TokenManager) *gin.Engine {
	// Lỗi validate của gin dùng tên field theo json
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		services.UseJSONFieldNames(v)
	}

	authService := services.NewAuthService(db, tokens)
	quizService := services.NewQuizService(db)
	attemptService := services.NewAttemptService(db)

	requireAuth := middleware.AuthMiddleware(authService)

	r.GET("/health", controllers.HealthCheck(db))

	api := r.Group("/api")
	api.GET("/health", controllers.HealthCheck(db))

	auth := api.Group("/auth")
	{
		auth.POST("/signup", controllers.Signup(authService))
		auth.POST("/login", controllers.Login(authService))
		auth.GET("/me", requireAuth, controllers.Me(authService))
	}

	// Xem quiz không cần đăng nhập
	quizzes := api.Group("/quizzes")
	{
		quizzes.GET("", controllers.GetQuizzes(quizService))
		quizzes.GET("/difficulty", controllers.GetQuizzesByDifficulty(quizService))
		quizzes.GET("/:id", controllers.GetQuizByID(quizService))
	}

	attempts := api.Group("/attempts")
	{
		attempts.Use(requireAuth)
		attempts.POST("/start", controllers.StartAttempt(attemptService))
		attempts.POST("/:id/submit", controllers.SubmitAttempt(attemptService))
		attempts.GET("/user", controllers.GetUserQuizAttempts(attemptService))
		attempts.GET("/:id", controllers.GetQuizAttemptDetail(attemptService))
	}

	quizAttempts := api.Group("/quiz-attempts")
	{
		quizAttempts.Use(requireAuth)
		quizAttempts.POST("", controllers.CreateQuizAttempt(attemptService))
		quizAttempts.GET("", controllers.GetUserQuizAttempts(attemptService))
		quizAttempts.GET("/stats", controllers.GetQuizAttemptStats(attemptService))
		quizAttempts.GET("/:id", controllers.GetQuizAttemptDetail(attemptService))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	return r
}
