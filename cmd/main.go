package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/vnkhanh/e-quiz-backend/config"
	"github.com/vnkhanh/e-quiz-backend/middleware"
	"github.com/vnkhanh/e-quiz-backend/routes"
	"github.com/vnkhanh/e-quiz-backend/utils"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("Không tìm thấy file .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Lỗi cấu hình: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := config.CloseDatabase(db); err != nil {
			log.Printf("Lỗi đóng database: %v", err)
		}
	}()

	if err := config.Migrate(db); err != nil {
		log.Fatal(err)
	}
	log.Println("Kết nối database thành công")

	tokens := utils.NewTokenManager(cfg.JWTSecret, utils.TokenTTL)

	r := gin.New()
	r.Use(gin.Logger(), middleware.Recovery(cfg.IsProduction()))

	//Bật CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "x-access-token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	// Gọi SetupRouter để đăng ký route
	r = routes.SetupRouter(r, db, tokens)

	// Route test server
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Quiz server is running")
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Println("Server running at Port:" + cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server lỗi: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Đang tắt server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown lỗi: %v", err)
	}
}
