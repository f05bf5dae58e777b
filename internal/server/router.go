package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/cosmosits/questionbank-backend/internal/http/handlers"
	"github.com/cosmosits/questionbank-backend/internal/platform/envutil"
)

type RouterConfig struct {
	ServiceName     string
	HealthHandler   *handlers.HealthHandler
	QuestionHandler *handlers.QuestionHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	origins := strings.Split(envutil.Str("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173"), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	router.Use(otelgin.Middleware(cfg.ServiceName))

	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/questions", cfg.QuestionHandler.CreateQuestion)
		api.GET("/questions", cfg.QuestionHandler.ListQuestions)
		api.GET("/questions/:id", cfg.QuestionHandler.GetQuestion)
		api.DELETE("/questions/:id", cfg.QuestionHandler.DeleteQuestion)
		api.POST("/update-embeddings/:course", cfg.QuestionHandler.UpdateCourseEmbeddings)
	}

	return router
}
