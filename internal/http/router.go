package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"fans3-backend/internal/common/config"
	"fans3-backend/internal/common/middleware"
)

// NewRouter builds the companion API. Verification routes require Telegram
// Mini App authentication; the group listing is public.
func NewRouter(cfg *config.Config, handler *VerifyHandler) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.Origin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "init_data", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	v1 := router.Group("/api/v1")
	v1.GET("/groups", handler.ListGroups)

	verify := v1.Group("/verify", middleware.TelegramInitData(cfg.Telegram.BotToken))
	verify.POST("/message", handler.IssueMessage)
	verify.POST("/claim", handler.SubmitClaim)

	return router
}
