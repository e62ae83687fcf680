package router

import (
	"github.com/qrbonus-next/internal/config"
	customerhandlers "github.com/qrbonus-next/internal/http/handlers/customer"
	poshandlers "github.com/qrbonus-next/internal/http/handlers/pos"
	"github.com/qrbonus-next/internal/logger"
	"github.com/qrbonus-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 组装路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.Z()
	r := gin.New()

	posHandler := poshandlers.New(c)
	customerHandler := customerhandlers.New(c)

	// 入口层限流：IP 粒度的粗粒度保护，业务内还有按门店/按用户的两道限流
	scanIPRule := RateLimitRule{
		Prefix:        "rate:scan_ip",
		WindowSeconds: cfg.Security.ScanRateLimit.GeneralWindowSeconds,
		MaxRequests:   cfg.Security.ScanRateLimit.GeneralMax * 3,
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		pos := apiV1.Group("/pos")
		{
			pos.POST("/scan", RateLimitMiddleware(c.Limiter, scanIPRule, KeyByIP), posHandler.Scan)
			pos.POST("/redemption/handler-response", posHandler.HandlerResponse)
			pos.POST("/channel-token", posHandler.GetChannelToken)
			pos.GET("/scans", posHandler.ListScans)
			pos.GET("/stats", posHandler.GetStats)
		}

		redemption := apiV1.Group("/redemption")
		{
			redemption.POST("/user-response", customerHandler.UserResponse)
			redemption.GET("/prompts/:token", customerHandler.GetPrompt)
		}

		users := apiV1.Group("/users")
		{
			users.GET("/:user_id/points", customerHandler.GetPointsHistory)
			users.GET("/:user_id/channel-token", customerHandler.GetChannelToken)
		}
	}

	return r
}
