package router

import (
	"github.com/payu-bridge/internal/config"
	"github.com/payu-bridge/internal/http/handlers"
	"github.com/payu-bridge/internal/logger"
	"github.com/payu-bridge/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	handler := handlers.New(c)

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))

	// 网关回调：共享密钥验签，不走 API 鉴权
	r.POST("/webhooks/payu/:channel_id", handler.PaymentWebhook)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(APIKeyMiddleware(cfg.Security.APIKey))
	{
		apiV1.POST("/payments", handler.CreatePayment)
		apiV1.GET("/payments/:token", handler.GetPayment)
		apiV1.GET("/payments/:token/widget", handler.PaymentWidget)
		apiV1.POST("/payments/:token/refund", handler.RefundPayment)
		apiV1.POST("/payments/:token/cancel", handler.CancelPayment)
		apiV1.POST("/payments/:token/renew", handler.RenewPayment)
		apiV1.DELETE("/payments/:token/card-token", handler.DeleteCardToken)
		apiV1.GET("/channels/:id/paymethods", handler.ChannelPayMethods)
	}

	return r
}
