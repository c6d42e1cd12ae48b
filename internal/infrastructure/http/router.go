package httpapi

import (
	"github.com/gin-gonic/gin"
)

const DefaultWebhookPath = "/mycryptocheckout"

func NewRouter(handler *Handler, webhookPath string) *gin.Engine {
	if webhookPath == "" {
		webhookPath = DefaultWebhookPath
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.POST(webhookPath, handler.ReceiveMessages)
	router.GET("/healthz", handler.Health)
	router.GET("/metrics", handler.Counters)

	orders := router.Group("/orders")
	{
		orders.POST("", handler.PlaceOrder)
		orders.POST("/:ref/send", handler.SendOrder)
	}

	return router
}
