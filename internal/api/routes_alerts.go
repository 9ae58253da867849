package api

import (
	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard/internal/handlers"
)

func registerAlertRoutes(api *gin.RouterGroup, handler *handlers.AlertHandler) {
	group := api.Group("/alerts")
	{
		group.GET("", handler.List)
		group.GET("/stats", handler.Stats)
		group.POST("", handler.Create)
		group.POST("/read-all", handler.MarkAllRead)
		group.POST("/sweep", handler.Sweep)
		group.POST("/:id/read", handler.MarkRead)
		group.DELETE("/:id", handler.Delete)
		group.DELETE("", handler.Clear)
	}

	notifications := api.Group("/notifications")
	{
		notifications.GET("/visible", handler.Visible)
		notifications.POST("/:id/dismiss", handler.Dismiss)
		notifications.GET("/stream", handler.Stream)
	}
}
