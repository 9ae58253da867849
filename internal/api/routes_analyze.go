package api

import (
	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard/internal/handlers"
)

func registerAnalyzeRoutes(api *gin.RouterGroup, handler *handlers.AnalyzeHandler) {
	group := api.Group("/analyze")
	{
		group.POST("/text", handler.Text)
		group.POST("/url", handler.URL)
		group.POST("/email", handler.Email)
		group.POST("/image", handler.Image)
		group.GET("/history", handler.History)
	}
}
