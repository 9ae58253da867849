package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/phishguard/phishguard/pkg/response"
)

// Health returns a simple status payload useful for liveness checks.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}

// Ready reports readiness, pinging the database when one is configured.
func Ready(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(requestContext(c))
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, response.Response{
					Success: false,
					Error:   &response.ErrorInfo{Code: "NOT_READY", Message: "database unreachable"},
				})
				return
			}
		}

		response.Success(c, http.StatusOK, gin.H{"status": "ready"})
	}
}
