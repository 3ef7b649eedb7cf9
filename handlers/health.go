package handlers

import (
	"net/http"

	"venuedir/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the latest dependency health snapshot. It answers
// 503 when any dependency is down.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	for _, up := range status.Services {
		if !up {
			code = http.StatusServiceUnavailable
			break
		}
	}
	c.JSON(code, gin.H{"status": http.StatusText(code), "health": status})
}
