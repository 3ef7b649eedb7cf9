package utils

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIError is the body of every non-2xx JSON response.
type APIError struct {
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// LoggerFrom returns the request-scoped logger, or the global one outside a request.
func LoggerFrom(c *gin.Context) *zap.Logger {
	if l, ok := c.Get(LoggerContextKey); ok {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return GetLogger()
}

// PanicRecovery turns a handler panic into a 500 carrying the request id.
func PanicRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			LoggerFrom(c).Error("Recovered from handler panic",
				zap.String("panic", fmt.Sprint(rec)),
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.Stack("stack"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, APIError{
				Message:   "Internal Server Error",
				Details:   "the request could not be completed",
				RequestID: c.GetString(RequestIDContextKey),
			})
		}()
		c.Next()
	}
}

// JSONError aborts the request with status and an APIError body. Server
// errors log at error level, client errors at debug.
func JSONError(c *gin.Context, status int, message string, details string) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("details", details),
		zap.String("route", c.FullPath()),
	}
	logger := LoggerFrom(c)
	if status >= http.StatusInternalServerError {
		logger.Error(message, fields...)
	} else {
		logger.Debug(message, fields...)
	}
	c.AbortWithStatusJSON(status, APIError{
		Message:   message,
		Details:   details,
		RequestID: c.GetString(RequestIDContextKey),
	})
}
