// File: utils/constants.go
package utils

// SessionContextKey is the gin context key holding the caller's models.Session.
const SessionContextKey = "session"

// LoggerContextKey is the gin context key holding a request-scoped *zap.Logger.
const LoggerContextKey = "logger"

// RequestIDContextKey is the gin context key holding the request id echoed in X-Request-ID.
const RequestIDContextKey = "requestId"
