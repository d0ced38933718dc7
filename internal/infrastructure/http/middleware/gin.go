package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	apperrors "github.com/alchemorsel/kitchen/pkg/errors"
	"github.com/gin-gonic/gin"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"

// GinRequestID reuses the chi request id when the engine is mounted under
// the chi router and generates one otherwise
func (m *Middleware) GinRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := chimw.GetReqID(c.Request.Context())
		if requestID == "" {
			requestID = c.GetHeader("X-Request-ID")
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// GinLogger is RequestLogger for the /bff engine. The API is served below
// the chi router, so the entry carries the full path and gin's error list.
func (m *Middleware) GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level, msg := statusLevel(status)
		ce := m.logger.Check(level, msg)
		if ce == nil {
			return
		}
		fields := []zap.Field{
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.String("ip", c.ClientIP()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, zap.Strings("errors", errs.Errors()))
		}
		ce.Write(fields...)
	}
}

// GinRecovery recovers from panics and returns 500 error
func (m *Middleware) GinRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("Panic recovered",
					zap.String("request_id", c.GetString(requestIDKey)),
					zap.Any("error", err),
					zap.String("stack", string(debug.Stack())),
				)

				appErr := apperrors.NewInternalError("")
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					apperrors.ToErrorResponse(appErr, c.GetString(requestIDKey)))
			}
		}()

		c.Next()
	}
}

// GinErrorHandler renders the last error attached to the context as an
// ErrorResponse
func (m *Middleware) GinErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := apperrors.Wrap(err, "")

		m.logger.Warn("Request error",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("code", string(appErr.Code)),
			zap.String("details", appErr.Details),
			zap.Error(err),
		)

		c.JSON(appErr.StatusCode(), apperrors.ToErrorResponse(appErr, c.GetString(requestIDKey)))
	}
}
