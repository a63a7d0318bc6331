// internal/middleware/recovery_middleware.go
package middleware

import (
	"net/http"

	xerrors "taskhub-service/internal/pkg/errors"
	"taskhub-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				if !c.Writer.Written() {
					response.Error(c, http.StatusInternalServerError, xerrors.ErrInternal.Error(), nil)
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
