package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-engine/internal/handler"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

// ErrorHandler logs errors attached to the context and, when no handler has
// written a response yet, reports the last one.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			status := handler.StatusFor(e.Err)
			event := log.Warn()
			if status >= 500 {
				event = log.Error()
			}
			event.
				Err(e.Err).
				Str("request_id", requestID).
				Str("code", apperrors.CodeOf(e.Err).String()).
				Int("status", status).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last().Err
		c.JSON(handler.StatusFor(lastErr), handler.ErrorResponseFor(lastErr))
	}
}
