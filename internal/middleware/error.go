package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
)

// ErrorHandler logs the errors handlers attached to the context and renders
// the last one when the handler did not write a response itself.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only handle errors if they exist
		if len(c.Errors) == 0 {
			return
		}

		logger := requestLogger(c)
		for _, e := range c.Errors {
			status, _ := handler.ErrorStatus(e.Err)
			if e.IsType(gin.ErrorTypeBind) {
				status = http.StatusBadRequest
			}
			event := logger.Debug()
			if status >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Err(e.Err).
				Int("status", status).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}

		status, message := handler.ErrorStatus(c.Errors.Last().Err)
		c.JSON(status, handler.NewErrorResponse(message))
	}
}
