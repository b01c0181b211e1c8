package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scrapdesk/internal/core/apperror"
	"scrapdesk/internal/infrastructure/http/v1/dto"
	"scrapdesk/pkg/logger"
)

// ErrorCounter counts error responses by code.
type ErrorCounter interface {
	ErrorReturned(code string)
}

const errorCounterKey = "error_counter"

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
// counter may be nil.
func ErrorHandler(counter ErrorCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter != nil {
			c.Set(errorCounterKey, counter)
		}

		c.Next()

		writeError(c)
	}
}

// writeError renders the last error recorded on c. Nothing is written when
// there is no error or the handler already responded. Middleware that must
// see the final response before ErrorHandler unwinds calls it directly.
func writeError(c *gin.Context) {
	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	status, body := render(c, c.Errors.Last().Err)
	if v, ok := c.Get(errorCounterKey); ok {
		if counter, ok := v.(ErrorCounter); ok {
			counter.ErrorReturned(body.Code)
		}
	}
	c.JSON(status, body)
}

func render(c *gin.Context, err error) (int, dto.ErrorResponse) {
	if appErr, ok := apperror.AsAppError(err); ok {
		if appErr.Err != nil {
			log := logger.Warn
			if appErr.HTTPStatus >= http.StatusInternalServerError {
				log = logger.Error
			}
			log(c.Request.Context(), "request error",
				"code", appErr.Code,
				"cause", appErr.Err,
			)
		}
		return appErr.HTTPStatus, dto.ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}
	}

	// Unknown error - log and return generic message
	logger.Error(c.Request.Context(), "unhandled error", "error", err)

	return http.StatusInternalServerError, dto.ErrorResponse{
		Code:    apperror.CodeInternal,
		Message: "Internal server error",
		Details: map[string]any{
			"request_id": c.GetString("request_id"),
		},
	}
}
