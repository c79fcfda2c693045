package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const internalErrorMessage = "internal server error"

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// ErrorStatus maps err to a status code and a client-safe message. Anything
// that is not an AppError, or is an internal one, hides its message.
func ErrorStatus(err error) (int, string) {
	if appErr, ok := apperrors.As(err); ok {
		status := appErr.StatusCode()
		if status >= http.StatusInternalServerError {
			return status, internalErrorMessage
		}
		return status, appErr.Message
	}

	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) && coded.StatusCode() < http.StatusInternalServerError {
		return coded.StatusCode(), err.Error()
	}
	return http.StatusInternalServerError, internalErrorMessage
}

// RespondError records err on the context for the error middleware to log and
// writes the error envelope.
func RespondError(c *gin.Context, err error) {
	status, message := ErrorStatus(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, NewErrorResponse(message))
}

// RespondBindError answers a failed ShouldBind* call with 400 and, for rule
// violations, the list of offending fields.
func RespondBindError(c *gin.Context, err error) {
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
	resp := NewErrorResponse("invalid request")
	if fields := validator.Describe(err); len(fields) > 0 {
		resp.Data = fields
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}
