package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Code    string      `json:"code,omitempty"`
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

// StatusFor maps an engine error to the HTTP status it is reported with.
func StatusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch apperrors.CodeOf(err) {
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrBadRequest, apperrors.ErrOverlappingSlots:
		return http.StatusBadRequest
	case apperrors.ErrInvalidInterval, apperrors.ErrNoEligibleWorker:
		return http.StatusUnprocessableEntity
	case apperrors.ErrSlotNoLongerAvailable, apperrors.ErrVersionConflict, apperrors.ErrInvalidTransition:
		return http.StatusConflict
	case apperrors.ErrStoreUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// ErrorResponseFor builds the body for err. Internal failures are not
// described to the client.
func ErrorResponseFor(err error) *Response {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return &Response{Status: "error", Code: "timeout", Message: "request timed out"}
		}
		return &Response{Status: "error", Code: apperrors.ErrInternal.String(), Message: "internal server error"}
	}
	msg := appErr.Message
	switch appErr.Code {
	case apperrors.ErrInternal:
		msg = "internal server error"
	case apperrors.ErrStoreUnavailable:
		msg = "store unavailable"
	}
	return &Response{Status: "error", Code: appErr.Code.String(), Message: msg}
}

// RespondError writes err and records it on the context for the error
// logging middleware.
func RespondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(StatusFor(err), ErrorResponseFor(err))
}

func RespondBadRequest(c *gin.Context, message string, err error) {
	RespondError(c, apperrors.BadRequest(message, err))
}
