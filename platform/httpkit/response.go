// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"

	"brokerage_intake/platform/apperr"

	"github.com/gin-gonic/gin"
)

// Error type discriminators carried in every failure envelope.
const (
	ErrorTypeValidation   = "validation"
	ErrorTypeDuplicate    = "duplicate"
	ErrorTypeSystem       = "system"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeConflict     = "conflict"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeUnauthorized = "unauthorized"
)

const genericSystemMessage = "an unexpected error occurred, please try again"

// FailureBody describes why a request was refused.
type FailureBody struct {
	Type    string      `json:"type"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// FailureResponse is the standard error envelope.
type FailureResponse struct {
	Success bool        `json:"success"`
	Error   FailureBody `json:"error"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error sends a failure envelope with the given status code and message.
func Error(c *gin.Context, status int, errType, message string, details interface{}) {
	c.JSON(status, FailureResponse{
		Success: false,
		Error:   FailureBody{Type: errType, Message: message, Details: details},
	})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// HandleError maps domain errors to HTTP responses.
// Typed *apperr.Error values anywhere in the chain choose the status code;
// internal and untyped errors are reported with a generic message and
// attached to the context for RequestLogger.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if !errors.As(err, &domainErr) {
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, ErrorTypeSystem, genericSystemMessage, nil)
		return true
	}

	status := domainErr.HTTPStatus()
	body := FailureBody{
		Type:    errorType(domainErr),
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Details: domainErr.Details,
	}
	if body.Type == ErrorTypeSystem {
		_ = c.Error(err)
		body.Message = genericSystemMessage
		body.Details = nil
	}

	c.JSON(status, FailureResponse{Success: false, Error: body})
	return true
}

func errorType(e *apperr.Error) string {
	switch e.Kind {
	case apperr.KindValidation, apperr.KindBadRequest:
		return ErrorTypeValidation
	case apperr.KindConflict:
		if e.Code == apperr.CodeDuplicateBlocked {
			return ErrorTypeDuplicate
		}
		return ErrorTypeConflict
	case apperr.KindNotFound:
		return ErrorTypeNotFound
	case apperr.KindForbidden:
		return ErrorTypeForbidden
	case apperr.KindUnauthorized:
		return ErrorTypeUnauthorized
	default:
		return ErrorTypeSystem
	}
}
