package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eduvisor-backend/internal/apperr"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithUnauthorized sends a 401 Unauthorized error
func RespondWithUnauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, "unauthorized", message, nil)
}

// RespondWithForbidden sends a 403 Forbidden error
func RespondWithForbidden(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden, "forbidden", message, nil)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithAppError maps a classified application error onto the
// standard error envelope. Unclassified errors fall back to 500.
func RespondWithAppError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindNotFound:
		RespondWithError(c, http.StatusNotFound, kind.String(), err.Error(), nil)
	case apperr.KindValidation:
		RespondWithError(c, http.StatusBadRequest, kind.String(), err.Error(), nil)
	case apperr.KindEmbedding, apperr.KindCompletion:
		RespondWithError(c, http.StatusBadGateway, kind.String(), err.Error(), nil)
	case apperr.KindConfiguration:
		RespondWithError(c, http.StatusInternalServerError, kind.String(), "service misconfigured", nil)
	default:
		RespondWithError(c, http.StatusInternalServerError, kind.String(), err.Error(), nil)
	}
}
