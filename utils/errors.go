package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"document-qa-platform/models"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message)
}

// RespondWithServiceError maps the service error taxonomy onto HTTP
// responses.
func RespondWithServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		RespondWithError(c, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, models.ErrExtraction):
		RespondWithError(c, http.StatusUnprocessableEntity, "extraction_failed", err.Error())
	case errors.Is(err, models.ErrNotFound):
		RespondWithError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, models.ErrRetrieval):
		RespondWithError(c, http.StatusBadGateway, "retrieval_failed", err.Error())
	case errors.Is(err, models.ErrGeneration):
		RespondWithError(c, http.StatusBadGateway, "generation_failed", err.Error())
	default:
		RespondWithInternalError(c, err.Error())
	}
}
