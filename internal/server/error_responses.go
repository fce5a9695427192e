package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"yashubustudio/surveyx/nco"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	// Client Error Codes (4xx)
	ErrorCodeInvalidJSON     ErrorCode = "INVALID_JSON"
	ErrorCodeInvalidQuery    ErrorCode = "INVALID_QUERY"
	ErrorCodeInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrorCodeColumnNotFound  ErrorCode = "COLUMN_NOT_FOUND"
	ErrorCodeDataNotFound    ErrorCode = "DATA_NOT_FOUND"
	ErrorCodeMalformedConfig ErrorCode = "MALFORMED_CONFIG"
	ErrorCodeEncoding        ErrorCode = "ENCODING_MISMATCH"

	// Server Error Codes (5xx)
	ErrorCodeIndexNotLoaded ErrorCode = "INDEX_NOT_LOADED"
	ErrorCodeSearchFailed   ErrorCode = "SEARCH_FAILED"
	ErrorCodeInternalError  ErrorCode = "INTERNAL_ERROR"
)

// ErrorDetail provides additional context for an error
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// APIError represents a standardized API error response
type APIError struct {
	Error     string        `json:"error"`
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
}

// SendError sends a standardized error response
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...ErrorDetail) {
	resp := &APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
		RequestID: c.GetString(requestIDKey),
	}
	c.AbortWithStatusJSON(statusCode, resp)
}

// SendInvalidJSONError sends a standardized invalid JSON error
func SendInvalidJSONError(c *gin.Context, err error) {
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON, "Invalid JSON in request body: "+err.Error())
}

// SendSearchError sends a standardized search error
func SendSearchError(c *gin.Context, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodeSearchFailed, "Search failed: "+err.Error())
}

// SendDomainError maps errors from the nco package onto status codes.
func SendDomainError(c *gin.Context, operation string, err error) {
	if !sendKnownError(c, err) {
		SendError(c, http.StatusInternalServerError, ErrorCodeInternalError, "Internal error during "+operation+": "+err.Error())
	}
}

// sendKnownError reports whether err matched one of the nco sentinels.
func sendKnownError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, nco.ErrEmptyQuery):
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "Query must not be empty")
	case errors.Is(err, nco.ErrColumnNotFound):
		SendError(c, http.StatusBadRequest, ErrorCodeColumnNotFound, err.Error())
	case errors.Is(err, nco.ErrDataNotFound):
		SendError(c, http.StatusNotFound, ErrorCodeDataNotFound, err.Error())
	case errors.Is(err, nco.ErrMalformedConfig):
		SendError(c, http.StatusUnprocessableEntity, ErrorCodeMalformedConfig, err.Error())
	case errors.Is(err, nco.ErrEncodingMismatch):
		SendError(c, http.StatusUnprocessableEntity, ErrorCodeEncoding, err.Error())
	case errors.Is(err, nco.ErrIndexNotLoaded):
		SendError(c, http.StatusServiceUnavailable, ErrorCodeIndexNotLoaded, "No lookup table has been loaded")
	default:
		return false
	}
	return true
}
