package dto

import "net/http"

// Standard error codes used across the API
const (
	// General errors
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeConflict   = "CONFLICT"

	// Input errors
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeInvalidJSON  = "INVALID_JSON"

	// Business rule errors
	ErrCodeInvalidState      = "INVALID_STATE"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeBusinessRule      = "BUSINESS_RULE_VIOLATION"

	// Infrastructure errors
	ErrCodeDatabaseError = "DATABASE_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeNotFound:   http.StatusNotFound,
	ErrCodeConflict:   http.StatusConflict,

	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeInvalidState:      http.StatusConflict,
	ErrCodeAlreadyExists:     http.StatusConflict,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:      http.StatusUnprocessableEntity,

	ErrCodeDatabaseError: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes default to 500.
func GetHTTPStatus(errorCode string) int {
	if status, ok := ErrorCodeHTTPStatus[errorCode]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to API error codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":          ErrCodeNotFound,
	"ALREADY_EXISTS":     ErrCodeAlreadyExists,
	"INVALID_INPUT":      ErrCodeInvalidInput,
	"INVALID_STATE":      ErrCodeInvalidState,
	"INSUFFICIENT_STOCK": ErrCodeInsufficientStock,
	"BUSINESS_RULE":      ErrCodeBusinessRule,
	"DATABASE_ERROR":     ErrCodeDatabaseError,
}

// NormalizeErrorCode converts domain error codes to API error codes
func NormalizeErrorCode(code string) string {
	if normalized, ok := LegacyErrorCodeMapping[code]; ok {
		return normalized
	}
	return code
}
