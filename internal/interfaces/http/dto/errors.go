package dto

import (
	"net/http"
	"strings"
)

// General error codes used by the HTTP layer itself
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeValidation = "VALIDATION_ERROR"
)

// errorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes not listed here fall back by prefix: INVALID_* maps to 400,
// everything else to 500.
var errorCodeHTTPStatus = map[string]int{
	// Resource errors
	"NOT_FOUND":         http.StatusNotFound,
	"LINE_NOT_FOUND":    http.StatusNotFound,
	"VARIANT_NOT_FOUND": http.StatusNotFound,

	// Conflicts
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"DUPLICATE_REQUEST":    http.StatusConflict,

	// Business rule violations -> 422 Unprocessable Entity
	"INSUFFICIENT_STOCK":    http.StatusUnprocessableEntity,
	"EMPTY_CART":            http.StatusUnprocessableEntity,
	"INVALID_TRANSITION":    http.StatusUnprocessableEntity,
	"RETURN_WINDOW_EXPIRED": http.StatusUnprocessableEntity,
	"INVALID_STATE":         http.StatusUnprocessableEntity,
	"PRODUCT_INACTIVE":      http.StatusUnprocessableEntity,

	// Input errors
	"INVALID_INPUT":    http.StatusBadRequest,
	"BAD_REQUEST":      http.StatusBadRequest,
	"VALIDATION_ERROR": http.StatusBadRequest,
	"INTERNAL_ERROR":   http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for a domain error code
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
