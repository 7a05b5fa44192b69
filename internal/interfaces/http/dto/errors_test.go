package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{"NOT_FOUND", http.StatusNotFound},
		{"LINE_NOT_FOUND", http.StatusNotFound},
		{"VARIANT_NOT_FOUND", http.StatusNotFound},
		{"ALREADY_EXISTS", http.StatusConflict},
		{"CONCURRENCY_CONFLICT", http.StatusConflict},
		{"DUPLICATE_REQUEST", http.StatusConflict},
		{"INSUFFICIENT_STOCK", http.StatusUnprocessableEntity},
		{"EMPTY_CART", http.StatusUnprocessableEntity},
		{"INVALID_TRANSITION", http.StatusUnprocessableEntity},
		{"RETURN_WINDOW_EXPIRED", http.StatusUnprocessableEntity},
		{"PRODUCT_INACTIVE", http.StatusUnprocessableEntity},
		{"INVALID_INPUT", http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInternal, http.StatusInternalServerError},
		// Unmapped INVALID_* codes fall back to 400
		{"INVALID_PRICE", http.StatusBadRequest},
		{"INVALID_QUANTITY", http.StatusBadRequest},
		// Anything else falls back to 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}
