package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := NewParsingError("bad workbook", fmt.Errorf("zip: not a valid zip file"))
	assert.Equal(t, "[PARSING] bad workbook: zip: not a valid zip file", err.Error())

	bare := NewValidationError("confidence out of range")
	assert.Equal(t, "[VALIDATION] confidence out of range", bare.Error())
}

func TestAppError_WithContext(t *testing.T) {
	err := NewMappingError("ambiguous column", nil).
		WithContext("file", "BFG-CO2H-HEX.xlsx").
		WithContext("field", "duty")

	assert.Equal(t, "BFG-CO2H-HEX.xlsx", err.Context["file"])
	assert.Equal(t, "duty", err.Context["field"])
}

func TestIsType(t *testing.T) {
	inner := NewStorageError("insert failed", fmt.Errorf("disk full"))
	wrapped := fmt.Errorf("persist streams: %w", inner)

	assert.True(t, IsType(wrapped, ErrTypeStorage))
	assert.False(t, IsType(wrapped, ErrTypeParsing))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrTypeStorage))
}

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", NewNotFoundError("session"), http.StatusNotFound, "NOT_FOUND"},
		{"validation", NewValidationError("bad id"), http.StatusBadRequest, "VALIDATION"},
		{"storage", NewStorageError("boom", nil), http.StatusInternalServerError, "STORAGE"},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := ToAPIError(tt.err)
			require.NotNil(t, api)
			assert.Equal(t, tt.wantStatus, api.StatusCode)
			assert.Equal(t, tt.wantCode, api.ErrorCode)
		})
	}
}
