package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := &Error{Type: ErrorTypeServerError, Message: "upstream unavailable", Code: 503, Page: 2}
	assert.Equal(t, "server_error error (code 503) on page 2: upstream unavailable", err.Error())

	wrapped := Wrap(ErrorTypeParsing, "decode page", errors.New("unexpected end of JSON input"))
	assert.Equal(t, "parsing error: decode page: unexpected end of JSON input", wrapped.Error())
}

func TestTypeOfUnwrapsChain(t *testing.T) {
	base := New(ErrorTypeTimeout, "deadline exceeded")
	chained := fmt.Errorf("fetch page: %w", base)

	assert.Equal(t, ErrorTypeTimeout, TypeOf(chained))
	assert.True(t, Is(chained, ErrorTypeTimeout))
	assert.False(t, Is(nil, ErrorTypeTimeout))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
}

func TestIsRetryableStatusCode(t *testing.T) {
	tests := []struct {
		code     int
		expected bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{429, true},
		{500, true},
		{501, false},
		{502, true},
		{503, true},
		{504, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsRetryableStatusCode(tt.code), "status %d", tt.code)
	}
}

func TestTypeForStatus(t *testing.T) {
	assert.Equal(t, ErrorTypeRateLimit, TypeForStatus(429))
	assert.Equal(t, ErrorTypeServerError, TypeForStatus(502))
	assert.Equal(t, ErrorTypeStatus, TypeForStatus(404))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeNetwork))
	assert.False(t, IsRetryable(ErrorTypeParsing))
}

func TestStatusOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Type: ErrorTypeRateLimit, Code: 429})
	assert.Equal(t, 429, StatusOf(err))
	assert.Equal(t, 0, StatusOf(errors.New("plain")))
}
