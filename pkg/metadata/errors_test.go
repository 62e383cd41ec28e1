package metadata

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassificationHelpers(t *testing.T) {
	reset := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	cause := errors.New("boom")

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"authentication", &AuthenticationError{Platform: "github", Err: cause}, IsAuthenticationError},
		{"not found", &NotFoundError{Resource: "label bug", Err: cause}, IsNotFoundError},
		{"validation", &ValidationMismatchError{Check: "project names", Reason: "mismatch"}, IsValidationMismatchError},
		{"rate limit", &RateLimitError{ResetAt: reset, Err: cause}, IsRateLimitError},
		{"transient", &TransientError{StatusCode: 502, Err: cause}, IsTransientError},
		{"permanent", &PermanentError{StatusCode: 422, Err: cause}, IsPermanentError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Helpers must see through fmt.Errorf wrapping.
			wrapped := fmt.Errorf("failed to import label: %w", tt.err)
			assert.True(t, tt.check(wrapped))

			for _, other := range tests {
				if other.name == tt.name {
					continue
				}
				assert.False(t, other.check(wrapped), "%s matched %s", other.name, tt.name)
			}
		})
	}
}

func TestRateLimitErrorCarriesReset(t *testing.T) {
	reset := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	wrapped := fmt.Errorf("failed to create issue: %w", &RateLimitError{ResetAt: reset, Err: errors.New("slow down")})

	var rateErr *RateLimitError
	require.True(t, errors.As(wrapped, &rateErr))
	assert.Equal(t, reset, rateErr.ResetAt)
	assert.Contains(t, rateErr.Error(), "2024-05-01T10:30:00Z")
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := &TransientError{StatusCode: 503, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "503")
}
