package github

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

func errorResponse(statusCode int, message string) *github.ErrorResponse {
	return &github.ErrorResponse{
		Response: &http.Response{StatusCode: statusCode},
		Message:  message,
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{
			name:  "unauthorized",
			err:   errorResponse(http.StatusUnauthorized, "Bad credentials"),
			check: metadata.IsAuthenticationError,
		},
		{
			name:  "forbidden",
			err:   errorResponse(http.StatusForbidden, "Resource not accessible by integration"),
			check: metadata.IsAuthenticationError,
		},
		{
			name:  "forbidden rate limit",
			err:   errorResponse(http.StatusForbidden, "API rate limit exceeded for user"),
			check: metadata.IsRateLimitError,
		},
		{
			name:  "not found",
			err:   errorResponse(http.StatusNotFound, "Not Found"),
			check: metadata.IsNotFoundError,
		},
		{
			name:  "too many requests",
			err:   errorResponse(http.StatusTooManyRequests, "slow down"),
			check: metadata.IsRateLimitError,
		},
		{
			name:  "server error",
			err:   errorResponse(http.StatusBadGateway, "Bad Gateway"),
			check: metadata.IsTransientError,
		},
		{
			name:  "unprocessable",
			err:   errorResponse(http.StatusUnprocessableEntity, "Validation Failed"),
			check: metadata.IsPermanentError,
		},
		{
			name:  "network error",
			err:   &url.Error{Op: "Get", URL: "https://api.github.com", Err: errors.New("connection reset")},
			check: metadata.IsTransientError,
		},
		{
			name:  "wrapped error keeps its class",
			err:   fmt.Errorf("x-github-request-id: ABCD: %w", errorResponse(http.StatusUnauthorized, "Bad credentials")),
			check: metadata.IsAuthenticationError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyError(tt.err)
			assert.True(t, tt.check(classified))
		})
	}
}

func TestClassifyErrorRateLimitCarriesReset(t *testing.T) {
	reset := time.Date(2024, 4, 1, 12, 30, 0, 0, time.UTC)
	err := classifyError(&github.RateLimitError{
		Rate: github.Rate{Reset: github.Timestamp{Time: reset}},
	})

	var rateErr *metadata.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, reset, rateErr.ResetAt)
}

func TestClassifyErrorAbuseRateLimit(t *testing.T) {
	retryAfter := 30 * time.Second
	err := classifyError(&github.AbuseRateLimitError{RetryAfter: &retryAfter})

	var rateErr *metadata.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.False(t, rateErr.ResetAt.IsZero())
}

func TestClassifyErrorPassesUnknownThrough(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, err, classifyError(err))
	assert.NoError(t, classifyError(nil))
}
