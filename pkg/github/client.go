package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v68/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/ratelimit"
)

// Client wraps the GitHub REST and GraphQL clients behind a shared rate limiter.
type Client struct {
	inner   *github.Client
	v4      *githubv4.Client
	limiter *ratelimit.Limiter
}

// NewClientByPAT creates a GitHub client authenticated by a personal access token.
func NewClientByPAT(token string, limiter *ratelimit.Limiter) *Client {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return &Client{
		inner:   github.NewClient(tc),
		v4:      githubv4.NewClient(tc),
		limiter: limiter,
	}
}

// NewClientByApp creates a GitHub client authenticated as an App installation.
func NewClientByApp(appID, installationID int, privateKey string, limiter *ratelimit.Limiter) (*Client, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, int64(appID), int64(installationID), []byte(privateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
	}
	return &Client{
		inner:   github.NewClient(&http.Client{Transport: itr}),
		v4:      githubv4.NewClient(&http.Client{Transport: itr}),
		limiter: limiter,
	}, nil
}

// do executes one API call under the quota gate, feeds the response headers
// back into the limiter and classifies failures for the retry policy.
func (client *Client) do(ctx context.Context, op func() (*github.Response, error)) error {
	return client.limiter.Do(ctx, func() error {
		resp, err := op()
		if resp != nil && resp.Rate.Limit > 0 {
			client.limiter.Update(resp.Rate.Remaining, resp.Rate.Reset.Time)
		}
		if err != nil && resp != nil {
			// トラブルシュート用にリクエストIDを残す
			if requestID := resp.Header.Get("x-github-request-id"); requestID != "" {
				err = fmt.Errorf("%w, x-github-request-id: %s", err, requestID)
			}
		}
		return classifyError(err)
	})
}

// classifyError maps GitHub API failures onto the shared error taxonomy.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &metadata.RateLimitError{ResetAt: rateErr.Rate.Reset.Time, Err: err}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		var reset time.Time
		if abuseErr.RetryAfter != nil {
			reset = time.Now().Add(*abuseErr.RetryAfter)
		}
		return &metadata.RateLimitError{ResetAt: reset, Err: err}
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		code := errResp.Response.StatusCode
		switch {
		case code == http.StatusUnauthorized:
			return &metadata.AuthenticationError{Platform: "github", Err: err}
		case code == http.StatusForbidden && strings.Contains(strings.ToLower(errResp.Message), "rate limit"):
			return &metadata.RateLimitError{Err: err}
		case code == http.StatusForbidden:
			return &metadata.AuthenticationError{Platform: "github", Err: err}
		case code == http.StatusNotFound:
			return &metadata.NotFoundError{Resource: requestPath(errResp.Response), Err: err}
		case code == http.StatusTooManyRequests:
			return &metadata.RateLimitError{Err: err}
		case code >= 500:
			return &metadata.TransientError{StatusCode: code, Err: err}
		default:
			return &metadata.PermanentError{StatusCode: code, Err: err}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &metadata.TransientError{Err: err}
	}
	return err
}

func requestPath(resp *http.Response) string {
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.Path
	}
	return "GitHub resource"
}
