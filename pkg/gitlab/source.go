package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/xanzy/go-gitlab"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

// Source reads project metadata through the GitLab API. It keeps user
// information seen in list payloads so authors of old entities can still be
// attributed when their account detail is gone.
type Source struct {
	client  *gitlab.Client
	project string

	mu       sync.Mutex
	seen     map[int64]*metadata.Identity
	resolved map[int64]*metadata.Identity
}

var _ metadata.Source = (*Source)(nil)

// NewSource builds a Source for one GitLab project. project accepts a numeric
// id or a namespace/name path.
func NewSource(token, baseURL, project string) (*Source, error) {
	client, err := gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}
	return &Source{
		client:   client,
		project:  project,
		seen:     map[int64]*metadata.Identity{},
		resolved: map[int64]*metadata.Identity{},
	}, nil
}

// ProjectInfo returns the source project identification.
func (s *Source) ProjectInfo(ctx context.Context) (*metadata.ProjectInfo, error) {
	project, _, err := s.client.Projects.GetProject(s.project, &gitlab.GetProjectOptions{}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get GitLab project: %w", classifyError(fmt.Sprintf("GitLab project %s", s.project), err))
	}
	return &metadata.ProjectInfo{
		GitLabID:   int64(project.ID),
		GitLabName: project.Name,
		GitLabPath: project.PathWithNamespace,
		GitLabURL:  project.WebURL,
	}, nil
}

// classifyError maps GitLab API failures onto the shared error taxonomy.
func classifyError(resource string, err error) error {
	if err == nil {
		return nil
	}

	var errResp *gitlab.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		code := errResp.Response.StatusCode
		switch {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return &metadata.AuthenticationError{Platform: "gitlab", Err: err}
		case code == http.StatusNotFound:
			return &metadata.NotFoundError{Resource: resource, Err: err}
		case code == http.StatusTooManyRequests:
			return &metadata.RateLimitError{Err: err}
		case code >= 500:
			return &metadata.TransientError{StatusCode: code, Err: err}
		}
		return err
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &metadata.TransientError{Err: err}
	}
	return err
}
