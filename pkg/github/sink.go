package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v68/github"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

// Sink writes project metadata into a single GitHub repository.
type Sink struct {
	client *Client
	owner  string
	repo   string
}

var _ metadata.Sink = (*Sink)(nil)

// NewSink binds a client to the destination repository.
func NewSink(client *Client, owner, repo string) *Sink {
	return &Sink{
		client: client,
		owner:  owner,
		repo:   repo,
	}
}

// Repository fetches the destination repository identification.
func (s *Sink) Repository(ctx context.Context) (*metadata.RepoInfo, error) {
	var repository *github.Repository
	err := s.client.do(ctx, func() (*github.Response, error) {
		r, resp, err := s.client.inner.Repositories.Get(ctx, s.owner, s.repo)
		repository = r
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get GitHub repository %s/%s: %w", s.owner, s.repo, err)
	}
	return &metadata.RepoInfo{
		Owner: s.owner,
		Name:  repository.GetName(),
		URL:   repository.GetHTMLURL(),
	}, nil
}

// HasCommits reports whether the destination contains at least one commit.
// GitHub answers 409 for a repository without any commit.
func (s *Sink) HasCommits(ctx context.Context) (bool, error) {
	var commits []*github.RepositoryCommit
	err := s.client.do(ctx, func() (*github.Response, error) {
		cs, resp, err := s.client.inner.Repositories.ListCommits(ctx, s.owner, s.repo, &github.CommitsListOptions{
			ListOptions: github.ListOptions{PerPage: 1},
		})
		commits = cs
		return resp, err
	})
	if err != nil {
		var permanentErr *metadata.PermanentError
		if errors.As(err, &permanentErr) && permanentErr.StatusCode == http.StatusConflict {
			return false, nil
		}
		return false, fmt.Errorf("failed to list GitHub commits: %w", err)
	}
	return len(commits) > 0, nil
}
