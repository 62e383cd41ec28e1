package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/utils"
)

// CreateIssue creates an issue and returns its number.
func (s *Sink) CreateIssue(ctx context.Context, req *metadata.IssueRequest) (int, error) {
	issueReq := &github.IssueRequest{
		Title: github.String(utils.TruncateText(req.Title, utils.MaxIssueTitleLength)),
		Body:  github.String(utils.TruncateText(req.Body, utils.MaxIssueBodyLength)),
	}
	if len(req.Labels) > 0 {
		labels := req.Labels
		issueReq.Labels = &labels
	}
	if req.MilestoneNumber > 0 {
		issueReq.Milestone = github.Int(req.MilestoneNumber)
	}

	var issue *github.Issue
	err := s.client.do(ctx, func() (*github.Response, error) {
		// コンテンツ生成系APIはセカンダリレート制限の対象になる
		if err := s.client.limiter.AcquireContent(ctx); err != nil {
			return nil, err
		}
		i, resp, err := s.client.inner.Issues.Create(ctx, s.owner, s.repo, issueReq)
		issue = i
		return resp, err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create GitHub issue: %w", err)
	}
	return issue.GetNumber(), nil
}

// CreateComment appends a comment to an existing issue.
func (s *Sink) CreateComment(ctx context.Context, issueNumber int, body string) error {
	comment := &github.IssueComment{
		Body: github.String(utils.TruncateText(body, utils.MaxCommentLength)),
	}
	err := s.client.do(ctx, func() (*github.Response, error) {
		if err := s.client.limiter.AcquireContent(ctx); err != nil {
			return nil, err
		}
		_, resp, err := s.client.inner.Issues.CreateComment(ctx, s.owner, s.repo, issueNumber, comment)
		return resp, err
	})
	if err != nil {
		return fmt.Errorf("failed to create comment on GitHub issue #%d: %w", issueNumber, err)
	}
	return nil
}

// CloseIssue transitions an issue to the closed state.
func (s *Sink) CloseIssue(ctx context.Context, issueNumber int) error {
	err := s.client.do(ctx, func() (*github.Response, error) {
		_, resp, err := s.client.inner.Issues.Edit(ctx, s.owner, s.repo, issueNumber, &github.IssueRequest{
			State: github.String("closed"),
		})
		return resp, err
	})
	if err != nil {
		return fmt.Errorf("failed to close GitHub issue #%d: %w", issueNumber, err)
	}
	return nil
}
