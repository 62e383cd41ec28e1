package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v68/github"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/logger"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/utils"
)

const defaultLabelColor = "ffffff"

// normalizeColor strips the leading '#' GitLab uses. GitHub expects a bare hex code.
func normalizeColor(color string) string {
	color = strings.TrimPrefix(color, "#")
	if color == "" {
		return defaultLabelColor
	}
	return color
}

// EnsureLabel creates the label unless one with the same name already exists.
// It returns the label id and whether a new label was created.
func (s *Sink) EnsureLabel(ctx context.Context, label *metadata.Label) (int64, bool, error) {
	var existing *github.Label
	err := s.client.do(ctx, func() (*github.Response, error) {
		l, resp, err := s.client.inner.Issues.GetLabel(ctx, s.owner, s.repo, label.Name)
		existing = l
		return resp, err
	})
	if err == nil {
		logger.Debug("Label already exists", "label", label.Name)
		return existing.GetID(), false, nil
	}
	if !metadata.IsNotFoundError(err) {
		return 0, false, fmt.Errorf("failed to get GitHub label %q: %w", label.Name, err)
	}

	newLabel := &github.Label{
		Name:  github.String(label.Name),
		Color: github.String(normalizeColor(label.Color)),
	}
	if label.Description != "" {
		newLabel.Description = github.String(utils.TruncateText(label.Description, utils.MaxLabelDescriptionLength))
	}

	var created *github.Label
	err = s.client.do(ctx, func() (*github.Response, error) {
		l, resp, err := s.client.inner.Issues.CreateLabel(ctx, s.owner, s.repo, newLabel)
		created = l
		return resp, err
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create GitHub label %q: %w", label.Name, err)
	}
	logger.Debug("Created label", "label", label.Name, "color", newLabel.GetColor())
	return created.GetID(), true, nil
}
