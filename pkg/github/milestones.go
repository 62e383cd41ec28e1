package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/logger"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/utils"
)

// milestoneState converts the source milestone state to the destination vocabulary.
func milestoneState(state string) string {
	if state == metadata.StateClosed {
		return "closed"
	}
	return "open"
}

// EnsureMilestone creates the milestone unless one with the same title already
// exists in any state. It returns the milestone number and whether a new
// milestone was created.
func (s *Sink) EnsureMilestone(ctx context.Context, milestone *metadata.Milestone) (int, bool, error) {
	// closed済みも含めてタイトル一致を探す
	var page = 1
	for {
		var milestones []*github.Milestone
		err := s.client.do(ctx, func() (*github.Response, error) {
			ms, resp, err := s.client.inner.Issues.ListMilestones(ctx, s.owner, s.repo, &github.MilestoneListOptions{
				State: "all",
				ListOptions: github.ListOptions{
					Page:    page,
					PerPage: 100,
				},
			})
			milestones = ms
			return resp, err
		})
		if err != nil {
			return 0, false, fmt.Errorf("failed to list GitHub milestones: %w", err)
		}
		for _, m := range milestones {
			if m.GetTitle() == milestone.Title {
				logger.Debug("Milestone already exists", "milestone", milestone.Title)
				return m.GetNumber(), false, nil
			}
		}
		if len(milestones) < 100 {
			break
		}
		page += 1
	}

	newMilestone := &github.Milestone{
		Title: github.String(milestone.Title),
		State: github.String(milestoneState(milestone.State)),
	}
	if milestone.Description != "" {
		newMilestone.Description = github.String(utils.TruncateText(milestone.Description, utils.MaxMilestoneDescriptionLength))
	}
	if milestone.DueDate != nil {
		newMilestone.DueOn = &github.Timestamp{Time: *milestone.DueDate}
	}

	var created *github.Milestone
	err := s.client.do(ctx, func() (*github.Response, error) {
		m, resp, err := s.client.inner.Issues.CreateMilestone(ctx, s.owner, s.repo, newMilestone)
		created = m
		return resp, err
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create GitHub milestone %q: %w", milestone.Title, err)
	}
	logger.Debug("Created milestone", "milestone", milestone.Title, "state", newMilestone.GetState())
	return created.GetNumber(), true, nil
}
