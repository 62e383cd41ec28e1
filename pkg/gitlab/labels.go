package gitlab

import (
	"context"
	"fmt"
	"time"

	"github.com/xanzy/go-gitlab"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

// ListLabels returns all labels of the project.
func (s *Source) ListLabels(ctx context.Context) ([]*metadata.Label, error) {
	var ret []*metadata.Label
	var page = 1
	for {
		opts := &gitlab.ListLabelsOptions{
			ListOptions: gitlab.ListOptions{
				PerPage: 100,
				Page:    page,
			},
		}
		labels, _, err := s.client.Labels.ListLabels(s.project, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list GitLab labels: %w", classifyError("GitLab labels", err))
		}
		for _, label := range labels {
			ret = append(ret, &metadata.Label{
				Name:        label.Name,
				Color:       label.Color,
				Description: label.Description,
			})
		}
		if len(labels) < 100 {
			break
		}
		page += 1
	}
	return ret, nil
}

// ListMilestones returns all milestones of the project.
func (s *Source) ListMilestones(ctx context.Context) ([]*metadata.Milestone, error) {
	var ret []*metadata.Milestone
	var page = 1
	for {
		opts := &gitlab.ListMilestonesOptions{
			ListOptions: gitlab.ListOptions{
				PerPage: 100,
				Page:    page,
			},
		}
		milestones, _, err := s.client.Milestones.ListMilestones(s.project, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list GitLab milestones: %w", classifyError("GitLab milestones", err))
		}
		for _, m := range milestones {
			milestone := &metadata.Milestone{
				Title:       m.Title,
				Description: m.Description,
				State:       m.State,
			}
			if m.DueDate != nil {
				due := time.Time(*m.DueDate)
				milestone.DueDate = &due
			}
			ret = append(ret, milestone)
		}
		if len(milestones) < 100 {
			break
		}
		page += 1
	}
	return ret, nil
}
