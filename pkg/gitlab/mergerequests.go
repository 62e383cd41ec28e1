package gitlab

import (
	"context"
	"fmt"

	"github.com/xanzy/go-gitlab"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

// ListMergeRequests returns one page of closed or merged merge requests with
// their non-system notes. Open merge requests stay on GitLab and are not
// exported.
func (s *Source) ListMergeRequests(ctx context.Context, page, perPage int) ([]*metadata.MergeRequest, bool, error) {
	opts := &gitlab.ListProjectMergeRequestsOptions{
		OrderBy: gitlab.String("created_at"),
		Sort:    gitlab.String("asc"),
		ListOptions: gitlab.ListOptions{
			PerPage: perPage,
			Page:    page,
		},
	}
	mrs, _, err := s.client.MergeRequests.ListProjectMergeRequests(s.project, opts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, false, fmt.Errorf("failed to list GitLab merge requests: %w", classifyError("GitLab merge requests", err))
	}

	ret := make([]*metadata.MergeRequest, 0, len(mrs))
	for _, mr := range mrs {
		if mr.State != metadata.StateClosed && mr.State != metadata.StateMerged {
			// Openのままのマージリクエストはスナップショットに含めない
			continue
		}
		converted, err := s.convertMergeRequest(ctx, mr)
		if err != nil {
			return nil, false, err
		}
		ret = append(ret, converted)
	}
	return ret, len(mrs) < perPage, nil
}

func (s *Source) convertMergeRequest(ctx context.Context, mr *gitlab.MergeRequest) (*metadata.MergeRequest, error) {
	ret := &metadata.MergeRequest{
		Issue: metadata.Issue{
			ID:          int64(mr.ID),
			IID:         int64(mr.IID),
			Title:       mr.Title,
			Description: mr.Description,
			State:       mr.State,
			Labels:      []string(mr.Labels),
			WebURL:      mr.WebURL,
			ClosedAt:    mr.ClosedAt,
		},
		MergedAt:     mr.MergedAt,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		SHA:          mr.SHA,
	}
	if mr.CreatedAt != nil {
		ret.CreatedAt = *mr.CreatedAt
	}
	if mr.Author != nil {
		ret.AuthorID = int64(mr.Author.ID)
		s.rememberUser(mr.Author.ID, mr.Author.Username, mr.Author.Name)
	}
	for _, assignee := range mr.Assignees {
		ret.AssigneeIDs = append(ret.AssigneeIDs, int64(assignee.ID))
		s.rememberUser(assignee.ID, assignee.Username, assignee.Name)
	}
	if mr.Milestone != nil {
		ret.Milestone = mr.Milestone.Title
	}

	comments, err := s.listMergeRequestNotes(ctx, mr.IID, mr.WebURL)
	if err != nil {
		return nil, err
	}
	ret.Comments = comments
	return ret, nil
}

func (s *Source) listMergeRequestNotes(ctx context.Context, mrIID int, mrURL string) ([]*metadata.Comment, error) {
	var notes []*gitlab.Note
	var page = 1
	for {
		opts := &gitlab.ListMergeRequestNotesOptions{
			OrderBy: gitlab.String("created_at"),
			Sort:    gitlab.String("asc"),
			ListOptions: gitlab.ListOptions{
				PerPage: 100,
				Page:    page,
			},
		}
		pageNotes, _, err := s.client.Notes.ListMergeRequestNotes(s.project, mrIID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list GitLab merge request notes: %w", classifyError(fmt.Sprintf("notes of merge request %d", mrIID), err))
		}
		notes = append(notes, pageNotes...)
		if len(pageNotes) < 100 {
			break
		}
		page += 1
	}
	return s.convertNotes(mrURL, notes), nil
}
