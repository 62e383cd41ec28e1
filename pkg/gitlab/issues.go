package gitlab

import (
	"context"
	"fmt"
	"sort"

	"github.com/xanzy/go-gitlab"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

// ListIssues returns one page of issues with their non-system notes attached,
// ordered by creation time.
func (s *Source) ListIssues(ctx context.Context, page, perPage int) ([]*metadata.Issue, bool, error) {
	opts := &gitlab.ListProjectIssuesOptions{
		OrderBy: gitlab.String("created_at"),
		Sort:    gitlab.String("asc"),
		ListOptions: gitlab.ListOptions{
			PerPage: perPage,
			Page:    page,
		},
	}
	issues, _, err := s.client.Issues.ListProjectIssues(s.project, opts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, false, fmt.Errorf("failed to list GitLab issues: %w", classifyError("GitLab issues", err))
	}

	ret := make([]*metadata.Issue, 0, len(issues))
	for _, issue := range issues {
		converted, err := s.convertIssue(ctx, issue)
		if err != nil {
			return nil, false, err
		}
		ret = append(ret, converted)
	}
	return ret, len(issues) < perPage, nil
}

func (s *Source) convertIssue(ctx context.Context, issue *gitlab.Issue) (*metadata.Issue, error) {
	ret := &metadata.Issue{
		ID:          int64(issue.ID),
		IID:         int64(issue.IID),
		Title:       issue.Title,
		Description: issue.Description,
		State:       issue.State,
		Labels:      []string(issue.Labels),
		WebURL:      issue.WebURL,
		ClosedAt:    issue.ClosedAt,
	}
	if issue.CreatedAt != nil {
		ret.CreatedAt = *issue.CreatedAt
	}
	if issue.Author != nil {
		ret.AuthorID = int64(issue.Author.ID)
		s.rememberUser(issue.Author.ID, issue.Author.Username, issue.Author.Name)
	}
	for _, assignee := range issue.Assignees {
		ret.AssigneeIDs = append(ret.AssigneeIDs, int64(assignee.ID))
		s.rememberUser(assignee.ID, assignee.Username, assignee.Name)
	}
	if issue.Milestone != nil {
		ret.Milestone = issue.Milestone.Title
	}

	comments, err := s.listIssueNotes(ctx, issue.IID, issue.WebURL)
	if err != nil {
		return nil, err
	}
	ret.Comments = comments
	return ret, nil
}

func (s *Source) listIssueNotes(ctx context.Context, issueIID int, issueURL string) ([]*metadata.Comment, error) {
	var notes []*gitlab.Note
	var page = 1
	for {
		opts := &gitlab.ListIssueNotesOptions{
			OrderBy: gitlab.String("created_at"),
			Sort:    gitlab.String("asc"),
			ListOptions: gitlab.ListOptions{
				PerPage: 100,
				Page:    page,
			},
		}
		pageNotes, _, err := s.client.Notes.ListIssueNotes(s.project, issueIID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list GitLab issue notes: %w", classifyError(fmt.Sprintf("notes of issue %d", issueIID), err))
		}
		notes = append(notes, pageNotes...)
		if len(pageNotes) < 100 {
			break
		}
		page += 1
	}
	return s.convertNotes(issueURL, notes), nil
}

// convertNotes drops system notes and numbers the remaining comments by
// creation time. parentURL anchors each comment link to its note.
func (s *Source) convertNotes(parentURL string, notes []*gitlab.Note) []*metadata.Comment {
	var comments []*metadata.Comment
	for _, note := range notes {
		if note.System {
			// ラベル操作やステータス変更などのシステムノートは移行対象外
			continue
		}
		comment := &metadata.Comment{
			AuthorID: int64(note.Author.ID),
			Body:     note.Body,
		}
		if parentURL != "" {
			comment.WebURL = fmt.Sprintf("%s#note_%d", parentURL, note.ID)
		}
		if note.CreatedAt != nil {
			comment.CreatedAt = *note.CreatedAt
		}
		s.rememberUser(note.Author.ID, note.Author.Username, note.Author.Name)
		comments = append(comments, comment)
	}

	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	for i, comment := range comments {
		comment.Sequence = i + 1
	}
	return comments
}
