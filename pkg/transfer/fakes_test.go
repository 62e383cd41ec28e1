package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

// fakeSource serves canned metadata from memory.
type fakeSource struct {
	project    metadata.ProjectInfo
	labels     []*metadata.Label
	milestones []*metadata.Milestone
	issues     []*metadata.Issue
	mrs        []*metadata.MergeRequest
	users      map[int64]*metadata.Identity
	labelsErr  error
	projectErr error
}

var _ metadata.Source = (*fakeSource)(nil)

func (s *fakeSource) ProjectInfo(ctx context.Context) (*metadata.ProjectInfo, error) {
	if s.projectErr != nil {
		return nil, s.projectErr
	}
	project := s.project
	return &project, nil
}

func (s *fakeSource) ListLabels(ctx context.Context) ([]*metadata.Label, error) {
	if s.labelsErr != nil {
		return nil, s.labelsErr
	}
	return s.labels, nil
}

func (s *fakeSource) ListMilestones(ctx context.Context) ([]*metadata.Milestone, error) {
	return s.milestones, nil
}

func (s *fakeSource) ListIssues(ctx context.Context, page, perPage int) ([]*metadata.Issue, bool, error) {
	start := (page - 1) * perPage
	if start >= len(s.issues) {
		return nil, true, nil
	}
	end := start + perPage
	if end > len(s.issues) {
		end = len(s.issues)
	}
	return s.issues[start:end], end >= len(s.issues), nil
}

func (s *fakeSource) ListMergeRequests(ctx context.Context, page, perPage int) ([]*metadata.MergeRequest, bool, error) {
	start := (page - 1) * perPage
	if start >= len(s.mrs) {
		return nil, true, nil
	}
	end := start + perPage
	if end > len(s.mrs) {
		end = len(s.mrs)
	}
	return s.mrs[start:end], end >= len(s.mrs), nil
}

func (s *fakeSource) ResolveUser(ctx context.Context, id int64) (*metadata.Identity, error) {
	if identity, ok := s.users[id]; ok {
		resolved := *identity
		return &resolved, nil
	}
	return nil, &metadata.NotFoundError{Resource: fmt.Sprintf("user %d", id), Err: errors.New("no such user")}
}

// fakeSink records every write in call order so tests can assert sequencing.
type fakeSink struct {
	repo       *metadata.RepoInfo
	hasCommits bool

	existingLabels     map[string]int64
	existingMilestones map[string]int
	// failures maps call keys like "label:bug" or "comment:101:2" to the
	// error the corresponding call should return.
	failures map[string]error

	calls     []string
	requests  []*metadata.IssueRequest
	comments  map[int][]string
	nextLabel int64
	nextMile  int
	nextIssue int
}

var _ metadata.Sink = (*fakeSink)(nil)

func newFakeSink() *fakeSink {
	return &fakeSink{
		repo:               &metadata.RepoInfo{Owner: "octo", Name: "app", URL: "https://github.com/octo/app"},
		hasCommits:         true,
		existingLabels:     map[string]int64{},
		existingMilestones: map[string]int{},
		failures:           map[string]error{},
		comments:           map[int][]string{},
		nextIssue:          100,
	}
}

func (s *fakeSink) Repository(ctx context.Context) (*metadata.RepoInfo, error) {
	return s.repo, nil
}

func (s *fakeSink) HasCommits(ctx context.Context) (bool, error) {
	return s.hasCommits, nil
}

func (s *fakeSink) EnsureLabel(ctx context.Context, label *metadata.Label) (int64, bool, error) {
	if err := s.failures["label:"+label.Name]; err != nil {
		return 0, false, err
	}
	if id, ok := s.existingLabels[label.Name]; ok {
		s.calls = append(s.calls, "ensure-label:"+label.Name)
		return id, false, nil
	}
	s.nextLabel++
	s.existingLabels[label.Name] = s.nextLabel
	s.calls = append(s.calls, "create-label:"+label.Name)
	return s.nextLabel, true, nil
}

func (s *fakeSink) EnsureMilestone(ctx context.Context, milestone *metadata.Milestone) (int, bool, error) {
	if err := s.failures["milestone:"+milestone.Title]; err != nil {
		return 0, false, err
	}
	if number, ok := s.existingMilestones[milestone.Title]; ok {
		s.calls = append(s.calls, "ensure-milestone:"+milestone.Title)
		return number, false, nil
	}
	s.nextMile++
	s.existingMilestones[milestone.Title] = s.nextMile
	s.calls = append(s.calls, "create-milestone:"+milestone.Title)
	return s.nextMile, true, nil
}

func (s *fakeSink) CreateIssue(ctx context.Context, req *metadata.IssueRequest) (int, error) {
	if err := s.failures["issue:"+req.Title]; err != nil {
		return 0, err
	}
	s.nextIssue++
	s.requests = append(s.requests, req)
	s.calls = append(s.calls, "create-issue:"+req.Title)
	return s.nextIssue, nil
}

func (s *fakeSink) CreateComment(ctx context.Context, issueNumber int, body string) error {
	key := fmt.Sprintf("comment:%d:%d", issueNumber, len(s.comments[issueNumber])+1)
	if err := s.failures[key]; err != nil {
		return err
	}
	s.comments[issueNumber] = append(s.comments[issueNumber], body)
	s.calls = append(s.calls, key)
	return nil
}

func (s *fakeSink) CloseIssue(ctx context.Context, issueNumber int) error {
	key := fmt.Sprintf("close:%d", issueNumber)
	if err := s.failures[key]; err != nil {
		return err
	}
	s.calls = append(s.calls, key)
	return nil
}

type finderHit struct {
	login string
	id    int64
}

// fakeFinder resolves destination users from in-memory tables.
type fakeFinder struct {
	emails map[string]finderHit
	logins map[string]int64
	calls  []string
}

var _ metadata.UserFinder = (*fakeFinder)(nil)

func (f *fakeFinder) FindUserByEmail(ctx context.Context, email string) (string, int64, error) {
	f.calls = append(f.calls, "email:"+email)
	if hit, ok := f.emails[email]; ok {
		return hit.login, hit.id, nil
	}
	return "", 0, &metadata.NotFoundError{Resource: "GitHub user with email " + email, Err: errors.New("no match")}
}

func (f *fakeFinder) FindUserByUsername(ctx context.Context, username string) (int64, error) {
	f.calls = append(f.calls, "login:"+username)
	if id, ok := f.logins[username]; ok {
		return id, nil
	}
	return 0, &metadata.NotFoundError{Resource: "GitHub user " + username, Err: errors.New("no match")}
}

var testTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// testSource mirrors testSnapshot on the source side, before any export has
// stamped destination or timestamp and before any user mapping exists.
func testSource() *fakeSource {
	snap := testSnapshot()
	project := *snap.Project
	project.GitHubRepo = ""
	project.ExportedAt = time.Time{}
	return &fakeSource{
		project:    project,
		labels:     snap.Labels,
		milestones: snap.Milestones,
		issues:     snap.Issues,
		mrs:        snap.MergeRequests,
		users: map[int64]*metadata.Identity{
			1: {GitLabID: 1, GitLabUsername: "alice", FallbackName: "Alice Doe", Email: "alice@example.com"},
			2: {GitLabID: 2, GitLabUsername: "bob", FallbackName: "Bob Example", Email: "bob@example.com"},
		},
	}
}

// testSnapshot is a small but complete snapshot: two labels, one milestone,
// one closed issue with two comments and an assignee, one open issue and one
// merged merge request.
func testSnapshot() *metadata.Snapshot {
	closedAt := testTime.Add(48 * time.Hour)
	return &metadata.Snapshot{
		Project: &metadata.ProjectInfo{
			GitLabID:   42,
			GitLabName: "app",
			GitLabPath: "group/app",
			GitLabURL:  "https://gitlab.example.com/group/app",
			GitHubRepo: "octo/app",
			ExportedAt: testTime,
		},
		Labels: []*metadata.Label{
			{Name: "bug", Color: "#d73a4a"},
			{Name: "feature", Color: "#a2eeef", Description: "new things"},
		},
		Milestones: []*metadata.Milestone{
			{Title: "v1.0", State: metadata.StateClosed},
		},
		Issues: []*metadata.Issue{
			{
				ID:          11,
				IID:         1,
				Title:       "Crash on login",
				Description: "Stack trace attached.",
				State:       metadata.StateClosed,
				AuthorID:    1,
				AssigneeIDs: []int64{2},
				Labels:      []string{"bug"},
				Milestone:   "v1.0",
				WebURL:      "https://gitlab.example.com/group/app/-/issues/1",
				CreatedAt:   testTime,
				ClosedAt:    &closedAt,
				Comments: []*metadata.Comment{
					{Sequence: 1, AuthorID: 2, Body: "Reproduced.", CreatedAt: testTime.Add(time.Hour), WebURL: "https://gitlab.example.com/group/app/-/issues/1#note_1"},
					{Sequence: 2, AuthorID: 1, Body: "Fixed in main.", CreatedAt: testTime.Add(2 * time.Hour), WebURL: "https://gitlab.example.com/group/app/-/issues/1#note_2"},
				},
			},
			{
				ID:        12,
				IID:       2,
				Title:     "Add dark mode",
				State:     metadata.StateOpened,
				AuthorID:  2,
				Labels:    []string{"feature"},
				WebURL:    "https://gitlab.example.com/group/app/-/issues/2",
				CreatedAt: testTime.Add(time.Hour),
			},
		},
		MergeRequests: []*metadata.MergeRequest{
			{
				Issue: metadata.Issue{
					ID:        21,
					IID:       5,
					Title:     "Fix crash",
					State:     metadata.StateMerged,
					AuthorID:  1,
					WebURL:    "https://gitlab.example.com/group/app/-/merge_requests/5",
					CreatedAt: testTime,
				},
				SourceBranch: "fix-crash",
				TargetBranch: "main",
			},
		},
		Identities: []*metadata.Identity{
			{GitLabID: 1, GitLabUsername: "alice", FallbackName: "Alice Doe", Email: "alice@example.com", GitHubUsername: "octo-alice", GitHubID: 501},
			{GitLabID: 2, GitLabUsername: "bob", FallbackName: "Bob Example", Email: "bob@example.com"},
		},
	}
}
