package metadata

import (
	"fmt"
	"sort"
	"time"
)

// Entity states shared by both platforms.
const (
	StateOpened = "opened"
	StateClosed = "closed"
	StateMerged = "merged"
	StateActive = "active"
)

// ProjectInfo identifies the source project and the destination repository of an export.
type ProjectInfo struct {
	GitLabID   int64     `json:"gitlab_id"`
	GitLabName string    `json:"gitlab_name"`
	GitLabPath string    `json:"gitlab_path"`
	GitLabURL  string    `json:"gitlab_url"`
	GitHubRepo string    `json:"github_repo"`
	ExportedAt time.Time `json:"export_timestamp"`
}

// Identity is one source user referenced by exported metadata. Identities are
// created at export time and only ever gain destination fields afterwards,
// either by hand in the mapping file or through reconciliation.
type Identity struct {
	GitLabID       int64  `json:"gitlab_id"`
	GitLabUsername string `json:"gitlab_username"`
	FallbackName   string `json:"fallback_name"`
	Email          string `json:"email,omitempty"`
	GitHubUsername string `json:"github_username,omitempty"`
	GitHubID       int64  `json:"github_id,omitempty"`
}

// PlaceholderIdentity fills in for a source user the API can no longer resolve.
func PlaceholderIdentity(id int64) *Identity {
	return &Identity{
		GitLabID:       id,
		GitLabUsername: fmt.Sprintf("user_%d", id),
		FallbackName:   fmt.Sprintf("Unknown User %d", id),
	}
}

// Label is a project label. Name is the natural key on both platforms.
type Label struct {
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// Milestone is a project milestone. Title is the natural key on both platforms.
type Milestone struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	State       string     `json:"state"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// Comment is a single non-system note. Sequence orders comments within their
// parent entity and starts at 1.
type Comment struct {
	Sequence  int       `json:"sequence"`
	AuthorID  int64     `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	WebURL    string    `json:"web_url,omitempty"`
}

// Issue is one source issue together with its comments. Users appear as
// source ids only; the identity set of the snapshot resolves them.
type Issue struct {
	ID          int64      `json:"id"`
	IID         int64      `json:"iid"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	State       string     `json:"state"`
	AuthorID    int64      `json:"author_id"`
	AssigneeIDs []int64    `json:"assignee_ids,omitempty"`
	Labels      []string   `json:"labels,omitempty"`
	Milestone   string     `json:"milestone,omitempty"`
	Comments    []*Comment `json:"comments,omitempty"`
	WebURL      string     `json:"web_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// MergeRequest is kept in the snapshot for reference only and never imported.
type MergeRequest struct {
	Issue
	MergedAt     *time.Time `json:"merged_at,omitempty"`
	SourceBranch string     `json:"source_branch,omitempty"`
	TargetBranch string     `json:"target_branch,omitempty"`
	SHA          string     `json:"sha,omitempty"`
}

// Snapshot is the self-contained result of one export run.
type Snapshot struct {
	Project       *ProjectInfo    `json:"project_info"`
	Labels        []*Label        `json:"labels"`
	Milestones    []*Milestone    `json:"milestones"`
	Issues        []*Issue        `json:"issues"`
	MergeRequests []*MergeRequest `json:"merge_requests"`
	Identities    []*Identity     `json:"identities"`
}

// Identity returns the identity registered for the given source user id.
func (s *Snapshot) Identity(id int64) (*Identity, bool) {
	for _, identity := range s.Identities {
		if identity.GitLabID == id {
			return identity, true
		}
	}
	return nil, false
}

// ReferencedUserIDs returns every source user id referenced by issues, merge
// requests and their comments, de-duplicated and sorted.
func (s *Snapshot) ReferencedUserIDs() []int64 {
	seen := map[int64]struct{}{}
	collect := func(issue *Issue) {
		seen[issue.AuthorID] = struct{}{}
		for _, id := range issue.AssigneeIDs {
			seen[id] = struct{}{}
		}
		for _, comment := range issue.Comments {
			seen[comment.AuthorID] = struct{}{}
		}
	}
	for _, issue := range s.Issues {
		collect(issue)
	}
	for _, mr := range s.MergeRequests {
		collect(&mr.Issue)
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Validate checks the snapshot invariant that every referenced source user
// resolves to an identity.
func (s *Snapshot) Validate() error {
	known := make(map[int64]struct{}, len(s.Identities))
	for _, identity := range s.Identities {
		known[identity.GitLabID] = struct{}{}
	}
	for _, id := range s.ReferencedUserIDs() {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("snapshot references unknown user id %d", id)
		}
	}
	return nil
}
