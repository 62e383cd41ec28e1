package metadata

import "context"

// RepoInfo identifies the destination repository.
type RepoInfo struct {
	Owner string
	Name  string
	URL   string
}

// IssueRequest carries everything Sink.CreateIssue needs. Attribution is
// already rendered into Body and destination ids are resolved by the caller.
type IssueRequest struct {
	Title           string
	Body            string
	Labels          []string
	MilestoneNumber int
}

// Sink writes project metadata to the destination platform. Ensure methods
// are idempotent on the natural key; issue and comment creation is not, so
// callers must consult the transfer record before calling them.
type Sink interface {
	// Repository returns the destination repository identification.
	Repository(ctx context.Context) (*RepoInfo, error)
	// HasCommits reports whether the destination contains at least one commit.
	HasCommits(ctx context.Context) (bool, error)
	// EnsureLabel creates the label unless one with the same name exists and
	// returns the destination label id.
	EnsureLabel(ctx context.Context, label *Label) (id int64, created bool, err error)
	// EnsureMilestone creates the milestone unless one with the same title
	// exists and returns the destination milestone number.
	EnsureMilestone(ctx context.Context, milestone *Milestone) (number int, created bool, err error)
	// CreateIssue creates an issue and returns its destination number.
	CreateIssue(ctx context.Context, req *IssueRequest) (number int, err error)
	// CreateComment appends a comment to an existing destination issue.
	CreateComment(ctx context.Context, issueNumber int, body string) error
	// CloseIssue transitions a destination issue to the closed state.
	CloseIssue(ctx context.Context, issueNumber int) error
}

// UserFinder looks up destination accounts during reconciliation. Lookups are
// best effort; failures must not abort a transfer.
type UserFinder interface {
	// FindUserByEmail returns login and id of the single account matching the
	// email. A NotFoundError covers both no match and an ambiguous match.
	FindUserByEmail(ctx context.Context, email string) (login string, id int64, err error)
	// FindUserByUsername returns the id of the named account.
	FindUserByUsername(ctx context.Context, username string) (int64, error)
}
