package metadata

import "context"

// Source reads project metadata from the source platform. Implementations
// must be free of side effects so every method can be called again after a
// failure.
type Source interface {
	// ProjectInfo returns the source project identification.
	ProjectInfo(ctx context.Context) (*ProjectInfo, error)
	// ListLabels returns all labels of the project.
	ListLabels(ctx context.Context) ([]*Label, error)
	// ListMilestones returns all milestones of the project.
	ListMilestones(ctx context.Context) ([]*Milestone, error)
	// ListIssues returns one page of issues together with their comments,
	// ordered by creation. isEnd reports that no further pages exist.
	ListIssues(ctx context.Context, page, perPage int) (issues []*Issue, isEnd bool, err error)
	// ListMergeRequests returns one page of closed or merged merge requests.
	// Open merge requests are not exported.
	ListMergeRequests(ctx context.Context, page, perPage int) (mrs []*MergeRequest, isEnd bool, err error)
	// ResolveUser returns the identity of a user referenced by exported
	// entities. A NotFoundError means the caller should fall back to a
	// placeholder identity.
	ResolveUser(ctx context.Context, id int64) (*Identity, error)
}
