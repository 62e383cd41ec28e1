package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/logger"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

// Importer replays a snapshot against the destination. Every destination id
// it obtains goes into the transfer record immediately, so an interrupted run
// resumes where it stopped instead of duplicating entities.
type Importer struct {
	sink metadata.Sink
	dir  string

	now func() time.Time
}

// NewImporter builds an importer writing through sink and recording progress
// in the export directory.
func NewImporter(sink metadata.Sink, dir string) *Importer {
	return &Importer{sink: sink, dir: dir, now: time.Now}
}

// Run imports labels, milestones and issues in that order. Comments follow
// their issue in sequence; closing happens last so the destination timeline
// reads naturally. Merge requests never touch the sink.
func (im *Importer) Run(ctx context.Context, snap *metadata.Snapshot) (*ImportResult, error) {
	start := im.now()

	state, err := metadata.LoadTransferState(im.dir)
	if err != nil {
		if !metadata.IsNotFoundError(err) {
			return nil, err
		}
		state = metadata.NewTransferState(start)
	} else {
		logger.Info("Resuming transfer",
			"checkpoint", humanize.Time(state.CheckpointAt),
			"labels", len(state.Labels),
			"milestones", len(state.Milestones),
			"issues", len(state.Issues))
	}

	identities := make(map[int64]*metadata.Identity, len(snap.Identities))
	for _, identity := range snap.Identities {
		identities[identity.GitLabID] = identity
	}

	result := &ImportResult{}
	if err := im.importLabels(ctx, snap, state, result); err != nil {
		return result, err
	}
	if err := im.importMilestones(ctx, snap, state, result); err != nil {
		return result, err
	}
	if err := im.importIssues(ctx, snap, state, identities, result); err != nil {
		return result, err
	}

	if len(snap.MergeRequests) > 0 {
		logger.Info("Merge requests stay in the snapshot as reference only", "count", len(snap.MergeRequests))
	}

	took := im.now().Sub(start)
	if err := writeImportSummary(im.dir, snap.Project, result, took); err != nil {
		return result, err
	}
	logger.Info("Import complete",
		"created", result.LabelsCreated+result.MilestonesCreated+result.IssuesCreated+result.CommentsCreated,
		"existing", result.LabelsExisting+result.MilestonesExisting+result.IssuesExisting+result.CommentsExisting,
		"closed", result.IssuesClosed,
		"failed", len(result.Failures),
		"took", took.Round(time.Second).String())
	return result, nil
}

func (im *Importer) importLabels(ctx context.Context, snap *metadata.Snapshot, state *metadata.TransferState, result *ImportResult) error {
	for _, label := range snap.Labels {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, ok := state.Labels[label.Name]; ok {
			logger.Debug("Label already transferred", "label", label.Name)
			result.LabelsExisting++
			continue
		}
		id, created, err := im.sink.EnsureLabel(ctx, label)
		if err != nil {
			if isAbortError(err) {
				return err
			}
			result.fail("label", label.Name, err)
			logger.Warn("Failed to import label", "label", label.Name, "error", err)
			continue
		}
		state.Labels[label.Name] = id
		if created {
			result.LabelsCreated++
		} else {
			result.LabelsExisting++
		}
		if err := state.Save(im.dir, im.now()); err != nil {
			return err
		}
	}
	logger.Info("Labels imported",
		"created", result.LabelsCreated,
		"existing", result.LabelsExisting,
		"total", len(snap.Labels))
	return nil
}

func (im *Importer) importMilestones(ctx context.Context, snap *metadata.Snapshot, state *metadata.TransferState, result *ImportResult) error {
	for _, milestone := range snap.Milestones {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, ok := state.Milestones[milestone.Title]; ok {
			logger.Debug("Milestone already transferred", "milestone", milestone.Title)
			result.MilestonesExisting++
			continue
		}
		number, created, err := im.sink.EnsureMilestone(ctx, milestone)
		if err != nil {
			if isAbortError(err) {
				return err
			}
			result.fail("milestone", milestone.Title, err)
			logger.Warn("Failed to import milestone", "milestone", milestone.Title, "error", err)
			continue
		}
		state.Milestones[milestone.Title] = number
		if created {
			result.MilestonesCreated++
		} else {
			result.MilestonesExisting++
		}
		if err := state.Save(im.dir, im.now()); err != nil {
			return err
		}
	}
	logger.Info("Milestones imported",
		"created", result.MilestonesCreated,
		"existing", result.MilestonesExisting,
		"total", len(snap.Milestones))
	return nil
}

func (im *Importer) importIssues(ctx context.Context, snap *metadata.Snapshot, state *metadata.TransferState, identities map[int64]*metadata.Identity, result *ImportResult) error {
	total := len(snap.Issues)
	for i, issue := range snap.Issues {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		number, transferred := state.Issues[issue.ID]
		if transferred {
			logger.Debug("Issue already transferred", "issue", issue.IID, "number", number)
			result.IssuesExisting++
		} else {
			logger.Info("Importing issue",
				"progress", fmt.Sprintf("%d/%d", i+1, total),
				"issue", issue.IID,
				"title", issue.Title)
			var err error
			number, err = im.sink.CreateIssue(ctx, &metadata.IssueRequest{
				Title:           issue.Title,
				Body:            renderIssueBody(issue, identities),
				Labels:          issue.Labels,
				MilestoneNumber: state.Milestones[issue.Milestone],
			})
			if err != nil {
				if isAbortError(err) {
					return err
				}
				result.fail("issue", issueKey(issue), err)
				logger.Warn("Failed to import issue", "issue", issue.IID, "error", err)
				// 親Issueが無い以上、コメントとクローズは試みない
				continue
			}
			state.Issues[issue.ID] = number
			result.IssuesCreated++
			if err := state.Save(im.dir, im.now()); err != nil {
				return err
			}
		}

		commentsDone, err := im.importComments(ctx, issue, number, identities, state, result)
		if err != nil {
			return err
		}

		// クローズはコメントが全て揃ってから行う
		if commentsDone && issue.State == metadata.StateClosed && !state.ClosedIssues[issue.ID] {
			if err := im.sink.CloseIssue(ctx, number); err != nil {
				if isAbortError(err) {
					return err
				}
				result.fail("issue", issueKey(issue), fmt.Errorf("failed to close: %w", err))
				logger.Warn("Failed to close issue", "issue", issue.IID, "error", err)
				continue
			}
			state.ClosedIssues[issue.ID] = true
			result.IssuesClosed++
			if err := state.Save(im.dir, im.now()); err != nil {
				return err
			}
		}
	}
	logger.Info("Issues imported",
		"created", result.IssuesCreated,
		"existing", result.IssuesExisting,
		"comments", result.CommentsCreated,
		"closed", result.IssuesClosed,
		"total", total)
	return nil
}

// importComments appends the not-yet-transferred comments of one issue. It
// reports false when a comment failed, in which case the remaining comments
// and the close are left for a later run so the order stays intact.
func (im *Importer) importComments(ctx context.Context, issue *metadata.Issue, number int, identities map[int64]*metadata.Identity, state *metadata.TransferState, result *ImportResult) (bool, error) {
	done := state.Comments[issue.ID]
	if done > len(issue.Comments) {
		done = len(issue.Comments)
	}
	result.CommentsExisting += done

	for i := done; i < len(issue.Comments); i++ {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		comment := issue.Comments[i]
		if err := im.sink.CreateComment(ctx, number, renderCommentBody(comment, identities)); err != nil {
			if isAbortError(err) {
				return false, err
			}
			result.fail("comment", fmt.Sprintf("%s comment %d", issueKey(issue), comment.Sequence), err)
			logger.Warn("Failed to import comment",
				"issue", issue.IID, "sequence", comment.Sequence, "error", err)
			return false, nil
		}
		state.Comments[issue.ID] = i + 1
		result.CommentsCreated++
		if err := state.Save(im.dir, im.now()); err != nil {
			return false, err
		}
	}
	return true, nil
}

func issueKey(issue *metadata.Issue) string {
	return fmt.Sprintf("#%d", issue.IID)
}

// isAbortError reports failures no later entity can succeed under.
func isAbortError(err error) bool {
	return metadata.IsAuthenticationError(err) ||
		metadata.IsRateLimitError(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
