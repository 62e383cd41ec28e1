package transfer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/logger"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

const exportPageSize = 100

// Exporter reads all transferable metadata from the source and persists it as
// one snapshot in the export directory.
type Exporter struct {
	source      metadata.Source
	dir         string
	destination string

	now func() time.Time
}

// NewExporter builds an exporter. destination is the owner/repo pair recorded
// in the snapshot so later stages know where it was meant to go.
func NewExporter(source metadata.Source, dir, destination string) *Exporter {
	return &Exporter{
		source:      source,
		dir:         dir,
		destination: destination,
		now:         time.Now,
	}
}

// Run exports the project and returns the persisted snapshot. A previous
// snapshot in the same directory is replaced completely.
func (e *Exporter) Run(ctx context.Context) (*metadata.Snapshot, error) {
	start := e.now()
	logger.Info("Exporting project metadata", "destination", e.destination)

	project, err := e.source.ProjectInfo(ctx)
	if err != nil {
		return nil, err
	}
	project.GitHubRepo = e.destination
	project.ExportedAt = start
	snap := &metadata.Snapshot{Project: project}

	// 読み取り専用フェーズのため、エンティティ種別ごとに並行で取得する
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		labels, err := e.source.ListLabels(groupCtx)
		if err != nil {
			return err
		}
		snap.Labels = labels
		logger.Info("Exported labels", "count", len(labels))
		return nil
	})
	group.Go(func() error {
		milestones, err := e.source.ListMilestones(groupCtx)
		if err != nil {
			return err
		}
		snap.Milestones = milestones
		logger.Info("Exported milestones", "count", len(milestones))
		return nil
	})
	group.Go(func() error {
		var page = 1
		for {
			issues, isEnd, err := e.source.ListIssues(groupCtx, page, exportPageSize)
			if err != nil {
				return err
			}
			snap.Issues = append(snap.Issues, issues...)
			if isEnd {
				break
			}
			page += 1
		}
		logger.Info("Exported issues", "count", len(snap.Issues))
		return nil
	})
	group.Go(func() error {
		var page = 1
		for {
			mrs, isEnd, err := e.source.ListMergeRequests(groupCtx, page, exportPageSize)
			if err != nil {
				return err
			}
			snap.MergeRequests = append(snap.MergeRequests, mrs...)
			if isEnd {
				break
			}
			page += 1
		}
		logger.Info("Exported merge requests", "count", len(snap.MergeRequests))
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("failed to export project metadata: %w", err)
	}

	if err := e.collectIdentities(ctx, snap); err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	if err := snap.Save(e.dir); err != nil {
		return nil, err
	}
	took := e.now().Sub(start)
	if err := writeExportSummary(e.dir, snap, took); err != nil {
		return nil, err
	}

	counts := countSnapshot(snap)
	logger.Info("Export complete",
		"labels", counts.Labels,
		"milestones", counts.Milestones,
		"issues", counts.Issues,
		"comments", counts.Comments,
		"mergeRequests", counts.MergeRequests,
		"users", counts.Identities,
		"took", took.Round(time.Second).String())
	return snap, nil
}

// collectIdentities resolves every user referenced by the exported entities
// so the snapshot stays self-contained.
func (e *Exporter) collectIdentities(ctx context.Context, snap *metadata.Snapshot) error {
	ids := snap.ReferencedUserIDs()
	identities := make([]*metadata.Identity, 0, len(ids))
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		identity, err := e.source.ResolveUser(ctx, id)
		if err != nil {
			if !metadata.IsNotFoundError(err) {
				return fmt.Errorf("failed to resolve user %d: %w", id, err)
			}
			// 退会済みなどAPIから参照できないユーザーはプレースホルダに落とす
			identity = metadata.PlaceholderIdentity(id)
			logger.Warn("User not resolvable, using placeholder", "id", id)
		}
		identities = append(identities, identity)
	}
	snap.Identities = identities
	logger.Info("Exported user identities", "count", len(identities))
	return nil
}
