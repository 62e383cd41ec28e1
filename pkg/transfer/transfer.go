package transfer

import (
	"context"
	"fmt"
	"path/filepath"

	humanize "github.com/dustin/go-humanize"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/config"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/logger"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

// Pipeline wires the transfer stages together: validate, export or reuse,
// reconcile, import. All mutations run on the calling goroutine; only the
// export stage reads concurrently.
type Pipeline struct {
	source metadata.Source
	sink   metadata.Sink
	finder metadata.UserFinder
	cfg    config.TransferConfig
	dir    string
}

// NewPipeline builds a pipeline over explicit dependencies. finder may be nil
// to disable automatic user resolution.
func NewPipeline(source metadata.Source, sink metadata.Sink, finder metadata.UserFinder, cfg config.TransferConfig, dir string) *Pipeline {
	return &Pipeline{
		source: source,
		sink:   sink,
		finder: finder,
		cfg:    cfg,
		dir:    dir,
	}
}

// Run executes the full transfer. In dry-run mode the import stage is never
// constructed, so no destination write can happen by mistake.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	validation, err := NewValidator(p.source, p.sink, p.cfg.SkipValidation).Run(ctx)
	if err != nil {
		return nil, err
	}

	snap, reused, err := p.snapshot(ctx, validation)
	if err != nil {
		return nil, err
	}

	recon, err := NewReconciler(p.finder, p.dir).Run(ctx, snap)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Project:        snap.Project,
		Counts:         countSnapshot(snap),
		SnapshotReused: reused,
		DryRun:         p.cfg.DryRun,
		Unmapped:       recon.Unmapped,
	}
	if summary.Counts.Empty() {
		logger.Warn("Source project has no transferable metadata", "project", snap.Project.GitLabPath)
	}

	if p.cfg.DryRun {
		logger.Info("Dry run, stopping before the import stage",
			"labels", summary.Counts.Labels,
			"milestones", summary.Counts.Milestones,
			"issues", summary.Counts.Issues,
			"comments", summary.Counts.Comments,
			"unmappedUsers", len(summary.Unmapped))
		return summary, nil
	}

	result, err := NewImporter(p.sink, p.dir).Run(ctx, snap)
	summary.Import = result
	if err != nil {
		return summary, err
	}
	return summary, nil
}

// Export runs validation and the export stage only, plus the pure mapping
// merge so operators can start editing user_mapping.yaml right away.
func (p *Pipeline) Export(ctx context.Context) (*Summary, error) {
	validation, err := NewValidator(p.source, p.sink, p.cfg.SkipValidation).Run(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := NewExporter(p.source, p.dir, destination(validation)).Run(ctx)
	if err != nil {
		return nil, err
	}

	// 自動解決は行わず、マッピングファイルへのマージのみ行う
	recon, err := NewReconciler(nil, p.dir).Run(ctx, snap)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Project:  snap.Project,
		Counts:   countSnapshot(snap),
		DryRun:   p.cfg.DryRun,
		Unmapped: recon.Unmapped,
	}
	if summary.Counts.Empty() {
		logger.Warn("Source project has no transferable metadata", "project", snap.Project.GitLabPath)
	}
	return summary, nil
}

// Import runs reconciliation and the import stage from the stored snapshot.
// It fails when no snapshot exists; run the export first.
func (p *Pipeline) Import(ctx context.Context) (*Summary, error) {
	snap, err := metadata.LoadSnapshot(p.dir)
	if err != nil {
		if metadata.IsNotFoundError(err) {
			return nil, fmt.Errorf("no snapshot in %s, run the export first: %w", p.dir, err)
		}
		return nil, err
	}
	logger.Info("Loaded snapshot",
		"file", filepath.Join(p.dir, metadata.SnapshotFileName),
		"exported", humanize.Time(snap.Project.ExportedAt))

	if _, err := NewValidator(p.source, p.sink, p.cfg.SkipValidation).Run(ctx); err != nil {
		return nil, err
	}

	recon, err := NewReconciler(p.finder, p.dir).Run(ctx, snap)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Project:        snap.Project,
		Counts:         countSnapshot(snap),
		SnapshotReused: true,
		DryRun:         p.cfg.DryRun,
		Unmapped:       recon.Unmapped,
	}
	if p.cfg.DryRun {
		logger.Info("Dry run, stopping before the import stage",
			"labels", summary.Counts.Labels,
			"milestones", summary.Counts.Milestones,
			"issues", summary.Counts.Issues,
			"comments", summary.Counts.Comments,
			"unmappedUsers", len(summary.Unmapped))
		return summary, nil
	}

	result, err := NewImporter(p.sink, p.dir).Run(ctx, snap)
	summary.Import = result
	if err != nil {
		return summary, err
	}
	return summary, nil
}

// snapshot reuses the stored snapshot unless a re-export was forced.
func (p *Pipeline) snapshot(ctx context.Context, validation *Validation) (*metadata.Snapshot, bool, error) {
	if !p.cfg.ForceExport {
		snap, err := metadata.LoadSnapshot(p.dir)
		if err == nil {
			logger.Info("Reusing existing snapshot",
				"file", filepath.Join(p.dir, metadata.SnapshotFileName),
				"exported", humanize.Time(snap.Project.ExportedAt))
			return snap, true, nil
		}
		if !metadata.IsNotFoundError(err) {
			return nil, false, err
		}
	}

	snap, err := NewExporter(p.source, p.dir, destination(validation)).Run(ctx)
	if err != nil {
		return nil, false, err
	}
	return snap, false, nil
}

func destination(validation *Validation) string {
	return fmt.Sprintf("%s/%s", validation.Repo.Owner, validation.Repo.Name)
}
