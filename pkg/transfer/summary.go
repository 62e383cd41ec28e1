package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

const (
	// ExportSummaryFileName is the human-readable export report inside the export directory.
	ExportSummaryFileName = "export_summary.txt"
	// ImportSummaryFileName is the human-readable import report inside the export directory.
	ImportSummaryFileName = "import_summary.txt"
)

// SnapshotCounts are the entity totals of one snapshot.
type SnapshotCounts struct {
	Labels        int
	Milestones    int
	Issues        int
	Comments      int
	MergeRequests int
	Identities    int
}

func countSnapshot(snap *metadata.Snapshot) SnapshotCounts {
	counts := SnapshotCounts{
		Labels:        len(snap.Labels),
		Milestones:    len(snap.Milestones),
		Issues:        len(snap.Issues),
		MergeRequests: len(snap.MergeRequests),
		Identities:    len(snap.Identities),
	}
	for _, issue := range snap.Issues {
		counts.Comments += len(issue.Comments)
	}
	for _, mr := range snap.MergeRequests {
		counts.Comments += len(mr.Comments)
	}
	return counts
}

// Empty reports whether the source held nothing worth transferring.
func (c SnapshotCounts) Empty() bool {
	return c.Labels == 0 && c.Milestones == 0 && c.Issues == 0 && c.MergeRequests == 0
}

// FailedEntity is one entity the import stage gave up on.
type FailedEntity struct {
	Kind   string
	Key    string
	Reason string
}

// ImportResult counts what the import stage did.
type ImportResult struct {
	LabelsCreated      int
	LabelsExisting     int
	MilestonesCreated  int
	MilestonesExisting int
	IssuesCreated      int
	IssuesExisting     int
	CommentsCreated    int
	CommentsExisting   int
	IssuesClosed       int
	Failures           []FailedEntity
}

func (r *ImportResult) fail(kind, key string, err error) {
	r.Failures = append(r.Failures, FailedEntity{Kind: kind, Key: key, Reason: err.Error()})
}

// Summary is the outcome of one pipeline run.
type Summary struct {
	Project        *metadata.ProjectInfo
	Counts         SnapshotCounts
	SnapshotReused bool
	DryRun         bool
	Unmapped       []string
	Import         *ImportResult
}

func writeExportSummary(dir string, snap *metadata.Snapshot, took time.Duration) error {
	counts := countSnapshot(snap)
	var b strings.Builder
	b.WriteString("GitLab to GitHub metadata export\n")
	b.WriteString("================================\n\n")
	fmt.Fprintf(&b, "Project:        %s (id %d)\n", snap.Project.GitLabPath, snap.Project.GitLabID)
	fmt.Fprintf(&b, "Source:         %s\n", snap.Project.GitLabURL)
	fmt.Fprintf(&b, "Destination:    %s\n", snap.Project.GitHubRepo)
	fmt.Fprintf(&b, "Exported at:    %s\n\n", snap.Project.ExportedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Labels:         %s\n", humanize.Comma(int64(counts.Labels)))
	fmt.Fprintf(&b, "Milestones:     %s\n", humanize.Comma(int64(counts.Milestones)))
	fmt.Fprintf(&b, "Issues:         %s\n", humanize.Comma(int64(counts.Issues)))
	fmt.Fprintf(&b, "Comments:       %s\n", humanize.Comma(int64(counts.Comments)))
	fmt.Fprintf(&b, "Merge requests: %s (reference only, never imported)\n", humanize.Comma(int64(counts.MergeRequests)))
	fmt.Fprintf(&b, "Users:          %s\n\n", humanize.Comma(int64(counts.Identities)))
	fmt.Fprintf(&b, "Export took %s.\n", took.Round(time.Second))

	return writeSummaryFile(dir, ExportSummaryFileName, b.String())
}

func writeImportSummary(dir string, project *metadata.ProjectInfo, result *ImportResult, took time.Duration) error {
	var b strings.Builder
	b.WriteString("GitLab to GitHub metadata import\n")
	b.WriteString("================================\n\n")
	fmt.Fprintf(&b, "Project:     %s\n", project.GitLabPath)
	fmt.Fprintf(&b, "Destination: %s\n\n", project.GitHubRepo)
	fmt.Fprintf(&b, "Labels:      %s created, %s already present\n",
		humanize.Comma(int64(result.LabelsCreated)), humanize.Comma(int64(result.LabelsExisting)))
	fmt.Fprintf(&b, "Milestones:  %s created, %s already present\n",
		humanize.Comma(int64(result.MilestonesCreated)), humanize.Comma(int64(result.MilestonesExisting)))
	fmt.Fprintf(&b, "Issues:      %s created, %s already present\n",
		humanize.Comma(int64(result.IssuesCreated)), humanize.Comma(int64(result.IssuesExisting)))
	fmt.Fprintf(&b, "Comments:    %s created, %s already present\n",
		humanize.Comma(int64(result.CommentsCreated)), humanize.Comma(int64(result.CommentsExisting)))
	fmt.Fprintf(&b, "Closed:      %s issues\n\n", humanize.Comma(int64(result.IssuesClosed)))
	fmt.Fprintf(&b, "Failures:    %d\n", len(result.Failures))
	for _, failure := range result.Failures {
		fmt.Fprintf(&b, "  - %s %s: %s\n", failure.Kind, failure.Key, failure.Reason)
	}
	fmt.Fprintf(&b, "\nImport took %s.\n", took.Round(time.Second))

	return writeSummaryFile(dir, ImportSummaryFileName, b.String())
}

func writeSummaryFile(dir, name, content string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write summary %s: %w", path, err)
	}
	return nil
}
