package transfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/config"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

func testFinder() *fakeFinder {
	return &fakeFinder{
		emails: map[string]finderHit{
			"alice@example.com": {login: "octo-alice", id: 501},
			"bob@example.com":   {login: "octo-bob", id: 502},
		},
	}
}

func TestPipelineDryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	sink := newFakeSink()
	pipeline := NewPipeline(testSource(), sink, testFinder(), config.TransferConfig{DryRun: true}, dir)

	summary, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Nil(t, summary.Import)
	assert.Equal(t, 2, summary.Counts.Issues)

	// 書き込み系のSink呼び出しが一切ないこと
	assert.Empty(t, sink.calls)

	// エクスポートとマッピングの成果物は出来るが、移行記録は作られないこと
	_, err = metadata.LoadSnapshot(dir)
	require.NoError(t, err)
	mapping, err := metadata.LoadUserMapping(dir)
	require.NoError(t, err)
	assert.Len(t, mapping, 2)
	_, err = metadata.LoadTransferState(dir)
	assert.True(t, metadata.IsNotFoundError(err))
	_, err = os.Stat(filepath.Join(dir, ImportSummaryFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestPipelineFullRunThenIdempotentRerun(t *testing.T) {
	dir := t.TempDir()
	sink := newFakeSink()
	pipeline := NewPipeline(testSource(), sink, testFinder(), config.TransferConfig{}, dir)

	summary, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.SnapshotReused)
	require.NotNil(t, summary.Import)
	assert.Equal(t, 2, summary.Import.LabelsCreated)
	assert.Equal(t, 2, summary.Import.IssuesCreated)
	assert.Equal(t, 2, summary.Import.CommentsCreated)
	assert.Equal(t, 1, summary.Import.IssuesClosed)
	assert.Empty(t, summary.Import.Failures)
	assert.Empty(t, summary.Unmapped)

	// reconcile済みのユーザーがメンションとして本文に載ること
	require.NotEmpty(t, sink.requests)
	assert.Contains(t, sink.requests[0].Body, "@octo-alice")

	_, err = os.Stat(filepath.Join(dir, ImportSummaryFileName))
	require.NoError(t, err)

	// 新しいSinkに対しても移行記録により全件スキップされること
	second := newFakeSink()
	rerun := NewPipeline(testSource(), second, testFinder(), config.TransferConfig{}, dir)
	summary, err = rerun.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.SnapshotReused)
	assert.Empty(t, second.calls)
	assert.Equal(t, 2, summary.Import.IssuesExisting)
	assert.Equal(t, 0, summary.Import.IssuesCreated)
}

func TestPipelineForceExportRefreshesSnapshot(t *testing.T) {
	dir := t.TempDir()
	source := testSource()
	pipeline := NewPipeline(source, newFakeSink(), testFinder(), config.TransferConfig{DryRun: true}, dir)
	_, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	// ソース側にラベルが増えた
	source.labels = append(source.labels, &metadata.Label{Name: "needs-triage"})

	// 通常実行は既存スナップショットを使い回す
	reuse := NewPipeline(source, newFakeSink(), testFinder(), config.TransferConfig{DryRun: true}, dir)
	summary, err := reuse.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.SnapshotReused)
	assert.Equal(t, 2, summary.Counts.Labels)

	// force-exportで再取得されること
	force := NewPipeline(source, newFakeSink(), testFinder(), config.TransferConfig{DryRun: true, ForceExport: true}, dir)
	summary, err = force.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.SnapshotReused)
	assert.Equal(t, 3, summary.Counts.Labels)
}

func TestPipelineExportOnly(t *testing.T) {
	dir := t.TempDir()
	sink := newFakeSink()
	finder := testFinder()
	pipeline := NewPipeline(testSource(), sink, finder, config.TransferConfig{}, dir)

	summary, err := pipeline.Export(context.Background())
	require.NoError(t, err)
	assert.Nil(t, summary.Import)
	assert.Empty(t, sink.calls)
	// export単体では自動解決を行わない
	assert.Empty(t, finder.calls)
	assert.Len(t, summary.Unmapped, 2)

	_, err = metadata.LoadSnapshot(dir)
	require.NoError(t, err)
	mapping, err := metadata.LoadUserMapping(dir)
	require.NoError(t, err)
	assert.Len(t, mapping, 2)
}

func TestPipelineImportRequiresSnapshot(t *testing.T) {
	dir := t.TempDir()
	pipeline := NewPipeline(testSource(), newFakeSink(), testFinder(), config.TransferConfig{}, dir)

	_, err := pipeline.Import(context.Background())
	require.Error(t, err)
	assert.True(t, metadata.IsNotFoundError(err))
	assert.Contains(t, err.Error(), "run the export first")
}

func TestPipelineImportFromStoredSnapshot(t *testing.T) {
	dir := t.TempDir()
	exportOnly := NewPipeline(testSource(), newFakeSink(), nil, config.TransferConfig{}, dir)
	_, err := exportOnly.Export(context.Background())
	require.NoError(t, err)

	sink := newFakeSink()
	pipeline := NewPipeline(testSource(), sink, testFinder(), config.TransferConfig{}, dir)
	summary, err := pipeline.Import(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.SnapshotReused)
	require.NotNil(t, summary.Import)
	assert.Equal(t, 2, summary.Import.IssuesCreated)
	assert.Contains(t, sink.calls, "close:101")
}

func TestPipelineValidationFailureStopsRun(t *testing.T) {
	dir := t.TempDir()
	sink := newFakeSink()
	sink.hasCommits = false
	pipeline := NewPipeline(testSource(), sink, testFinder(), config.TransferConfig{}, dir)

	_, err := pipeline.Run(context.Background())
	require.Error(t, err)
	assert.True(t, metadata.IsValidationMismatchError(err))

	// 何も書き出されないこと
	_, err = metadata.LoadSnapshot(dir)
	assert.True(t, metadata.IsNotFoundError(err))
}
