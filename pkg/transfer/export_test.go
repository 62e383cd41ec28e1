package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

func TestExporterBuildsAndPersistsSnapshot(t *testing.T) {
	dir := t.TempDir()
	source := testSource()

	snap, err := NewExporter(source, dir, "octo/app").Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "octo/app", snap.Project.GitHubRepo)
	assert.False(t, snap.Project.ExportedAt.IsZero())
	assert.Len(t, snap.Labels, 2)
	assert.Len(t, snap.Milestones, 1)
	assert.Len(t, snap.Issues, 2)
	assert.Len(t, snap.MergeRequests, 1)
	assert.Len(t, snap.Identities, 2)
	require.NoError(t, snap.Validate())

	// スナップショットが読み直せること
	loaded, err := metadata.LoadSnapshot(dir)
	require.NoError(t, err)
	assert.Equal(t, "group/app", loaded.Project.GitLabPath)
	assert.Len(t, loaded.Issues, 2)
	require.Len(t, loaded.Issues[0].Comments, 2)
	assert.Equal(t, "Reproduced.", loaded.Issues[0].Comments[0].Body)

	data, err := os.ReadFile(filepath.Join(dir, ExportSummaryFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "GitLab to GitHub metadata export")
	assert.Contains(t, string(data), "group/app")
}

func TestExporterFallsBackToPlaceholderIdentity(t *testing.T) {
	dir := t.TempDir()
	source := testSource()
	// ユーザー2はAPIから参照できない
	delete(source.users, 2)

	snap, err := NewExporter(source, dir, "octo/app").Run(context.Background())
	require.NoError(t, err)

	identity, ok := snap.Identity(2)
	require.True(t, ok)
	assert.Equal(t, "user_2", identity.GitLabUsername)
	assert.Equal(t, "Unknown User 2", identity.FallbackName)
	require.NoError(t, snap.Validate())
}

func TestExporterPaginatesIssues(t *testing.T) {
	dir := t.TempDir()
	source := testSource()
	source.issues = nil
	source.mrs = nil
	for i := 1; i <= 250; i++ {
		source.issues = append(source.issues, &metadata.Issue{
			ID:        int64(i),
			IID:       int64(i),
			Title:     fmt.Sprintf("issue %d", i),
			State:     metadata.StateOpened,
			AuthorID:  1,
			CreatedAt: testTime,
		})
	}

	snap, err := NewExporter(source, dir, "octo/app").Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Issues, 250)
}

func TestExporterEmptyProject(t *testing.T) {
	dir := t.TempDir()
	source := testSource()
	source.labels = nil
	source.milestones = nil
	source.issues = nil
	source.mrs = nil

	snap, err := NewExporter(source, dir, "octo/app").Run(context.Background())
	require.NoError(t, err)

	counts := countSnapshot(snap)
	assert.True(t, counts.Empty())
	assert.Empty(t, snap.Identities)

	loaded, err := metadata.LoadSnapshot(dir)
	require.NoError(t, err)
	assert.Empty(t, loaded.Issues)
}

func TestExporterDoesNotPersistOnReadFailure(t *testing.T) {
	dir := t.TempDir()
	source := testSource()
	source.labelsErr = &metadata.TransientError{StatusCode: 502, Err: errors.New("bad gateway")}

	_, err := NewExporter(source, dir, "octo/app").Run(context.Background())
	require.Error(t, err)
	assert.True(t, metadata.IsTransientError(err))

	_, err = metadata.LoadSnapshot(dir)
	assert.True(t, metadata.IsNotFoundError(err))
}
