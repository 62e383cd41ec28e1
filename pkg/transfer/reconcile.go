package transfer

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/logger"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

// Reconciler merges exported identities into the user mapping file and fills
// destination accounts where they can be found automatically. Manual entries
// always win; lookups are best effort and never abort a transfer.
type Reconciler struct {
	finder metadata.UserFinder
	dir    string
}

// NewReconciler builds a reconciler. A nil finder limits the run to the pure
// mapping merge.
func NewReconciler(finder metadata.UserFinder, dir string) *Reconciler {
	return &Reconciler{finder: finder, dir: dir}
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Added    int
	Resolved int
	Unmapped []string
}

// Run merges, resolves, persists the mapping and applies it to the snapshot identities.
func (r *Reconciler) Run(ctx context.Context, snap *metadata.Snapshot) (*ReconcileResult, error) {
	mapping, err := metadata.LoadUserMapping(r.dir)
	if err != nil {
		return nil, err
	}

	added := mapping.Merge(snap.Identities)
	resolved := 0
	if r.finder != nil {
		resolved = r.resolve(ctx, mapping)
	}
	if err := mapping.Save(r.dir); err != nil {
		return nil, err
	}
	mapping.Apply(snap.Identities)

	unmapped := mapping.Unmapped()
	logger.Info("User mapping updated",
		"file", filepath.Join(r.dir, metadata.MappingFileName),
		"added", added,
		"resolved", resolved,
		"unmapped", len(unmapped))
	if len(unmapped) > 0 {
		logger.Warn("Users without a destination account are attributed by name only",
			"users", strings.Join(unmapped, ", "))
	}
	return &ReconcileResult{Added: added, Resolved: resolved, Unmapped: unmapped}, nil
}

func (r *Reconciler) resolve(ctx context.Context, mapping metadata.UserMapping) int {
	// 実行ごとに同じ順序でAPIを叩くようにソートしておく
	names := make([]string, 0, len(mapping))
	for name := range mapping {
		names = append(names, name)
	}
	sort.Strings(names)

	resolved := 0
	for _, name := range names {
		select {
		case <-ctx.Done():
			return resolved
		default:
		}

		row := mapping[name]
		switch {
		case row.GitHubUsername == "" && row.Email != "":
			login, id, err := r.finder.FindUserByEmail(ctx, row.Email)
			if err != nil {
				if metadata.IsNotFoundError(err) {
					logger.Debug("No destination account found for email", "user", name)
				} else {
					logger.Warn("User lookup failed", "user", name, "error", err)
				}
				continue
			}
			row.GitHubUsername = login
			row.GitHubID = id
			resolved++
			logger.Info("Resolved user by email", "user", name, "github", login)
		case row.GitHubUsername != "" && row.GitHubID == 0:
			// 手動で記入されたユーザー名のIDを補完する
			id, err := r.finder.FindUserByUsername(ctx, row.GitHubUsername)
			if err != nil {
				logger.Warn("Failed to resolve id of mapped user",
					"user", name, "github", row.GitHubUsername, "error", err)
				continue
			}
			row.GitHubID = id
			resolved++
		}
	}
	return resolved
}
