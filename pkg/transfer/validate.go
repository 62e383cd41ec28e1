package transfer

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/logger"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

// Check is one pre-flight check result.
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// Validation is the outcome of the pre-flight checks, including the endpoint
// identifications the later stages reuse.
type Validation struct {
	Project *metadata.ProjectInfo
	Repo    *metadata.RepoInfo
	Checks  []Check
}

func (v *Validation) add(name string, passed bool, detail string) {
	v.Checks = append(v.Checks, Check{Name: name, Passed: passed, Detail: detail})
	if passed {
		logger.Info("Validation check passed", "check", name, "detail", detail)
	} else {
		logger.Warn("Validation check failed", "check", name, "detail", detail)
	}
}

func (v *Validation) failed() []string {
	var names []string
	for _, check := range v.Checks {
		if !check.Passed {
			names = append(names, check.Name)
		}
	}
	return names
}

// Validator runs the pre-flight checks before any stage touches the platforms
// for real. Reachability of both endpoints is always enforced; the
// consistency checks can be overridden with skipChecks.
type Validator struct {
	source     metadata.Source
	sink       metadata.Sink
	skipChecks bool
}

// NewValidator builds a validator.
func NewValidator(source metadata.Source, sink metadata.Sink, skipChecks bool) *Validator {
	return &Validator{source: source, sink: sink, skipChecks: skipChecks}
}

// Run checks both endpoints and the consistency between them. On a failed
// consistency check it returns the full check list alongside a
// ValidationMismatchError naming the failures.
func (v *Validator) Run(ctx context.Context) (*Validation, error) {
	project, err := v.source.ProjectInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reach source project: %w", err)
	}
	repo, err := v.sink.Repository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reach destination repository: %w", err)
	}

	validation := &Validation{Project: project, Repo: repo}
	validation.add("source project", true, project.GitLabURL)
	validation.add("destination repository", true, fmt.Sprintf("%s/%s", repo.Owner, repo.Name))

	if v.skipChecks {
		logger.Warn("Consistency checks skipped",
			"project", project.GitLabPath, "repository", repo.Name)
		return validation, nil
	}

	if namesSimilar(project.GitLabPath, repo.Name) {
		validation.add("repository name", true,
			fmt.Sprintf("%q matches %q", project.GitLabPath, repo.Name))
	} else {
		validation.add("repository name", false,
			fmt.Sprintf("source path %q and destination name %q do not look related", project.GitLabPath, repo.Name))
	}

	hasCommits, err := v.sink.HasCommits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check destination commits: %w", err)
	}
	if hasCommits {
		validation.add("destination commits", true, "repository has commits")
	} else {
		validation.add("destination commits", false,
			"destination repository has no commits; mirror the git history before transferring metadata")
	}

	if failed := validation.failed(); len(failed) > 0 {
		return validation, &metadata.ValidationMismatchError{
			Check:  strings.Join(failed, ", "),
			Reason: "pass --skip-validation to transfer anyway",
		}
	}
	return validation, nil
}

// namesSimilar reports whether the source project path and the destination
// repository name plausibly refer to the same project. Case-insensitive
// equality or containment either way counts as similar.
func namesSimilar(gitlabPath, githubName string) bool {
	src := strings.ToLower(path.Base(gitlabPath))
	dst := strings.ToLower(githubName)
	if src == "" || src == "." || dst == "" {
		return false
	}
	return src == dst || strings.Contains(src, dst) || strings.Contains(dst, src)
}
