package transfer

import (
	"fmt"
	"strings"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

const (
	attributionDateFormat = "2006-01-02"
	emptyIssueBody        = "*Issue imported from GitLab*"
)

// formatUserReference renders a source user for destination text. A mapped
// user becomes a real @mention; everyone else degrades to a display name so
// no wrong destination account is ever pinged.
func formatUserReference(identity *metadata.Identity) string {
	if identity.GitHubUsername != "" {
		return "@" + identity.GitHubUsername
	}
	if identity.FallbackName != "" {
		return identity.FallbackName
	}
	return fmt.Sprintf("@%s (GitLab)", identity.GitLabUsername)
}

func identityFor(identities map[int64]*metadata.Identity, id int64) *metadata.Identity {
	if identity, ok := identities[id]; ok {
		return identity
	}
	return metadata.PlaceholderIdentity(id)
}

// renderIssueBody composes the destination issue body: original description
// plus an attribution footer pointing back at the source.
func renderIssueBody(issue *metadata.Issue, identities map[int64]*metadata.Identity) string {
	body := strings.TrimSpace(issue.Description)
	if body == "" {
		body = emptyIssueBody
	}

	author := formatUserReference(identityFor(identities, issue.AuthorID))
	var b strings.Builder
	b.WriteString(body)
	fmt.Fprintf(&b, "\n\n---\n*Originally created by %s on %s in [GitLab](%s)*",
		author, issue.CreatedAt.Format(attributionDateFormat), issue.WebURL)

	if len(issue.AssigneeIDs) > 0 {
		assignees := make([]string, 0, len(issue.AssigneeIDs))
		for _, id := range issue.AssigneeIDs {
			assignees = append(assignees, formatUserReference(identityFor(identities, id)))
		}
		fmt.Fprintf(&b, "\n*Assigned to %s*", strings.Join(assignees, ", "))
	}
	return b.String()
}

// renderCommentBody composes a destination comment body with its attribution footer.
func renderCommentBody(comment *metadata.Comment, identities map[int64]*metadata.Identity) string {
	author := formatUserReference(identityFor(identities, comment.AuthorID))
	return fmt.Sprintf("%s\n\n---\n*Originally commented by %s on %s in [GitLab](%s)*",
		strings.TrimSpace(comment.Body), author, comment.CreatedAt.Format(attributionDateFormat), comment.WebURL)
}
