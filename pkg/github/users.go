package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"
	"github.com/shurcooL/githubv4"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

var _ metadata.UserFinder = (*Client)(nil)

// FindUserByEmail resolves a destination account through the GraphQL search
// API. Only a single unambiguous user match is accepted; zero or multiple
// hits yield a NotFoundError so the caller can fall back to manual mapping.
func (client *Client) FindUserByEmail(ctx context.Context, email string) (string, int64, error) {
	var query struct {
		Search struct {
			Nodes []struct {
				User struct {
					Login      githubv4.String
					DatabaseID githubv4.Int
				} `graphql:"... on User"`
			}
		} `graphql:"search(query: $searchQuery, type: USER, first: 5)"`
	}
	variables := map[string]interface{}{
		"searchQuery": githubv4.String(fmt.Sprintf("%s in:email", email)),
	}

	err := client.do(ctx, func() (*github.Response, error) {
		return nil, client.v4.Query(ctx, &query, variables)
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to search GitHub user by email: %w", err)
	}

	var logins []string
	var ids []int64
	for _, node := range query.Search.Nodes {
		if node.User.Login != "" {
			logins = append(logins, string(node.User.Login))
			ids = append(ids, int64(node.User.DatabaseID))
		}
	}
	if len(logins) != 1 {
		// ヒットが0件または複数件の場合は自動解決しない
		return "", 0, &metadata.NotFoundError{
			Resource: fmt.Sprintf("GitHub user with email %s", email),
			Err:      fmt.Errorf("%d matching users", len(logins)),
		}
	}
	return logins[0], ids[0], nil
}

// FindUserByUsername returns the account id for a login.
func (client *Client) FindUserByUsername(ctx context.Context, username string) (int64, error) {
	var user *github.User
	err := client.do(ctx, func() (*github.Response, error) {
		u, resp, err := client.inner.Users.Get(ctx, username)
		user = u
		return resp, err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get GitHub user %s: %w", username, err)
	}
	return user.GetID(), nil
}
