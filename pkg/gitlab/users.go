package gitlab

import (
	"context"
	"fmt"

	"github.com/xanzy/go-gitlab"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
)

// ResolveUser returns the identity of a referenced user. When the user detail
// endpoint fails, information remembered from list payloads is used instead;
// only a user never seen anywhere yields a NotFoundError.
func (s *Source) ResolveUser(ctx context.Context, id int64) (*metadata.Identity, error) {
	s.mu.Lock()
	if identity, ok := s.resolved[id]; ok {
		s.mu.Unlock()
		return identity, nil
	}
	s.mu.Unlock()

	user, _, err := s.client.Users.GetUser(int(id), gitlab.GetUsersOptions{}, gitlab.WithContext(ctx))
	if err != nil {
		// 退会済みユーザーなどで詳細が取れない場合、payloadから拾えた情報で代替する
		s.mu.Lock()
		identity, ok := s.seen[id]
		s.mu.Unlock()
		if ok {
			return identity, nil
		}
		return nil, fmt.Errorf("failed to get GitLab user: %w", classifyError(fmt.Sprintf("GitLab user %d", id), err))
	}

	email := user.PublicEmail
	if email == "" {
		// Emailは管理者トークンのときだけ返却される
		email = user.Email
	}
	identity := &metadata.Identity{
		GitLabID:       id,
		GitLabUsername: user.Username,
		FallbackName:   user.Name,
		Email:          email,
	}

	s.mu.Lock()
	s.resolved[id] = identity
	s.mu.Unlock()
	return identity, nil
}

// rememberUser keeps username and name from a list payload as a fallback for
// users whose detail endpoint is no longer accessible.
func (s *Source) rememberUser(id int, username, name string) {
	if id == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[int64(id)]; !ok {
		s.seen[int64(id)] = &metadata.Identity{
			GitLabID:       int64(id),
			GitLabUsername: username,
			FallbackName:   name,
		}
	}
}
