package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// MappingFileName is the operator-edited user mapping inside the export directory.
const MappingFileName = "user_mapping.yaml"

// MappedUser is one row of the user mapping file.
type MappedUser struct {
	GitLabID       int64  `yaml:"gitlab_id"`
	GitLabUsername string `yaml:"gitlab_username"`
	FallbackName   string `yaml:"fallback_name"`
	Email          string `yaml:"email,omitempty"`
	GitHubUsername string `yaml:"github_username,omitempty"`
	GitHubID       int64  `yaml:"github_id,omitempty"`
}

// UserMapping maps GitLab usernames to destination accounts. Operators edit
// the file between export and import; rows are merged but never deleted so a
// mapping survives users leaving the source project.
type UserMapping map[string]*MappedUser

// LoadUserMapping reads the mapping file. A missing file yields an empty
// mapping, not an error.
func LoadUserMapping(dir string) (UserMapping, error) {
	path := filepath.Join(dir, MappingFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return UserMapping{}, nil
		}
		return nil, fmt.Errorf("failed to read user mapping: %w", err)
	}
	mapping := UserMapping{}
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("failed to decode user mapping %s: %w", path, err)
	}
	return mapping, nil
}

// Save writes the mapping file.
func (m UserMapping) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode user mapping: %w", err)
	}
	path := filepath.Join(dir, MappingFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write user mapping: %w", err)
	}
	return nil
}

// Merge adds identities that are not mapped yet and fills missing
// source-side fields of existing rows. Destination fields entered by hand
// are never touched. Returns the number of newly added rows.
func (m UserMapping) Merge(identities []*Identity) int {
	added := 0
	for _, identity := range identities {
		row, ok := m[identity.GitLabUsername]
		if !ok {
			m[identity.GitLabUsername] = &MappedUser{
				GitLabID:       identity.GitLabID,
				GitLabUsername: identity.GitLabUsername,
				FallbackName:   identity.FallbackName,
				Email:          identity.Email,
			}
			added++
			continue
		}

		// 手動で記入された値を壊さないため、ソース由来のフィールドのみ補完する
		if row.GitLabID == 0 {
			row.GitLabID = identity.GitLabID
		}
		if row.FallbackName == "" {
			row.FallbackName = identity.FallbackName
		}
		if row.Email == "" {
			row.Email = identity.Email
		}
	}
	return added
}

// Apply copies resolved destination accounts back onto the identities.
func (m UserMapping) Apply(identities []*Identity) {
	for _, identity := range identities {
		if row, ok := m[identity.GitLabUsername]; ok {
			identity.GitHubUsername = row.GitHubUsername
			identity.GitHubID = row.GitHubID
		}
	}
}

// Unmapped returns the usernames that still lack a destination account, sorted.
func (m UserMapping) Unmapped() []string {
	var names []string
	for name, row := range m {
		if row.GitHubUsername == "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
