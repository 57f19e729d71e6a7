package domain

import "strings"

// PageSize is the fixed branch page size.
const PageSize = 100

// Page is one branch-list page from the listing collaborator. A
// non-empty Error is a terminal failure for that page request.
type Page struct {
	Branches      []string `json:"branches,omitempty"`
	DefaultBranch string   `json:"default_branch,omitempty"`
	HasMore       bool     `json:"has_more,omitempty"`
	Total         int      `json:"total,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// PageState is the pagination state for one workspace. LoadedRepoKey
// records which repository the state belongs to; switching repositories
// resets everything else.
type PageState struct {
	Branches      []string `json:"branches"`
	HasMore       bool     `json:"has_more"`
	TotalBranches int      `json:"total_branches"`
	Page          int      `json:"page"`
	LoadedRepoKey string   `json:"loaded_repo_key"`
}

// RepoRef identifies a repository by owner and name.
type RepoRef struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// Key returns the owner/repo cache key.
func (r RepoRef) Key() string {
	return r.Owner + "/" + r.Repo
}

// ParseRepoRef accepts "owner/repo" or a GitHub repository URL and
// extracts the owner and repository name.
func ParseRepoRef(input string) (RepoRef, error) {
	s := strings.TrimSpace(input)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	parts := strings.Split(s, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, ErrInvalidRepoURL
	}
	return RepoRef{Owner: parts[0], Repo: parts[1]}, nil
}
