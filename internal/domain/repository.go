package domain

import "time"

// RepositoryMetadata holds the repository-level facts returned by GET /repos/{owner}/{repo}
type RepositoryMetadata struct {
	Name          string
	FullName      string
	Owner         string
	HTMLURL       string
	Description   string
	IsPrivate     bool
	Topics        []string
	License       string
	IsFork        bool
	SizeKB        int
	Stars         int
	Forks         int
	Watchers      int
	OpenIssues    int
	DefaultBranch string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PushedAt      time.Time
}

// Visibility returns "private" or "public"
func (r *RepositoryMetadata) Visibility() string {
	if r.IsPrivate {
		return "private"
	}
	return "public"
}

// RepoSummary is a repository entry in the authenticated user's repository listing
type RepoSummary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	FullName    string    `json:"fullName"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	Private     bool      `json:"private"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
