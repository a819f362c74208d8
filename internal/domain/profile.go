package domain

import "time"

// Profile is the GitHub link of a user as supplied by the auth collaborator
type Profile struct {
	UserID            string
	GitHubLogin       string
	GitHubConnected   bool
	GitHubAccessToken string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasGitHubCredential reports whether the profile can be used to call GitHub
func (p *Profile) HasGitHubCredential() bool {
	return p != nil && p.GitHubConnected && p.GitHubAccessToken != ""
}
