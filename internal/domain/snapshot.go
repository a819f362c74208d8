package domain

import "time"

// RawRepositorySnapshot is everything the fetcher knows about one repository.
//
// Repo, Languages, Branches, ReleaseCount and Contributors come from required
// calls and are always populated when a fetch succeeds. The remaining fields
// are best-effort: a failed or pending upstream call leaves them empty/false.
type RawRepositorySnapshot struct {
	Repo         RepositoryMetadata
	Languages    map[string]int64
	Branches     []string
	ReleaseCount int
	Contributors []Contributor

	Commits        []CommitRecord
	CommitActivity []WeeklyCommits
	CodeFrequency  []WeeklyCodeFrequency
	Pulls          []PullRequestRecord
	Issues         []IssueRecord

	HasReadme bool
	HasCI     bool
	HasTests  bool

	FetchedAt time.Time
}

// Contributor is a repository contributor with their contribution count
type Contributor struct {
	Login         string
	Contributions int
}

// CommitRecord is a single commit from the paginated commit listing.
// The listing carries no file lists, so FilesChanged stays zero for
// collected commits; it is filled only by callers that fetch commit detail.
type CommitRecord struct {
	SHA          string
	AuthorDate   time.Time
	FilesChanged int
}

// WeeklyCommits is one bucket of /stats/commit_activity
type WeeklyCommits struct {
	Week  time.Time
	Total int
}

// WeeklyCodeFrequency is one bucket of /stats/code_frequency.
// Deletions are reported by GitHub as negative numbers.
type WeeklyCodeFrequency struct {
	Week      time.Time
	Additions int
	Deletions int
}

// PullRequestRecord is a pull request from the paginated listing
type PullRequestRecord struct {
	Number   int
	State    string
	MergedAt *time.Time
}

// IssueRecord is an issue (not a pull request) from the paginated listing
type IssueRecord struct {
	Number int
	State  string
}
