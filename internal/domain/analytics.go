package domain

import "time"

// RepositoryAnalytics is the persisted analytics snapshot of one repository for one user.
// At most one record exists per (UserID, RepoFullName).
type RepositoryAnalytics struct {
	ID           string   `json:"id"`
	UserID       string   `json:"userId"`
	RepoFullName string   `json:"repoFullName"`
	RepoName     string   `json:"repoName"`
	RepoURL      string   `json:"repoUrl"`
	Description  string   `json:"description"`
	Visibility   string   `json:"visibility"`
	Topics       []string `json:"topics"`
	License      string   `json:"license,omitempty"`
	IsFork       bool     `json:"isFork"`

	Popularity         PopularityStats    `json:"popularity"`
	LanguageStats      LanguageStats      `json:"languageStats"`
	CommitStats        CommitStats        `json:"commitStats"`
	CollaborationStats CollaborationStats `json:"collaborationStats"`
	ArchitectureStats  ArchitectureStats  `json:"architectureStats"`
	ActivityStats      ActivityStats      `json:"activityStats"`

	HealthIndex   int `json:"healthIndex"`
	MaturityLevel int `json:"maturityLevel"`

	AnalyzedAt time.Time `json:"analyzedAt"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PopularityStats holds the counters shown on the repository page
type PopularityStats struct {
	Stars      int `json:"stars"`
	Forks      int `json:"forks"`
	Watchers   int `json:"watchers"`
	OpenIssues int `json:"openIssues"`
	SizeKB     int `json:"sizeKB"`
}

// LanguageShare is one entry of the language breakdown
type LanguageShare struct {
	Name    string  `json:"name"`
	Bytes   int64   `json:"bytes"`
	Percent float64 `json:"percent"`
}

// LanguageStats describes the language mix of a repository.
// Breakdown is ordered by byte count, largest first.
type LanguageStats struct {
	PrimaryLanguage         string          `json:"primaryLanguage"`
	Breakdown               []LanguageShare `json:"languageBreakdown"`
	DominantLanguagePercent float64         `json:"dominantLanguagePercent"`
	TotalLanguagesUsed      int             `json:"totalLanguagesUsed"`
	MultiLanguageScore      float64         `json:"multiLanguageScore"`
}

// CommitStats describes commit volume and cadence.
// TotalCommits is the effective count: the larger of the fetched commit
// records and the weekly statistics total.
// TotalFilesChanged is best-effort: it sums CommitRecord.FilesChanged, which
// the commit listing never populates, so it is 0 for collected snapshots.
type CommitStats struct {
	FetchedCommits         int        `json:"fetchedCommits"`
	TotalCommits           int        `json:"totalCommits"`
	TotalAdditions         int        `json:"totalAdditions"`
	TotalDeletions         int        `json:"totalDeletions"`
	TotalFilesChanged      int        `json:"totalFilesChanged"`
	AverageCommitSize      float64    `json:"averageCommitSize"`
	FirstCommitDate        *time.Time `json:"firstCommitDate,omitempty"`
	LastCommitDate         *time.Time `json:"lastCommitDate,omitempty"`
	CommitFrequencyPerWeek float64    `json:"commitFrequencyPerWeek"`
	ActiveWeeks            int        `json:"activeWeeks"`
	LongestInactiveGapDays float64    `json:"longestInactiveGapDays"`
	ConsistencyScore       float64    `json:"consistencyScore"`
}

// CollaborationStats describes pull request, issue and contributor activity.
// Rates are in [0,1]; CollaborationScore is in [0,100].
type CollaborationStats struct {
	TotalContributors       int     `json:"totalContributors"`
	UserContributionPercent float64 `json:"userContributionPercent"`
	TotalPRs                int     `json:"totalPRs"`
	MergedPRs               int     `json:"mergedPRs"`
	PRMergeRate             float64 `json:"prMergeRate"`
	IssuesOpened            int     `json:"issuesOpened"`
	IssuesClosed            int     `json:"issuesClosed"`
	IssueResolutionRate     float64 `json:"issueResolutionRate"`
	CollaborationScore      float64 `json:"collaborationScore"`
}

// ArchitectureStats describes project structure and documentation signals
type ArchitectureStats struct {
	BranchCount        int     `json:"branchCount"`
	ReleaseCount       int     `json:"releaseCount"`
	HasReadme          bool    `json:"hasReadme"`
	HasLicense         bool    `json:"hasLicense"`
	HasCI              bool    `json:"hasCI"`
	HasTests           bool    `json:"hasTests"`
	DocumentationScore float64 `json:"documentationScore"`
	ArchitectureScore  float64 `json:"architectureScore"`
}

// ActivityStats describes repository age and recency
type ActivityStats struct {
	RepoAgeMonths         int     `json:"repoAgeMonths"`
	LastActivityDaysAgo   int     `json:"lastActivityDaysAgo"`
	ActiveRatio           float64 `json:"activeRatio"`
	MaintenanceScore      float64 `json:"maintenanceScore"`
	DevelopmentBurstScore float64 `json:"developmentBurstScore"`
}

// IsSolo reports whether the repository has exactly one contributor
func (a *RepositoryAnalytics) IsSolo() bool {
	return a.CollaborationStats.TotalContributors == 1
}
