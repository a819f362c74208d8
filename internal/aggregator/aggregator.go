package aggregator

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/kurihiro0119/github-skill-analytics/internal/domain"
	"github.com/kurihiro0119/github-skill-analytics/internal/scoring"
)

// Aggregator defines the interface for turning a raw GitHub snapshot into analytics
type Aggregator interface {
	// Aggregate computes the analytics record for a raw snapshot. It performs no I/O.
	Aggregate(raw *domain.RawRepositorySnapshot) *domain.RepositoryAnalytics
}

// Option configures an aggregator
type Option func(*aggregator)

// WithWeights overrides the default scoring weights
func WithWeights(w Weights) Option {
	return func(a *aggregator) {
		a.weights = w
	}
}

// WithClock overrides the time source used for recency and age
func WithClock(now func() time.Time) Option {
	return func(a *aggregator) {
		a.now = now
	}
}

// aggregator implements the Aggregator interface
type aggregator struct {
	weights Weights
	now     func() time.Time
}

// NewAggregator creates a new aggregator
func NewAggregator(opts ...Option) Aggregator {
	a := &aggregator{
		weights: DefaultWeights(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

const hoursPerDay = 24

// Aggregate computes the analytics record for a raw snapshot
func (a *aggregator) Aggregate(raw *domain.RawRepositorySnapshot) *domain.RepositoryAnalytics {
	if raw == nil {
		raw = &domain.RawRepositorySnapshot{}
	}
	now := a.now()
	w := a.weights

	langStats := buildLanguageStats(raw.Languages)

	// Weekly statistics
	weeks := len(raw.CommitActivity)
	activeWeeks := 0
	weeklyTotal := 0
	peakWeek := 0
	for _, week := range raw.CommitActivity {
		if week.Total > 0 {
			activeWeeks++
			weeklyTotal += week.Total
		}
		if week.Total > peakWeek {
			peakWeek = week.Total
		}
	}

	totalAdditions := 0
	totalDeletions := 0
	for _, week := range raw.CodeFrequency {
		if week.Additions > 0 {
			totalAdditions += week.Additions
		}
		totalDeletions += absInt(week.Deletions)
	}

	fetchedCommits := len(raw.Commits)
	totalCommits := max(fetchedCommits, weeklyTotal)

	totalFilesChanged := 0
	dates := make([]time.Time, 0, fetchedCommits)
	for _, c := range raw.Commits {
		totalFilesChanged += c.FilesChanged
		if !c.AuthorDate.IsZero() {
			dates = append(dates, c.AuthorDate)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	consistency := scoring.Percent(float64(activeWeeks), float64(weeks))

	// Collaboration
	mergedPRs := 0
	for _, pr := range raw.Pulls {
		if pr.MergedAt != nil {
			mergedPRs++
		}
	}
	issuesClosed := 0
	for _, issue := range raw.Issues {
		if strings.EqualFold(issue.State, "closed") {
			issuesClosed++
		}
	}
	prMergeRate := scoring.Ratio(float64(mergedPRs), float64(len(raw.Pulls)))
	issueResolutionRate := scoring.Ratio(float64(issuesClosed), float64(len(raw.Issues)))
	collaboration := 50*prMergeRate + 50*issueResolutionRate

	// Solo repositories have no meaningful PR/issue signal
	solo := len(raw.Contributors) == 1
	if solo && totalAdditions > w.SoloCollaborationAdditions {
		collaboration = math.Max(collaboration, w.SoloCollaborationFloor)
	}
	if solo && totalAdditions > w.SoloConsistencyAdditions {
		consistency = math.Max(consistency, w.SoloConsistencyFloor)
	}

	// Architecture & documentation
	hasLicense := raw.Repo.License != ""
	documentation := 0.0
	if raw.HasReadme {
		documentation += 40
	}
	if hasLicense {
		documentation += 30
	}
	if strings.TrimSpace(raw.Repo.Description) != "" {
		documentation += 30
	}

	architecture := 20.0
	if raw.ReleaseCount > 0 {
		architecture += 20
	}
	if len(raw.Branches) > 1 {
		architecture += 20
	}
	if raw.HasCI {
		architecture += 20
	}
	if raw.HasTests {
		architecture += 20
	}

	// Activity
	lastActivity := lastActivityTime(raw, dates, now)
	lastActivityDaysAgo := daysBetween(lastActivity, now)
	repoAgeMonths := 0
	if !raw.Repo.CreatedAt.IsZero() {
		repoAgeMonths = daysBetween(raw.Repo.CreatedAt, now) / 30
	}
	maintenance := maintenanceScore(lastActivityDaysAgo)

	averageWeekly := scoring.Ratio(float64(totalCommits), float64(max(weeks, 1)))
	burst := 0.0
	if averageWeekly > 0 {
		burst = math.Min(float64(peakWeek)/averageWeekly*20, 100)
	}

	volumeBonus := 0.0
	switch {
	case totalAdditions > w.LargeVolumeAdditions:
		volumeBonus = w.LargeVolumeBonus
	case totalAdditions > w.MediumVolumeAdditions:
		volumeBonus = w.MediumVolumeBonus
	}

	health := consistency*w.Consistency +
		collaboration*w.Collaboration +
		architecture*w.Architecture +
		maintenance*w.Maintenance +
		documentation*w.Documentation +
		volumeBonus + w.HealthBaseline

	commitStats := domain.CommitStats{
		FetchedCommits:         fetchedCommits,
		TotalCommits:           totalCommits,
		TotalAdditions:         totalAdditions,
		TotalDeletions:         totalDeletions,
		TotalFilesChanged:      totalFilesChanged,
		AverageCommitSize:      scoring.Round(scoring.Ratio(float64(totalAdditions+totalDeletions), float64(totalCommits)), 2),
		CommitFrequencyPerWeek: scoring.Round(scoring.Ratio(float64(totalCommits), float64(weeks)), 2),
		ActiveWeeks:            activeWeeks,
		LongestInactiveGapDays: longestGapDays(dates),
		ConsistencyScore:       scoring.Round(scoring.Clamp100(consistency), 2),
	}
	if len(dates) > 0 {
		first, last := dates[0], dates[len(dates)-1]
		commitStats.FirstCommitDate = &first
		commitStats.LastCommitDate = &last
	}

	topics := raw.Repo.Topics
	if topics == nil {
		topics = []string{}
	}

	return &domain.RepositoryAnalytics{
		RepoFullName: raw.Repo.FullName,
		RepoName:     raw.Repo.Name,
		RepoURL:      raw.Repo.HTMLURL,
		Description:  raw.Repo.Description,
		Visibility:   raw.Repo.Visibility(),
		Topics:       topics,
		License:      raw.Repo.License,
		IsFork:       raw.Repo.IsFork,
		Popularity: domain.PopularityStats{
			Stars:      raw.Repo.Stars,
			Forks:      raw.Repo.Forks,
			Watchers:   raw.Repo.Watchers,
			OpenIssues: raw.Repo.OpenIssues,
			SizeKB:     raw.Repo.SizeKB,
		},
		LanguageStats: langStats,
		CommitStats:   commitStats,
		CollaborationStats: domain.CollaborationStats{
			TotalContributors:       len(raw.Contributors),
			UserContributionPercent: scoring.Round(userContributionPercent(raw.Contributors), 2),
			TotalPRs:                len(raw.Pulls),
			MergedPRs:               mergedPRs,
			PRMergeRate:             scoring.Round(prMergeRate, 4),
			IssuesOpened:            len(raw.Issues),
			IssuesClosed:            issuesClosed,
			IssueResolutionRate:     scoring.Round(issueResolutionRate, 4),
			CollaborationScore:      scoring.Round(scoring.Clamp100(collaboration), 2),
		},
		ArchitectureStats: domain.ArchitectureStats{
			BranchCount:        len(raw.Branches),
			ReleaseCount:       raw.ReleaseCount,
			HasReadme:          raw.HasReadme,
			HasLicense:         hasLicense,
			HasCI:              raw.HasCI,
			HasTests:           raw.HasTests,
			DocumentationScore: documentation,
			ArchitectureScore:  architecture,
		},
		ActivityStats: domain.ActivityStats{
			RepoAgeMonths:         repoAgeMonths,
			LastActivityDaysAgo:   lastActivityDaysAgo,
			ActiveRatio:           scoring.Round(scoring.Ratio(float64(activeWeeks), float64(weeks)), 4),
			MaintenanceScore:      maintenance,
			DevelopmentBurstScore: scoring.Round(scoring.Clamp100(burst), 2),
		},
		HealthIndex:   int(math.Round(scoring.Clamp100(health))),
		MaturityLevel: maturityLevel(totalCommits, totalAdditions),
		AnalyzedAt:    now,
	}
}

// buildLanguageStats computes the dominant language and a one-decimal breakdown.
// Percentages are apportioned by largest remainder so a non-empty breakdown sums to exactly 100.
func buildLanguageStats(languages map[string]int64) domain.LanguageStats {
	shares := make([]domain.LanguageShare, 0, len(languages))
	var total int64
	for name, bytes := range languages {
		if bytes < 0 {
			bytes = 0
		}
		shares = append(shares, domain.LanguageShare{Name: name, Bytes: bytes})
		total += bytes
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Bytes != shares[j].Bytes {
			return shares[i].Bytes > shares[j].Bytes
		}
		return shares[i].Name < shares[j].Name
	})

	stats := domain.LanguageStats{
		PrimaryLanguage:    "Unknown",
		Breakdown:          shares,
		TotalLanguagesUsed: len(shares),
		MultiLanguageScore: math.Min(float64(len(shares))*20, 100),
	}
	if len(shares) == 0 {
		return stats
	}
	stats.PrimaryLanguage = shares[0].Name
	if total == 0 {
		return stats
	}
	stats.DominantLanguagePercent = scoring.Round(scoring.Percent(float64(shares[0].Bytes), float64(total)), 2)

	const units = 1000 // tenths of a percent
	tenths := make([]int64, len(shares))
	remainders := make([]float64, len(shares))
	var allocated int64
	for i, share := range shares {
		exact := float64(share.Bytes) * units / float64(total)
		tenths[i] = int64(math.Floor(exact))
		remainders[i] = exact - float64(tenths[i])
		allocated += tenths[i]
	}
	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return remainders[order[i]] > remainders[order[j]]
	})
	for k := 0; allocated < units && k < len(order); k++ {
		tenths[order[k]]++
		allocated++
	}
	for i := range shares {
		shares[i].Percent = float64(tenths[i]) / 10
	}
	return stats
}

// longestGapDays returns the largest gap in days between adjacent sorted dates
func longestGapDays(sorted []time.Time) float64 {
	longest := 0.0
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].Sub(sorted[i-1]).Hours() / hoursPerDay
		if gap > longest {
			longest = gap
		}
	}
	return scoring.Round(longest, 2)
}

func lastActivityTime(raw *domain.RawRepositorySnapshot, sortedDates []time.Time, now time.Time) time.Time {
	switch {
	case len(sortedDates) > 0:
		return sortedDates[len(sortedDates)-1]
	case !raw.Repo.PushedAt.IsZero():
		return raw.Repo.PushedAt
	case !raw.Repo.UpdatedAt.IsZero():
		return raw.Repo.UpdatedAt
	default:
		return now
	}
}

// daysBetween returns whole days from since to now, never negative
func daysBetween(since, now time.Time) int {
	days := int(now.Sub(since).Hours() / hoursPerDay)
	if days < 0 {
		return 0
	}
	return days
}

func maintenanceScore(daysSinceActivity int) float64 {
	switch {
	case daysSinceActivity < 30:
		return 100
	case daysSinceActivity < 90:
		return 80
	case daysSinceActivity < 180:
		return 60
	case daysSinceActivity < 365:
		return 40
	default:
		return 20
	}
}

// userContributionPercent treats the first contributor as the analyzing user.
// A repository without contributor data counts as fully self-contributed.
func userContributionPercent(contributors []domain.Contributor) float64 {
	if len(contributors) == 0 {
		return 100
	}
	total := 0
	for _, c := range contributors {
		total += max(c.Contributions, 0)
	}
	if total == 0 {
		return 100
	}
	return scoring.Clamp100(scoring.Percent(float64(max(contributors[0].Contributions, 0)), float64(total)))
}

// maturityLevel classifies development scale; either signal crossing its threshold suffices
func maturityLevel(commits, additions int) int {
	switch {
	case commits > 200 || additions > 50000:
		return 5
	case commits > 100 || additions > 20000:
		return 4
	case commits > 50 || additions > 5000:
		return 3
	case commits > 10 || additions > 1000:
		return 2
	default:
		return 1
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
