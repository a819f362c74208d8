package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/kurihiro0119/github-skill-analytics/internal/domain"
	apperrors "github.com/kurihiro0119/github-skill-analytics/internal/errors"
)

const perPage = 100

// githubFetcher implements Fetcher using GitHub API
type githubFetcher struct {
	client      *github.Client
	rateLimiter RateLimiter
	opts        Options
	logger      *slog.Logger
}

// NewGitHubFetcher creates a new GitHub fetcher authenticated with token
func NewGitHubFetcher(token string, opts Options) (Fetcher, error) {
	defaults := DefaultOptions()
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = defaults.HTTPTimeout
	}
	if opts.StatsAttempts < 1 {
		opts.StatsAttempts = defaults.StatsAttempts
	}
	if opts.StatsDelay < 0 {
		opts.StatsDelay = 0
	}
	if opts.Logger == nil {
		opts.Logger = defaults.Logger
	}

	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
	} else {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = opts.HTTPTimeout
	client := github.NewClient(httpClient)

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = u
	}

	return &githubFetcher{
		client:      client,
		rateLimiter: NewRateLimiter(opts.MinRequestInterval, opts.Logger),
		opts:        opts,
		logger:      opts.Logger,
	}, nil
}

// FetchRepository retrieves everything needed to analyze one repository
func (f *githubFetcher) FetchRepository(ctx context.Context, fullName string) (*domain.RawRepositorySnapshot, error) {
	owner, repo, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}

	snap := &domain.RawRepositorySnapshot{
		Languages:      map[string]int64{},
		Branches:       []string{},
		Contributors:   []domain.Contributor{},
		Commits:        []domain.CommitRecord{},
		CommitActivity: []domain.WeeklyCommits{},
		CodeFrequency:  []domain.WeeklyCodeFrequency{},
		Pulls:          []domain.PullRequestRecord{},
		Issues:         []domain.IssueRecord{},
	}

	// Required calls: any failure fails the fetch
	required, rctx := errgroup.WithContext(ctx)
	required.Go(func() error {
		meta, err := f.getRepository(rctx, owner, repo)
		if err != nil {
			return err
		}
		snap.Repo = *meta
		return nil
	})
	required.Go(func() error {
		langs, err := f.getLanguages(rctx, owner, repo)
		if err != nil {
			return err
		}
		snap.Languages = langs
		return nil
	})
	required.Go(func() error {
		branches, err := f.listBranches(rctx, owner, repo)
		if err != nil {
			return err
		}
		snap.Branches = branches
		return nil
	})
	required.Go(func() error {
		count, err := f.countReleases(rctx, owner, repo)
		if err != nil {
			return err
		}
		snap.ReleaseCount = count
		return nil
	})
	required.Go(func() error {
		contributors, err := f.listContributors(rctx, owner, repo)
		if err != nil {
			return err
		}
		snap.Contributors = contributors
		return nil
	})
	if err := required.Wait(); err != nil {
		return nil, err
	}

	// Best-effort calls: failures degrade to empty data
	optional, octx := errgroup.WithContext(ctx)
	optional.Go(func() error {
		snap.HasReadme = f.hasReadme(octx, owner, repo)
		return nil
	})
	optional.Go(func() error {
		snap.HasCI = f.hasWorkflows(octx, owner, repo)
		return nil
	})
	optional.Go(func() error {
		snap.HasTests = f.hasTests(octx, owner, repo, snap.Repo.DefaultBranch)
		return nil
	})
	optional.Go(func() error {
		activity, err := f.commitActivity(octx, owner, repo)
		if err != nil {
			return err
		}
		snap.CommitActivity = activity
		return nil
	})
	optional.Go(func() error {
		freq, err := f.codeFrequency(octx, owner, repo)
		if err != nil {
			return err
		}
		snap.CodeFrequency = freq
		return nil
	})
	optional.Go(func() error {
		commits, err := f.listCommits(octx, owner, repo)
		if err != nil {
			return f.degrade(octx, err, fullName, "commits")
		}
		snap.Commits = commits
		return nil
	})
	optional.Go(func() error {
		pulls, err := f.listPullRequests(octx, owner, repo)
		if err != nil {
			return f.degrade(octx, err, fullName, "pull requests")
		}
		snap.Pulls = pulls
		return nil
	})
	optional.Go(func() error {
		issues, err := f.listIssues(octx, owner, repo)
		if err != nil {
			return f.degrade(octx, err, fullName, "issues")
		}
		snap.Issues = issues
		return nil
	})
	if err := optional.Wait(); err != nil {
		return nil, err
	}

	snap.FetchedAt = time.Now()
	return snap, nil
}

// degrade absorbs a best-effort collection failure unless it means the
// credential or the repository itself is gone
func (f *githubFetcher) degrade(ctx context.Context, err error, fullName, what string) error {
	if apperrors.IsNotFound(err) || apperrors.IsUnauthorized(err) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.logger.Warn("incomplete repository data", "repo", fullName, "collection", what, "error", err)
	return nil
}

// ListUserRepositories retrieves all repositories visible to the authenticated user
func (f *githubFetcher) ListUserRepositories(ctx context.Context) ([]*domain.RepoSummary, error) {
	opts := &github.RepositoryListOptions{
		Visibility:  "all",
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	allRepos := []*domain.RepoSummary{}
	for {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		repos, resp, err := f.client.Repositories.List(ctx, "", opts)
		if err != nil {
			return nil, classifyError(err, "failed to list repositories")
		}
		f.updateRateLimitFromResponse(resp)

		for _, r := range repos {
			allRepos = append(allRepos, &domain.RepoSummary{
				ID:          r.GetID(),
				Name:        r.GetName(),
				FullName:    r.GetFullName(),
				URL:         r.GetHTMLURL(),
				Description: r.GetDescription(),
				Language:    r.GetLanguage(),
				Stars:       r.GetStargazersCount(),
				Forks:       r.GetForksCount(),
				Private:     r.GetPrivate(),
				UpdatedAt:   r.GetUpdatedAt().Time,
			})
		}

		if len(repos) == 0 || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

func (f *githubFetcher) getRepository(ctx context.Context, owner, repo string) (*domain.RepositoryMetadata, error) {
	if err := f.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	r, resp, err := f.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, classifyError(err, fmt.Sprintf("failed to get repository %s/%s", owner, repo))
	}
	f.updateRateLimitFromResponse(resp)

	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	return &domain.RepositoryMetadata{
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Owner:         r.GetOwner().GetLogin(),
		HTMLURL:       r.GetHTMLURL(),
		Description:   r.GetDescription(),
		IsPrivate:     r.GetPrivate(),
		Topics:        topics,
		License:       r.GetLicense().GetName(),
		IsFork:        r.GetFork(),
		SizeKB:        r.GetSize(),
		Stars:         r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		Watchers:      r.GetWatchersCount(),
		OpenIssues:    r.GetOpenIssuesCount(),
		DefaultBranch: r.GetDefaultBranch(),
		CreatedAt:     r.GetCreatedAt().Time,
		UpdatedAt:     r.GetUpdatedAt().Time,
		PushedAt:      r.GetPushedAt().Time,
	}, nil
}

func (f *githubFetcher) getLanguages(ctx context.Context, owner, repo string) (map[string]int64, error) {
	if err := f.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	langs, resp, err := f.client.Repositories.ListLanguages(ctx, owner, repo)
	if err != nil {
		return nil, classifyError(err, fmt.Sprintf("failed to list languages for %s/%s", owner, repo))
	}
	f.updateRateLimitFromResponse(resp)

	out := make(map[string]int64, len(langs))
	for name, bytes := range langs {
		out[name] = int64(bytes)
	}
	return out, nil
}

func (f *githubFetcher) listBranches(ctx context.Context, owner, repo string) ([]string, error) {
	opts := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	branches := []string{}
	for {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, resp, err := f.client.Repositories.ListBranches(ctx, owner, repo, opts)
		if err != nil {
			return nil, classifyError(err, fmt.Sprintf("failed to list branches for %s/%s", owner, repo))
		}
		f.updateRateLimitFromResponse(resp)

		for _, b := range page {
			branches = append(branches, b.GetName())
		}

		if len(page) == 0 || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return branches, nil
}

func (f *githubFetcher) countReleases(ctx context.Context, owner, repo string) (int, error) {
	opts := &github.ListOptions{PerPage: perPage}

	count := 0
	for {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			return 0, err
		}
		page, resp, err := f.client.Repositories.ListReleases(ctx, owner, repo, opts)
		if err != nil {
			return 0, classifyError(err, fmt.Sprintf("failed to list releases for %s/%s", owner, repo))
		}
		f.updateRateLimitFromResponse(resp)

		count += len(page)

		if len(page) == 0 || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return count, nil
}

func (f *githubFetcher) listContributors(ctx context.Context, owner, repo string) ([]domain.Contributor, error) {
	opts := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	contributors := []domain.Contributor{}
	for {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, resp, err := f.client.Repositories.ListContributors(ctx, owner, repo, opts)
		if err != nil {
			return nil, classifyError(err, fmt.Sprintf("failed to list contributors for %s/%s", owner, repo))
		}
		f.updateRateLimitFromResponse(resp)

		for _, c := range page {
			contributors = append(contributors, domain.Contributor{
				Login:         c.GetLogin(),
				Contributions: c.GetContributions(),
			})
		}

		if len(page) == 0 || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return contributors, nil
}

func (f *githubFetcher) listCommits(ctx context.Context, owner, repo string) ([]domain.CommitRecord, error) {
	opts := &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	commits := []domain.CommitRecord{}
	for {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, resp, err := f.client.Repositories.ListCommits(ctx, owner, repo, opts)
		if err != nil {
			// Empty repository
			if resp != nil && resp.StatusCode == http.StatusConflict {
				return commits, nil
			}
			return nil, classifyError(err, fmt.Sprintf("failed to list commits for %s/%s", owner, repo))
		}
		f.updateRateLimitFromResponse(resp)

		for _, c := range page {
			commits = append(commits, domain.CommitRecord{
				SHA:        c.GetSHA(),
				AuthorDate: c.GetCommit().GetAuthor().GetDate().Time,
			})
		}

		if len(page) == 0 || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return commits, nil
}

func (f *githubFetcher) listPullRequests(ctx context.Context, owner, repo string) ([]domain.PullRequestRecord, error) {
	opts := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	pulls := []domain.PullRequestRecord{}
	for {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, resp, err := f.client.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, classifyError(err, fmt.Sprintf("failed to list pull requests for %s/%s", owner, repo))
		}
		f.updateRateLimitFromResponse(resp)

		for _, pr := range page {
			var mergedAt *time.Time
			if pr.MergedAt != nil {
				t := pr.MergedAt.Time
				mergedAt = &t
			}
			pulls = append(pulls, domain.PullRequestRecord{
				Number:   pr.GetNumber(),
				State:    pr.GetState(),
				MergedAt: mergedAt,
			})
		}

		if len(page) == 0 || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return pulls, nil
}

func (f *githubFetcher) listIssues(ctx context.Context, owner, repo string) ([]domain.IssueRecord, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	issues := []domain.IssueRecord{}
	for {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, resp, err := f.client.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, classifyError(err, fmt.Sprintf("failed to list issues for %s/%s", owner, repo))
		}
		f.updateRateLimitFromResponse(resp)

		for _, issue := range page {
			// The issues endpoint also returns pull requests
			if issue.IsPullRequest() {
				continue
			}
			issues = append(issues, domain.IssueRecord{
				Number: issue.GetNumber(),
				State:  issue.GetState(),
			})
		}

		if len(page) == 0 || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return issues, nil
}

func (f *githubFetcher) hasReadme(ctx context.Context, owner, repo string) bool {
	if err := f.rateLimiter.Wait(ctx); err != nil {
		return false
	}
	readme, resp, err := f.client.Repositories.GetReadme(ctx, owner, repo, nil)
	if err != nil {
		return false
	}
	f.updateRateLimitFromResponse(resp)
	return readme != nil
}

func (f *githubFetcher) hasWorkflows(ctx context.Context, owner, repo string) bool {
	if err := f.rateLimiter.Wait(ctx); err != nil {
		return false
	}
	_, dir, resp, err := f.client.Repositories.GetContents(ctx, owner, repo, ".github/workflows", nil)
	if err != nil {
		return false
	}
	f.updateRateLimitFromResponse(resp)
	return len(dir) > 0
}

func (f *githubFetcher) hasTests(ctx context.Context, owner, repo, branch string) bool {
	if branch == "" {
		return false
	}
	if err := f.rateLimiter.Wait(ctx); err != nil {
		return false
	}
	tree, resp, err := f.client.Git.GetTree(ctx, owner, repo, branch, true)
	if err != nil {
		return false
	}
	f.updateRateLimitFromResponse(resp)

	for _, entry := range tree.Entries {
		if isTestPath(entry.GetPath()) {
			return true
		}
	}
	return false
}

var testSuffixes = []string{".spec.ts", ".test.ts", ".spec.js", ".test.js", "_test.go"}

// isTestPath reports whether a repository path looks like test code
func isTestPath(path string) bool {
	lower := strings.ToLower(path)
	if strings.Contains(lower, "test") {
		return true
	}
	for _, suffix := range testSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// updateRateLimitFromResponse updates the rate limiter from API response
func (f *githubFetcher) updateRateLimitFromResponse(resp *github.Response) {
	if resp != nil && resp.Rate.Limit > 0 {
		f.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}

func splitFullName(fullName string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimSpace(fullName), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", apperrors.NewBadRequestError(fmt.Sprintf("repository must be in owner/name form, got %q", fullName))
	}
	return parts[0], parts[1], nil
}
