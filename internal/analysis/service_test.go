package analysis

import (
	"context"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-skill-analytics/internal/collector"
	"github.com/kurihiro0119/github-skill-analytics/internal/domain"
	apperrors "github.com/kurihiro0119/github-skill-analytics/internal/errors"
	"github.com/kurihiro0119/github-skill-analytics/internal/storage"
	"github.com/kurihiro0119/github-skill-analytics/internal/storage/sqlite"
)

type fakeFetcher struct {
	mu       sync.Mutex
	snapshot func() *domain.RawRepositorySnapshot
	repos    []*domain.RepoSummary
	err      error
	fetches  atomic.Int32
	tokens   []string
}

func (f *fakeFetcher) factory() collector.FetcherFactory {
	return func(token string) (collector.Fetcher, error) {
		f.mu.Lock()
		f.tokens = append(f.tokens, token)
		f.mu.Unlock()
		return f, nil
	}
}

func (f *fakeFetcher) FetchRepository(ctx context.Context, fullName string) (*domain.RawRepositorySnapshot, error) {
	f.fetches.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot(), nil
}

func (f *fakeFetcher) ListUserRepositories(ctx context.Context) ([]*domain.RepoSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.repos, nil
}

func snapshot(additions int) func() *domain.RawRepositorySnapshot {
	return func() *domain.RawRepositorySnapshot {
		now := time.Now()
		return &domain.RawRepositorySnapshot{
			Repo: domain.RepositoryMetadata{
				Name:      "app",
				FullName:  "octo/app",
				HTMLURL:   "https://github.com/octo/app",
				License:   "MIT License",
				CreatedAt: now.AddDate(-1, 0, 0),
			},
			Languages:      map[string]int64{"Go": 9000, "Shell": 1000},
			Branches:       []string{"main"},
			Contributors:   []domain.Contributor{{Login: "octo", Contributions: 20}},
			Commits:        []domain.CommitRecord{{SHA: "a", AuthorDate: now.AddDate(0, 0, -3)}},
			CommitActivity: []domain.WeeklyCommits{{Total: 4}, {Total: 0}},
			CodeFrequency:  []domain.WeeklyCodeFrequency{{Additions: additions, Deletions: -10}},
			HasReadme:      true,
		}
	}
}

type fixture struct {
	svc     *Service
	store   storage.Storage
	fetcher *fakeFetcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.NewSQLiteStorage(filepath.Join(t.TempDir(), "analysis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fetcher := &fakeFetcher{snapshot: snapshot(500)}
	svc := NewService(store, fetcher.factory(), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return &fixture{svc: svc, store: store, fetcher: fetcher}
}

func (f *fixture) link(t *testing.T, userID string) {
	t.Helper()
	_, err := f.svc.LinkGitHub(context.Background(), userID, "octo", "gh-token-"+userID)
	require.NoError(t, err)
}

func TestAnalyzePreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveProfile(ctx, &domain.Profile{UserID: "disconnected", GitHubAccessToken: "tok"}))
	require.NoError(t, f.store.SaveProfile(ctx, &domain.Profile{UserID: "tokenless", GitHubConnected: true}))
	f.link(t, "ready")

	tests := []struct {
		name   string
		userID string
		repo   string
		code   apperrors.ErrCode
	}{
		{name: "no profile", userID: "stranger", repo: "octo/app", code: apperrors.ErrCodePreconditionFailed},
		{name: "not connected", userID: "disconnected", repo: "octo/app", code: apperrors.ErrCodePreconditionFailed},
		{name: "no token", userID: "tokenless", repo: "octo/app", code: apperrors.ErrCodePreconditionFailed},
		{name: "empty repo", userID: "ready", repo: "   ", code: apperrors.ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Analyze(ctx, tt.userID, tt.repo)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}

	assert.Zero(t, f.fetcher.fetches.Load(), "no fetch before preconditions pass")
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.link(t, "u1")

	first, err := f.svc.Analyze(ctx, "u1", "octo/app")
	require.NoError(t, err)
	assert.False(t, first.AlreadyAnalyzed)
	assert.Equal(t, "app", first.ProjectName)
	assert.Equal(t, "https://github.com/octo/app", first.RepoURL)

	second, err := f.svc.Analyze(ctx, "u1", "octo/app")
	require.NoError(t, err)
	assert.True(t, second.AlreadyAnalyzed)
	assert.Equal(t, first.ProjectID, second.ProjectID)
	assert.Equal(t, int32(1), f.fetcher.fetches.Load())
	assert.Equal(t, []string{"gh-token-u1"}, f.fetcher.tokens)

	project, err := f.svc.GetProject(ctx, "u1", first.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, "Go", project.LanguageStats.PrimaryLanguage)
	assert.Equal(t, "u1", project.UserID)

	assessment, err := f.store.GetAssessmentByProject(ctx, "u1", first.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, "app", assessment.ProjectName)
}

func TestAnalyzeConcurrentCallsStoreOneRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.link(t, "u1")

	const callers = 6
	results := make([]*AnalyzeResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Analyze(ctx, "u1", "octo/app")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	fresh := 0
	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, results[0].ProjectID, res.ProjectID)
		if !res.AlreadyAnalyzed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)

	page, err := f.svc.ListProjects(ctx, "u1", ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestAnalyzeFetchFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.link(t, "u1")
	f.fetcher.err = apperrors.NewNotFoundError("repository")

	_, err := f.svc.Analyze(ctx, "u1", "octo/missing")
	assert.True(t, apperrors.IsNotFound(err))

	page, err := f.svc.ListProjects(ctx, "u1", ListQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestReanalyzeKeepsIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.link(t, "u1")

	first, err := f.svc.Analyze(ctx, "u1", "octo/app")
	require.NoError(t, err)
	before, err := f.svc.GetProject(ctx, "u1", first.ProjectID)
	require.NoError(t, err)
	oldAssessment, err := f.store.GetAssessmentByProject(ctx, "u1", first.ProjectID)
	require.NoError(t, err)

	f.fetcher.snapshot = snapshot(60000)
	refreshed, err := f.svc.Reanalyze(ctx, "u1", "octo/app")
	require.NoError(t, err)
	assert.Equal(t, first.ProjectID, refreshed.ProjectID)
	assert.False(t, refreshed.AlreadyAnalyzed)

	after, err := f.svc.GetProject(ctx, "u1", first.ProjectID)
	require.NoError(t, err)
	assert.Greater(t, after.CommitStats.TotalAdditions, before.CommitStats.TotalAdditions)
	assert.Equal(t, 5, after.MaturityLevel)

	newAssessment, err := f.store.GetAssessmentByProject(ctx, "u1", first.ProjectID)
	require.NoError(t, err)
	assert.NotEqual(t, oldAssessment.ID, newAssessment.ID)
	assert.Equal(t, 100.0, newAssessment.MaturityScore)
}

func TestEvaluateSkills(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.link(t, "u1")

	res, err := f.svc.Analyze(ctx, "u1", "octo/app")
	require.NoError(t, err)

	existing, err := f.svc.EvaluateSkills(ctx, "u1", res.ProjectID)
	require.NoError(t, err)
	assert.True(t, existing.AlreadyEvaluated)

	require.NoError(t, f.store.DeleteAssessmentByProject(ctx, "u1", res.ProjectID))
	fresh, err := f.svc.EvaluateSkills(ctx, "u1", res.ProjectID)
	require.NoError(t, err)
	assert.False(t, fresh.AlreadyEvaluated)
	assert.Equal(t, res.ProjectID, fresh.Assessment.ProjectID)
	assert.Equal(t, "u1", fresh.Assessment.UserID)
	assert.NotEmpty(t, fresh.Assessment.ID)

	_, err = f.svc.EvaluateSkills(ctx, "someone-else", res.ProjectID)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.svc.EvaluateSkills(ctx, "u1", "")
	assert.Equal(t, apperrors.ErrCodeBadRequest, apperrors.CodeOf(err))

	list, err := f.svc.ListAssessments(ctx, "u1", ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
}

func TestListRepositories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.link(t, "u1")

	for _, name := range []string{"api", "web-app", "dotfiles", "app-store", "notes"} {
		f.fetcher.repos = append(f.fetcher.repos, &domain.RepoSummary{Name: name, FullName: "octo/" + name})
	}

	page, err := f.svc.ListRepositories(ctx, "u1", ListQuery{Search: "APP", Limit: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "app-store", page.Items[0].Name)

	beyond, err := f.svc.ListRepositories(ctx, "u1", ListQuery{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 5, beyond.Total)

	_, err = f.svc.ListRepositories(ctx, "stranger", ListQuery{})
	assert.True(t, apperrors.IsPreconditionFailed(err))
}

func TestListPagesPastAddressableRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.link(t, "u1")
	f.fetcher.repos = []*domain.RepoSummary{{Name: "api", FullName: "octo/api"}}
	_, err := f.svc.Analyze(ctx, "u1", "octo/app")
	require.NoError(t, err)

	for _, p := range []int{math.MaxInt, math.MaxInt / 10, math.MaxInt/100 + 2} {
		q := ListQuery{Page: p, Limit: 10}

		repos, err := f.svc.ListRepositories(ctx, "u1", q)
		require.NoError(t, err)
		assert.Empty(t, repos.Items)
		assert.Equal(t, 1, repos.Total)
		assert.Equal(t, p, repos.Page)

		projects, err := f.svc.ListProjects(ctx, "u1", q)
		require.NoError(t, err)
		assert.Empty(t, projects.Items)
		assert.Equal(t, 1, projects.Total)
	}
}

func TestListQueryOffsetSaturates(t *testing.T) {
	assert.Equal(t, 20, ListQuery{Page: 3, Limit: 10}.offset())
	assert.Equal(t, math.MaxInt, ListQuery{Page: math.MaxInt, Limit: 10}.offset())
	assert.Equal(t, math.MaxInt, ListQuery{Page: math.MaxInt/maxLimit + 2, Limit: maxLimit}.offset())

	page := pageOf([]int{1, 2, 3}, ListQuery{Page: math.MaxInt, Limit: maxLimit})
	assert.Empty(t, page.Items)
	assert.Equal(t, 3, page.Total)
}

func TestListQueryNormalize(t *testing.T) {
	q := ListQuery{Page: -1, Limit: 1000, Search: "  go "}.normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, maxLimit, q.Limit)
	assert.Equal(t, "go", q.Search)

	q = ListQuery{}.normalize()
	assert.Equal(t, defaultLimit, q.Limit)
	assert.Zero(t, q.offset())
}
