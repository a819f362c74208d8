package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v55/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kurihiro0119/github-skill-analytics/internal/errors"
)

type fakeGitHub struct {
	mux              *http.ServeMux
	server           *httptest.Server
	activityRequests atomic.Int32
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{mux: http.NewServeMux()}
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)

	const repo = "/repos/octo/portfolio"
	f.handle(repo, `{
		"name": "portfolio",
		"full_name": "octo/portfolio",
		"owner": {"login": "octo"},
		"html_url": "https://github.com/octo/portfolio",
		"description": "Personal site",
		"private": false,
		"topics": ["react", "portfolio"],
		"license": {"name": "MIT License"},
		"size": 512,
		"stargazers_count": 7,
		"forks_count": 2,
		"watchers_count": 7,
		"open_issues_count": 1,
		"default_branch": "main",
		"created_at": "2023-06-01T00:00:00Z",
		"updated_at": "2024-03-01T00:00:00Z",
		"pushed_at": "2024-03-02T00:00:00Z"
	}`)
	f.handle(repo+"/languages", `{"TypeScript": 8000, "JavaScript": 2000}`)
	f.handle(repo+"/branches", `[{"name": "main"}, {"name": "develop"}]`)
	f.handle(repo+"/releases", `[{"id": 1}]`)
	f.handle(repo+"/contributors", `[{"login": "octo", "contributions": 60}]`)
	f.handle(repo+"/readme", `{"name": "README.md", "path": "README.md"}`)
	f.handle(repo+"/contents/.github/workflows", `[{"name": "ci.yml", "type": "file"}]`)
	f.handle(repo+"/git/trees/main", `{"sha": "abc", "tree": [{"path": "src/app.ts"}, {"path": "src/app.spec.ts"}]}`)
	f.handle(repo+"/stats/code_frequency", `[[1709251200, 2000, -300], [1709856000, 1000, -200]]`)
	f.handle(repo+"/commits", `[
		{"sha": "a1", "commit": {"author": {"date": "2024-03-01T10:00:00Z"}}},
		{"sha": "b2", "commit": {"author": {"date": "2024-02-20T10:00:00Z"}}, "files": [{"filename": "src/app.ts"}]}
	]`)
	f.handle(repo+"/pulls", `[{"number": 3, "state": "closed", "merged_at": "2024-02-21T00:00:00Z"}, {"number": 4, "state": "open"}]`)
	f.handle(repo+"/issues", `[
		{"number": 1, "state": "closed"},
		{"number": 3, "state": "closed", "pull_request": {"url": "https://api.github.com/repos/octo/portfolio/pulls/3"}}
	]`)

	// Statistics are computed on first request
	f.mux.HandleFunc(repo+"/stats/commit_activity", func(w http.ResponseWriter, r *http.Request) {
		if f.activityRequests.Add(1) == 1 {
			writeJSON(w, http.StatusAccepted, `{}`)
			return
		}
		writeJSON(w, http.StatusOK, `[{"total": 3, "week": 1709251200}, {"total": 0, "week": 1709856000}]`)
	})

	return f
}

func (f *fakeGitHub) handle(path, body string) {
	f.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, body)
	})
}

func (f *fakeGitHub) fetcher(t *testing.T) *githubFetcher {
	t.Helper()
	fetcher, err := NewGitHubFetcher("test-token", Options{
		BaseURL:       f.server.URL,
		StatsAttempts: 3,
		StatsDelay:    time.Millisecond,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return fetcher.(*githubFetcher)
}

func TestFetchRepository(t *testing.T) {
	gh := newFakeGitHub(t)

	snap, err := gh.fetcher(t).FetchRepository(context.Background(), "octo/portfolio")
	require.NoError(t, err)

	assert.Equal(t, "octo/portfolio", snap.Repo.FullName)
	assert.Equal(t, "octo", snap.Repo.Owner)
	assert.Equal(t, "MIT License", snap.Repo.License)
	assert.Equal(t, "main", snap.Repo.DefaultBranch)
	assert.Equal(t, []string{"react", "portfolio"}, snap.Repo.Topics)
	assert.Equal(t, 7, snap.Repo.Stars)
	assert.Equal(t, map[string]int64{"TypeScript": 8000, "JavaScript": 2000}, snap.Languages)
	assert.Equal(t, []string{"main", "develop"}, snap.Branches)
	assert.Equal(t, 1, snap.ReleaseCount)
	require.Len(t, snap.Contributors, 1)
	assert.Equal(t, 60, snap.Contributors[0].Contributions)

	assert.True(t, snap.HasReadme)
	assert.True(t, snap.HasCI)
	assert.True(t, snap.HasTests)

	require.Len(t, snap.CommitActivity, 2)
	assert.Equal(t, 3, snap.CommitActivity[0].Total)
	assert.Equal(t, int32(2), gh.activityRequests.Load())

	require.Len(t, snap.CodeFrequency, 2)
	assert.Equal(t, 2000, snap.CodeFrequency[0].Additions)
	assert.Equal(t, -300, snap.CodeFrequency[0].Deletions)

	require.Len(t, snap.Commits, 2)
	assert.Equal(t, "a1", snap.Commits[0].SHA)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), snap.Commits[0].AuthorDate.UTC())
	for _, c := range snap.Commits {
		assert.Zero(t, c.FilesChanged, "commit listing does not report file counts")
	}

	require.Len(t, snap.Pulls, 2)
	require.NotNil(t, snap.Pulls[0].MergedAt)
	assert.Nil(t, snap.Pulls[1].MergedAt)

	require.Len(t, snap.Issues, 1, "pull requests are not issues")
	assert.Equal(t, 1, snap.Issues[0].Number)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestFetchRepositoryNotFound(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.mux.HandleFunc("/repos/octo/missing", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"message": "Not Found"}`)
	})
	gh.mux.HandleFunc("/repos/octo/missing/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"message": "Not Found"}`)
	})

	_, err := gh.fetcher(t).FetchRepository(context.Background(), "octo/missing")

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestFetchRepositoryRejectsMalformedName(t *testing.T) {
	gh := newFakeGitHub(t)

	for _, name := range []string{"", "portfolio", "octo/", "a/b/c"} {
		_, err := gh.fetcher(t).FetchRepository(context.Background(), name)
		assert.Equal(t, apperrors.ErrCodeBadRequest, apperrors.CodeOf(err), "name=%q", name)
	}
}

func TestBestEffortFailuresDegrade(t *testing.T) {
	gh := newFakeGitHub(t)
	fetcher := gh.fetcher(t)

	failing := http.NewServeMux()
	failing.HandleFunc("/repos/octo/portfolio/issues", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"message": "boom"}`)
	})
	failing.HandleFunc("/repos/octo/portfolio/readme", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"message": "Not Found"}`)
	})
	failing.Handle("/", gh.mux)
	gh.server.Config.Handler = failing

	snap, err := fetcher.FetchRepository(context.Background(), "octo/portfolio")
	require.NoError(t, err)

	assert.Empty(t, snap.Issues)
	assert.NotNil(t, snap.Issues)
	assert.False(t, snap.HasReadme)
	assert.Len(t, snap.Pulls, 2)
}

func TestUnauthorizedPaginationPropagates(t *testing.T) {
	gh := newFakeGitHub(t)
	fetcher := gh.fetcher(t)

	failing := http.NewServeMux()
	failing.HandleFunc("/repos/octo/portfolio/pulls", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message": "Bad credentials"}`)
	})
	failing.Handle("/", gh.mux)
	gh.server.Config.Handler = failing

	_, err := fetcher.FetchRepository(context.Background(), "octo/portfolio")

	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestStatsPollingGivesUp(t *testing.T) {
	var requests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/slow/stats/code_frequency", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		writeJSON(w, http.StatusAccepted, `{}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher, err := NewGitHubFetcher("", Options{BaseURL: server.URL, StatsAttempts: 4, StatsDelay: time.Millisecond})
	require.NoError(t, err)

	series, err := fetcher.(*githubFetcher).codeFrequency(context.Background(), "octo", "slow")

	require.NoError(t, err)
	assert.NotNil(t, series)
	assert.Empty(t, series)
	assert.Equal(t, int32(4), requests.Load())
}

func TestStatsPollingStopsOnClientError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		attempts int32
	}{
		{name: "forbidden", status: http.StatusForbidden, attempts: 1},
		{name: "not found", status: http.StatusNotFound, attempts: 1},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, attempts: 1},
		{name: "server error keeps polling", status: http.StatusBadGateway, attempts: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests atomic.Int32
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/octo/locked/stats/commit_activity", func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				writeJSON(w, tt.status, `{"message": "nope"}`)
			})
			server := httptest.NewServer(mux)
			defer server.Close()

			fetcher, err := NewGitHubFetcher("", Options{BaseURL: server.URL, StatsAttempts: 3, StatsDelay: time.Millisecond})
			require.NoError(t, err)

			series, err := fetcher.(*githubFetcher).commitActivity(context.Background(), "octo", "locked")

			require.NoError(t, err)
			assert.NotNil(t, series)
			assert.Empty(t, series)
			assert.Equal(t, tt.attempts, requests.Load())
		})
	}
}

func TestStatsPollingRetriesEmptySeries(t *testing.T) {
	var requests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/new/stats/code_frequency", func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			writeJSON(w, http.StatusOK, `[]`)
			return
		}
		writeJSON(w, http.StatusOK, `[[1709251200, 10, -2]]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher, err := NewGitHubFetcher("", Options{BaseURL: server.URL, StatsAttempts: 5, StatsDelay: time.Millisecond})
	require.NoError(t, err)

	series, err := fetcher.(*githubFetcher).codeFrequency(context.Background(), "octo", "new")

	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 10, series[0].Additions)
	assert.Equal(t, int32(3), requests.Load())
}

func TestFetchRepositoryForbidden(t *testing.T) {
	gh := newFakeGitHub(t)
	for _, path := range []string{"/repos/octo/sealed", "/repos/octo/sealed/"} {
		gh.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusForbidden, `{"message": "Resource not accessible by integration"}`)
		})
	}

	_, err := gh.fetcher(t).FetchRepository(context.Background(), "octo/sealed")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.CodeOf(err))
	assert.False(t, apperrors.IsRateLimited(err))
}

func TestClassifyError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://api.github.com/repos/octo/app", nil)
	resp := func(status int) *http.Response {
		return &http.Response{StatusCode: status, Header: http.Header{}, Request: req}
	}
	respErr := func(status int) error {
		return &github.ErrorResponse{Response: resp(status), Message: "x"}
	}

	tests := []struct {
		name string
		err  error
		want apperrors.ErrCode
	}{
		{name: "not found", err: respErr(http.StatusNotFound), want: apperrors.ErrCodeNotFound},
		{name: "unauthorized", err: respErr(http.StatusUnauthorized), want: apperrors.ErrCodeUnauthorized},
		{name: "forbidden", err: respErr(http.StatusForbidden), want: apperrors.ErrCodeForbidden},
		{name: "rate limited", err: &github.RateLimitError{Response: resp(http.StatusForbidden)}, want: apperrors.ErrCodeRateLimited},
		{name: "secondary limit", err: &github.AbuseRateLimitError{Response: resp(http.StatusForbidden)}, want: apperrors.ErrCodeRateLimited},
		{name: "server error", err: respErr(http.StatusBadGateway), want: apperrors.ErrCodeUpstream},
		{name: "transport", err: fmt.Errorf("dial tcp: refused"), want: apperrors.ErrCodeUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.CodeOf(classifyError(tt.err, "failed")))
		})
	}

	assert.ErrorIs(t, classifyError(context.Canceled, "failed"), context.Canceled)
}

func TestStatsPollingHonoursCancellation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/slow/stats/commit_activity", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusAccepted, `{}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher, err := NewGitHubFetcher("", Options{BaseURL: server.URL, StatsAttempts: 100, StatsDelay: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = fetcher.(*githubFetcher).commitActivity(ctx, "octo", "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListUserRepositoriesPaginates(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("visibility"))
		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, http.StatusOK, `[{"id": 2, "name": "tools", "full_name": "octo/tools", "private": true}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/user/repos?page=2>; rel="next"`, server.URL))
		writeJSON(w, http.StatusOK, `[{"id": 1, "name": "portfolio", "full_name": "octo/portfolio", "language": "TypeScript", "stargazers_count": 7}]`)
	})

	fetcher, err := NewGitHubFetcher("token", Options{BaseURL: server.URL})
	require.NoError(t, err)

	repos, err := fetcher.ListUserRepositories(context.Background())
	require.NoError(t, err)

	require.Len(t, repos, 2)
	assert.Equal(t, "octo/portfolio", repos[0].FullName)
	assert.Equal(t, "TypeScript", repos[0].Language)
	assert.Equal(t, 7, repos[0].Stars)
	assert.True(t, repos[1].Private)
}

func TestIsTestPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"src/app.spec.ts", true},
		{"lib/util.test.js", true},
		{"tests/fixtures/data.json", true},
		{"internal/store/store_test.go", true},
		{"src/__Tests__/App.tsx", true},
		{"web/component.spec.js", true},
		{"src/app.ts", false},
		{"README.md", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isTestPath(tt.path), tt.path)
	}
}

func TestRateLimiterWaitsForReset(t *testing.T) {
	limiter := NewRateLimiter(0, slog.New(slog.NewTextHandler(io.Discard, nil)))

	limiter.UpdateLimit(2, time.Now().Add(-time.Second))
	require.NoError(t, limiter.Wait(context.Background()))
	remaining, _, err := limiter.CheckLimit()
	require.NoError(t, err)
	assert.Equal(t, 5000, remaining)

	limiter.UpdateLimit(0, time.Now().Add(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.Canceled)
}
