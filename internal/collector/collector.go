package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/kurihiro0119/github-skill-analytics/internal/domain"
)

// Fetcher defines the interface for reading repository data from GitHub
type Fetcher interface {
	// FetchRepository retrieves everything needed to analyze one repository ("owner/name")
	FetchRepository(ctx context.Context, fullName string) (*domain.RawRepositorySnapshot, error)

	// ListUserRepositories retrieves all repositories visible to the authenticated user
	ListUserRepositories(ctx context.Context) ([]*domain.RepoSummary, error)
}

// FetcherFactory builds a Fetcher authenticated with a user's access token
type FetcherFactory func(token string) (Fetcher, error)

// Options configures a GitHub fetcher
type Options struct {
	// BaseURL overrides the REST endpoint (GitHub Enterprise or tests)
	BaseURL string

	HTTPTimeout time.Duration

	// StatsAttempts bounds how often a statistics endpoint is asked before
	// an empty series is accepted; StatsDelay is the pause between attempts.
	StatsAttempts int
	StatsDelay    time.Duration

	// MinRequestInterval spaces consecutive API calls
	MinRequestInterval time.Duration

	Logger *slog.Logger
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		HTTPTimeout:        30 * time.Second,
		StatsAttempts:      6,
		StatsDelay:         2 * time.Second,
		MinRequestInterval: 50 * time.Millisecond,
		Logger:             slog.Default(),
	}
}

// NewFactory returns a FetcherFactory sharing opts across users
func NewFactory(opts Options) FetcherFactory {
	return func(token string) (Fetcher, error) {
		return NewGitHubFetcher(token, opts)
	}
}
