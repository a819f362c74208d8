package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kurihiro0119/github-skill-analytics/internal/analysis"
	"github.com/kurihiro0119/github-skill-analytics/internal/auth"
	"github.com/kurihiro0119/github-skill-analytics/internal/collector"
	"github.com/kurihiro0119/github-skill-analytics/internal/config"
	"github.com/kurihiro0119/github-skill-analytics/internal/domain"
	"github.com/kurihiro0119/github-skill-analytics/internal/logging"
	"github.com/kurihiro0119/github-skill-analytics/internal/storage"
	"github.com/kurihiro0119/github-skill-analytics/internal/storage/postgres"
	"github.com/kurihiro0119/github-skill-analytics/internal/storage/sqlite"
	"github.com/kurihiro0119/github-skill-analytics/pkg/client"
)

// backend runs commands for one user, either in-process or through the API
type backend interface {
	Analyze(ctx context.Context, repo string, force bool) (*analysis.AnalyzeResult, error)
	Repositories(ctx context.Context, q analysis.ListQuery) (*analysis.Page[*domain.RepoSummary], error)
	Projects(ctx context.Context, q analysis.ListQuery) (*analysis.Page[*domain.RepositoryAnalytics], error)
	Skills(ctx context.Context, projectID string) (*analysis.EvaluateResult, error)
	Close() error
}

type localBackend struct {
	userID  string
	service *analysis.Service
	store   storage.Storage
}

func (b *localBackend) Analyze(ctx context.Context, repo string, force bool) (*analysis.AnalyzeResult, error) {
	if force {
		return b.service.Reanalyze(ctx, b.userID, repo)
	}
	return b.service.Analyze(ctx, b.userID, repo)
}

func (b *localBackend) Repositories(ctx context.Context, q analysis.ListQuery) (*analysis.Page[*domain.RepoSummary], error) {
	return b.service.ListRepositories(ctx, b.userID, q)
}

func (b *localBackend) Projects(ctx context.Context, q analysis.ListQuery) (*analysis.Page[*domain.RepositoryAnalytics], error) {
	return b.service.ListProjects(ctx, b.userID, q)
}

func (b *localBackend) Skills(ctx context.Context, projectID string) (*analysis.EvaluateResult, error) {
	return b.service.EvaluateSkills(ctx, b.userID, projectID)
}

func (b *localBackend) Close() error {
	return b.store.Close()
}

type remoteBackend struct {
	client *client.Client
}

func (b *remoteBackend) Analyze(ctx context.Context, repo string, force bool) (*analysis.AnalyzeResult, error) {
	var (
		res *client.AnalyzeResponse
		err error
	)
	if force {
		res, err = b.client.Refresh(ctx, repo)
	} else {
		res, err = b.client.Analyze(ctx, repo)
	}
	if err != nil {
		return nil, err
	}
	return &analysis.AnalyzeResult{
		ProjectID:       res.ProjectID,
		ProjectName:     res.ProjectName,
		RepoURL:         res.RepoURL,
		AlreadyAnalyzed: res.AlreadyAnalyzed,
	}, nil
}

func (b *remoteBackend) Repositories(ctx context.Context, q analysis.ListQuery) (*analysis.Page[*domain.RepoSummary], error) {
	return b.client.ListRepositories(ctx, q)
}

func (b *remoteBackend) Projects(ctx context.Context, q analysis.ListQuery) (*analysis.Page[*domain.RepositoryAnalytics], error) {
	return b.client.ListProjects(ctx, q)
}

func (b *remoteBackend) Skills(ctx context.Context, projectID string) (*analysis.EvaluateResult, error) {
	return b.client.EvaluateSkills(ctx, projectID)
}

func (b *remoteBackend) Close() error {
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func getStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	default:
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	}
}

func newService(cfg *config.Config, store storage.Storage) *analysis.Service {
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	opts := collector.DefaultOptions()
	opts.BaseURL = cfg.GitHubAPIURL
	opts.HTTPTimeout = cfg.GitHubHTTPTimeout
	opts.StatsAttempts = cfg.GitHubStatsAttempts
	opts.StatsDelay = cfg.GitHubStatsDelay
	opts.Logger = logger

	return analysis.NewService(store, collector.NewFactory(opts), analysis.WithLogger(logger))
}

// openBackend returns the backend selected by --remote for userID
func openBackend(userID string) (backend, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if remote {
		token := apiToken
		if token == "" {
			tokens, err := auth.NewTokenService(cfg.JWTSecret)
			if err != nil {
				return nil, fmt.Errorf("--remote needs --token or JWT_SECRET: %w", err)
			}
			if token, err = tokens.Generate(userID); err != nil {
				return nil, err
			}
		}
		slog.Debug("using remote API", slog.String("endpoint", cfg.APIEndpoint))
		return &remoteBackend{client: client.NewClient(cfg.APIEndpoint, token)}, nil
	}

	store, err := getStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return &localBackend{userID: userID, service: newService(cfg, store), store: store}, nil
}
