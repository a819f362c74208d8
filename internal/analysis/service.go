// Package analysis orchestrates fetching, scoring and persisting repository analyses.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kurihiro0119/github-skill-analytics/internal/aggregator"
	"github.com/kurihiro0119/github-skill-analytics/internal/collector"
	"github.com/kurihiro0119/github-skill-analytics/internal/domain"
	apperrors "github.com/kurihiro0119/github-skill-analytics/internal/errors"
	"github.com/kurihiro0119/github-skill-analytics/internal/observability"
	"github.com/kurihiro0119/github-skill-analytics/internal/skill"
	"github.com/kurihiro0119/github-skill-analytics/internal/storage"
)

// AnalyzeResult identifies the stored analytics of a repository
type AnalyzeResult struct {
	ProjectID       string `json:"projectId"`
	ProjectName     string `json:"projectName,omitempty"`
	RepoURL         string `json:"repoUrl,omitempty"`
	AlreadyAnalyzed bool   `json:"alreadyAnalyzed,omitempty"`
}

// EvaluateResult is a skill assessment and whether it existed before the request
type EvaluateResult struct {
	Assessment       *domain.SkillAssessment `json:"assessment"`
	AlreadyEvaluated bool                    `json:"alreadyEvaluated"`
}

// Option configures a Service
type Option func(*Service)

// WithAggregator replaces the default aggregator
func WithAggregator(a aggregator.Aggregator) Option {
	return func(s *Service) { s.aggregator = a }
}

// WithEvaluator replaces the default skill evaluator
func WithEvaluator(e skill.Evaluator) Option {
	return func(s *Service) { s.evaluator = e }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service runs analyses for users
type Service struct {
	store      storage.Storage
	fetchers   collector.FetcherFactory
	aggregator aggregator.Aggregator
	evaluator  skill.Evaluator
	logger     *slog.Logger
}

// NewService creates a Service
func NewService(store storage.Storage, fetchers collector.FetcherFactory, opts ...Option) *Service {
	s := &Service{
		store:      store,
		fetchers:   fetchers,
		aggregator: aggregator.NewAggregator(),
		evaluator:  skill.NewEvaluator(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze returns the stored analytics of a repository, analyzing it first if
// the user has none. Concurrent calls for the same pair yield one record.
func (s *Service) Analyze(ctx context.Context, userID, repoFullName string) (result *AnalyzeResult, err error) {
	start := time.Now()
	defer func() { s.observe("analyze", start, result, err) }()

	repoFullName = strings.TrimSpace(repoFullName)
	if repoFullName == "" {
		return nil, apperrors.NewBadRequestError("repoFullName is required")
	}
	profile, err := s.requireGitHub(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindAnalytics(ctx, userID, repoFullName)
	if err == nil {
		return alreadyAnalyzed(existing), nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, apperrors.NewInternalError("failed to look up project", err)
	}

	analytics, err := s.fetchAndAggregate(ctx, profile, repoFullName)
	if err != nil {
		return nil, err
	}

	created, err := s.store.InsertAnalyticsIfAbsent(ctx, analytics)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to save project", err)
	}
	if !created {
		// Another request stored the pair first
		return alreadyAnalyzed(analytics), nil
	}

	s.logger.Info("repository analyzed",
		"user", userID, "repo", analytics.RepoFullName, "project", analytics.ID,
		"health_index", analytics.HealthIndex, "maturity_level", analytics.MaturityLevel)

	s.createAssessment(ctx, analytics)

	return &AnalyzeResult{
		ProjectID:   analytics.ID,
		ProjectName: analytics.RepoName,
		RepoURL:     analytics.RepoURL,
	}, nil
}

// Reanalyze fetches the repository again and replaces the stored analytics and
// assessment. The project keeps its ID.
func (s *Service) Reanalyze(ctx context.Context, userID, repoFullName string) (result *AnalyzeResult, err error) {
	start := time.Now()
	defer func() { s.observe("reanalyze", start, result, err) }()

	repoFullName = strings.TrimSpace(repoFullName)
	if repoFullName == "" {
		return nil, apperrors.NewBadRequestError("repoFullName is required")
	}
	profile, err := s.requireGitHub(ctx, userID)
	if err != nil {
		return nil, err
	}

	analytics, err := s.fetchAndAggregate(ctx, profile, repoFullName)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertAnalytics(ctx, analytics); err != nil {
		return nil, apperrors.NewInternalError("failed to save project", err)
	}
	if err := s.store.DeleteAssessmentByProject(ctx, userID, analytics.ID); err != nil {
		return nil, apperrors.NewInternalError("failed to replace skill assessment", err)
	}

	s.logger.Info("repository re-analyzed",
		"user", userID, "repo", analytics.RepoFullName, "project", analytics.ID,
		"health_index", analytics.HealthIndex)

	s.createAssessment(ctx, analytics)

	return &AnalyzeResult{
		ProjectID:   analytics.ID,
		ProjectName: analytics.RepoName,
		RepoURL:     analytics.RepoURL,
	}, nil
}

// EvaluateSkills returns the assessment of a project, evaluating it if none exists
func (s *Service) EvaluateSkills(ctx context.Context, userID, projectID string) (*EvaluateResult, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, apperrors.NewBadRequestError("projectId is required")
	}

	analytics, err := s.store.GetAnalytics(ctx, userID, projectID)
	if err != nil {
		observability.SkillEvaluationsTotal.WithLabelValues(observability.OutcomeRejected).Inc()
		return nil, wrapStorage(err, "failed to load project")
	}

	existing, err := s.store.GetAssessmentByProject(ctx, userID, projectID)
	if err == nil {
		observability.SkillEvaluationsTotal.WithLabelValues(observability.OutcomeExisting).Inc()
		return &EvaluateResult{Assessment: existing, AlreadyEvaluated: true}, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, apperrors.NewInternalError("failed to load skill assessment", err)
	}

	assessment := s.evaluator.Evaluate(analytics)
	assessment.UserID = userID
	assessment.ProjectID = analytics.ID

	if err := s.store.CreateAssessment(ctx, assessment); err != nil {
		if apperrors.CodeOf(err) != apperrors.ErrCodeConflict {
			observability.SkillEvaluationsTotal.WithLabelValues(observability.OutcomeFailed).Inc()
			return nil, apperrors.NewInternalError("failed to save skill assessment", err)
		}
		winner, err := s.store.GetAssessmentByProject(ctx, userID, projectID)
		if err != nil {
			return nil, wrapStorage(err, "failed to load skill assessment")
		}
		observability.SkillEvaluationsTotal.WithLabelValues(observability.OutcomeExisting).Inc()
		return &EvaluateResult{Assessment: winner, AlreadyEvaluated: true}, nil
	}

	observability.SkillEvaluationsTotal.WithLabelValues(observability.OutcomeEvaluated).Inc()
	return &EvaluateResult{Assessment: assessment}, nil
}

// ListRepositories lists the GitHub repositories of a user
func (s *Service) ListRepositories(ctx context.Context, userID string, q ListQuery) (*Page[*domain.RepoSummary], error) {
	profile, err := s.requireGitHub(ctx, userID)
	if err != nil {
		return nil, err
	}
	fetcher, err := s.fetchers(profile.GitHubAccessToken)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create GitHub client", err)
	}
	repos, err := fetcher.ListUserRepositories(ctx)
	if err != nil {
		return nil, wrapUpstream(err, "failed to list repositories")
	}

	q = q.normalize()
	filtered := repos[:0:0]
	for _, r := range repos {
		if q.matches(r.Name, r.FullName, r.Description) {
			filtered = append(filtered, r)
		}
	}
	return pageOf(filtered, q), nil
}

// ListProjects lists a user's analyzed repositories
func (s *Service) ListProjects(ctx context.Context, userID string, q ListQuery) (*Page[*domain.RepositoryAnalytics], error) {
	q = q.normalize()
	items, total, err := s.store.ListAnalytics(ctx, userID, q.storageOptions())
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list projects", err)
	}
	return newPage(items, total, q), nil
}

// GetProject returns one of a user's analyzed repositories
func (s *Service) GetProject(ctx context.Context, userID, projectID string) (*domain.RepositoryAnalytics, error) {
	a, err := s.store.GetAnalytics(ctx, userID, projectID)
	if err != nil {
		return nil, wrapStorage(err, "failed to load project")
	}
	return a, nil
}

// ListAssessments lists a user's skill assessments
func (s *Service) ListAssessments(ctx context.Context, userID string, q ListQuery) (*Page[*domain.SkillAssessment], error) {
	q = q.normalize()
	items, total, err := s.store.ListAssessments(ctx, userID, q.storageOptions())
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list skill assessments", err)
	}
	return newPage(items, total, q), nil
}

// LinkGitHub stores the GitHub link of a user
func (s *Service) LinkGitHub(ctx context.Context, userID, login, token string) (*domain.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewBadRequestError("user ID is required")
	}
	if token == "" {
		return nil, apperrors.NewBadRequestError("GitHub access token is required")
	}
	p := &domain.Profile{
		UserID:            userID,
		GitHubLogin:       login,
		GitHubConnected:   true,
		GitHubAccessToken: token,
	}
	if existing, err := s.store.GetProfile(ctx, userID); err == nil {
		p.CreatedAt = existing.CreatedAt
	}
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, apperrors.NewInternalError("failed to save profile", err)
	}
	return p, nil
}

// requireGitHub checks that the user can call GitHub. Failures are terminal.
func (s *Service) requireGitHub(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewPreconditionFailedError("user profile not found")
		}
		return nil, apperrors.NewInternalError("failed to load profile", err)
	}
	if !profile.GitHubConnected {
		return nil, apperrors.NewPreconditionFailedError("GitHub account not connected")
	}
	if profile.GitHubAccessToken == "" {
		return nil, apperrors.NewPreconditionFailedError("GitHub access token missing")
	}
	return profile, nil
}

func (s *Service) fetchAndAggregate(ctx context.Context, profile *domain.Profile, repoFullName string) (*domain.RepositoryAnalytics, error) {
	fetcher, err := s.fetchers(profile.GitHubAccessToken)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create GitHub client", err)
	}
	raw, err := fetcher.FetchRepository(ctx, repoFullName)
	if err != nil {
		return nil, wrapUpstream(err, fmt.Sprintf("failed to fetch %s", repoFullName))
	}

	analytics := s.aggregator.Aggregate(raw)
	analytics.UserID = profile.UserID
	if analytics.RepoFullName == "" {
		analytics.RepoFullName = repoFullName
	}
	return analytics, nil
}

// createAssessment evaluates freshly stored analytics. A failure leaves the
// project without an assessment; EvaluateSkills creates it on demand.
func (s *Service) createAssessment(ctx context.Context, analytics *domain.RepositoryAnalytics) {
	assessment := s.evaluator.Evaluate(analytics)
	assessment.UserID = analytics.UserID
	assessment.ProjectID = analytics.ID
	if err := s.store.CreateAssessment(ctx, assessment); err != nil && apperrors.CodeOf(err) != apperrors.ErrCodeConflict {
		s.logger.Warn("failed to save skill assessment", "project", analytics.ID, "error", err)
	}
}

func (s *Service) observe(operation string, start time.Time, result *AnalyzeResult, err error) {
	outcome := observability.OutcomeCreated
	switch {
	case err != nil && (apperrors.IsPreconditionFailed(err) || apperrors.CodeOf(err) == apperrors.ErrCodeBadRequest):
		outcome = observability.OutcomeRejected
	case err != nil:
		outcome = observability.OutcomeFailed
		s.logger.Error("repository analysis failed", "operation", operation, "error", err)
	case result.AlreadyAnalyzed:
		outcome = observability.OutcomeAlreadyAnalyzed
	case operation == "reanalyze":
		outcome = observability.OutcomeRefreshed
	}
	observability.AnalysesTotal.WithLabelValues(operation, outcome).Inc()
	if err == nil && !result.AlreadyAnalyzed {
		observability.AnalysisDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func alreadyAnalyzed(a *domain.RepositoryAnalytics) *AnalyzeResult {
	return &AnalyzeResult{
		ProjectID:       a.ID,
		ProjectName:     a.RepoName,
		RepoURL:         a.RepoURL,
		AlreadyAnalyzed: true,
	}
}

// wrapUpstream keeps classified fetch errors and wraps anything else. A
// rejected GitHub credential is a precondition failure, not a caller auth error.
func wrapUpstream(err error, message string) error {
	if apperrors.IsUnauthorized(err) {
		return &apperrors.AppError{
			Code:    apperrors.ErrCodePreconditionFailed,
			Message: "GitHub access token was rejected; reconnect GitHub",
			Err:     err,
		}
	}
	if apperrors.CodeOf(err) != apperrors.ErrCodeInternal {
		return err
	}
	return apperrors.NewUpstreamError(message, err)
}

// wrapStorage keeps NOT_FOUND and wraps anything else as internal
func wrapStorage(err error, message string) error {
	if apperrors.IsNotFound(err) {
		return err
	}
	return apperrors.NewInternalError(message, err)
}
