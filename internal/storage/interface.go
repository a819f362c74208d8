package storage

import (
	"context"

	"github.com/kurihiro0119/github-skill-analytics/internal/domain"
)

// ListOptions filters and pages a listing. Search is a case-insensitive substring match.
type ListOptions struct {
	Search string
	Limit  int
	Offset int
}

// Storage is the abstract interface for the persistence layer
type Storage interface {
	// Profile operations
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	SaveProfile(ctx context.Context, profile *domain.Profile) error

	// Analytics ("project") operations. Lookups that find nothing return a NOT_FOUND AppError.
	FindAnalytics(ctx context.Context, userID, repoFullName string) (*domain.RepositoryAnalytics, error)
	GetAnalytics(ctx context.Context, userID, id string) (*domain.RepositoryAnalytics, error)

	// InsertAnalyticsIfAbsent inserts a unless a record for (UserID, RepoFullName)
	// exists. Either way a.ID and a.CreatedAt describe the stored record afterwards.
	InsertAnalyticsIfAbsent(ctx context.Context, a *domain.RepositoryAnalytics) (created bool, err error)

	// UpsertAnalytics replaces the record for (UserID, RepoFullName), keeping its ID
	UpsertAnalytics(ctx context.Context, a *domain.RepositoryAnalytics) error

	ListAnalytics(ctx context.Context, userID string, opts ListOptions) ([]*domain.RepositoryAnalytics, int, error)

	// Skill assessment operations. At most one assessment exists per project;
	// creating a second one returns a CONFLICT AppError.
	CreateAssessment(ctx context.Context, s *domain.SkillAssessment) error
	GetAssessmentByProject(ctx context.Context, userID, projectID string) (*domain.SkillAssessment, error)
	DeleteAssessmentByProject(ctx context.Context, userID, projectID string) error
	ListAssessments(ctx context.Context, userID string, opts ListOptions) ([]*domain.SkillAssessment, int, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}
