// Package sqlstore implements storage.Storage on database/sql. The SQLite and
// PostgreSQL adapters differ only in their Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/github-skill-analytics/internal/domain"
	apperrors "github.com/kurihiro0119/github-skill-analytics/internal/errors"
	"github.com/kurihiro0119/github-skill-analytics/internal/storage"
)

// Dialect captures what differs between database engines
type Dialect struct {
	Name string
	// Schema is executed by Migrate; it must be idempotent
	Schema string
	// NumberedPlaceholders rewrites ? to $1, $2, ...
	NumberedPlaceholders bool
}

// Store implements storage.Storage
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ storage.Storage = (*Store)(nil)

// New wraps an open database
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// DB returns the underlying database handle
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate runs database migrations
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Schema); err != nil {
		return fmt.Errorf("failed to migrate %s schema: %w", s.dialect.Name, err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders for dialects that number them
func (s *Store) rebind(query string) string {
	if !s.dialect.NumberedPlaceholders {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

// GetProfile returns the GitHub link of a user
func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := s.queryRow(ctx, `
		SELECT user_id, github_login, github_connected, github_access_token, created_at, updated_at
		FROM profiles WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.GitHubLogin, &p.GitHubConnected, &p.GitHubAccessToken, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("profile")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// SaveProfile creates or replaces a profile
func (s *Store) SaveProfile(ctx context.Context, p *domain.Profile) error {
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.exec(ctx, `
		INSERT INTO profiles (user_id, github_login, github_connected, github_access_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			github_login = excluded.github_login,
			github_connected = excluded.github_connected,
			github_access_token = excluded.github_access_token,
			updated_at = excluded.updated_at
	`, p.UserID, p.GitHubLogin, p.GitHubConnected, p.GitHubAccessToken, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

const analyticsColumns = `id, user_id, repo_full_name, data, created_at, updated_at`

// FindAnalytics returns the record of a user's repository
func (s *Store) FindAnalytics(ctx context.Context, userID, repoFullName string) (*domain.RepositoryAnalytics, error) {
	row := s.queryRow(ctx, `SELECT `+analyticsColumns+` FROM projects WHERE user_id = ? AND repo_full_name = ?`, userID, repoFullName)
	return scanAnalytics(row)
}

// GetAnalytics returns a project by ID if it belongs to the user
func (s *Store) GetAnalytics(ctx context.Context, userID, id string) (*domain.RepositoryAnalytics, error) {
	row := s.queryRow(ctx, `SELECT `+analyticsColumns+` FROM projects WHERE user_id = ? AND id = ?`, userID, id)
	return scanAnalytics(row)
}

// InsertAnalyticsIfAbsent inserts a unless the user already has a record for the repository
func (s *Store) InsertAnalyticsIfAbsent(ctx context.Context, a *domain.RepositoryAnalytics) (bool, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now

	data, err := json.Marshal(a)
	if err != nil {
		return false, fmt.Errorf("failed to encode analytics: %w", err)
	}

	res, err := s.exec(ctx, `
		INSERT INTO projects (id, user_id, repo_full_name, repo_name, repo_url, health_index, maturity_level, data, analyzed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, repo_full_name) DO NOTHING
	`, a.ID, a.UserID, a.RepoFullName, a.RepoName, a.RepoURL, a.HealthIndex, a.MaturityLevel, string(data), a.AnalyzedAt.UTC(), now, now)
	if err != nil {
		return false, fmt.Errorf("failed to insert analytics: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert analytics: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	existing, err := s.FindAnalytics(ctx, a.UserID, a.RepoFullName)
	if err != nil {
		return false, err
	}
	a.ID = existing.ID
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = existing.UpdatedAt
	return false, nil
}

// UpsertAnalytics replaces the record for the user's repository, keeping its ID
func (s *Store) UpsertAnalytics(ctx context.Context, a *domain.RepositoryAnalytics) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := s.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode analytics: %w", err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO projects (id, user_id, repo_full_name, repo_name, repo_url, health_index, maturity_level, data, analyzed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, repo_full_name) DO UPDATE SET
			repo_name = excluded.repo_name,
			repo_url = excluded.repo_url,
			health_index = excluded.health_index,
			maturity_level = excluded.maturity_level,
			data = excluded.data,
			analyzed_at = excluded.analyzed_at,
			updated_at = excluded.updated_at
	`, a.ID, a.UserID, a.RepoFullName, a.RepoName, a.RepoURL, a.HealthIndex, a.MaturityLevel, string(data), a.AnalyzedAt.UTC(), a.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("failed to upsert analytics: %w", err)
	}

	stored, err := s.FindAnalytics(ctx, a.UserID, a.RepoFullName)
	if err != nil {
		return err
	}
	a.ID = stored.ID
	a.CreatedAt = stored.CreatedAt
	return nil
}

// ListAnalytics lists a user's projects, most recently updated first
func (s *Store) ListAnalytics(ctx context.Context, userID string, opts storage.ListOptions) ([]*domain.RepositoryAnalytics, int, error) {
	where, args := listFilter("repo_full_name", userID, opts.Search)

	var total int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM projects `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	query, args := paginate(`SELECT `+analyticsColumns+` FROM projects `+where+` ORDER BY updated_at DESC, id`, args, opts)
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []*domain.RepositoryAnalytics{}
	for rows.Next() {
		a, err := scanAnalytics(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, total, nil
}

const assessmentColumns = `id, user_id, project_id, data, evaluated_at`

// CreateAssessment stores an assessment; a project holds at most one
func (s *Store) CreateAssessment(ctx context.Context, a *domain.SkillAssessment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.EvaluatedAt.IsZero() {
		a.EvaluatedAt = s.now()
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode assessment: %w", err)
	}

	res, err := s.exec(ctx, `
		INSERT INTO skill_assessments (id, user_id, project_id, project_name, overall_score, data, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id) DO NOTHING
	`, a.ID, a.UserID, a.ProjectID, a.ProjectName, a.OverallScore, string(data), a.EvaluatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	if affected == 0 {
		return apperrors.NewConflictError("project already has a skill assessment")
	}
	return nil
}

// GetAssessmentByProject returns the assessment of a user's project
func (s *Store) GetAssessmentByProject(ctx context.Context, userID, projectID string) (*domain.SkillAssessment, error) {
	row := s.queryRow(ctx, `SELECT `+assessmentColumns+` FROM skill_assessments WHERE user_id = ? AND project_id = ?`, userID, projectID)
	return scanAssessment(row)
}

// DeleteAssessmentByProject removes the assessment of a user's project, if any
func (s *Store) DeleteAssessmentByProject(ctx context.Context, userID, projectID string) error {
	if _, err := s.exec(ctx, `DELETE FROM skill_assessments WHERE user_id = ? AND project_id = ?`, userID, projectID); err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}
	return nil
}

// ListAssessments lists a user's assessments, most recent first
func (s *Store) ListAssessments(ctx context.Context, userID string, opts storage.ListOptions) ([]*domain.SkillAssessment, int, error) {
	where, args := listFilter("project_name", userID, opts.Search)

	var total int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM skill_assessments `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count assessments: %w", err)
	}

	query, args := paginate(`SELECT `+assessmentColumns+` FROM skill_assessments `+where+` ORDER BY evaluated_at DESC, id`, args, opts)
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	assessments := []*domain.SkillAssessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, 0, err
		}
		assessments = append(assessments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list assessments: %w", err)
	}
	return assessments, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalytics(row scanner) (*domain.RepositoryAnalytics, error) {
	var (
		id, userID, repo, data string
		createdAt, updatedAt   time.Time
	)
	err := row.Scan(&id, &userID, &repo, &data, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("project")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}

	a := &domain.RepositoryAnalytics{}
	if err := json.Unmarshal([]byte(data), a); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", id, err)
	}
	a.ID = id
	a.UserID = userID
	a.RepoFullName = repo
	a.CreatedAt = createdAt
	a.UpdatedAt = updatedAt
	return a, nil
}

func scanAssessment(row scanner) (*domain.SkillAssessment, error) {
	var (
		id, userID, projectID, data string
		evaluatedAt                 time.Time
	)
	err := row.Scan(&id, &userID, &projectID, &data, &evaluatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("skill assessment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read assessment: %w", err)
	}

	a := &domain.SkillAssessment{}
	if err := json.Unmarshal([]byte(data), a); err != nil {
		return nil, fmt.Errorf("failed to decode assessment %s: %w", id, err)
	}
	a.ID = id
	a.UserID = userID
	a.ProjectID = projectID
	a.EvaluatedAt = evaluatedAt
	return a, nil
}

func listFilter(searchColumn, userID, search string) (string, []any) {
	where := `WHERE user_id = ?`
	args := []any{userID}
	if search = strings.TrimSpace(search); search != "" {
		where += ` AND LOWER(` + searchColumn + `) LIKE ?`
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	return where, args
}

func paginate(query string, args []any, opts storage.ListOptions) (string, []any) {
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, max(opts.Offset, 0))
	}
	return query, args
}
