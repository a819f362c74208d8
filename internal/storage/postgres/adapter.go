package postgres

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/kurihiro0119/github-skill-analytics/internal/storage"
	"github.com/kurihiro0119/github-skill-analytics/internal/storage/sqlstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id TEXT PRIMARY KEY,
	github_login TEXT NOT NULL DEFAULT '',
	github_connected BOOLEAN NOT NULL DEFAULT FALSE,
	github_access_token TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	repo_full_name TEXT NOT NULL,
	repo_name TEXT NOT NULL,
	repo_url TEXT NOT NULL,
	health_index INTEGER NOT NULL,
	maturity_level INTEGER NOT NULL,
	data JSONB NOT NULL,
	analyzed_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (user_id, repo_full_name)
);

CREATE INDEX IF NOT EXISTS idx_projects_user_updated ON projects(user_id, updated_at);

CREATE TABLE IF NOT EXISTS skill_assessments (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	project_id TEXT NOT NULL UNIQUE REFERENCES projects(id) ON DELETE CASCADE,
	project_name TEXT NOT NULL,
	overall_score DOUBLE PRECISION NOT NULL,
	data JSONB NOT NULL,
	evaluated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_skill_assessments_user ON skill_assessments(user_id, evaluated_at);
`

// Dialect is the PostgreSQL flavour of the shared SQL store
var Dialect = sqlstore.Dialect{
	Name:                 "postgres",
	Schema:               schema,
	NumberedPlaceholders: true,
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(connStr string) (storage.Storage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := sqlstore.New(db, Dialect)
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}
