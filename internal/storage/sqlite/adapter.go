package sqlite

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kurihiro0119/github-skill-analytics/internal/storage"
	"github.com/kurihiro0119/github-skill-analytics/internal/storage/sqlstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id TEXT PRIMARY KEY,
	github_login TEXT NOT NULL DEFAULT '',
	github_connected INTEGER NOT NULL DEFAULT 0,
	github_access_token TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	repo_full_name TEXT NOT NULL,
	repo_name TEXT NOT NULL,
	repo_url TEXT NOT NULL,
	health_index INTEGER NOT NULL,
	maturity_level INTEGER NOT NULL,
	data TEXT NOT NULL,
	analyzed_at TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (user_id, repo_full_name)
);

CREATE INDEX IF NOT EXISTS idx_projects_user_updated ON projects(user_id, updated_at);

CREATE TABLE IF NOT EXISTS skill_assessments (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	project_id TEXT NOT NULL UNIQUE REFERENCES projects(id) ON DELETE CASCADE,
	project_name TEXT NOT NULL,
	overall_score REAL NOT NULL,
	data TEXT NOT NULL,
	evaluated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_skill_assessments_user ON skill_assessments(user_id, evaluated_at);
`

// Dialect is the SQLite flavour of the shared SQL store
var Dialect = sqlstore.Dialect{
	Name:   "sqlite",
	Schema: schema,
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (storage.Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	s := sqlstore.New(db, Dialect)
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}
