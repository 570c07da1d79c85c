// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"
)

// Open opens (creating if absent) the sqlite database at path with
// foreign keys enforced and a busy timeout suitable for a single server
// process.
func Open(path string) (*sql.DB, error) {
	dsn := "file:" + url.PathEscape(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Plan hierarchy: project -> outcome -> benefit -> deliverable -> task
CREATE TABLE IF NOT EXISTS project (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    vision TEXT NOT NULL,
    description TEXT
);

CREATE TABLE IF NOT EXISTS outcome (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES project(id),
    name TEXT NOT NULL,
    description TEXT
);

CREATE INDEX IF NOT EXISTS idx_outcome_project_id ON outcome(project_id);

CREATE TABLE IF NOT EXISTS benefit (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    outcome_id INTEGER NOT NULL REFERENCES outcome(id),
    name TEXT NOT NULL,
    description TEXT
);

CREATE INDEX IF NOT EXISTS idx_benefit_outcome_id ON benefit(outcome_id);

CREATE TABLE IF NOT EXISTS deliverable (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    benefit_id INTEGER NOT NULL REFERENCES benefit(id),
    name TEXT NOT NULL,
    description TEXT
);

CREATE INDEX IF NOT EXISTS idx_deliverable_benefit_id ON deliverable(benefit_id);

-- depends_on_id is a same-deliverable sibling reference, not ownership
CREATE TABLE IF NOT EXISTS task (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    deliverable_id INTEGER NOT NULL REFERENCES deliverable(id),
    name TEXT NOT NULL,
    est_days INTEGER NOT NULL DEFAULT 1,
    depends_on_id INTEGER REFERENCES task(id)
);

CREATE INDEX IF NOT EXISTS idx_task_deliverable_id ON task(deliverable_id);

-- Flat per-project collections
CREATE TABLE IF NOT EXISTS budget_line (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES project(id),
    item TEXT NOT NULL,
    amount REAL NOT NULL DEFAULT 0,
    category TEXT NOT NULL DEFAULT 'General'
);

CREATE INDEX IF NOT EXISTS idx_budget_line_project_id ON budget_line(project_id);

CREATE TABLE IF NOT EXISTS governance_event (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES project(id),
    name TEXT NOT NULL,
    cadence TEXT NOT NULL,
    owner TEXT
);

CREATE INDEX IF NOT EXISTS idx_governance_event_project_id ON governance_event(project_id);

CREATE TABLE IF NOT EXISTS report_spec (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES project(id),
    name TEXT NOT NULL,
    frequency TEXT NOT NULL,
    audience TEXT
);

CREATE INDEX IF NOT EXISTS idx_report_spec_project_id ON report_spec(project_id);

CREATE TABLE IF NOT EXISTS risk (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES project(id),
    title TEXT NOT NULL,
    probability INTEGER NOT NULL DEFAULT 2,
    impact INTEGER NOT NULL DEFAULT 2,
    mitigation TEXT
);

CREATE INDEX IF NOT EXISTS idx_risk_project_id ON risk(project_id);

-- One logical state per task, created lazily on first mutation.
-- Absence implies {status: 'todo', done: false}.
CREATE TABLE IF NOT EXISTS task_state (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id INTEGER NOT NULL UNIQUE REFERENCES task(id),
    status TEXT NOT NULL DEFAULT 'todo' CHECK (status IN ('todo', 'inprogress', 'done')),
    done INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL
);

-- Append-only audit trail; rows are never updated or deleted
CREATE TABLE IF NOT EXISTS activity_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL,
    entity TEXT NOT NULL,
    entity_id INTEGER NOT NULL,
    field TEXT NOT NULL,
    old_value TEXT,
    new_value TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_log_project_id ON activity_log(project_id);
`
