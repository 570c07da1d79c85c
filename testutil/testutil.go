// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jmorrow/planline/db"
)

// SetupTestDB creates a fresh in-memory database with the full schema.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// One connection: each connection would get its own in-memory database
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// CreateTestProject inserts a bare project and returns its id.
func CreateTestProject(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	return insert(t, db, `
		INSERT INTO project (name, vision, description)
		VALUES (?, 'Test vision', 'A test project')
	`, name)
}

// AddOutcome inserts an outcome under a project and returns its id.
func AddOutcome(t *testing.T, db *sql.DB, projectID int64, name string) int64 {
	t.Helper()
	return insert(t, db, `
		INSERT INTO outcome (project_id, name) VALUES (?, ?)
	`, projectID, name)
}

// AddBenefit inserts a benefit under an outcome and returns its id.
func AddBenefit(t *testing.T, db *sql.DB, outcomeID int64, name string) int64 {
	t.Helper()
	return insert(t, db, `
		INSERT INTO benefit (outcome_id, name) VALUES (?, ?)
	`, outcomeID, name)
}

// AddDeliverable inserts a deliverable under a benefit and returns its id.
func AddDeliverable(t *testing.T, db *sql.DB, benefitID int64, name string) int64 {
	t.Helper()
	return insert(t, db, `
		INSERT INTO deliverable (benefit_id, name) VALUES (?, ?)
	`, benefitID, name)
}

// AddTask inserts a task under a deliverable and returns its id.
func AddTask(t *testing.T, db *sql.DB, deliverableID int64, name string, estDays int) int64 {
	t.Helper()
	return insert(t, db, `
		INSERT INTO task (deliverable_id, name, est_days) VALUES (?, ?, ?)
	`, deliverableID, name, estDays)
}

// AddRisk inserts a risk for a project and returns its id.
func AddRisk(t *testing.T, db *sql.DB, projectID int64, title string, probability, impact int) int64 {
	t.Helper()
	return insert(t, db, `
		INSERT INTO risk (project_id, title, probability, impact) VALUES (?, ?, ?, ?)
	`, projectID, title, probability, impact)
}

// AddBudgetLine inserts a budget line for a project and returns its id.
func AddBudgetLine(t *testing.T, db *sql.DB, projectID int64, item string, amount float64, category string) int64 {
	t.Helper()
	return insert(t, db, `
		INSERT INTO budget_line (project_id, item, amount, category) VALUES (?, ?, ?, ?)
	`, projectID, item, amount, category)
}

// MarkTaskDone records a completed task state at the given time.
func MarkTaskDone(t *testing.T, db *sql.DB, taskID int64, at time.Time) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO task_state (task_id, status, done, updated_at)
		VALUES (?, 'done', 1, ?)
		ON CONFLICT(task_id) DO UPDATE SET status = 'done', done = 1, updated_at = excluded.updated_at
	`, taskID, at)
	if err != nil {
		t.Fatalf("Failed to mark task done: %v", err)
	}
}

func insert(t *testing.T, db *sql.DB, query string, args ...any) int64 {
	t.Helper()
	res, err := db.Exec(query, args...)
	if err != nil {
		t.Fatalf("Failed to insert row: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read inserted id: %v", err)
	}
	return id
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
