// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmorrow/planline/middleware"
	"github.com/jmorrow/planline/models"
)

// ViewsHandler serves the read-only derived views. Every view
// recomputes from the store on each call; nothing is cached.
type ViewsHandler struct {
	db *sql.DB
}

func NewViewsHandler(db *sql.DB) *ViewsHandler {
	return &ViewsHandler{db: db}
}

// requireProject parses the id path value and 404s when the project
// does not exist.
func (h *ViewsHandler) requireProject(w http.ResponseWriter, r *http.Request) (int64, bool) {
	projectID, ok := parseID(w, r, "id", "project id")
	if !ok {
		return 0, false
	}

	var one int
	err := h.db.QueryRow(`SELECT 1 FROM project WHERE id = ?`, projectID).Scan(&one)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Project not found")
		return 0, false
	}
	if err != nil {
		slog.Error("failed to query project", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return 0, false
	}
	return projectID, true
}

// KPIs handles GET /projects/:id/kpis
func (h *ViewsHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.requireProject(w, r)
	if !ok {
		return
	}

	kpis, err := ComputeKPIs(h.db, projectID)
	if err != nil {
		slog.Error("failed to compute KPIs", "project_id", projectID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, kpis)
}

// ComputeKPIs counts plan entities and activity rows for a project.
func ComputeKPIs(db *sql.DB, projectID int64) (models.KPIResponse, error) {
	kpis := models.KPIResponse{
		// Fixed until generation quality is actually measured
		SchemaPassRate: 1.0,
	}

	counts := []struct {
		dst   *int
		query string
	}{
		{&kpis.Outcomes, `SELECT COUNT(*) FROM outcome WHERE project_id = ?`},
		{&kpis.Benefits, `
			SELECT COUNT(*) FROM benefit b
			JOIN outcome o ON b.outcome_id = o.id
			WHERE o.project_id = ?`},
		{&kpis.Deliverables, `
			SELECT COUNT(*) FROM deliverable d
			JOIN benefit b ON d.benefit_id = b.id
			JOIN outcome o ON b.outcome_id = o.id
			WHERE o.project_id = ?`},
		{&kpis.Tasks, `
			SELECT COUNT(*) FROM task t
			JOIN deliverable d ON t.deliverable_id = d.id
			JOIN benefit b ON d.benefit_id = b.id
			JOIN outcome o ON b.outcome_id = o.id
			WHERE o.project_id = ?`},
		{&kpis.ActivityEvents, `SELECT COUNT(*) FROM activity_log WHERE project_id = ?`},
	}

	for _, c := range counts {
		if err := db.QueryRow(c.query, projectID).Scan(c.dst); err != nil {
			return models.KPIResponse{}, fmt.Errorf("failed to count: %w", err)
		}
	}
	return kpis, nil
}

// BudgetSummary handles GET /projects/:id/budget/summary
func (h *ViewsHandler) BudgetSummary(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.requireProject(w, r)
	if !ok {
		return
	}

	summary, err := ComputeBudgetSummary(h.db, projectID)
	if err != nil {
		slog.Error("failed to compute budget summary", "project_id", projectID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, summary)
}

// ComputeBudgetSummary sums budget amounts overall and per category.
// A blank category groups under "Uncategorised"; a missing amount
// counts as zero.
func ComputeBudgetSummary(db *sql.DB, projectID int64) (models.BudgetSummary, error) {
	summary := models.BudgetSummary{ByCategory: map[string]float64{}}

	rows, err := db.Query(`
		SELECT amount, category FROM budget_line WHERE project_id = ?
	`, projectID)
	if err != nil {
		return summary, fmt.Errorf("failed to query budget lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var amount sql.NullFloat64
		var category sql.NullString
		if err := rows.Scan(&amount, &category); err != nil {
			return summary, fmt.Errorf("failed to scan budget line: %w", err)
		}

		cat := category.String
		if cat == "" {
			cat = "Uncategorised"
		}
		summary.Total += amount.Float64
		summary.ByCategory[cat] += amount.Float64
	}
	return summary, rows.Err()
}

// RiskSummary handles GET /projects/:id/risk/summary
func (h *ViewsHandler) RiskSummary(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.requireProject(w, r)
	if !ok {
		return
	}

	summary, err := ComputeRiskSummary(h.db, projectID)
	if err != nil {
		slog.Error("failed to compute risk summary", "project_id", projectID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, summary)
}

// ComputeRiskSummary buckets risks into a 5x5 probability/impact count
// matrix, clamping both scores into [1,5].
func ComputeRiskSummary(db *sql.DB, projectID int64) (models.RiskSummary, error) {
	var summary models.RiskSummary

	rows, err := db.Query(`
		SELECT probability, impact FROM risk WHERE project_id = ?
	`, projectID)
	if err != nil {
		return summary, fmt.Errorf("failed to query risks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var probability, impact int
		if err := rows.Scan(&probability, &impact); err != nil {
			return summary, fmt.Errorf("failed to scan risk: %w", err)
		}
		summary.Matrix[clampScore(probability)-1][clampScore(impact)-1]++
	}
	return summary, rows.Err()
}

func clampScore(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}

// Backlog handles GET /projects/:id/backlog
func (h *ViewsHandler) Backlog(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.requireProject(w, r)
	if !ok {
		return
	}

	backlog, err := ComputeBacklog(h.db, projectID)
	if err != nil {
		slog.Error("failed to compute backlog", "project_id", projectID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, backlog)
}

// ComputeBacklog groups a project's tasks into status columns. Tasks
// without a task_state row read as "todo".
func ComputeBacklog(db *sql.DB, projectID int64) (models.BacklogResponse, error) {
	backlog := models.BacklogResponse{Columns: map[string][]models.BacklogItem{
		models.StatusTodo:       {},
		models.StatusInProgress: {},
		models.StatusDone:       {},
	}}

	rows, err := db.Query(`
		SELECT t.id, t.name, t.est_days, t.deliverable_id, COALESCE(ts.status, 'todo')
		FROM task t
		JOIN deliverable d ON t.deliverable_id = d.id
		JOIN benefit b ON d.benefit_id = b.id
		JOIN outcome o ON b.outcome_id = o.id
		LEFT JOIN task_state ts ON ts.task_id = t.id
		WHERE o.project_id = ?
		ORDER BY t.id
	`, projectID)
	if err != nil {
		return backlog, fmt.Errorf("failed to query backlog: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.BacklogItem
		if err := rows.Scan(&item.TaskID, &item.Name, &item.EstDays, &item.DeliverableID, &item.Status); err != nil {
			return backlog, fmt.Errorf("failed to scan backlog item: %w", err)
		}
		backlog.Columns[item.Status] = append(backlog.Columns[item.Status], item)
	}
	return backlog, rows.Err()
}
