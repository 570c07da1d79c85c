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

type ProjectHandler struct {
	db *sql.DB
}

func NewProjectHandler(db *sql.DB) *ProjectHandler {
	return &ProjectHandler{db: db}
}

// Generate handles POST /projects/generate
func (h *ProjectHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	gen := PlanFixture(req.Vision)
	if err := gen.Validate(); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	projectID, err := PersistPlan(h.db, gen)
	if err != nil {
		slog.Error("failed to persist generated plan", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to generate project")
		return
	}

	slog.Info("project generated", "project_id", projectID)

	middleware.JSONResponse(w, http.StatusCreated, models.GenerateResponse{ProjectID: projectID})
}

// Seed handles POST /projects/seed
func (h *ProjectHandler) Seed(w http.ResponseWriter, r *http.Request) {
	projectID, err := PersistPlan(h.db, SeedPlan())
	if err != nil {
		slog.Error("failed to persist seed plan", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to seed project")
		return
	}

	slog.Info("project seeded", "project_id", projectID)

	middleware.JSONResponse(w, http.StatusCreated, models.GenerateResponse{ProjectID: projectID})
}

// GetTree handles GET /projects/:id
func (h *ProjectHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseID(w, r, "id", "project id")
	if !ok {
		return
	}

	tree, err := LoadProjectTree(h.db, projectID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Project not found")
		return
	}
	if err != nil {
		slog.Error("failed to load project tree", "project_id", projectID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, tree)
}

// LoadProjectTree reads the full nested plan for one project in stored
// (id) order. Returns sql.ErrNoRows when the project does not exist.
func LoadProjectTree(db *sql.DB, projectID int64) (*models.ProjectTree, error) {
	tree := &models.ProjectTree{
		Outcomes:   []models.OutcomeTree{},
		Budget:     []models.BudgetLine{},
		Governance: []models.GovernanceEvent{},
		Reporting:  []models.ReportSpec{},
		Risks:      []models.Risk{},
	}

	err := db.QueryRow(`
		SELECT id, name, vision, description FROM project WHERE id = ?
	`, projectID).Scan(&tree.ID, &tree.Name, &tree.Vision, &tree.Description)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to query project: %w", err)
	}

	// Each level is read fully before descending so no two result sets
	// are open at once.
	outcomes, err := loadOutcomes(db, projectID)
	if err != nil {
		return nil, err
	}
	for i := range outcomes {
		benefits, err := loadBenefits(db, outcomes[i].ID)
		if err != nil {
			return nil, err
		}
		for j := range benefits {
			deliverables, err := loadDeliverables(db, benefits[j].ID)
			if err != nil {
				return nil, err
			}
			for k := range deliverables {
				tasks, err := loadTasks(db, deliverables[k].ID)
				if err != nil {
					return nil, err
				}
				deliverables[k].Tasks = tasks
			}
			benefits[j].Deliverables = deliverables
		}
		outcomes[i].Benefits = benefits
	}
	tree.Outcomes = outcomes

	if err := loadFlatLists(db, projectID, tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func loadOutcomes(db *sql.DB, projectID int64) ([]models.OutcomeTree, error) {
	rows, err := db.Query(`
		SELECT id, name, description FROM outcome WHERE project_id = ? ORDER BY id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	out := []models.OutcomeTree{}
	for rows.Next() {
		o := models.OutcomeTree{Benefits: []models.BenefitTree{}}
		if err := rows.Scan(&o.ID, &o.Name, &o.Description); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func loadBenefits(db *sql.DB, outcomeID int64) ([]models.BenefitTree, error) {
	rows, err := db.Query(`
		SELECT id, name, description FROM benefit WHERE outcome_id = ? ORDER BY id
	`, outcomeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query benefits: %w", err)
	}
	defer rows.Close()

	out := []models.BenefitTree{}
	for rows.Next() {
		b := models.BenefitTree{Deliverables: []models.DeliverableTree{}}
		if err := rows.Scan(&b.ID, &b.Name, &b.Description); err != nil {
			return nil, fmt.Errorf("failed to scan benefit: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func loadDeliverables(db *sql.DB, benefitID int64) ([]models.DeliverableTree, error) {
	rows, err := db.Query(`
		SELECT id, name, description FROM deliverable WHERE benefit_id = ? ORDER BY id
	`, benefitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliverables: %w", err)
	}
	defer rows.Close()

	out := []models.DeliverableTree{}
	for rows.Next() {
		d := models.DeliverableTree{Tasks: []models.TaskNode{}}
		if err := rows.Scan(&d.ID, &d.Name, &d.Description); err != nil {
			return nil, fmt.Errorf("failed to scan deliverable: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func loadTasks(db *sql.DB, deliverableID int64) ([]models.TaskNode, error) {
	rows, err := db.Query(`
		SELECT id, name, est_days, depends_on_id FROM task WHERE deliverable_id = ? ORDER BY id
	`, deliverableID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	out := []models.TaskNode{}
	for rows.Next() {
		var t models.TaskNode
		if err := rows.Scan(&t.ID, &t.Name, &t.EstDays, &t.DependsOnID); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func loadFlatLists(db *sql.DB, projectID int64, tree *models.ProjectTree) error {
	rows, err := db.Query(`
		SELECT id, item, amount, category FROM budget_line WHERE project_id = ? ORDER BY id
	`, projectID)
	if err != nil {
		return fmt.Errorf("failed to query budget lines: %w", err)
	}
	for rows.Next() {
		var bl models.BudgetLine
		if err := rows.Scan(&bl.ID, &bl.Item, &bl.Amount, &bl.Category); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan budget line: %w", err)
		}
		tree.Budget = append(tree.Budget, bl)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = db.Query(`
		SELECT id, name, cadence, owner FROM governance_event WHERE project_id = ? ORDER BY id
	`, projectID)
	if err != nil {
		return fmt.Errorf("failed to query governance events: %w", err)
	}
	for rows.Next() {
		var ge models.GovernanceEvent
		if err := rows.Scan(&ge.ID, &ge.Name, &ge.Cadence, &ge.Owner); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan governance event: %w", err)
		}
		tree.Governance = append(tree.Governance, ge)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = db.Query(`
		SELECT id, name, frequency, audience FROM report_spec WHERE project_id = ? ORDER BY id
	`, projectID)
	if err != nil {
		return fmt.Errorf("failed to query report specs: %w", err)
	}
	for rows.Next() {
		var rs models.ReportSpec
		if err := rows.Scan(&rs.ID, &rs.Name, &rs.Frequency, &rs.Audience); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan report spec: %w", err)
		}
		tree.Reporting = append(tree.Reporting, rs)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = db.Query(`
		SELECT id, title, probability, impact, mitigation FROM risk WHERE project_id = ? ORDER BY id
	`, projectID)
	if err != nil {
		return fmt.Errorf("failed to query risks: %w", err)
	}
	for rows.Next() {
		var rk models.Risk
		if err := rows.Scan(&rk.ID, &rk.Title, &rk.Probability, &rk.Impact, &rk.Mitigation); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan risk: %w", err)
		}
		tree.Risks = append(tree.Risks, rk)
	}
	rows.Close()
	return rows.Err()
}
