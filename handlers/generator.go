// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"

	"github.com/jmorrow/planline/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// PlanFixture builds a fixed candidate plan from a vision statement.
// It stands in for a real generative backend behind the same contract:
// anything returning a valid models.GenProject can replace it without
// touching validation or persistence.
func PlanFixture(vision string) models.GenProject {
	return models.GenProject{
		Name:        planName(vision),
		Vision:      vision,
		Description: strPtr("Auto-generated demo plan (fixture)."),
		Outcomes: []models.GenOutcome{
			{
				Name:        "Outcome A: Faster response",
				Description: strPtr("Improve support response time."),
				Benefits: []models.GenBenefit{
					{
						Name:        "24/7 coverage",
						Description: strPtr("Round-the-clock help"),
						Deliverables: []models.GenDeliverable{
							{
								Name:        "Chatbot MVP",
								Description: strPtr("Basic flows and FAQs"),
								Tasks: []models.GenTask{
									{Name: "Design intents", EstDays: 3},
									{Name: "Implement flows", EstDays: 5, DependsOnIndex: intPtr(0)},
								},
							},
						},
					},
				},
			},
			{
				Name:        "Outcome B: Lower cost per ticket",
				Description: strPtr("Automate triage and routing."),
				Benefits: []models.GenBenefit{
					{
						Name:        "Automation savings",
						Description: strPtr("Reduce manual handling"),
						Deliverables: []models.GenDeliverable{
							{
								Name:        "Auto-routing",
								Description: strPtr("Integrate with ticketing"),
								Tasks: []models.GenTask{
									{Name: "Baseline metrics", EstDays: 2},
									{Name: "Integrate ticket system", EstDays: 4, DependsOnIndex: intPtr(0)},
								},
							},
						},
					},
				},
			},
		},
		Budget: []models.GenBudgetLine{
			{Item: "LLM API credits", Amount: 500.0, Category: "Opex"},
		},
		Governance: []models.GenGovernanceEvent{
			{Name: "Steering Committee", Cadence: "biweekly", Owner: strPtr("Sponsor")},
		},
		Reporting: []models.GenReportSpec{
			{Name: "Weekly status", Frequency: "weekly", Audience: strPtr("PMO")},
		},
		Risks: []models.GenRisk{
			{Title: "Inaccurate outputs", Probability: 3, Impact: 3, Mitigation: strPtr("Strict schema + validation")},
		},
	}
}

// SeedPlan is the deterministic demo tree persisted by POST /projects/seed.
func SeedPlan() models.GenProject {
	return models.GenProject{
		Name:        "AI Rollout",
		Vision:      "Use AI to streamline support",
		Description: strPtr("Demo seed"),
		Outcomes: []models.GenOutcome{
			{
				Name: "Faster response times",
				Benefits: []models.GenBenefit{
					{
						Name: "24/7 coverage",
						Deliverables: []models.GenDeliverable{
							{
								Name: "Chatbot MVP",
								Tasks: []models.GenTask{
									{Name: "Design intents", EstDays: 3},
									{Name: "Implement flows", EstDays: 5},
								},
							},
						},
					},
					{
						Name: "Reduced wait time",
						Deliverables: []models.GenDeliverable{
							{
								Name: "Queue optimizer",
								Tasks: []models.GenTask{
									{Name: "Baseline metrics", EstDays: 2},
								},
							},
						},
					},
				},
			},
			{
				Name: "Lower cost per ticket",
				Benefits: []models.GenBenefit{
					{
						Name: "Automation savings",
						Deliverables: []models.GenDeliverable{
							{
								Name: "Auto-routing",
								Tasks: []models.GenTask{
									{Name: "Integrate ticket system", EstDays: 4},
								},
							},
						},
					},
				},
			},
		},
		Budget: []models.GenBudgetLine{
			{Item: "LLM API credits", Amount: 500.0, Category: "Opex"},
		},
		Governance: []models.GenGovernanceEvent{
			{Name: "Steering Committee", Cadence: "biweekly", Owner: strPtr("Sponsor")},
		},
		Reporting: []models.GenReportSpec{
			{Name: "Weekly status", Frequency: "weekly", Audience: strPtr("PMO")},
		},
		Risks: []models.GenRisk{
			{Title: "Hallucinations in responses", Probability: 3, Impact: 4, Mitigation: strPtr("Schema + validation")},
		},
	}
}

// planName derives the project name from the vision (first 32 chars).
func planName(vision string) string {
	runes := []rune(vision)
	if len(runes) > 32 {
		runes = runes[:32]
	}
	return string(runes) + " Plan"
}

// Generate builds a candidate plan for the vision, validates it against
// the strict schema, and persists it. Validation failures abort with
// nothing written.
func Generate(db *sql.DB, vision string) (int64, error) {
	gen := PlanFixture(vision)
	if err := gen.Validate(); err != nil {
		return 0, err
	}
	return PersistPlan(db, gen)
}

// PersistPlan writes a validated plan top-down in one transaction,
// using each insert's generated id as the foreign key for its children.
// Within a deliverable all tasks are inserted first; a second pass
// resolves depends_on_index positions into task ids. An out-of-range
// index sets no dependency and raises no error.
func PersistPlan(db *sql.DB, gen models.GenProject) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO project (name, vision, description)
		VALUES (?, ?, ?)
	`, gen.Name, gen.Vision, gen.Description)
	if err != nil {
		return 0, fmt.Errorf("failed to insert project: %w", err)
	}
	projectID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read project id: %w", err)
	}

	for _, o := range gen.Outcomes {
		res, err := tx.Exec(`
			INSERT INTO outcome (project_id, name, description)
			VALUES (?, ?, ?)
		`, projectID, o.Name, o.Description)
		if err != nil {
			return 0, fmt.Errorf("failed to insert outcome: %w", err)
		}
		outcomeID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to read outcome id: %w", err)
		}

		for _, b := range o.Benefits {
			res, err := tx.Exec(`
				INSERT INTO benefit (outcome_id, name, description)
				VALUES (?, ?, ?)
			`, outcomeID, b.Name, b.Description)
			if err != nil {
				return 0, fmt.Errorf("failed to insert benefit: %w", err)
			}
			benefitID, err := res.LastInsertId()
			if err != nil {
				return 0, fmt.Errorf("failed to read benefit id: %w", err)
			}

			for _, d := range b.Deliverables {
				res, err := tx.Exec(`
					INSERT INTO deliverable (benefit_id, name, description)
					VALUES (?, ?, ?)
				`, benefitID, d.Name, d.Description)
				if err != nil {
					return 0, fmt.Errorf("failed to insert deliverable: %w", err)
				}
				deliverableID, err := res.LastInsertId()
				if err != nil {
					return 0, fmt.Errorf("failed to read deliverable id: %w", err)
				}

				// First pass: insert all tasks, collecting ids in order
				taskIDs := make([]int64, 0, len(d.Tasks))
				for _, t := range d.Tasks {
					res, err := tx.Exec(`
						INSERT INTO task (deliverable_id, name, est_days)
						VALUES (?, ?, ?)
					`, deliverableID, t.Name, t.EstDays)
					if err != nil {
						return 0, fmt.Errorf("failed to insert task: %w", err)
					}
					taskID, err := res.LastInsertId()
					if err != nil {
						return 0, fmt.Errorf("failed to read task id: %w", err)
					}
					taskIDs = append(taskIDs, taskID)
				}

				// Second pass: resolve positional dependencies
				for idx, t := range d.Tasks {
					if t.DependsOnIndex == nil {
						continue
					}
					di := *t.DependsOnIndex
					if di < 0 || di >= len(taskIDs) {
						// invalid reference; skip instead of failing hard
						continue
					}
					_, err := tx.Exec(`
						UPDATE task SET depends_on_id = ? WHERE id = ?
					`, taskIDs[di], taskIDs[idx])
					if err != nil {
						return 0, fmt.Errorf("failed to set task dependency: %w", err)
					}
				}
			}
		}
	}

	for _, bl := range gen.Budget {
		category := bl.Category
		if category == "" {
			category = "General"
		}
		_, err := tx.Exec(`
			INSERT INTO budget_line (project_id, item, amount, category)
			VALUES (?, ?, ?, ?)
		`, projectID, bl.Item, bl.Amount, category)
		if err != nil {
			return 0, fmt.Errorf("failed to insert budget line: %w", err)
		}
	}
	for _, ge := range gen.Governance {
		_, err := tx.Exec(`
			INSERT INTO governance_event (project_id, name, cadence, owner)
			VALUES (?, ?, ?, ?)
		`, projectID, ge.Name, ge.Cadence, ge.Owner)
		if err != nil {
			return 0, fmt.Errorf("failed to insert governance event: %w", err)
		}
	}
	for _, rs := range gen.Reporting {
		_, err := tx.Exec(`
			INSERT INTO report_spec (project_id, name, frequency, audience)
			VALUES (?, ?, ?, ?)
		`, projectID, rs.Name, rs.Frequency, rs.Audience)
		if err != nil {
			return 0, fmt.Errorf("failed to insert report spec: %w", err)
		}
	}
	for _, rk := range gen.Risks {
		_, err := tx.Exec(`
			INSERT INTO risk (project_id, title, probability, impact, mitigation)
			VALUES (?, ?, ?, ?, ?)
		`, projectID, rk.Title, rk.Probability, rk.Impact, rk.Mitigation)
		if err != nil {
			return 0, fmt.Errorf("failed to insert risk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit plan: %w", err)
	}
	return projectID, nil
}
