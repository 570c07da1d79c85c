// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "fmt"

// Gen* types describe a candidate plan produced by a generator backend.
// This is the strict shape any generator (fixture or real) must return;
// Validate rejects anything malformed before persistence starts.

type GenTask struct {
	Name string `json:"name"`
	// Estimated duration in days, must be >= 1
	EstDays int `json:"est_days"`
	// Index of another task in the SAME deliverable's task list
	DependsOnIndex *int `json:"depends_on_index"`
}

type GenDeliverable struct {
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Tasks       []GenTask `json:"tasks"`
}

type GenBenefit struct {
	Name         string           `json:"name"`
	Description  *string          `json:"description"`
	Deliverables []GenDeliverable `json:"deliverables"`
}

type GenOutcome struct {
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	Benefits    []GenBenefit `json:"benefits"`
}

type GenBudgetLine struct {
	Item     string  `json:"item"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
}

type GenGovernanceEvent struct {
	Name    string  `json:"name"`
	Cadence string  `json:"cadence"`
	Owner   *string `json:"owner"`
}

type GenReportSpec struct {
	Name      string  `json:"name"`
	Frequency string  `json:"frequency"`
	Audience  *string `json:"audience"`
}

type GenRisk struct {
	Title       string  `json:"title"`
	Probability int     `json:"probability"`
	Impact      int     `json:"impact"`
	Mitigation  *string `json:"mitigation"`
}

type GenProject struct {
	Name        string               `json:"name"`
	Vision      string               `json:"vision"`
	Description *string              `json:"description"`
	Outcomes    []GenOutcome         `json:"outcomes"`
	Budget      []GenBudgetLine      `json:"budget"`
	Governance  []GenGovernanceEvent `json:"governance"`
	Reporting   []GenReportSpec      `json:"reporting"`
	Risks       []GenRisk            `json:"risks"`
}

// Validate enforces the strict candidate-plan schema: non-empty names at
// every level, at least one outcome, task durations >= 1 day, risk scores
// in [1,5] and non-negative budget amounts.
func (g *GenProject) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("project name is required")
	}
	if len(g.Outcomes) == 0 {
		return fmt.Errorf("at least one outcome is required")
	}
	for i, o := range g.Outcomes {
		if o.Name == "" {
			return fmt.Errorf("outcome %d: name is required", i)
		}
		for j, b := range o.Benefits {
			if b.Name == "" {
				return fmt.Errorf("outcome %d benefit %d: name is required", i, j)
			}
			for k, d := range b.Deliverables {
				if d.Name == "" {
					return fmt.Errorf("outcome %d benefit %d deliverable %d: name is required", i, j, k)
				}
				for l, t := range d.Tasks {
					if t.Name == "" {
						return fmt.Errorf("deliverable %q task %d: name is required", d.Name, l)
					}
					if t.EstDays < 1 {
						return fmt.Errorf("task %q: est_days must be >= 1", t.Name)
					}
				}
			}
		}
	}
	for _, bl := range g.Budget {
		if bl.Item == "" {
			return fmt.Errorf("budget line: item is required")
		}
		if bl.Amount < 0 {
			return fmt.Errorf("budget line %q: amount must be >= 0", bl.Item)
		}
	}
	for _, ge := range g.Governance {
		if ge.Name == "" {
			return fmt.Errorf("governance event: name is required")
		}
	}
	for _, rs := range g.Reporting {
		if rs.Name == "" {
			return fmt.Errorf("report spec: name is required")
		}
	}
	for _, rk := range g.Risks {
		if rk.Title == "" {
			return fmt.Errorf("risk: title is required")
		}
		if rk.Probability < 1 || rk.Probability > 5 {
			return fmt.Errorf("risk %q: probability must be in [1,5]", rk.Title)
		}
		if rk.Impact < 1 || rk.Impact > 5 {
			return fmt.Errorf("risk %q: impact must be in [1,5]", rk.Title)
		}
	}
	return nil
}
