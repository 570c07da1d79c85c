// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"strings"
	"testing"

	"github.com/jmorrow/planline/models"
	"github.com/jmorrow/planline/testutil"
)

func TestGenProjectValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *models.GenProject)
		wantErr string
	}{
		{
			name:   "valid fixture",
			mutate: func(g *models.GenProject) {},
		},
		{
			name:    "no outcomes",
			mutate:  func(g *models.GenProject) { g.Outcomes = nil },
			wantErr: "at least one outcome",
		},
		{
			name:    "empty outcome name",
			mutate:  func(g *models.GenProject) { g.Outcomes[0].Name = "" },
			wantErr: "name is required",
		},
		{
			name: "empty task name",
			mutate: func(g *models.GenProject) {
				g.Outcomes[0].Benefits[0].Deliverables[0].Tasks[0].Name = ""
			},
			wantErr: "name is required",
		},
		{
			name: "zero est_days",
			mutate: func(g *models.GenProject) {
				g.Outcomes[0].Benefits[0].Deliverables[0].Tasks[0].EstDays = 0
			},
			wantErr: "est_days must be >= 1",
		},
		{
			name:    "risk probability out of range",
			mutate:  func(g *models.GenProject) { g.Risks[0].Probability = 6 },
			wantErr: "probability must be in [1,5]",
		},
		{
			name:    "risk impact out of range",
			mutate:  func(g *models.GenProject) { g.Risks[0].Impact = 0 },
			wantErr: "impact must be in [1,5]",
		},
		{
			name:    "negative budget amount",
			mutate:  func(g *models.GenProject) { g.Budget[0].Amount = -1 },
			wantErr: "amount must be >= 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := PlanFixture("Test vision")
			tt.mutate(&gen)

			err := gen.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestGeneratePersistsTree(t *testing.T) {
	db := testutil.SetupTestDB(t)

	projectID, err := Generate(db, "Test vision")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	tree, err := LoadProjectTree(db, projectID)
	if err != nil {
		t.Fatalf("LoadProjectTree failed: %v", err)
	}

	if tree.Name != "Test vision Plan" {
		t.Errorf("Expected name 'Test vision Plan', got %q", tree.Name)
	}
	if tree.Vision != "Test vision" {
		t.Errorf("Expected vision round-trip, got %q", tree.Vision)
	}
	if len(tree.Outcomes) != 2 {
		t.Fatalf("Expected 2 outcomes, got %d", len(tree.Outcomes))
	}

	tasks := tree.Outcomes[0].Benefits[0].Deliverables[0].Tasks
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks in first deliverable, got %d", len(tasks))
	}
	if tasks[0].DependsOnID != nil {
		t.Error("Expected first task to have no dependency")
	}
	if tasks[1].DependsOnID == nil || *tasks[1].DependsOnID != tasks[0].ID {
		t.Errorf("Expected second task to depend on task %d, got %v", tasks[0].ID, tasks[1].DependsOnID)
	}

	if len(tree.Budget) != 1 || len(tree.Governance) != 1 || len(tree.Reporting) != 1 || len(tree.Risks) != 1 {
		t.Errorf("Expected one row in each flat list, got budget=%d governance=%d reporting=%d risks=%d",
			len(tree.Budget), len(tree.Governance), len(tree.Reporting), len(tree.Risks))
	}
}

func TestPersistPlanSkipsOutOfRangeDependency(t *testing.T) {
	db := testutil.SetupTestDB(t)

	gen := models.GenProject{
		Name:   "Tiny",
		Vision: "v",
		Outcomes: []models.GenOutcome{{
			Name: "O",
			Benefits: []models.GenBenefit{{
				Name: "B",
				Deliverables: []models.GenDeliverable{{
					Name: "D",
					Tasks: []models.GenTask{
						{Name: "T1", EstDays: 1, DependsOnIndex: intPtr(5)},
						{Name: "T2", EstDays: 2, DependsOnIndex: intPtr(-1)},
					},
				}},
			}},
		}},
	}

	projectID, err := PersistPlan(db, gen)
	if err != nil {
		t.Fatalf("PersistPlan failed: %v", err)
	}

	tree, err := LoadProjectTree(db, projectID)
	if err != nil {
		t.Fatalf("LoadProjectTree failed: %v", err)
	}

	for _, task := range tree.Outcomes[0].Benefits[0].Deliverables[0].Tasks {
		if task.DependsOnID != nil {
			t.Errorf("Task %q: expected out-of-range dependency to be skipped", task.Name)
		}
	}
}

func TestSeedPlanPersists(t *testing.T) {
	db := testutil.SetupTestDB(t)

	seed := SeedPlan()
	if err := seed.Validate(); err != nil {
		t.Fatalf("Seed plan should be valid: %v", err)
	}

	projectID, err := PersistPlan(db, seed)
	if err != nil {
		t.Fatalf("PersistPlan failed: %v", err)
	}

	tree, err := LoadProjectTree(db, projectID)
	if err != nil {
		t.Fatalf("LoadProjectTree failed: %v", err)
	}

	if tree.Name != "AI Rollout" {
		t.Errorf("Expected seed project 'AI Rollout', got %q", tree.Name)
	}

	kpis, err := ComputeKPIs(db, projectID)
	if err != nil {
		t.Fatalf("ComputeKPIs failed: %v", err)
	}
	if kpis.Outcomes != 2 || kpis.Benefits != 3 || kpis.Deliverables != 3 || kpis.Tasks != 4 {
		t.Errorf("Unexpected seed counts: %+v", kpis)
	}
}

func TestPlanName(t *testing.T) {
	if got := planName("Short"); got != "Short Plan" {
		t.Errorf("Expected 'Short Plan', got %q", got)
	}

	long := strings.Repeat("x", 40)
	got := planName(long)
	if got != strings.Repeat("x", 32)+" Plan" {
		t.Errorf("Expected 32-char truncation, got %q", got)
	}
}
