// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/jmorrow/planline/models"
	"github.com/jmorrow/planline/testutil"
)

// seedHierarchy builds project -> outcome -> benefit -> deliverable -> task.
func seedHierarchy(t *testing.T, db *sql.DB) (projectID, outcomeID, benefitID, deliverableID, taskID int64) {
	t.Helper()
	projectID = testutil.CreateTestProject(t, db, "Prop Test")
	outcomeID = testutil.AddOutcome(t, db, projectID, "Faster response")
	benefitID = testutil.AddBenefit(t, db, outcomeID, "24/7 coverage")
	deliverableID = testutil.AddDeliverable(t, db, benefitID, "Chatbot MVP")
	taskID = testutil.AddTask(t, db, deliverableID, "Design intents", 3)
	return
}

func TestPreviewOutcomeRename(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, outcomeID, _, _, _ := seedHierarchy(t, db)
	secondBenefit := testutil.AddBenefit(t, db, outcomeID, "Reduced wait time")

	engine := NewEngine(db)
	suggestions, err := engine.Preview([]models.ChangeItem{
		{Entity: "outcome", ID: outcomeID, Field: "name", NewValue: "New Name"},
	})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}

	// Original edit first, then one ripple per direct child benefit
	if len(suggestions) != 3 {
		t.Fatalf("Expected 3 suggestions, got %d", len(suggestions))
	}

	if !suggestions[0].Original {
		t.Error("Expected first suggestion to be the original edit")
	}
	if suggestions[0].OldValue != "Faster response" {
		t.Errorf("Expected old value 'Faster response', got %v", suggestions[0].OldValue)
	}
	if suggestions[0].NewValue != "New Name" {
		t.Errorf("Expected new value 'New Name', got %v", suggestions[0].NewValue)
	}

	wantTag := "[Aligned with Outcome: New Name]"
	for i, s := range suggestions[1:] {
		if s.Original {
			t.Errorf("Ripple %d should not be marked original", i)
		}
		if s.Entity != "benefit" || s.Field != "description" {
			t.Errorf("Ripple %d: expected benefit description edit, got %s.%s", i, s.Entity, s.Field)
		}
		if s.NewValue != wantTag {
			t.Errorf("Ripple %d: expected %q, got %v", i, wantTag, s.NewValue)
		}
		if s.OldValue != nil {
			t.Errorf("Ripple %d: expected nil old value for empty description, got %v", i, s.OldValue)
		}
	}

	if suggestions[2].ID != secondBenefit && suggestions[1].ID != secondBenefit {
		t.Error("Expected a ripple for the second benefit")
	}
}

func TestPreviewTagIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, outcomeID, benefitID, _, _ := seedHierarchy(t, db)

	// Pre-tag the benefit as if a previous rename was applied
	_, err := db.Exec(`UPDATE benefit SET description = 'Help [Aligned with Outcome: New Name]' WHERE id = ?`, benefitID)
	if err != nil {
		t.Fatalf("Failed to pre-tag benefit: %v", err)
	}

	engine := NewEngine(db)
	suggestions, err := engine.Preview([]models.ChangeItem{
		{Entity: "outcome", ID: outcomeID, Field: "name", NewValue: "New Name"},
	})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}

	if len(suggestions) != 1 {
		t.Fatalf("Expected only the original suggestion, got %d", len(suggestions))
	}
	if !suggestions[0].Original {
		t.Error("Expected the remaining suggestion to be the original edit")
	}
}

func TestPreviewBenefitRenameTagsDeliverables(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, _, benefitID, deliverableID, _ := seedHierarchy(t, db)

	engine := NewEngine(db)
	suggestions, err := engine.Preview([]models.ChangeItem{
		{Entity: "benefit", ID: benefitID, Field: "name", NewValue: "Always-on help"},
	})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}

	if len(suggestions) != 2 {
		t.Fatalf("Expected original + 1 ripple, got %d", len(suggestions))
	}
	ripple := suggestions[1]
	if ripple.Entity != "deliverable" || ripple.ID != deliverableID {
		t.Errorf("Expected ripple for deliverable %d, got %s %d", deliverableID, ripple.Entity, ripple.ID)
	}
	if ripple.NewValue != "[Aligned with Benefit: Always-on help]" {
		t.Errorf("Unexpected ripple value: %v", ripple.NewValue)
	}
}

func TestPreviewTaskEstimateFlagsDeliverable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, _, _, deliverableID, taskID := seedHierarchy(t, db)

	engine := NewEngine(db)
	suggestions, err := engine.Preview([]models.ChangeItem{
		{Entity: "task", ID: taskID, Field: "est_days", NewValue: float64(8)},
	})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}

	if len(suggestions) != 2 {
		t.Fatalf("Expected original + 1 ripple, got %d", len(suggestions))
	}
	ripple := suggestions[1]
	if ripple.Entity != "deliverable" || ripple.ID != deliverableID {
		t.Errorf("Expected ripple for deliverable %d, got %s %d", deliverableID, ripple.Entity, ripple.ID)
	}
	if ripple.NewValue != "[Timeline updated due to task change]" {
		t.Errorf("Unexpected ripple value: %v", ripple.NewValue)
	}
}

func TestPreviewSkipsMissingRows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedHierarchy(t, db)

	engine := NewEngine(db)
	suggestions, err := engine.Preview([]models.ChangeItem{
		{Entity: "outcome", ID: 9999, Field: "name", NewValue: "x"},
		{Entity: "nonsense", ID: 1, Field: "name", NewValue: "x"},
	})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}

	if len(suggestions) != 0 {
		t.Errorf("Expected no suggestions for missing rows, got %d", len(suggestions))
	}
}

func TestPreviewNoRuleStillReturnsOriginal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, _, _, deliverableID, _ := seedHierarchy(t, db)

	engine := NewEngine(db)
	suggestions, err := engine.Preview([]models.ChangeItem{
		{Entity: "deliverable", ID: deliverableID, Field: "name", NewValue: "Renamed"},
	})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}

	if len(suggestions) != 1 || !suggestions[0].Original {
		t.Fatalf("Expected exactly the original suggestion, got %+v", suggestions)
	}
}

func TestApplyCountsAndSkips(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, _, benefitID, _, taskID := seedHierarchy(t, db)

	engine := NewEngine(db)
	applied, err := engine.Apply([]models.SuggestedOp{
		{Entity: "benefit", ID: benefitID, Field: "description", NewValue: "Updated"},
		{Entity: "benefit", ID: benefitID, Field: "flavor", NewValue: "x"},     // unknown field
		{Entity: "risk", ID: 1, Field: "title", NewValue: "x"},                 // unknown entity
		{Entity: "benefit", ID: 9999, Field: "description", NewValue: "x"},     // missing row
		{Entity: "task", ID: taskID, Field: "est_days", NewValue: "not a num"}, // wrong kind
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if applied != 1 {
		t.Errorf("Expected 1 applied op, got %d", applied)
	}

	var desc string
	if err := db.QueryRow(`SELECT description FROM benefit WHERE id = ?`, benefitID).Scan(&desc); err != nil {
		t.Fatalf("Failed to query benefit: %v", err)
	}
	if desc != "Updated" {
		t.Errorf("Expected description 'Updated', got %q", desc)
	}
}

func TestApplyWritesVerbatim(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, _, _, _, taskID := seedHierarchy(t, db)

	// Apply does not re-validate: an out-of-range estimate goes through
	engine := NewEngine(db)
	applied, err := engine.Apply([]models.SuggestedOp{
		{Entity: "task", ID: taskID, Field: "est_days", NewValue: float64(0)},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if applied != 1 {
		t.Fatalf("Expected 1 applied op, got %d", applied)
	}

	var estDays int
	if err := db.QueryRow(`SELECT est_days FROM task WHERE id = ?`, taskID).Scan(&estDays); err != nil {
		t.Fatalf("Failed to query task: %v", err)
	}
	if estDays != 0 {
		t.Errorf("Expected est_days 0 stored verbatim, got %d", estDays)
	}
}

func TestApplyHandlerAuditsEveryAttempt(t *testing.T) {
	db := testutil.SetupTestDB(t)
	projectID, _, benefitID, _, _ := seedHierarchy(t, db)

	handler := NewPropagationHandler(db)

	body := models.ApplyRequest{Ops: []models.SuggestedOp{
		{Entity: "benefit", ID: benefitID, Field: "description", NewValue: "Aligned"},
		{Entity: "benefit", ID: benefitID, Field: "flavor", NewValue: "x"}, // skipped, still audited
	}}

	req := testutil.MakeRequest("POST", fmt.Sprintf("/projects/%d/propagate/apply", projectID), body)
	req.SetPathValue("id", fmt.Sprintf("%d", projectID))
	w := httptest.NewRecorder()

	handler.Apply(w, req)

	testutil.AssertStatus(t, w, 200)
	var result models.ApplyResult
	testutil.AssertJSON(t, w, &result)
	if result.Applied != 1 {
		t.Errorf("Expected 1 applied, got %d", result.Applied)
	}

	var logged int
	if err := db.QueryRow(`SELECT COUNT(*) FROM activity_log WHERE project_id = ?`, projectID).Scan(&logged); err != nil {
		t.Fatalf("Failed to count activity rows: %v", err)
	}
	if logged != 2 {
		t.Errorf("Expected 2 activity rows (one per attempted op), got %d", logged)
	}
}

func TestApplyIsIdempotentButLogsAreNot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	projectID, _, benefitID, _, _ := seedHierarchy(t, db)

	handler := NewPropagationHandler(db)
	body := models.ApplyRequest{Ops: []models.SuggestedOp{
		{Entity: "benefit", ID: benefitID, Field: "description", NewValue: "Aligned"},
	}}

	for i := 0; i < 2; i++ {
		req := testutil.MakeRequest("POST", fmt.Sprintf("/projects/%d/propagate/apply", projectID), body)
		req.SetPathValue("id", fmt.Sprintf("%d", projectID))
		w := httptest.NewRecorder()
		handler.Apply(w, req)
		testutil.AssertStatus(t, w, 200)
	}

	var desc string
	if err := db.QueryRow(`SELECT description FROM benefit WHERE id = ?`, benefitID).Scan(&desc); err != nil {
		t.Fatalf("Failed to query benefit: %v", err)
	}
	if desc != "Aligned" {
		t.Errorf("Expected stable final value, got %q", desc)
	}

	var logged int
	if err := db.QueryRow(`SELECT COUNT(*) FROM activity_log WHERE project_id = ?`, projectID).Scan(&logged); err != nil {
		t.Fatalf("Failed to count activity rows: %v", err)
	}
	if logged != 2 {
		t.Errorf("Expected a new audit row per apply, got %d", logged)
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name  string
		kind  fieldKind
		value any
		want  any
		ok    bool
	}{
		{"string ok", kindString, "hello", "hello", true},
		{"string from number", kindString, float64(3), nil, false},
		{"int from json number", kindInt, float64(5), int64(5), true},
		{"int from string", kindInt, "5", nil, false},
		{"float from json number", kindFloat, 2.5, 2.5, true},
		{"nil passes through", kindInt, nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := coerce(tt.kind, tt.value)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
