// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmorrow/planline/middleware"
	"github.com/jmorrow/planline/models"
)

// Engine computes and applies cascading plan edits.
type Engine struct {
	db *sql.DB
}

func NewEngine(db *sql.DB) *Engine {
	return &Engine{db: db}
}

type ruleKey struct {
	entity string
	field  string
}

// rippleRule derives follow-on suggestions from one original edit.
// Rules are pure reads; nothing is written until Apply.
type rippleRule func(e *Engine, ch models.ChangeItem) ([]models.SuggestedOp, error)

// rippleRules keys each rule by the (entity, field) of the original
// change. Combinations without an entry produce no ripples.
var rippleRules = map[ruleKey]rippleRule{
	{entity: "outcome", field: "name"}:  (*Engine).alignBenefits,
	{entity: "benefit", field: "name"}:  (*Engine).alignDeliverables,
	{entity: "task", field: "est_days"}: (*Engine).flagDeliverableTimeline,
}

// Preview returns the requested edits plus their ripple suggestions,
// in order: each original edit first, then its ripples, before the next
// change. Changes naming a missing row are skipped without error.
func (e *Engine) Preview(changes []models.ChangeItem) ([]models.SuggestedOp, error) {
	suggestions := []models.SuggestedOp{}

	for _, ch := range changes {
		exists, err := entityExists(e.db, ch.Entity, ch.ID)
		if err != nil {
			return nil, err
		}
		if !exists {
			// skip unknown rows
			continue
		}

		old, _, err := fetchField(e.db, ch.Entity, ch.ID, ch.Field)
		if err != nil {
			return nil, err
		}

		suggestions = append(suggestions, models.SuggestedOp{
			Entity:   ch.Entity,
			ID:       ch.ID,
			Field:    ch.Field,
			OldValue: old,
			NewValue: ch.NewValue,
			Reason:   "Original requested change.",
			Original: true,
		})

		if rule, ok := rippleRules[ruleKey{entity: ch.Entity, field: ch.Field}]; ok {
			ops, err := rule(e, ch)
			if err != nil {
				return nil, err
			}
			suggestions = append(suggestions, ops...)
		}
	}

	return suggestions, nil
}

// alignBenefits tags every benefit under a renamed outcome so its
// description references the new name. Already-tagged benefits are left
// alone, which keeps repeated previews idempotent.
func (e *Engine) alignBenefits(ch models.ChangeItem) ([]models.SuggestedOp, error) {
	tag := fmt.Sprintf("[Aligned with Outcome: %v]", ch.NewValue)
	return e.tagDescriptions("benefit",
		`SELECT id, description FROM benefit WHERE outcome_id = ? ORDER BY id`, ch.ID,
		tag, "Outcome renamed; keep benefits aligned.")
}

// alignDeliverables is the same pattern one level down: a renamed
// benefit tags each deliverable under it.
func (e *Engine) alignDeliverables(ch models.ChangeItem) ([]models.SuggestedOp, error) {
	tag := fmt.Sprintf("[Aligned with Benefit: %v]", ch.NewValue)
	return e.tagDescriptions("deliverable",
		`SELECT id, description FROM deliverable WHERE benefit_id = ? ORDER BY id`, ch.ID,
		tag, "Benefit renamed; keep deliverables aligned.")
}

// flagDeliverableTimeline tags the parent deliverable of a task whose
// estimate changed.
func (e *Engine) flagDeliverableTimeline(ch models.ChangeItem) ([]models.SuggestedOp, error) {
	var deliverableID int64
	err := e.db.QueryRow(`SELECT deliverable_id FROM task WHERE id = ?`, ch.ID).Scan(&deliverableID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}

	return e.tagDescriptions("deliverable",
		`SELECT id, description FROM deliverable WHERE id = ? ORDER BY id`, deliverableID,
		"[Timeline updated due to task change]",
		"Task duration changed; reflect in deliverable description.")
}

// tagDescriptions emits one description-edit suggestion per selected row
// whose description does not already contain tag.
func (e *Engine) tagDescriptions(entity, query string, arg int64, tag, reason string) ([]models.SuggestedOp, error) {
	rows, err := e.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query %ss: %w", entity, err)
	}
	defer rows.Close()

	var ops []models.SuggestedOp
	for rows.Next() {
		var id int64
		var desc sql.NullString
		if err := rows.Scan(&id, &desc); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", entity, err)
		}

		if strings.Contains(desc.String, tag) {
			continue
		}

		var old any
		if desc.Valid {
			old = desc.String
		}

		ops = append(ops, models.SuggestedOp{
			Entity:   entity,
			ID:       id,
			Field:    "description",
			OldValue: old,
			NewValue: strings.TrimSpace(desc.String + " " + tag),
			Reason:   reason,
		})
	}

	return ops, rows.Err()
}

// Apply overwrites fields with the approved values in one transaction.
// Ops naming an unknown entity, an unknown field, a missing row, or a
// value of the wrong kind are skipped and not counted. Values are
// written verbatim; nothing is re-validated.
func (e *Engine) Apply(ops []models.SuggestedOp) (int, error) {
	tx, err := e.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	applied := 0
	for _, op := range ops {
		spec, ok := editableEntities[op.Entity]
		if !ok {
			continue
		}
		fs, ok := spec.fields[op.Field]
		if !ok {
			continue
		}
		value, ok := coerce(fs.kind, op.NewValue)
		if !ok {
			continue
		}

		res, err := tx.Exec("UPDATE "+spec.table+" SET "+fs.column+" = ? WHERE id = ?", value, op.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to update %s.%s: %w", spec.table, fs.column, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected > 0 {
			applied++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit apply: %w", err)
	}
	return applied, nil
}

type PropagationHandler struct {
	db     *sql.DB
	engine *Engine
}

func NewPropagationHandler(db *sql.DB) *PropagationHandler {
	return &PropagationHandler{db: db, engine: NewEngine(db)}
}

// Preview handles POST /projects/:id/propagate/preview
func (h *PropagationHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if _, ok := parseID(w, r, "id", "project id"); !ok {
		return
	}

	var req models.PropagationRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	suggestions, err := h.engine.Preview(req.Changes)
	if err != nil {
		slog.Error("failed to preview propagation", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PropagationPreview{Suggestions: suggestions})
}

// Apply handles POST /projects/:id/propagate/apply
func (h *PropagationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseID(w, r, "id", "project id")
	if !ok {
		return
	}

	var req models.ApplyRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Snapshot old values before the apply pass so the audit trail
	// records what each op replaced.
	oldValues := make([]any, len(req.Ops))
	for i, op := range req.Ops {
		v, found, err := fetchField(h.db, op.Entity, op.ID, op.Field)
		if err != nil {
			slog.Error("failed to snapshot field", "entity", op.Entity, "id", op.ID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if found {
			oldValues[i] = v
		}
	}

	applied, err := h.engine.Apply(req.Ops)
	if err != nil {
		slog.Error("failed to apply propagation", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// One audit row per attempted op, applied or not. A failed log
	// insert must not block the others or the response.
	now := time.Now().UTC()
	for i, op := range req.Ops {
		_, err := h.db.Exec(`
			INSERT INTO activity_log (project_id, entity, entity_id, field, old_value, new_value, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, projectID, op.Entity, op.ID, op.Field, stringify(oldValues[i]), stringify(op.NewValue), now)
		if err != nil {
			slog.Warn("failed to write activity log entry", "entity", op.Entity, "entity_id", op.ID, "error", err)
		}
	}

	slog.Info("propagation applied", "project_id", projectID, "ops", len(req.Ops), "applied", applied)

	middleware.JSONResponse(w, http.StatusOK, models.ApplyResult{Applied: applied})
}

// stringify renders a field value for the audit trail; nil stays NULL.
func stringify(v any) *string {
	if v == nil {
		return nil
	}
	s := fmt.Sprintf("%v", v)
	return &s
}

// parseID reads an integer path parameter, writing a 400 on failure.
func parseID(w http.ResponseWriter, r *http.Request, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid "+label)
		return 0, false
	}
	return id, true
}
