// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmorrow/planline/middleware"
	"github.com/jmorrow/planline/models"
)

type TaskHandler struct {
	db *sql.DB
}

func NewTaskHandler(db *sql.DB) *TaskHandler {
	return &TaskHandler{db: db}
}

// Patch handles PATCH /projects/tasks/:task_id
//
// est_days is clamped to >= 1. Status is lowercased; setting status
// without done implies done = (status == "done"). Setting done without
// status forces status to "done" when true, and demotes a "done" status
// to "inprogress" when false. The task_state row is created on first
// mutation only.
func (h *TaskHandler) Patch(w http.ResponseWriter, r *http.Request) {
	taskID, ok := parseID(w, r, "task_id", "task id")
	if !ok {
		return
	}

	var req models.PatchTaskRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var deliverableID int64
	var estDays int
	err := h.db.QueryRow(`
		SELECT deliverable_id, est_days FROM task WHERE id = ?
	`, taskID).Scan(&deliverableID, &estDays)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		slog.Error("failed to query task", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if req.Status != nil {
		status := strings.ToLower(*req.Status)
		if status != models.StatusTodo && status != models.StatusInProgress && status != models.StatusDone {
			middleware.ErrorResponse(w, http.StatusBadRequest, "status must be todo, inprogress or done")
			return
		}
		req.Status = &status
	}

	projectID, err := projectForTask(h.db, taskID)
	if err != nil {
		slog.Error("failed to resolve project for task", "task_id", taskID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Effective state defaults to {todo, false} until first mutation
	curStatus := models.StatusTodo
	curDone := false
	err = h.db.QueryRow(`
		SELECT status, done FROM task_state WHERE task_id = ?
	`, taskID).Scan(&curStatus, &curDone)
	if err != nil && err != sql.ErrNoRows {
		slog.Error("failed to query task state", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	newStatus, newDone := reconcileState(curStatus, curDone, req.Status, req.Done)

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	if req.EstDays != nil {
		clamped := *req.EstDays
		if clamped < 1 {
			clamped = 1
		}
		if clamped != estDays {
			if _, err := tx.Exec(`UPDATE task SET est_days = ? WHERE id = ?`, clamped, taskID); err != nil {
				slog.Error("failed to update est_days", "error", err)
				middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
				return
			}
			if err := logChange(tx, projectID, "task", taskID, "est_days", estDays, clamped, now); err != nil {
				slog.Error("failed to log est_days change", "error", err)
				middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
				return
			}
		}
	}

	if newStatus != curStatus || newDone != curDone {
		_, err := tx.Exec(`
			INSERT INTO task_state (task_id, status, done, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(task_id) DO UPDATE SET status = excluded.status, done = excluded.done, updated_at = excluded.updated_at
		`, taskID, newStatus, newDone, now)
		if err != nil {
			slog.Error("failed to upsert task state", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if newStatus != curStatus {
			if err := logChange(tx, projectID, "task", taskID, "status", curStatus, newStatus, now); err != nil {
				slog.Error("failed to log status change", "error", err)
				middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
				return
			}
		}
		if newDone != curDone {
			if err := logChange(tx, projectID, "task", taskID, "done", curDone, newDone, now); err != nil {
				slog.Error("failed to log done change", "error", err)
				middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
				return
			}
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit task patch", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("task patched", "task_id", taskID, "status", newStatus, "done", newDone)

	middleware.JSONResponse(w, http.StatusOK, models.OKResponse{OK: true})
}

// reconcileState folds a patch into the current state. Status applies
// first (implying done when done is absent), then done (forcing "done"
// when set, demoting a "done" status to "inprogress" when cleared).
func reconcileState(curStatus string, curDone bool, status *string, done *bool) (string, bool) {
	newStatus, newDone := curStatus, curDone

	if status != nil {
		newStatus = *status
		if done == nil {
			newDone = newStatus == models.StatusDone
		}
	}

	if done != nil {
		newDone = *done
		if *done {
			newStatus = models.StatusDone
		} else if newStatus == models.StatusDone {
			newStatus = models.StatusInProgress
		}
	}

	return newStatus, newDone
}

// projectForTask walks task -> deliverable -> benefit -> outcome to the
// owning project id.
func projectForTask(db *sql.DB, taskID int64) (int64, error) {
	var projectID int64
	err := db.QueryRow(`
		SELECT o.project_id
		FROM task t
		JOIN deliverable d ON t.deliverable_id = d.id
		JOIN benefit b ON d.benefit_id = b.id
		JOIN outcome o ON b.outcome_id = o.id
		WHERE t.id = ?
	`, taskID).Scan(&projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve project for task %d: %w", taskID, err)
	}
	return projectID, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// logChange appends one activity row for a single field change.
func logChange(e execer, projectID int64, entity string, entityID int64, field string, oldValue, newValue any, at time.Time) error {
	_, err := e.Exec(`
		INSERT INTO activity_log (project_id, entity, entity_id, field, old_value, new_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, projectID, entity, entityID, field, stringify(oldValue), stringify(newValue), at)
	if err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}
	return nil
}
