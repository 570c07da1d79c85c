// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jmorrow/planline/middleware"
	"github.com/jmorrow/planline/models"
)

const dateLayout = "2006-01-02"

const (
	defaultSprintDays = 14
	defaultPeriods    = 4
)

// Timeline handles GET /projects/:id/timeline
func (h *ViewsHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.requireProject(w, r)
	if !ok {
		return
	}
	start, ok := parseStart(w, r)
	if !ok {
		return
	}

	entries, err := ComputeTimeline(h.db, projectID, start)
	if err != nil {
		slog.Error("failed to compute timeline", "project_id", projectID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.TimelineResponse{Entries: entries})
}

// ComputeTimeline lays out each deliverable's tasks back-to-back from
// start, in stored order. The schedule is purely sequential: every
// deliverable restarts at start and depends_on is not consulted.
func ComputeTimeline(db *sql.DB, projectID int64, start time.Time) ([]models.TimelineEntry, error) {
	rows, err := db.Query(`
		SELECT t.id, t.name, t.est_days, t.deliverable_id
		FROM task t
		JOIN deliverable d ON t.deliverable_id = d.id
		JOIN benefit b ON d.benefit_id = b.id
		JOIN outcome o ON b.outcome_id = o.id
		WHERE o.project_id = ?
		ORDER BY o.id, b.id, d.id, t.id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	entries := []models.TimelineEntry{}
	cursor := start
	var currentDeliverable int64 = -1

	for rows.Next() {
		var id, deliverableID int64
		var name string
		var estDays int
		if err := rows.Scan(&id, &name, &estDays, &deliverableID); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		if deliverableID != currentDeliverable {
			cursor = start
			currentDeliverable = deliverableID
		}

		days := estDays
		if days < 1 {
			days = 1
		}
		end := cursor.AddDate(0, 0, days)

		entries = append(entries, models.TimelineEntry{
			TaskID:        id,
			Name:          name,
			DeliverableID: deliverableID,
			Start:         cursor.Format(dateLayout),
			End:           end.Format(dateLayout),
			EstDays:       estDays,
		})
		cursor = end
	}
	return entries, rows.Err()
}

// Burn handles GET /projects/:id/burn
func (h *ViewsHandler) Burn(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.requireProject(w, r)
	if !ok {
		return
	}
	start, ok := parseStart(w, r)
	if !ok {
		return
	}
	sprintDays := parseIntQuery(r, "sprint_days", defaultSprintDays)

	burn, err := ComputeBurnDown(h.db, projectID, start, sprintDays)
	if err != nil {
		slog.Error("failed to compute burn-down", "project_id", projectID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, burn)
}

// ComputeBurnDown projects an ideal linear depletion of total story
// points (sum of est_days) over a sprint window, next to the actual
// remaining points per day based on completed task states.
func ComputeBurnDown(db *sql.DB, projectID int64, start time.Time, sprintDays int) (models.BurnResponse, error) {
	if sprintDays < 1 {
		sprintDays = 1
	}

	var total float64
	err := db.QueryRow(`
		SELECT COALESCE(SUM(t.est_days), 0)
		FROM task t
		JOIN deliverable d ON t.deliverable_id = d.id
		JOIN benefit b ON d.benefit_id = b.id
		JOIN outcome o ON b.outcome_id = o.id
		WHERE o.project_id = ?
	`, projectID).Scan(&total)
	if err != nil {
		return models.BurnResponse{}, fmt.Errorf("failed to sum story points: %w", err)
	}

	completions, err := loadCompletions(db, projectID)
	if err != nil {
		return models.BurnResponse{}, err
	}

	burn := models.BurnResponse{
		Days:        make([]string, 0, sprintDays+1),
		Ideal:       make([]float64, 0, sprintDays+1),
		Actual:      make([]float64, 0, sprintDays+1),
		TotalPoints: total,
	}

	for i := 0; i <= sprintDays; i++ {
		day := start.AddDate(0, 0, i)
		burn.Days = append(burn.Days, day.Format(dateLayout))
		burn.Ideal = append(burn.Ideal, total*(1-float64(i)/float64(sprintDays)))

		var done float64
		for _, c := range completions {
			if !c.doneAt.After(day) {
				done += c.points
			}
		}
		burn.Actual = append(burn.Actual, total-done)
	}
	return burn, nil
}

// Velocity handles GET /projects/:id/velocity
func (h *ViewsHandler) Velocity(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.requireProject(w, r)
	if !ok {
		return
	}
	start, ok := parseStart(w, r)
	if !ok {
		return
	}
	sprintDays := parseIntQuery(r, "sprint_days", defaultSprintDays)
	periods := parseIntQuery(r, "periods", defaultPeriods)

	velocity, err := ComputeVelocity(h.db, projectID, start, sprintDays, periods)
	if err != nil {
		slog.Error("failed to compute velocity", "project_id", projectID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, velocity)
}

// ComputeVelocity sums completed points per consecutive sprint window.
// A completion lands in the window where windowStart <= doneDate < windowEnd.
func ComputeVelocity(db *sql.DB, projectID int64, start time.Time, sprintDays, periods int) (models.VelocityResponse, error) {
	if sprintDays < 1 {
		sprintDays = 1
	}
	if periods < 1 {
		periods = 1
	}

	completions, err := loadCompletions(db, projectID)
	if err != nil {
		return models.VelocityResponse{}, err
	}

	velocity := models.VelocityResponse{Windows: make([]models.VelocityWindow, 0, periods)}
	for p := 0; p < periods; p++ {
		winStart := start.AddDate(0, 0, p*sprintDays)
		winEnd := start.AddDate(0, 0, (p+1)*sprintDays)

		var points float64
		for _, c := range completions {
			if !c.doneAt.Before(winStart) && c.doneAt.Before(winEnd) {
				points += c.points
			}
		}

		velocity.Windows = append(velocity.Windows, models.VelocityWindow{
			Start:  winStart.Format(dateLayout),
			End:    winEnd.Format(dateLayout),
			Points: points,
		})
	}
	return velocity, nil
}

// Cadence handles GET /projects/:id/cadence
func (h *ViewsHandler) Cadence(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireProject(w, r); !ok {
		return
	}
	start, ok := parseStart(w, r)
	if !ok {
		return
	}
	sprintDays := parseIntQuery(r, "sprint_days", defaultSprintDays)

	middleware.JSONResponse(w, http.StatusOK, ComputeCadence(start, time.Now().UTC(), sprintDays))
}

// ComputeCadence returns the 1-based index of the sprint containing
// today, and that sprint's [start, end) window. Days before the plan
// start clamp to sprint 1.
func ComputeCadence(start, today time.Time, sprintDays int) models.CadenceResponse {
	if sprintDays < 1 {
		sprintDays = 1
	}

	days := int(dateOnly(today).Sub(dateOnly(start)).Hours() / 24)
	sprint := 1
	if days > 0 {
		sprint = days/sprintDays + 1
	}

	winStart := start.AddDate(0, 0, (sprint-1)*sprintDays)
	winEnd := start.AddDate(0, 0, sprint*sprintDays)

	return models.CadenceResponse{
		Sprint: sprint,
		Start:  winStart.Format(dateLayout),
		End:    winEnd.Format(dateLayout),
	}
}

type completion struct {
	points float64
	doneAt time.Time
}

// loadCompletions returns points and completion dates for a project's
// done tasks, normalized to dates.
func loadCompletions(db *sql.DB, projectID int64) ([]completion, error) {
	rows, err := db.Query(`
		SELECT t.est_days, ts.updated_at
		FROM task t
		JOIN deliverable d ON t.deliverable_id = d.id
		JOIN benefit b ON d.benefit_id = b.id
		JOIN outcome o ON b.outcome_id = o.id
		JOIN task_state ts ON ts.task_id = t.id
		WHERE o.project_id = ? AND ts.done = 1
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	var completions []completion
	for rows.Next() {
		var estDays int
		var updatedAt time.Time
		if err := rows.Scan(&estDays, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		completions = append(completions, completion{
			points: float64(estDays),
			doneAt: dateOnly(updatedAt),
		})
	}
	return completions, rows.Err()
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// parseStart reads the optional start query param (YYYY-MM-DD),
// defaulting to today. A malformed value writes a 400.
func parseStart(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	s := r.URL.Query().Get("start")
	if s == "" {
		return dateOnly(time.Now().UTC()), true
	}
	start, err := time.Parse(dateLayout, s)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return start, true
}

// parseIntQuery reads an integer query param, falling back to def when
// absent or malformed.
func parseIntQuery(r *http.Request, name string, def int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
