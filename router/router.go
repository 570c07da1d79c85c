// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/jmorrow/planline/handlers"
	"github.com/jmorrow/planline/middleware"
)

func NewRouter(db *sql.DB) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	projectHandler := handlers.NewProjectHandler(db)
	taskHandler := handlers.NewTaskHandler(db)
	viewsHandler := handlers.NewViewsHandler(db)
	propagationHandler := handlers.NewPropagationHandler(db)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.JSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Plan creation
	mux.HandleFunc("POST /projects/generate", middleware.WithLogging(projectHandler.Generate))
	mux.HandleFunc("POST /projects/seed", middleware.WithLogging(projectHandler.Seed))

	// Task state
	mux.HandleFunc("PATCH /projects/tasks/{task_id}", middleware.WithLogging(taskHandler.Patch))

	// Plan tree
	mux.HandleFunc("GET /projects/{id}", middleware.WithLogging(projectHandler.GetTree))

	// Derived views (read-only)
	mux.HandleFunc("GET /projects/{id}/kpis", middleware.WithLogging(viewsHandler.KPIs))
	mux.HandleFunc("GET /projects/{id}/budget/summary", middleware.WithLogging(viewsHandler.BudgetSummary))
	mux.HandleFunc("GET /projects/{id}/risk/summary", middleware.WithLogging(viewsHandler.RiskSummary))
	mux.HandleFunc("GET /projects/{id}/backlog", middleware.WithLogging(viewsHandler.Backlog))
	mux.HandleFunc("GET /projects/{id}/timeline", middleware.WithLogging(viewsHandler.Timeline))
	mux.HandleFunc("GET /projects/{id}/burn", middleware.WithLogging(viewsHandler.Burn))
	mux.HandleFunc("GET /projects/{id}/velocity", middleware.WithLogging(viewsHandler.Velocity))
	mux.HandleFunc("GET /projects/{id}/cadence", middleware.WithLogging(viewsHandler.Cadence))

	// Change propagation
	mux.HandleFunc("POST /projects/{id}/propagate/preview", middleware.WithLogging(propagationHandler.Preview))
	mux.HandleFunc("POST /projects/{id}/propagate/apply", middleware.WithLogging(propagationHandler.Apply))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("planline API v1"))
	})

	return mux
}
