// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Planline API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db)

# Endpoints

Health:

	GET /health

Plan creation:

	POST /projects/generate - Generate a plan from a vision
	POST /projects/seed     - Persist the deterministic demo plan

Plan reading:

	GET /projects/{id}                - Full nested tree
	GET /projects/{id}/kpis           - Entity and activity counts
	GET /projects/{id}/budget/summary - Totals per category
	GET /projects/{id}/risk/summary   - 5x5 probability/impact matrix
	GET /projects/{id}/backlog        - Tasks by status column
	GET /projects/{id}/timeline       - Sequential task schedule
	GET /projects/{id}/burn           - Burn-down curves
	GET /projects/{id}/velocity       - Points per sprint window
	GET /projects/{id}/cadence        - Current sprint index

Mutation:

	PATCH /projects/tasks/{task_id}          - Task estimate/state patch
	POST  /projects/{id}/propagate/preview   - Suggest cascading edits
	POST  /projects/{id}/propagate/apply     - Apply approved edits

# Handler Initialization

The router creates handler instances with dependency injection:

	projectHandler := handlers.NewProjectHandler(db)
	taskHandler := handlers.NewTaskHandler(db)
	viewsHandler := handlers.NewViewsHandler(db)
	propagationHandler := handlers.NewPropagationHandler(db)

All handlers receive the database connection.
*/
package router
