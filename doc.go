// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Planline API server.

Planline is a demo project-management backend. It stores a strict planning
hierarchy (Project → Outcome → Benefit → Deliverable → Task) plus flat
per-project lists (budget, governance, reporting, risks), serves the tree
over HTTP, computes derived views (KPIs, timeline, burn-down, velocity),
and proposes cascading edits through a change-propagation engine.

# Starting the Server

The server stores everything in a single sqlite file:

	go run main.go -d planline.db -p 8080

Or with environment variables (a .env file is loaded when present):

	DATABASE_PATH=planline.db PORT=8080 go run main.go

# Configuration

Optional settings:

  - DATABASE_PATH (-d): sqlite file path (default: planline.db)
  - PORT (-p): Server port (default: 8080)

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (projects, tasks, views, propagation)
    plus the plan generator and the propagation engine
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Request/response and domain types
  - db: Datastore open and schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
