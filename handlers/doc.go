// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers implements the HTTP request handlers and the domain
logic behind them.

# Plan Generation

PlanFixture stands in for a generative backend: it returns a fixed
candidate plan for any vision. The candidate is validated against the
strict schema (models.GenProject.Validate) and persisted top-down by
PersistPlan, which resolves positional task dependencies into row ids.

# Change Propagation

Engine.Preview computes the user's edits plus ripple suggestions from a
declarative (entity, field) rule table; Engine.Apply overwrites an
approved subset in one transaction. The apply handler audits every
attempted op into activity_log. Unknown rows and fields are skipped
silently in both directions.

# Derived Views

ComputeKPIs, ComputeBudgetSummary, ComputeRiskSummary, ComputeBacklog,
ComputeTimeline, ComputeBurnDown, ComputeVelocity and ComputeCadence are
pure read/aggregate functions over the current store.
*/
package handlers
