// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package models defines the domain entities, HTTP request/response
// types, and the strict candidate-plan schema used by the generator.
package models
