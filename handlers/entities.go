// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindFloat
)

type fieldSpec struct {
	column string
	kind   fieldKind
}

type entitySpec struct {
	table  string
	fields map[string]fieldSpec
}

// editableEntities is the boundary between untyped JSON edits and the
// store: every entity/field pair the propagation engine may write, with
// its column and the value kind it accepts. Edits naming anything else
// are skipped, never applied.
var editableEntities = map[string]entitySpec{
	"project": {table: "project", fields: map[string]fieldSpec{
		"name":        {column: "name", kind: kindString},
		"vision":      {column: "vision", kind: kindString},
		"description": {column: "description", kind: kindString},
	}},
	"outcome": {table: "outcome", fields: map[string]fieldSpec{
		"name":        {column: "name", kind: kindString},
		"description": {column: "description", kind: kindString},
	}},
	"benefit": {table: "benefit", fields: map[string]fieldSpec{
		"name":        {column: "name", kind: kindString},
		"description": {column: "description", kind: kindString},
	}},
	"deliverable": {table: "deliverable", fields: map[string]fieldSpec{
		"name":        {column: "name", kind: kindString},
		"description": {column: "description", kind: kindString},
	}},
	"task": {table: "task", fields: map[string]fieldSpec{
		"name":     {column: "name", kind: kindString},
		"est_days": {column: "est_days", kind: kindInt},
	}},
	"budget": {table: "budget_line", fields: map[string]fieldSpec{
		"item":     {column: "item", kind: kindString},
		"amount":   {column: "amount", kind: kindFloat},
		"category": {column: "category", kind: kindString},
	}},
}

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

// entityExists reports whether the referenced row exists. An unknown
// entity kind reads as not existing.
func entityExists(q querier, entity string, id int64) (bool, error) {
	spec, ok := editableEntities[entity]
	if !ok {
		return false, nil
	}
	var one int
	err := q.QueryRow("SELECT 1 FROM "+spec.table+" WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", spec.table, err)
	}
	return true, nil
}

// fetchField returns the current value of one entity field. found is
// false when the entity kind, the field, or the row itself is unknown.
func fetchField(q querier, entity string, id int64, field string) (value any, found bool, err error) {
	spec, ok := editableEntities[entity]
	if !ok {
		return nil, false, nil
	}
	fs, ok := spec.fields[field]
	if !ok {
		return nil, false, nil
	}
	var v any
	err = q.QueryRow("SELECT "+fs.column+" FROM "+spec.table+" WHERE id = ?", id).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query %s.%s: %w", spec.table, fs.column, err)
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	return v, true, nil
}

// coerce narrows a decoded JSON value to the field's kind. nil passes
// through and writes NULL.
func coerce(kind fieldKind, v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	switch kind {
	case kindString:
		s, ok := v.(string)
		return s, ok
	case kindInt:
		switch n := v.(type) {
		case float64:
			return int64(n), true
		case int:
			return int64(n), true
		case int64:
			return n, true
		}
	case kindFloat:
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
	}
	return nil, false
}
