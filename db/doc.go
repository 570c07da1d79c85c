// Copyright (c) 2025 Jay Morrow.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the sqlite datastore and creates the schema.

The whole system persists to one sqlite file. CreateSchema is idempotent
and runs at every startup.
*/
package db
