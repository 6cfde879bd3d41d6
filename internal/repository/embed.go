package repository

import _ "embed"

// schemaSQL creates the snapshot table and its indexes. Every statement is
// idempotent so it runs on each open.
//
//go:embed schema.sql
var schemaSQL string
