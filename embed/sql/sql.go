package sql

import _ "embed"

// Schema is the full database schema.
//
//go:embed schema.sql
var Schema string
