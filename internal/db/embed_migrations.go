package db

import "embed"

// MigrationFS holds the Postgres schema. cmd/migrate applies it through the migrate runner.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
