// Package migration bootstraps the Takt schema in SQLite.
//
// Migrations are plain SQL files named {version}_{description}.sql, read from an
// fs.FS (normally embedded into the binary). Applied versions are tracked in the
// schema_migrations table so each file runs once, inside its own transaction.
package migration
