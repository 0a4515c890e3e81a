package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.1.0"

	// StorageVersion is written to the meta table for the viewer.
	StorageVersion = "25"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
	{
		Version: "1.1.0",
		Up:      migrationV11Up,
		Down:    migrationV11Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Store metadata read by the viewer
CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT
);

-- Base identity row shared by nodes, edges, files, local symbols and errors
CREATE TABLE IF NOT EXISTS element (
    id INTEGER PRIMARY KEY,
    kind INTEGER NOT NULL
);

-- Nodes
CREATE TABLE IF NOT EXISTS node (
    id INTEGER PRIMARY KEY,
    type INTEGER NOT NULL,
    serialized_name TEXT NOT NULL,
    FOREIGN KEY (id) REFERENCES element(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_node_name ON node(serialized_name, type);

-- Definition status of symbol nodes
CREATE TABLE IF NOT EXISTS symbol (
    id INTEGER PRIMARY KEY,
    definition_kind INTEGER NOT NULL,
    FOREIGN KEY (id) REFERENCES node(id) ON DELETE CASCADE
);

-- Edges
CREATE TABLE IF NOT EXISTS edge (
    id INTEGER PRIMARY KEY,
    type INTEGER NOT NULL,
    source_node_id INTEGER NOT NULL,
    target_node_id INTEGER NOT NULL,
    FOREIGN KEY (id) REFERENCES element(id) ON DELETE CASCADE,
    FOREIGN KEY (source_node_id) REFERENCES node(id) ON DELETE CASCADE,
    FOREIGN KEY (target_node_id) REFERENCES node(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_edge_source ON edge(source_node_id);
CREATE INDEX IF NOT EXISTS idx_edge_target ON edge(target_node_id);

-- Files
CREATE TABLE IF NOT EXISTS file (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    language TEXT NOT NULL DEFAULT 'unknown',
    modification_time TEXT,
    indexed INTEGER NOT NULL DEFAULT 0,
    complete INTEGER NOT NULL DEFAULT 1,
    line_count INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (id) REFERENCES node(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS filecontent (
    id INTEGER PRIMARY KEY,
    content TEXT,
    FOREIGN KEY (id) REFERENCES file(id) ON DELETE CASCADE
);

-- Local symbols
CREATE TABLE IF NOT EXISTS local_symbol (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    FOREIGN KEY (id) REFERENCES element(id) ON DELETE CASCADE
);

-- Source locations and occurrences
CREATE TABLE IF NOT EXISTS source_location (
    id INTEGER PRIMARY KEY,
    file_node_id INTEGER NOT NULL,
    start_line INTEGER NOT NULL,
    start_column INTEGER NOT NULL,
    end_line INTEGER NOT NULL,
    end_column INTEGER NOT NULL,
    type INTEGER NOT NULL,
    FOREIGN KEY (file_node_id) REFERENCES file(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_source_location_unique
    ON source_location(file_node_id, start_line, start_column, end_line, end_column, type);

CREATE TABLE IF NOT EXISTS occurrence (
    element_id INTEGER NOT NULL,
    source_location_id INTEGER NOT NULL,
    PRIMARY KEY (element_id, source_location_id),
    FOREIGN KEY (element_id) REFERENCES element(id) ON DELETE CASCADE,
    FOREIGN KEY (source_location_id) REFERENCES source_location(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_occurrence_location ON occurrence(source_location_id);

-- Visibility of nodes
CREATE TABLE IF NOT EXISTS component_access (
    node_id INTEGER PRIMARY KEY,
    type INTEGER NOT NULL,
    FOREIGN KEY (node_id) REFERENCES node(id) ON DELETE CASCADE
);

-- Post-hoc flags such as ambiguity
CREATE TABLE IF NOT EXISTS element_component (
    id INTEGER PRIMARY KEY,
    element_id INTEGER NOT NULL,
    type INTEGER NOT NULL,
    data TEXT,
    FOREIGN KEY (element_id) REFERENCES element(id) ON DELETE CASCADE,
    UNIQUE(element_id, type)
);

-- Recorded analysis errors
CREATE TABLE IF NOT EXISTS error (
    id INTEGER PRIMARY KEY,
    message TEXT NOT NULL,
    fatal INTEGER NOT NULL DEFAULT 0,
    indexed INTEGER NOT NULL DEFAULT 0,
    file_id INTEGER,
    start_line INTEGER,
    start_column INTEGER,
    end_line INTEGER,
    end_column INTEGER,
    FOREIGN KEY (id) REFERENCES element(id) ON DELETE CASCADE,
    FOREIGN KEY (file_id) REFERENCES file(id) ON DELETE SET NULL
);
`

const migrationV1Down = `
DROP TABLE IF EXISTS error;
DROP TABLE IF EXISTS element_component;
DROP TABLE IF EXISTS component_access;
DROP TABLE IF EXISTS occurrence;
DROP TABLE IF EXISTS source_location;
DROP TABLE IF EXISTS local_symbol;
DROP TABLE IF EXISTS filecontent;
DROP TABLE IF EXISTS file;
DROP TABLE IF EXISTS edge;
DROP TABLE IF EXISTS symbol;
DROP TABLE IF EXISTS node;
DROP TABLE IF EXISTS element;
DROP TABLE IF EXISTS meta;
DROP TABLE IF EXISTS schema_version;
`

// v1.1.0 adds lookup indexes used by the query side.
const migrationV11Up = `
CREATE INDEX IF NOT EXISTS idx_local_symbol_name ON local_symbol(name);
CREATE INDEX IF NOT EXISTS idx_error_file ON error(file_id);
`

const migrationV11Down = `
DROP INDEX IF EXISTS idx_error_file;
DROP INDEX IF EXISTS idx_local_symbol_name;
`

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	currentVersion, err := currentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	// Run migrations in order
	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		// Skip if already applied
		if !currentVersion.LessThan(migrationVersion) {
			continue
		}

		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// currentSchemaVersion returns the highest applied migration, or 0.0.0 for a
// fresh database.
func currentSchemaVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if err == sql.ErrNoRows {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// applied_at has second resolution, so compare versions instead of
	// trusting row order.
	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid current schema version %s: %w", s, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// SchemaVersion reports the schema version applied to db.
func SchemaVersion(ctx context.Context, db *sql.DB) (string, error) {
	v, err := currentSchemaVersion(ctx, db)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	current, err := currentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current.Equal(semver.MustParse("0.0.0")) {
		return fmt.Errorf("no migrations to rollback")
	}

	var migration *Migration
	for i := range AllMigrations {
		v, err := semver.NewVersion(AllMigrations[i].Version)
		if err == nil && v.Equal(current) {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", current)
	}

	if _, err := db.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}

	// The first migration drops schema_version itself.
	if migration.Version == AllMigrations[0].Version {
		return nil
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", migration.Version); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", migration.Version, err)
	}

	return nil
}
