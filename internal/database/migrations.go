package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrator handles database schema migrations
type Migrator interface {
	// Migrate applies all pending migrations
	Migrate(ctx context.Context) error

	// CurrentVersion returns the current schema version
	CurrentVersion(ctx context.Context) (int, error)
}

// migration represents a single database migration
type migration struct {
	version int
	name    string
	up      string
}

// migrator implements the Migrator interface
type migrator struct {
	db         *DB
	migrations []migration
}

// NewMigrator creates a new database migrator
func NewMigrator(db *DB) Migrator {
	return &migrator{
		db:         db,
		migrations: getMigrations(),
	}
}

// getMigrations returns all available migrations in order
func getMigrations() []migration {
	return []migration{
		{
			version: 1,
			name:    "tool_specs",
			up:      getToolSpecsSchema(),
		},
		{
			version: 2,
			name:    "tool_specs_fts",
			up:      getToolSpecsFTSSchema(),
		},
		{
			version: 3,
			name:    "audit_records",
			up:      getAuditRecordsSchema(),
		},
	}
}

// getToolSpecsSchema creates the tool catalog table. Parameters and
// capabilities are stored as JSON columns; the registry unmarshals them into
// typed structs on load.
func getToolSpecsSchema() string {
	return `
	CREATE TABLE IF NOT EXISTS tool_specs (
		name              TEXT NOT NULL,
		version           TEXT NOT NULL,
		is_latest         INTEGER NOT NULL DEFAULT 0,
		platform          TEXT NOT NULL,
		category          TEXT NOT NULL DEFAULT '',
		description       TEXT NOT NULL DEFAULT '',
		parameters        TEXT NOT NULL DEFAULT '[]',
		command_template  TEXT NOT NULL,
		capabilities      TEXT NOT NULL DEFAULT '[]',
		requires_approval INTEGER NOT NULL DEFAULT 0,
		production_safe   INTEGER NOT NULL DEFAULT 1,
		max_cost          REAL NOT NULL DEFAULT 0,
		time_estimate_ms  INTEGER NOT NULL DEFAULT 0,
		cost_estimate     REAL NOT NULL DEFAULT 0,
		created_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (name, version)
	);
	CREATE INDEX IF NOT EXISTS idx_tool_specs_latest ON tool_specs(name) WHERE is_latest = 1;
	CREATE INDEX IF NOT EXISTS idx_tool_specs_category ON tool_specs(category);
	`
}

// getToolSpecsFTSSchema creates the FTS5 virtual table that powers the
// semantic-candidate source, kept in sync with tool_specs via triggers.
func getToolSpecsFTSSchema() string {
	return `
	CREATE VIRTUAL TABLE IF NOT EXISTS tool_specs_fts USING fts5(
		name,
		description,
		capabilities,
		category,
		content=tool_specs,
		content_rowid=rowid
	);

	CREATE TRIGGER IF NOT EXISTS tool_specs_fts_insert
	AFTER INSERT ON tool_specs
	BEGIN
		INSERT INTO tool_specs_fts(rowid, name, description, capabilities, category)
		VALUES (new.rowid, new.name, new.description, new.capabilities, new.category);
	END;

	CREATE TRIGGER IF NOT EXISTS tool_specs_fts_update
	AFTER UPDATE ON tool_specs
	BEGIN
		INSERT INTO tool_specs_fts(tool_specs_fts, rowid, name, description, capabilities, category)
		VALUES('delete', old.rowid, old.name, old.description, old.capabilities, old.category);
		INSERT INTO tool_specs_fts(rowid, name, description, capabilities, category)
		VALUES (new.rowid, new.name, new.description, new.capabilities, new.category);
	END;

	CREATE TRIGGER IF NOT EXISTS tool_specs_fts_delete
	AFTER DELETE ON tool_specs
	BEGIN
		INSERT INTO tool_specs_fts(tool_specs_fts, rowid, name, description, capabilities, category)
		VALUES('delete', old.rowid, old.name, old.description, old.capabilities, old.category);
	END;
	`
}

// getAuditRecordsSchema creates the audit destination table.
func getAuditRecordsSchema() string {
	return `
	CREATE TABLE IF NOT EXISTS audit_records (
		id         TEXT PRIMARY KEY,
		trace_id   TEXT NOT NULL,
		user_id    TEXT NOT NULL DEFAULT '',
		event_type TEXT NOT NULL,
		payload    TEXT NOT NULL DEFAULT '{}',
		timestamp  TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_records_trace ON audit_records(trace_id);
	CREATE INDEX IF NOT EXISTS idx_audit_records_time ON audit_records(timestamp);
	`
}

// Migrate applies all pending migrations in version order.
func (m *migrator) Migrate(ctx context.Context) error {
	if err := m.ensureVersionTable(ctx); err != nil {
		return err
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if mig.version <= current {
			continue
		}

		err := m.db.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, mig.up); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", mig.version, mig.name, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
				mig.version, mig.name); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", mig.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// CurrentVersion returns the highest applied migration version.
func (m *migrator) CurrentVersion(ctx context.Context) (int, error) {
	if err := m.ensureVersionTable(ctx); err != nil {
		return 0, err
	}

	var version sql.NullInt64
	err := m.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

func (m *migrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}
