package history

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all history tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS executions (
		id            TEXT PRIMARY KEY,
		source_id     INTEGER NOT NULL,
		seq           INTEGER NOT NULL,
		executor_type TEXT NOT NULL DEFAULT '',
		ordered       INTEGER NOT NULL DEFAULT 0,
		signature     TEXT NOT NULL DEFAULT '',
		state         TEXT NOT NULL DEFAULT 'RUNNING',
		output        TEXT NOT NULL DEFAULT '',
		stderr        TEXT NOT NULL DEFAULT '',
		exit_code     INTEGER NOT NULL DEFAULT 0,
		error         TEXT NOT NULL DEFAULT '',
		started_at    TEXT NOT NULL,
		completed_at  TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_executions_source_id ON executions(source_id)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_state ON executions(state)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_started_at ON executions(started_at)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
