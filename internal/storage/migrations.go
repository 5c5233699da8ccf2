package storage

import (
	"fmt"
)

func (d *Database) runMigrations() error {
	migrations := []string{
		createTables,
		createIndexes,
	}

	for i, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

const createTables = `
CREATE TABLE IF NOT EXISTS cached_files (
	url TEXT PRIMARY KEY,
	local_path TEXT NOT NULL,
	size INTEGER DEFAULT 0,
	accessed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_cached_files_accessed ON cached_files(accessed_at);
`
