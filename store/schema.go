package store

// schemaStatements returns the DDL for the records table and its indexes.
// Kept as plain statements rather than a migration framework; the table
// shape is the only on-disk format this subsystem owns.
func schemaStatements(driver string) []string {
	createTable := `
CREATE TABLE IF NOT EXISTS records (
	id           VARCHAR(32)  PRIMARY KEY,
	owner_id     VARCHAR(32)  NOT NULL,
	title        TEXT         NOT NULL,
	body         TEXT         NOT NULL,
	slug         VARCHAR(96)  NOT NULL,
	status       VARCHAR(16)  NOT NULL,
	version      BIGINT       NOT NULL,
	view_count   BIGINT       NOT NULL DEFAULT 0,
	deleted      BOOLEAN      NOT NULL DEFAULT 0,
	created_at   BIGINT       NOT NULL,
	updated_at   BIGINT       NOT NULL,
	published_at BIGINT       NOT NULL DEFAULT 0
)`

	if driver == "mysql" {
		return []string{
			createTable,
			`CREATE UNIQUE INDEX idx_records_owner_slug ON records (owner_id, slug)`,
			`CREATE INDEX idx_records_owner ON records (owner_id)`,
			`CREATE INDEX idx_records_status_published ON records (status, published_at)`,
			`CREATE INDEX idx_records_deleted ON records (deleted)`,
		}
	}

	return []string{
		createTable,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_records_owner_slug ON records (owner_id, slug)`,
		`CREATE INDEX IF NOT EXISTS idx_records_owner ON records (owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_status_published ON records (status, published_at)`,
		`CREATE INDEX IF NOT EXISTS idx_records_deleted ON records (deleted)`,
	}
}
