package store

import (
	"database/sql"
	"fmt"
)

// migration is one versioned schema change. Versions are applied in order
// and recorded in schema_migrations; a database is current when every
// version up to the latest has been applied.
type migration struct {
	Version  int
	Name     string
	SQLite   string
	Postgres string
}

// both returns a migration whose SQL is identical for both dialects.
func both(version int, name, stmt string) migration {
	return migration{Version: version, Name: name, SQLite: stmt, Postgres: stmt}
}

var migrations = []migration{
	both(1, "create_participants", `
	CREATE TABLE IF NOT EXISTS participants (
		login TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		score REAL NOT NULL DEFAULT 0,
		pos_in INTEGER NOT NULL DEFAULT 0,
		weighted_pos_in REAL NOT NULL DEFAULT 0,
		neg_in INTEGER NOT NULL DEFAULT 0,
		weighted_neg_in REAL NOT NULL DEFAULT 0,
		pos_out INTEGER NOT NULL DEFAULT 0,
		neg_out INTEGER NOT NULL DEFAULT 0,
		punishment REAL NOT NULL DEFAULT 0,
		weight_factor REAL NOT NULL DEFAULT 0,
		ranking INTEGER NOT NULL DEFAULT 0,
		trend INTEGER NOT NULL DEFAULT 0,
		last_active_at TIMESTAMP
	)`),
	both(2, "create_comments", `
	CREATE TABLE IF NOT EXISTS comments (
		id TEXT PRIMARY KEY,
		author_login TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		diff TEXT NOT NULL DEFAULT '',
		score REAL NOT NULL DEFAULT 0,
		pos INTEGER NOT NULL DEFAULT 0,
		neg INTEGER NOT NULL DEFAULT 0,
		weighted_pos REAL NOT NULL DEFAULT 0,
		weighted_neg REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP,
		last_edited_at TIMESTAMP
	)`),
	both(3, "create_reactions", `
	CREATE TABLE IF NOT EXISTS reactions (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL DEFAULT '',
		giver_login TEXT NOT NULL DEFAULT '',
		receiver_login TEXT NOT NULL DEFAULT '',
		comment_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP
	)`),
	both(4, "create_contributors", `
	CREATE TABLE IF NOT EXISTS contributors (
		login TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		reviews INTEGER NOT NULL DEFAULT 0,
		commits INTEGER NOT NULL DEFAULT 0,
		issues_opened INTEGER NOT NULL DEFAULT 0
	)`),
	both(5, "create_outside_committers", `
	CREATE TABLE IF NOT EXISTS outside_committers (
		name TEXT NOT NULL,
		org TEXT NOT NULL,
		commit_count INTEGER NOT NULL DEFAULT 0,
		project_count INTEGER NOT NULL DEFAULT 0,
		latest_commit TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (name, org)
	)`),
	both(6, "index_reactions_comment", `
	CREATE INDEX IF NOT EXISTS idx_reactions_comment ON reactions(comment_id)`),
}

// applyMigrations brings the database to the latest schema version and
// returns the number of migrations applied. dialect is "sqlite" or
// "postgres".
func applyMigrations(db *sql.DB, dialect string) (int, error) {
	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL
	)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return 0, err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	count := 0
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		stmt := m.SQLite
		record := `INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
		if dialect == "postgres" {
			stmt = m.Postgres
			record = `INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, NOW())`
		}

		tx, err := db.Begin()
		if err != nil {
			return count, fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return count, fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(record, m.Version, m.Name); err != nil {
			tx.Rollback()
			return count, fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return count, fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
		count++
	}

	return count, nil
}

// currentVersion returns the highest applied migration version, 0 when the
// schema_migrations table does not exist yet.
func currentVersion(db *sql.DB) (int, error) {
	var version sql.NullInt64
	err := db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	if err != nil {
		// Table missing means no migration ever ran
		return 0, nil
	}
	return int(version.Int64), nil
}
