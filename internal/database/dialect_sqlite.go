package database

import (
	"fmt"
	"strings"
	"time"
)

// SQLiteDialect implements the Dialect interface for SQLite databases.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string           { return "sqlite" }
func (d *SQLiteDialect) Placeholder(index int) string { return "?" }
func (d *SQLiteDialect) IDColumn() string             { return "rowid" }
func (d *SQLiteDialect) SanitizeText(s string) string { return s }

// DSN turns the file path into a URI enabling WAL and a busy timeout.
// SQLite allows only one writer at a time; without the timeout a second
// concurrent write transaction fails immediately with SQLITE_BUSY instead
// of waiting for the first to commit.
func (d *SQLiteDialect) DSN(pathOrConnStr string) string {
	return "file:" + pathOrConnStr +
		"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
}

// MaxOpenConns limits the pool to a single connection. Write transactions
// from different artifact kinds then queue on the pool instead of colliding
// on SQLite's single-writer lock.
func (d *SQLiteDialect) MaxOpenConns() int { return 1 }

func (d *SQLiteDialect) TimeValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func (d *SQLiteDialect) CreateMFTTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS mft_entries (
		evidence_id TEXT NOT NULL,
		entry_number INTEGER NOT NULL DEFAULT 0,
		sequence INTEGER NOT NULL DEFAULT 0,
		is_directory INTEGER NOT NULL DEFAULT 0,
		file_name TEXT NOT NULL DEFAULT '',
		full_path TEXT NOT NULL DEFAULT '.',
		size_bytes INTEGER NOT NULL DEFAULT 0,
		created_ts TEXT,
		modified_ts TEXT,
		accessed_ts TEXT,
		mft_changed_ts TEXT,
		extra TEXT NOT NULL DEFAULT '{}',
		UNIQUE (evidence_id, entry_number, sequence, full_path)
	)`
}

func (d *SQLiteDialect) CreateAmcacheTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS amcache_entries (
		evidence_id TEXT NOT NULL,
		app_name TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '',
		publisher TEXT NOT NULL DEFAULT '',
		install_date TEXT,
		file_path TEXT NOT NULL DEFAULT '',
		sha1 TEXT NOT NULL DEFAULT '',
		pe_hash TEXT NOT NULL DEFAULT '',
		product_name TEXT NOT NULL DEFAULT '',
		extra TEXT NOT NULL DEFAULT '{}',
		UNIQUE (evidence_id, app_name, file_path, sha1)
	)`
}

func (d *SQLiteDialect) CreateSecurityTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS security_events (
		evidence_id TEXT NOT NULL,
		ts TEXT,
		channel TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		event_id INTEGER NOT NULL,
		level TEXT NOT NULL DEFAULT '',
		task TEXT NOT NULL DEFAULT '',
		opcode TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '',
		record_id INTEGER NOT NULL DEFAULT 0,
		computer TEXT NOT NULL DEFAULT '',
		user_sid TEXT NOT NULL DEFAULT '',
		user_name TEXT NOT NULL DEFAULT '',
		process_id INTEGER NOT NULL DEFAULT 0,
		thread_id INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		event_data TEXT NOT NULL DEFAULT '{}',
		UNIQUE (evidence_id, channel, event_id, record_id)
	)`
}

func (d *SQLiteDialect) CreateIndexSQL(indexName, tableName string, columns ...string) string {
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		indexName, tableName, strings.Join(columns, ", "))
}

func (d *SQLiteDialect) InsertMFTSQL() string {
	return `INSERT OR IGNORE INTO mft_entries (
		evidence_id, entry_number, sequence, is_directory, file_name,
		full_path, size_bytes, created_ts, modified_ts, accessed_ts,
		mft_changed_ts, extra
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
}

func (d *SQLiteDialect) InsertAmcacheSQL() string {
	return `INSERT OR IGNORE INTO amcache_entries (
		evidence_id, app_name, version, publisher, install_date,
		file_path, sha1, pe_hash, product_name, extra
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
}

func (d *SQLiteDialect) InsertSecuritySQL() string {
	return `INSERT OR IGNORE INTO security_events (
		evidence_id, ts, channel, provider, event_id, level, task, opcode,
		keywords, record_id, computer, user_sid, user_name, process_id,
		thread_id, message, event_data
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
}
