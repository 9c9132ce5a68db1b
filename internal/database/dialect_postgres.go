package database

import (
	"fmt"
	"strings"
	"time"
)

// PostgresDialect implements the Dialect interface for PostgreSQL databases.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string              { return "pgx" }
func (d *PostgresDialect) DSN(pathOrConnStr string) string { return pathOrConnStr }
func (d *PostgresDialect) Placeholder(index int) string    { return fmt.Sprintf("$%d", index) }
func (d *PostgresDialect) IDColumn() string                { return "id" }

// MaxOpenConns places no limit; PostgreSQL handles concurrent writers.
func (d *PostgresDialect) MaxOpenConns() int { return 0 }

// SanitizeText strips null bytes (0x00). PostgreSQL rejects them with
// "invalid byte sequence for encoding UTF8".
func (d *PostgresDialect) SanitizeText(s string) string {
	if strings.ContainsRune(s, '\x00') {
		return strings.ReplaceAll(s, "\x00", "")
	}
	return s
}

func (d *PostgresDialect) TimeValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func (d *PostgresDialect) CreateMFTTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS mft_entries (
		id BIGSERIAL PRIMARY KEY,
		evidence_id UUID NOT NULL,
		entry_number BIGINT NOT NULL DEFAULT 0,
		sequence BIGINT NOT NULL DEFAULT 0,
		is_directory BOOLEAN NOT NULL DEFAULT FALSE,
		file_name TEXT NOT NULL DEFAULT '',
		full_path TEXT NOT NULL DEFAULT '.',
		size_bytes BIGINT NOT NULL DEFAULT 0,
		created_ts TIMESTAMPTZ,
		modified_ts TIMESTAMPTZ,
		accessed_ts TIMESTAMPTZ,
		mft_changed_ts TIMESTAMPTZ,
		extra JSONB NOT NULL DEFAULT '{}',
		UNIQUE (evidence_id, entry_number, sequence, full_path)
	)`
}

func (d *PostgresDialect) CreateAmcacheTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS amcache_entries (
		id BIGSERIAL PRIMARY KEY,
		evidence_id UUID NOT NULL,
		app_name TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '',
		publisher TEXT NOT NULL DEFAULT '',
		install_date TIMESTAMPTZ,
		file_path TEXT NOT NULL DEFAULT '',
		sha1 TEXT NOT NULL DEFAULT '',
		pe_hash TEXT NOT NULL DEFAULT '',
		product_name TEXT NOT NULL DEFAULT '',
		extra JSONB NOT NULL DEFAULT '{}',
		UNIQUE (evidence_id, app_name, file_path, sha1)
	)`
}

func (d *PostgresDialect) CreateSecurityTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS security_events (
		id BIGSERIAL PRIMARY KEY,
		evidence_id UUID NOT NULL,
		ts TIMESTAMPTZ,
		channel TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		event_id BIGINT NOT NULL,
		level TEXT NOT NULL DEFAULT '',
		task TEXT NOT NULL DEFAULT '',
		opcode TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '',
		record_id BIGINT NOT NULL DEFAULT 0,
		computer TEXT NOT NULL DEFAULT '',
		user_sid TEXT NOT NULL DEFAULT '',
		user_name TEXT NOT NULL DEFAULT '',
		process_id BIGINT NOT NULL DEFAULT 0,
		thread_id BIGINT NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		event_data JSONB NOT NULL DEFAULT '{}',
		UNIQUE (evidence_id, channel, event_id, record_id)
	)`
}

func (d *PostgresDialect) CreateIndexSQL(indexName, tableName string, columns ...string) string {
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		indexName, tableName, strings.Join(columns, ", "))
}

func (d *PostgresDialect) InsertMFTSQL() string {
	return `INSERT INTO mft_entries (
		evidence_id, entry_number, sequence, is_directory, file_name,
		full_path, size_bytes, created_ts, modified_ts, accessed_ts,
		mft_changed_ts, extra
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT DO NOTHING`
}

func (d *PostgresDialect) InsertAmcacheSQL() string {
	return `INSERT INTO amcache_entries (
		evidence_id, app_name, version, publisher, install_date,
		file_path, sha1, pe_hash, product_name, extra
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT DO NOTHING`
}

func (d *PostgresDialect) InsertSecuritySQL() string {
	return `INSERT INTO security_events (
		evidence_id, ts, channel, provider, event_id, level, task, opcode,
		keywords, record_id, computer, user_sid, user_name, process_id,
		thread_id, message, event_data
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		$15, $16, $17)
	ON CONFLICT DO NOTHING`
}
