package database

import "time"

// Dialect abstracts all database-specific SQL generation and value encoding.
// Each backend (SQLite, PostgreSQL) implements this interface.
type Dialect interface {
	// DriverName returns the database/sql driver name.
	DriverName() string

	// DSN returns the data source name for opening a connection.
	// For SQLite this is the file path; for PostgreSQL a connection string.
	DSN(pathOrConnStr string) string

	// Placeholder returns the parameter placeholder for the given 1-based
	// index. SQLite: "?" (ignoring index), PostgreSQL: "$1", "$2", etc.
	Placeholder(index int) string

	// MaxOpenConns returns the connection pool limit, 0 for unlimited.
	// SQLite permits only one writer, so its pool is capped at one
	// connection to queue concurrent write transactions.
	MaxOpenConns() int

	// IDColumn returns the row identifier column name.
	// SQLite: "rowid" (implicit), PostgreSQL: "id" (explicit bigserial).
	IDColumn() string

	// SanitizeText prepares a string value for storage. PostgreSQL rejects
	// null bytes with "invalid byte sequence for encoding UTF8"; SQLite
	// stores them fine.
	SanitizeText(s string) string

	// TimeValue encodes a nullable timestamp for binding. SQLite stores
	// RFC 3339 text, PostgreSQL a native timestamptz. nil maps to SQL NULL.
	TimeValue(t *time.Time) interface{}

	// DDL for the three record tables. Each carries a uniqueness key so
	// bulk inserts can drop duplicate rows instead of failing.
	CreateMFTTableSQL() string
	CreateAmcacheTableSQL() string
	CreateSecurityTableSQL() string

	// CreateIndexSQL returns DDL to create an index over the given columns.
	CreateIndexSQL(indexName, tableName string, columns ...string) string

	// Parameterized bulk-insert statements, tolerant of duplicate-key
	// conflicts (conflicting rows are silently dropped).
	InsertMFTSQL() string
	InsertAmcacheSQL() string
	InsertSecuritySQL() string
}
