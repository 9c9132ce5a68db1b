package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Velocidex/ordereddict"
	"github.com/google/uuid"

	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/ingest"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/model"

	_ "modernc.org/sqlite"
)

// SQLStore implements Store over database/sql with a backend Dialect.
// All SQL text and value encoding differences live in the dialect; the
// operations here are backend-neutral.
type SQLStore struct {
	path    string
	conn    *sql.DB
	dialect Dialect
}

// OpenSQLite opens an existing SQLite triage database.
func OpenSQLite(path string) (*SQLStore, error) {
	return open(&SQLiteDialect{}, path)
}

// CreateSQLite creates a new SQLite triage database with the full schema.
func CreateSQLite(path string) (*SQLStore, error) {
	return create(&SQLiteDialect{}, path)
}

func open(d Dialect, pathOrConnStr string) (*SQLStore, error) {
	conn, err := sql.Open(d.DriverName(), d.DSN(pathOrConnStr))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if n := d.MaxOpenConns(); n > 0 {
		conn.SetMaxOpenConns(n)
	}

	// Verify the connection works
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &SQLStore{path: pathOrConnStr, conn: conn, dialect: d}, nil
}

func create(d Dialect, pathOrConnStr string) (*SQLStore, error) {
	db, err := open(d, pathOrConnStr)
	if err != nil {
		return nil, err
	}

	if err := db.createSchema(); err != nil {
		db.conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Path returns the file path or connection string of the database.
func (s *SQLStore) Path() string {
	return s.path
}

// Conn returns the underlying *sql.DB connection for advanced query usage.
func (s *SQLStore) Conn() *sql.DB {
	return s.conn
}

// createSchema builds the three record tables and their indexes.
func (s *SQLStore) createSchema() error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ddl := range []string{
		s.dialect.CreateMFTTableSQL(),
		s.dialect.CreateAmcacheTableSQL(),
		s.dialect.CreateSecurityTableSQL(),
	} {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("creating record table: %w", err)
		}
	}

	for _, idx := range schemaIndexes {
		if _, err := tx.Exec(s.dialect.CreateIndexSQL(idx.name, idx.table, idx.columns...)); err != nil {
			return fmt.Errorf("creating index %s: %w", idx.name, err)
		}
	}

	return tx.Commit()
}

// Begin opens one delete-then-load transaction. It satisfies ingest.Sink.
func (s *SQLStore) Begin(ctx context.Context) (ingest.Tx, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &storeTx{tx: tx, d: s.dialect}, nil
}

// DeleteEvidence removes every record of every artifact kind owned by the
// evidence unit, in one transaction.
func (s *SQLStore) DeleteEvidence(evidence uuid.UUID) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, kind := range model.Kinds {
		table, _ := tableForKind(kind)
		_, err := tx.Exec(
			"DELETE FROM "+table+" WHERE evidence_id = "+s.dialect.Placeholder(1),
			evidence.String(),
		)
		if err != nil {
			return fmt.Errorf("deleting %s records: %w", kind, err)
		}
	}

	return tx.Commit()
}

// CountRecords returns the number of persisted records of one artifact kind
// owned by the evidence unit.
func (s *SQLStore) CountRecords(evidence uuid.UUID, kind model.ArtifactKind) (int64, error) {
	table, ok := tableForKind(kind)
	if !ok {
		return 0, fmt.Errorf("unknown artifact kind: %s", kind)
	}

	var count int64
	err := s.conn.QueryRow(
		"SELECT COUNT(*) FROM "+table+" WHERE evidence_id = "+s.dialect.Placeholder(1),
		evidence.String(),
	).Scan(&count)
	return count, err
}

// MFTEntries returns MFT entries for one evidence unit ordered by entry
// number. Pass limit 0 for no limit.
func (s *SQLStore) MFTEntries(evidence uuid.UUID, limit, offset int) ([]*model.MFTEntry, error) {
	query := "SELECT " + s.dialect.IDColumn() + ", evidence_id, entry_number, sequence, " +
		"is_directory, file_name, full_path, size_bytes, created_ts, modified_ts, " +
		"accessed_ts, mft_changed_ts, extra FROM mft_entries WHERE evidence_id = " +
		s.dialect.Placeholder(1) + " ORDER BY entry_number" + limitClause(limit, offset)

	rows, err := s.conn.Query(query, evidence.String())
	if err != nil {
		return nil, fmt.Errorf("querying mft entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.MFTEntry
	for rows.Next() {
		e := &model.MFTEntry{}
		var evID, isDir, created, modified, accessed, changed, extra interface{}
		err := rows.Scan(
			&e.ID, &evID, &e.EntryNumber, &e.Sequence, &isDir, &e.FileName,
			&e.FullPath, &e.SizeBytes, &created, &modified, &accessed,
			&changed, &extra,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning mft entry: %w", err)
		}
		e.EvidenceID = asUUID(evID)
		e.IsDirectory = asBool(isDir)
		e.Created = asTimePtr(created)
		e.Modified = asTimePtr(modified)
		e.Accessed = asTimePtr(accessed)
		e.MFTChanged = asTimePtr(changed)
		e.Extra = asDict(extra)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AmcacheEntries returns Amcache entries for one evidence unit ordered by
// application name. Pass limit 0 for no limit.
func (s *SQLStore) AmcacheEntries(evidence uuid.UUID, limit, offset int) ([]*model.AmcacheEntry, error) {
	query := "SELECT " + s.dialect.IDColumn() + ", evidence_id, app_name, version, " +
		"publisher, install_date, file_path, sha1, pe_hash, product_name, extra " +
		"FROM amcache_entries WHERE evidence_id = " + s.dialect.Placeholder(1) +
		" ORDER BY app_name" + limitClause(limit, offset)

	rows, err := s.conn.Query(query, evidence.String())
	if err != nil {
		return nil, fmt.Errorf("querying amcache entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.AmcacheEntry
	for rows.Next() {
		e := &model.AmcacheEntry{}
		var evID, installed, extra interface{}
		err := rows.Scan(
			&e.ID, &evID, &e.AppName, &e.Version, &e.Publisher, &installed,
			&e.FilePath, &e.SHA1, &e.PEHash, &e.ProductName, &extra,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning amcache entry: %w", err)
		}
		e.EvidenceID = asUUID(evID)
		e.InstallDate = asTimePtr(installed)
		e.Extra = asDict(extra)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SecurityEvents returns security events for one evidence unit ordered by
// record ID. Pass limit 0 for no limit.
func (s *SQLStore) SecurityEvents(evidence uuid.UUID, limit, offset int) ([]*model.SecurityEvent, error) {
	query := "SELECT " + s.dialect.IDColumn() + ", evidence_id, ts, channel, provider, " +
		"event_id, level, task, opcode, keywords, record_id, computer, user_sid, " +
		"user_name, process_id, thread_id, message, event_data FROM security_events " +
		"WHERE evidence_id = " + s.dialect.Placeholder(1) +
		" ORDER BY record_id" + limitClause(limit, offset)

	rows, err := s.conn.Query(query, evidence.String())
	if err != nil {
		return nil, fmt.Errorf("querying security events: %w", err)
	}
	defer rows.Close()

	var events []*model.SecurityEvent
	for rows.Next() {
		e := &model.SecurityEvent{}
		var evID, ts, data interface{}
		err := rows.Scan(
			&e.ID, &evID, &ts, &e.Channel, &e.Provider, &e.EventID, &e.Level,
			&e.Task, &e.Opcode, &e.Keywords, &e.RecordID, &e.Computer,
			&e.UserSID, &e.UserName, &e.ProcessID, &e.ThreadID, &e.Message,
			&data,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning security event: %w", err)
		}
		e.EvidenceID = asUUID(evID)
		e.Timestamp = asTimePtr(ts)
		e.EventData = asDict(data)
		events = append(events, e)
	}
	return events, rows.Err()
}

// storeTx implements ingest.Tx over one *sql.Tx.
type storeTx struct {
	tx *sql.Tx
	d  Dialect
}

func (t *storeTx) Commit() error   { return t.tx.Commit() }
func (t *storeTx) Rollback() error { return t.tx.Rollback() }

// DeleteAll removes every record of one artifact kind owned by the evidence
// unit, inside this transaction.
func (t *storeTx) DeleteAll(evidence uuid.UUID, kind model.ArtifactKind) error {
	table, ok := tableForKind(kind)
	if !ok {
		return fmt.Errorf("unknown artifact kind: %s", kind)
	}
	_, err := t.tx.Exec(
		"DELETE FROM "+table+" WHERE evidence_id = "+t.d.Placeholder(1),
		evidence.String(),
	)
	return err
}

// InsertMFTEntries bulk-inserts one batch. Duplicate-key conflicts are
// dropped by the dialect's insert form, never surfaced.
func (t *storeTx) InsertMFTEntries(entries []*model.MFTEntry) error {
	stmt, err := t.tx.Prepare(t.d.InsertMFTSQL())
	if err != nil {
		return fmt.Errorf("preparing mft insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		extra, err := dictJSON(e.Extra)
		if err != nil {
			return fmt.Errorf("encoding mft extra: %w", err)
		}
		_, err = stmt.Exec(
			e.EvidenceID.String(), e.EntryNumber, e.Sequence, e.IsDirectory,
			t.d.SanitizeText(e.FileName), t.d.SanitizeText(e.FullPath),
			e.SizeBytes, t.d.TimeValue(e.Created), t.d.TimeValue(e.Modified),
			t.d.TimeValue(e.Accessed), t.d.TimeValue(e.MFTChanged),
			t.d.SanitizeText(extra),
		)
		if err != nil {
			return fmt.Errorf("inserting mft entry %d: %w", e.EntryNumber, err)
		}
	}
	return nil
}

// InsertAmcacheEntries bulk-inserts one batch with duplicate tolerance.
func (t *storeTx) InsertAmcacheEntries(entries []*model.AmcacheEntry) error {
	stmt, err := t.tx.Prepare(t.d.InsertAmcacheSQL())
	if err != nil {
		return fmt.Errorf("preparing amcache insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		extra, err := dictJSON(e.Extra)
		if err != nil {
			return fmt.Errorf("encoding amcache extra: %w", err)
		}
		_, err = stmt.Exec(
			e.EvidenceID.String(), t.d.SanitizeText(e.AppName),
			t.d.SanitizeText(e.Version), t.d.SanitizeText(e.Publisher),
			t.d.TimeValue(e.InstallDate), t.d.SanitizeText(e.FilePath),
			e.SHA1, e.PEHash, t.d.SanitizeText(e.ProductName),
			t.d.SanitizeText(extra),
		)
		if err != nil {
			return fmt.Errorf("inserting amcache entry %q: %w", e.AppName, err)
		}
	}
	return nil
}

// InsertSecurityEvents bulk-inserts one batch with duplicate tolerance.
func (t *storeTx) InsertSecurityEvents(events []*model.SecurityEvent) error {
	stmt, err := t.tx.Prepare(t.d.InsertSecuritySQL())
	if err != nil {
		return fmt.Errorf("preparing security insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		data, err := dictJSON(e.EventData)
		if err != nil {
			return fmt.Errorf("encoding event data: %w", err)
		}
		_, err = stmt.Exec(
			e.EvidenceID.String(), t.d.TimeValue(e.Timestamp),
			e.Channel, e.Provider, e.EventID, e.Level, e.Task, e.Opcode,
			e.Keywords, e.RecordID, t.d.SanitizeText(e.Computer),
			e.UserSID, t.d.SanitizeText(e.UserName), e.ProcessID, e.ThreadID,
			t.d.SanitizeText(e.Message), t.d.SanitizeText(data),
		)
		if err != nil {
			return fmt.Errorf("inserting security event %d: %w", e.RecordID, err)
		}
	}
	return nil
}

// limitClause renders LIMIT/OFFSET, shared by both dialects.
func limitClause(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	clause := fmt.Sprintf(" LIMIT %d", limit)
	if offset > 0 {
		clause += fmt.Sprintf(" OFFSET %d", offset)
	}
	return clause
}

// dictJSON encodes a free-form map as JSON text; nil maps become "{}".
func dictJSON(d *ordereddict.Dict) (string, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// asUUID coerces a scanned evidence_id back to a UUID. SQLite returns TEXT,
// PostgreSQL's uuid type scans as string or bytes depending on driver.
func asUUID(v interface{}) uuid.UUID {
	switch t := v.(type) {
	case string:
		if id, err := uuid.Parse(t); err == nil {
			return id
		}
	case []byte:
		if id, err := uuid.Parse(string(t)); err == nil {
			return id
		}
	}
	return uuid.Nil
}

// asTimePtr coerces a scanned nullable timestamp. SQLite returns RFC 3339
// text, PostgreSQL a native time.Time.
func asTimePtr(v interface{}) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return &ts
		}
	case []byte:
		if ts, err := time.Parse(time.RFC3339Nano, string(t)); err == nil {
			return &ts
		}
	}
	return nil
}

// asBool coerces a scanned boolean. SQLite stores INTEGER 0/1.
func asBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	}
	return false
}

// asDict decodes a scanned JSON column into an ordered map. Unreadable
// payloads degrade to an empty map.
func asDict(v interface{}) *ordereddict.Dict {
	var data []byte
	switch t := v.(type) {
	case []byte:
		data = t
	case string:
		data = []byte(t)
	}
	d := ordereddict.NewDict()
	if len(data) > 0 {
		_ = d.UnmarshalJSON(data)
	}
	return d
}
