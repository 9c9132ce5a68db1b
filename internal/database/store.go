package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/ingest"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/model"
)

// Store defines the storage operations the application needs. The ingester
// only sees the embedded ingest.Sink; the remaining methods serve reporting
// and evidence lifecycle.
type Store interface {
	// Begin opens one delete-then-load transaction (ingest.Sink).
	Begin(ctx context.Context) (ingest.Tx, error)

	// DeleteEvidence removes every record of every artifact kind owned by
	// the evidence unit, the cascade analog for evidence deletion.
	DeleteEvidence(evidence uuid.UUID) error

	// CountRecords returns the number of persisted records of one kind
	// owned by the evidence unit.
	CountRecords(evidence uuid.UUID, kind model.ArtifactKind) (int64, error)

	// Record accessors, ordered and paginated. Pass limit 0 for no limit.
	MFTEntries(evidence uuid.UUID, limit, offset int) ([]*model.MFTEntry, error)
	AmcacheEntries(evidence uuid.UUID, limit, offset int) ([]*model.AmcacheEntry, error)
	SecurityEvents(evidence uuid.UUID, limit, offset int) ([]*model.SecurityEvent, error)

	// Lifecycle
	Close() error
	Path() string
}

// Indexes created for every new database, keyed to the common triage query
// patterns (per-evidence timelines and name lookups).
var schemaIndexes = []struct {
	name    string
	table   string
	columns []string
}{
	{"mft_evidence_entry_idx", "mft_entries", []string{"evidence_id", "entry_number"}},
	{"mft_evidence_dir_idx", "mft_entries", []string{"evidence_id", "is_directory"}},
	{"mft_evidence_created_idx", "mft_entries", []string{"evidence_id", "created_ts"}},
	{"mft_evidence_modified_idx", "mft_entries", []string{"evidence_id", "modified_ts"}},
	{"mft_file_name_idx", "mft_entries", []string{"file_name"}},
	{"amcache_evidence_install_idx", "amcache_entries", []string{"evidence_id", "install_date"}},
	{"amcache_app_name_idx", "amcache_entries", []string{"app_name"}},
	{"amcache_publisher_idx", "amcache_entries", []string{"publisher"}},
	{"security_evidence_event_idx", "security_events", []string{"evidence_id", "event_id"}},
	{"security_evidence_ts_idx", "security_events", []string{"evidence_id", "ts"}},
}

// tableForKind maps an artifact kind to its record table.
func tableForKind(kind model.ArtifactKind) (string, bool) {
	switch kind {
	case model.KindMFT:
		return "mft_entries", true
	case model.KindAmcache:
		return "amcache_entries", true
	case model.KindSecurity:
		return "security_events", true
	}
	return "", false
}
