package model

import (
	"time"

	"github.com/Velocidex/ordereddict"
	"github.com/google/uuid"
)

// ArtifactKind identifies which triage artifact a record was extracted from.
// It selects the target table for delete-then-load operations.
type ArtifactKind string

const (
	KindMFT      ArtifactKind = "mft"
	KindAmcache  ArtifactKind = "amcache"
	KindSecurity ArtifactKind = "security"
)

// Kinds lists every supported artifact kind.
var Kinds = []ArtifactKind{KindMFT, KindAmcache, KindSecurity}

// MFTEntry is one filesystem record from a Master File Table CSV dump.
// All records belong to exactly one evidence unit and are replaced wholesale
// when that evidence unit's MFT CSV is re-ingested.
type MFTEntry struct {
	ID          int64     `json:"id"`
	EvidenceID  uuid.UUID `json:"evidence_id"`
	EntryNumber int64     `json:"entry_number"`
	Sequence    int64     `json:"sequence"`
	IsDirectory bool      `json:"is_directory"`
	FileName    string    `json:"file_name"`
	FullPath    string    `json:"full_path"`
	SizeBytes   int64     `json:"size_bytes"`

	Created    *time.Time `json:"created_ts"`
	Modified   *time.Time `json:"modified_ts"`
	Accessed   *time.Time `json:"accessed_ts"`
	MFTChanged *time.Time `json:"mft_changed_ts"`

	Extra *ordereddict.Dict `json:"extra"`
}

// AmcacheEntry is one application record from an Amcache hive export.
// AppName is mandatory; rows without it never become entries.
type AmcacheEntry struct {
	ID          int64      `json:"id"`
	EvidenceID  uuid.UUID  `json:"evidence_id"`
	AppName     string     `json:"app_name"`
	Version     string     `json:"version"`
	Publisher   string     `json:"publisher"`
	InstallDate *time.Time `json:"install_date"`
	FilePath    string     `json:"file_path"`
	SHA1        string     `json:"sha1"`
	PEHash      string     `json:"pe_hash"`
	ProductName string     `json:"product_name"`

	Extra *ordereddict.Dict `json:"extra"`
}

// SecurityEvent is one decoded Windows Event Log record. EventID is always a
// positive integer; rows that fail to produce one never become events.
// EventData carries every non-core CSV column plus the describer's reserved
// keys.
type SecurityEvent struct {
	ID         int64      `json:"id"`
	EvidenceID uuid.UUID  `json:"evidence_id"`
	Timestamp  *time.Time `json:"timestamp"`
	Channel    string     `json:"channel"`
	Provider   string     `json:"provider"`
	EventID    int64      `json:"event_id"`
	Level      string     `json:"level"`
	Task       string     `json:"task"`
	Opcode     string     `json:"opcode"`
	Keywords   string     `json:"keywords"`
	RecordID   int64      `json:"record_id"`
	Computer   string     `json:"computer"`
	UserSID    string     `json:"user_sid"`
	UserName   string     `json:"user_name"`
	ProcessID  int64      `json:"process_id"`
	ThreadID   int64      `json:"thread_id"`
	Message    string     `json:"message"`

	EventData *ordereddict.Dict `json:"event_data"`
}
