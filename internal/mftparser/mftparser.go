// Package mftparser maps rows of an MFT CSV dump (MFTECmd-style output) into
// typed filesystem records.
package mftparser

import (
	"strings"

	"github.com/google/uuid"

	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/model"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/rowfield"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/timeparse"
)

// Column aliases per logical field, in priority order. Different MFT parser
// versions emit different header vocabularies; the 0x10 ($STANDARD_INFORMATION)
// timestamps win over the 0x30 ($FILE_NAME) ones when both are present.
var (
	entryAliases    = []string{"EntryNumber", "Entry", "RecordNumber", "MFTRecordNumber"}
	sequenceAliases = []string{"SequenceNumber", "Sequence", "Seq"}
	nameAliases     = []string{"FileName", "Name"}
	pathAliases     = []string{"FullPath", "FilePath", "Path"}
	parentAliases   = []string{"ParentPath", "ParentDir", "Parent"}
	dirAliases      = []string{"IsDirectory", "Directory", "IsDir"}
	sizeAliases     = []string{"FileSize", "Size", "SizeInBytes", "LogicalSize"}

	createdAliases    = []string{"Created0x10", "Created", "CreationTime", "Created0x30"}
	modifiedAliases   = []string{"LastModified0x10", "Modified", "LastWriteTime", "LastModified0x30"}
	accessedAliases   = []string{"LastAccess0x10", "Accessed", "LastAccessTime", "LastAccess0x30"}
	mftChangedAliases = []string{"LastRecordChange0x10", "RecordChanged", "EntryModified", "LastRecordChange0x30"}
)

// coreAliases is every alias consumed by the typed mapping; remaining
// non-empty columns go to the free-form Extra map.
var coreAliases = flatten(
	entryAliases, sequenceAliases, nameAliases, pathAliases, parentAliases,
	dirAliases, sizeAliases, createdAliases, modifiedAliases, accessedAliases,
	mftChangedAliases,
)

// MapRow converts one canonicalized CSV row into an MFT entry. MFT rows are
// never skipped: absent numerics default to 0, absent strings to "", and the
// full path to ".". Directories always get size 0 regardless of any
// size-like column.
func MapRow(evidence uuid.UUID, row *rowfield.Row) *model.MFTEntry {
	e := &model.MFTEntry{
		EvidenceID:  evidence,
		EntryNumber: row.ResolveInt(entryAliases...),
		Sequence:    row.ResolveInt(sequenceAliases...),
		IsDirectory: row.ResolveBool(dirAliases...),
		FileName:    row.Resolve(nameAliases...),
	}

	e.FullPath = row.Resolve(pathAliases...)
	if e.FullPath == "" {
		e.FullPath = joinPath(row.Resolve(parentAliases...), e.FileName)
	}

	if !e.IsDirectory {
		e.SizeBytes = row.ResolveInt(sizeAliases...)
		if e.SizeBytes < 0 {
			e.SizeBytes = 0
		}
	}

	e.Created = timeparse.CoercePtr(row.Resolve(createdAliases...))
	e.Modified = timeparse.CoercePtr(row.Resolve(modifiedAliases...))
	e.Accessed = timeparse.CoercePtr(row.Resolve(accessedAliases...))
	e.MFTChanged = timeparse.CoercePtr(row.Resolve(mftChangedAliases...))

	e.Extra = row.Extras(coreAliases...)
	return e
}

// joinPath synthesizes a full path from a parent path and a file name.
// Both empty yields ".", never "".
func joinPath(parent, name string) string {
	parent = strings.TrimRight(parent, `\`)
	switch {
	case parent != "" && name != "":
		return parent + `\` + name
	case name != "":
		return name
	case parent != "":
		return parent
	}
	return "."
}

func flatten(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
