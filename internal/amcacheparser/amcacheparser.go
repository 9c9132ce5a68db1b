// Package amcacheparser maps rows of an Amcache hive CSV export
// (AmcacheParser-style output) into typed application records.
package amcacheparser

import (
	"github.com/google/uuid"

	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/model"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/rowfield"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/timeparse"
)

// Column aliases per logical field, in priority order.
var (
	appNameAliases = []string{"ApplicationName", "ProgramName", "AppName", "ProductName", "Name"}
	versionAliases = []string{"Version", "ProductVersion", "BinFileVersion", "FileVersion"}
	pubAliases     = []string{"Publisher", "CompanyName", "Vendor"}
	installAliases = []string{"InstallDate", "Installed", "FileKeyLastWriteTimestamp", "LinkDate"}
	pathAliases    = []string{"FullPath", "FilePath", "Path"}
	sha1Aliases    = []string{"SHA1", "FileSha1"}
	peHashAliases  = []string{"PeHash", "PEHeaderHash", "BinaryHash", "LongPathHash"}
	productAliases = []string{"ProductName", "Product"}
)

// MapRow converts one canonicalized CSV row into an Amcache entry. Rows
// without an application name are skipped (ok=false); that is expected in
// noisy hive exports, not an error. The Extra map keeps the raw row minus
// empty values for forward compatibility with unanticipated columns.
func MapRow(evidence uuid.UUID, row *rowfield.Row) (*model.AmcacheEntry, bool) {
	name := row.Resolve(appNameAliases...)
	if name == "" {
		return nil, false
	}

	e := &model.AmcacheEntry{
		EvidenceID:  evidence,
		AppName:     name,
		Version:     row.Resolve(versionAliases...),
		Publisher:   row.Resolve(pubAliases...),
		InstallDate: timeparse.CoercePtr(row.Resolve(installAliases...)),
		FilePath:    row.Resolve(pathAliases...),
		SHA1:        row.Resolve(sha1Aliases...),
		PEHash:      row.Resolve(peHashAliases...),
		ProductName: row.Resolve(productAliases...),
		Extra:       row.Extras(),
	}
	return e, true
}
