package amcacheparser

import (
	"testing"

	"github.com/google/uuid"

	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/rowfield"
)

var testEvidence = uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")

func makeRow(pairs ...string) *rowfield.Row {
	header := make([]string, 0, len(pairs)/2)
	record := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		header = append(header, pairs[i])
		record = append(record, pairs[i+1])
	}
	return rowfield.New(header, record)
}

func TestMapRow(t *testing.T) {
	row := makeRow(
		"ApplicationName", "7-Zip",
		"ProductVersion", "23.01",
		"CompanyName", "Igor Pavlov",
		"FileKeyLastWriteTimestamp", "2024-03-10 12:00:00",
		"FullPath", `C:\Program Files\7-Zip\7z.exe`,
		"SHA1", "0000111122223333444455556666777788889999",
	)
	e, ok := MapRow(testEvidence, row)
	if !ok {
		t.Fatal("MapRow skipped a valid row")
	}
	if e.AppName != "7-Zip" {
		t.Errorf("AppName = %q", e.AppName)
	}
	if e.Version != "23.01" || e.Publisher != "Igor Pavlov" {
		t.Errorf("version/publisher = %q/%q", e.Version, e.Publisher)
	}
	if e.InstallDate == nil || e.InstallDate.Month() != 3 {
		t.Errorf("InstallDate = %v", e.InstallDate)
	}
	if e.SHA1 != "0000111122223333444455556666777788889999" {
		t.Errorf("SHA1 = %q", e.SHA1)
	}
}

func TestMapRowSkipsMissingAppName(t *testing.T) {
	for _, pairs := range [][]string{
		{"FullPath", `C:\unknown.exe`},
		{"ApplicationName", ""},
		{"ApplicationName", "NULL"},
	} {
		if e, ok := MapRow(testEvidence, makeRow(pairs...)); ok {
			t.Errorf("MapRow(%v) mapped %+v, want skip", pairs, e)
		}
	}
}

func TestMapRowAppNameAliasOrder(t *testing.T) {
	row := makeRow(
		"Name", "fallback.exe",
		"ProgramName", "Preferred App",
	)
	e, ok := MapRow(testEvidence, row)
	if !ok {
		t.Fatal("MapRow skipped")
	}
	if e.AppName != "Preferred App" {
		t.Errorf("AppName = %q, want higher-priority alias", e.AppName)
	}
}

func TestMapRowExtraKeepsWholeRow(t *testing.T) {
	// Amcache extras keep the raw row minus empties, mapped columns included.
	row := makeRow(
		"ApplicationName", "calc.exe",
		"UnknownColumn", "value",
		"Empty", "",
	)
	e, ok := MapRow(testEvidence, row)
	if !ok {
		t.Fatal("MapRow skipped")
	}
	if e.Extra.Len() != 2 {
		t.Fatalf("Extra len = %d, want 2: %v", e.Extra.Len(), e.Extra.Keys())
	}
	if v, _ := e.Extra.Get("ApplicationName"); v != "calc.exe" {
		t.Errorf("Extra[ApplicationName] = %v", v)
	}
}
