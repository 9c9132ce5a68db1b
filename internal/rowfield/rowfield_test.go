package rowfield

import "testing"

func TestCanon(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"EntryNumber", "entrynumber"},
		{"entry_number", "entrynumber"},
		{"Entry Number", "entrynumber"},
		{"Created0x10", "created0x10"},
		{"created_0x10", "created0x10"},
		{"  FileName  ", "filename"},
		{"", ""},
		{"___", ""},
	}
	for _, tt := range tests {
		if got := Canon(tt.in); got != tt.want {
			t.Errorf("Canon(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolvePriorityOrder(t *testing.T) {
	row := New(
		[]string{"FilePath", "FullPath"},
		[]string{"C:\\low", "C:\\high"},
	)
	// first candidate wins even if later candidates are populated
	if got := row.Resolve("FullPath", "FilePath"); got != "C:\\high" {
		t.Errorf("Resolve = %q, want %q", got, "C:\\high")
	}
}

func TestResolveSkipsEmptyAndNull(t *testing.T) {
	row := New(
		[]string{"ApplicationName", "ProgramName", "Name"},
		[]string{"", "NULL", "calc.exe"},
	)
	if got := row.Resolve("ApplicationName", "ProgramName", "Name"); got != "calc.exe" {
		t.Errorf("Resolve = %q, want %q", got, "calc.exe")
	}
}

func TestResolveHeaderVariants(t *testing.T) {
	// The same logical field under different header spellings resolves
	// identically.
	variants := []string{"EntryNumber", "entry_number", "Entry Number", "ENTRYNUMBER"}
	for _, h := range variants {
		row := New([]string{h}, []string{"42"})
		if got := row.Resolve("EntryNumber"); got != "42" {
			t.Errorf("header %q: Resolve = %q, want %q", h, got, "42")
		}
	}
}

func TestResolveAbsent(t *testing.T) {
	row := New([]string{"A"}, []string{"1"})
	if got := row.Resolve("Missing"); got != "" {
		t.Errorf("Resolve missing = %q, want empty", got)
	}
}

func TestResolveInt(t *testing.T) {
	row := New(
		[]string{"Sequence", "Bad", "Neg"},
		[]string{"7", "abc", "-3"},
	)
	if got := row.ResolveInt("Sequence"); got != 7 {
		t.Errorf("ResolveInt = %d, want 7", got)
	}
	if got := row.ResolveInt("Bad"); got != 0 {
		t.Errorf("ResolveInt unparseable = %d, want 0", got)
	}
	if got := row.ResolveInt("Neg"); got != -3 {
		t.Errorf("ResolveInt negative = %d, want -3", got)
	}
	if got := row.ResolveInt("Missing"); got != 0 {
		t.Errorf("ResolveInt absent = %d, want 0", got)
	}
}

func TestResolveBool(t *testing.T) {
	row := New(
		[]string{"A", "B", "C", "D", "E"},
		[]string{"True", "yes", "1", "false", "banana"},
	)
	for _, name := range []string{"A", "B", "C"} {
		if !row.ResolveBool(name) {
			t.Errorf("ResolveBool(%s) = false, want true", name)
		}
	}
	for _, name := range []string{"D", "E", "Missing"} {
		if row.ResolveBool(name) {
			t.Errorf("ResolveBool(%s) = true, want false", name)
		}
	}
}

func TestNewTrimsAndHandlesShortRecords(t *testing.T) {
	row := New(
		[]string{"A", "B", "C"},
		[]string{"  spaced  ", "x"},
	)
	if got := row.Resolve("A"); got != "spaced" {
		t.Errorf("Resolve(A) = %q, want trimmed value", got)
	}
	if got := row.Resolve("C"); got != "" {
		t.Errorf("Resolve(C) = %q, want empty for missing cell", got)
	}
}

func TestDuplicateCanonicalFirstWins(t *testing.T) {
	row := New(
		[]string{"FileName", "file_name"},
		[]string{"first.txt", "second.txt"},
	)
	if got := row.Resolve("FileName"); got != "first.txt" {
		t.Errorf("Resolve = %q, want first column", got)
	}
}

func TestSetDefaultDoesNotOverwrite(t *testing.T) {
	row := New([]string{"TargetUserName"}, []string{"jdoe"})
	row.SetDefault("TargetUserName", "payload-user")
	row.SetDefault("IpAddress", "10.0.0.5")

	if got := row.Resolve("TargetUserName"); got != "jdoe" {
		t.Errorf("SetDefault overwrote present column: got %q", got)
	}
	if got := row.Resolve("IpAddress"); got != "10.0.0.5" {
		t.Errorf("SetDefault missing column: got %q", got)
	}
}

func TestExtras(t *testing.T) {
	row := New(
		[]string{"EntryNumber", "FileName", "Custom Field", "Empty"},
		[]string{"5", "a.txt", "hello", ""},
	)
	extras := row.Extras("EntryNumber", "FileName")

	if extras.Len() != 1 {
		t.Fatalf("Extras len = %d, want 1", extras.Len())
	}
	v, ok := extras.Get("Custom Field")
	if !ok || v != "hello" {
		t.Errorf("Extras[Custom Field] = %v, want %q under original header name", v, "hello")
	}
}

func TestExtrasPreservesOrder(t *testing.T) {
	row := New(
		[]string{"Z", "A", "M"},
		[]string{"1", "2", "3"},
	)
	got := row.Extras().Keys()
	want := []string{"Z", "A", "M"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Extras order = %v, want %v", got, want)
		}
	}
}
