// Package rowfield resolves logical fields out of raw CSV rows whose column
// vocabulary varies between parser versions. Header matching is
// case-insensitive and ignores punctuation, so "Created0x10", "created_0x10"
// and "Created 0x10" all name the same column.
package rowfield

import (
	"strconv"
	"strings"

	"github.com/Velocidex/ordereddict"
)

// Column is one raw CSV cell paired with its original header name.
type Column struct {
	Name  string
	Value string
}

// Row is a single CSV data row indexed by canonical header name while
// preserving the original column order for free-form capture.
type Row struct {
	cols  []Column
	index map[string]int
}

// Canon normalizes a header name: lowercase, every non-alphanumeric rune
// removed.
func Canon(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// New builds a Row from a header row and a data record. Cells beyond the
// header are dropped; missing cells become empty strings. When two headers
// collide on the same canonical name, the first one wins.
func New(header, record []string) *Row {
	r := &Row{
		cols:  make([]Column, 0, len(header)),
		index: make(map[string]int, len(header)),
	}
	for i, name := range header {
		val := ""
		if i < len(record) {
			val = strings.TrimSpace(record[i])
		}
		r.cols = append(r.cols, Column{Name: strings.TrimSpace(name), Value: val})
		key := Canon(name)
		if _, dup := r.index[key]; key != "" && !dup {
			r.index[key] = i
		}
	}
	return r
}

// Resolve returns the first non-empty, non-"NULL" value among the candidate
// field names, tried in priority order. Returns "" when no candidate matches.
func (r *Row) Resolve(candidates ...string) string {
	for _, c := range candidates {
		if i, ok := r.index[Canon(c)]; ok {
			v := r.cols[i].Value
			if v != "" && v != "NULL" {
				return v
			}
		}
	}
	return ""
}

// ResolveInt resolves a candidate list and coerces the value to an integer.
// Unparseable or absent values yield 0, never an error.
func (r *Row) ResolveInt(candidates ...string) int64 {
	n, err := strconv.ParseInt(r.Resolve(candidates...), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ResolveBool resolves a candidate list as a boolean flag. Recognized true
// values are "true", "yes", "y" and "1" (case-insensitive); everything else
// is false.
func (r *Row) ResolveBool(candidates ...string) bool {
	switch strings.ToLower(r.Resolve(candidates...)) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}

// SetDefault appends a column unless the canonical name is already present.
// Used to merge payload-derived fields as last-resort fallbacks without
// overwriting authoritative columns.
func (r *Row) SetDefault(name, value string) {
	key := Canon(name)
	if key == "" {
		return
	}
	if _, ok := r.index[key]; ok {
		return
	}
	r.index[key] = len(r.cols)
	r.cols = append(r.cols, Column{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
}

// Clone returns an independent copy of the row.
func (r *Row) Clone() *Row {
	c := &Row{
		cols:  make([]Column, len(r.cols)),
		index: make(map[string]int, len(r.index)),
	}
	copy(c.cols, r.cols)
	for k, v := range r.index {
		c.index[k] = v
	}
	return c
}

// Columns returns the cells in original CSV order.
func (r *Row) Columns() []Column {
	return r.cols
}

// Extras collects every non-empty cell whose canonical header is not in the
// exclude list, keyed by original header name, in original column order.
func (r *Row) Extras(exclude ...string) *ordereddict.Dict {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[Canon(e)] = true
	}
	d := ordereddict.NewDict()
	for _, col := range r.cols {
		if col.Value == "" || skip[Canon(col.Name)] {
			continue
		}
		if _, present := d.Get(col.Name); present {
			continue
		}
		d.Set(col.Name, col.Value)
	}
	return d
}
