package domain

import "strings"

// Table is a decoded tabular source: a DBF file, one worksheet or a CSV.
// Every row has len(Fields) cells; short rows are padded with "".
type Table struct {
	Name   string
	Fields []string
	Rows   [][]string
}

// NewTable pads or truncates rows to the header width.
func NewTable(name string, fields []string, rows [][]string) *Table {
	t := &Table{Name: name, Fields: fields, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		cells := make([]string, len(fields))
		copy(cells, r)
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// Column returns the index of the first alias present in the header.
// Matching ignores case and surrounding whitespace.
func (t *Table) Column(aliases ...string) (int, bool) {
	for _, a := range aliases {
		for i, f := range t.Fields {
			if columnKey(f) == columnKey(a) {
				return i, true
			}
		}
	}
	return -1, false
}

// RequireColumn is Column returning a FieldsError when no alias matches.
func (t *Table) RequireColumn(what string, aliases ...string) (int, error) {
	if i, ok := t.Column(aliases...); ok {
		return i, nil
	}
	return -1, &FieldsError{What: what, Want: aliases, Found: t.Fields}
}

func columnKey(s string) string {
	return strings.ToLower(collapseSpace(DecodeLegacyText(s)))
}
