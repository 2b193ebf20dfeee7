// Package attributes loads the static attribute description table mapping
// each indicator group to its member fields. The table is read once at
// startup from an Excel workbook and is immutable afterward, so concurrent
// requests may resolve groups without coordination.
package attributes

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Default column labels in the attribute description workbook.
const (
	DefaultGroupColumn = "Nhóm chỉ số"
	DefaultFieldColumn = "field"
)

// Description is the loaded group-to-fields reference table.
type Description struct {
	groups map[string][]string
	order  []string
}

// Load reads the attribute description workbook at path. It scans every
// sheet for a header row containing both column labels and reads the
// group/field pairs below it. Rows with an empty group or field label are
// skipped.
func Load(path, groupColumn, fieldColumn string) (*Description, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open attribute description file: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if desc, ok := parseSheet(rows, groupColumn, fieldColumn); ok {
			return desc, nil
		}
	}

	return nil, fmt.Errorf("no sheet in %s has columns %q and %q", path, groupColumn, fieldColumn)
}

// parseSheet locates the header row and reads the mapping below it.
func parseSheet(rows [][]string, groupColumn, fieldColumn string) (*Description, bool) {
	for i, row := range rows {
		groupIdx, fieldIdx := -1, -1
		for j, cell := range row {
			switch strings.TrimSpace(cell) {
			case groupColumn:
				groupIdx = j
			case fieldColumn:
				fieldIdx = j
			}
		}
		if groupIdx == -1 || fieldIdx == -1 {
			continue
		}

		desc := NewDescription()
		for _, row := range rows[i+1:] {
			var group, field string
			if groupIdx < len(row) {
				group = strings.TrimSpace(row[groupIdx])
			}
			if fieldIdx < len(row) {
				field = strings.TrimSpace(row[fieldIdx])
			}
			if group == "" || field == "" {
				continue
			}
			desc.Add(group, field)
		}
		return desc, true
	}
	return nil, false
}

// NewDescription builds an empty description table. Load is the usual entry
// point; direct construction exists for fixtures.
func NewDescription() *Description {
	return &Description{groups: make(map[string][]string)}
}

// Add appends field to group, keeping first-appearance order and dropping
// duplicate fields within a group. Must not be called once the table is
// shared with request handlers.
func (d *Description) Add(group, field string) {
	fields, known := d.groups[group]
	if !known {
		d.order = append(d.order, group)
	}
	for _, f := range fields {
		if f == field {
			return
		}
	}
	d.groups[group] = append(fields, field)
}

// Groups returns the indicator group names in first-appearance order.
func (d *Description) Groups() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// FieldsForGroup returns the deduplicated member fields of the named group,
// in table order. An unknown group yields an empty slice, not an error: an
// empty field set simply produces no result downstream.
func (d *Description) FieldsForGroup(group string) []string {
	fields := d.groups[group]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// NumGroups returns the number of indicator groups in the table.
func (d *Description) NumGroups() int {
	return len(d.order)
}
