// Package dataset models the uploaded tabular dataset: ordered indicator
// columns, nullable numeric cells, and a sector label per row. Tables are
// built once per request and never mutated afterward.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"corrsvc/internal/correlation"
)

// SectorColumn is the required sector-identifier column in every upload.
const SectorColumn = "sector_unique_id"

// ErrMissingSectorColumn is returned when the upload lacks the required
// sector identifier column.
var ErrMissingSectorColumn = fmt.Errorf("CSV must contain a %q column", SectorColumn)

// Table holds a parsed upload. Columns names the indicator columns in file
// order (the sector column excluded); Rows holds one cell per column per row,
// aligned with Sectors.
type Table struct {
	Columns []string
	Sectors []string
	Rows    [][]correlation.Cell

	colIndex map[string]int
}

// NumRows returns the number of data rows in the table.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ParseCSV reads a delimited text file with a header row into a Table.
// Cells that are empty or not parseable as numbers become missing values;
// a row shorter than the header is padded with missing values. Only a
// missing header, an unreadable record, or a missing sector column fail
// the parse.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("file is empty")
		}
		return nil, fmt.Errorf("read header row: %w", err)
	}

	sectorIdx := -1
	for i, name := range header {
		if strings.TrimSpace(name) == SectorColumn {
			sectorIdx = i
			break
		}
	}
	if sectorIdx == -1 {
		return nil, ErrMissingSectorColumn
	}

	table := &Table{colIndex: make(map[string]int)}
	fieldIdx := make([]int, 0, len(header)-1)
	for i, name := range header {
		if i == sectorIdx {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		table.colIndex[name] = len(table.Columns)
		table.Columns = append(table.Columns, name)
		fieldIdx = append(fieldIdx, i)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read data row: %w", err)
		}

		sector := ""
		if sectorIdx < len(record) {
			sector = strings.TrimSpace(record[sectorIdx])
		}

		row := make([]correlation.Cell, len(table.Columns))
		for j, src := range fieldIdx {
			if src >= len(record) {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(record[src]), 64); err == nil {
				row[j] = correlation.Some(v)
			}
		}

		table.Sectors = append(table.Sectors, sector)
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// SectorSlice is a read-only view of the table rows belonging to one sector.
// It satisfies correlation.Frame.
type SectorSlice struct {
	Sector string

	table *Table
	rows  []int
}

// NumRows returns the number of rows in the slice.
func (s *SectorSlice) NumRows() int {
	return len(s.rows)
}

// Column returns the named column's cells for this sector's rows, in row
// order. Reports false when the table has no such column.
func (s *SectorSlice) Column(name string) ([]correlation.Cell, bool) {
	j, ok := s.table.colIndex[name]
	if !ok {
		return nil, false
	}
	cells := make([]correlation.Cell, len(s.rows))
	for i, r := range s.rows {
		cells[i] = s.table.Rows[r][j]
	}
	return cells, true
}

// PartitionBySector splits the table into per-sector slices, sorted by
// sector identifier. The order is deterministic, so the same upload always
// produces the same result document.
func (t *Table) PartitionBySector() []*SectorSlice {
	var slices []*SectorSlice
	index := make(map[string]*SectorSlice)

	for i, sector := range t.Sectors {
		slice, ok := index[sector]
		if !ok {
			slice = &SectorSlice{Sector: sector, table: t}
			index[sector] = slice
			slices = append(slices, slice)
		}
		slice.rows = append(slice.rows, i)
	}

	sort.Slice(slices, func(i, j int) bool {
		return slices[i].Sector < slices[j].Sector
	})
	return slices
}
