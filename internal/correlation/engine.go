package correlation

import "sort"

const (
	// fenceK is the Tukey fence multiplier: a value is an outlier when it
	// lies more than fenceK times the IQR below Q1 or above Q3.
	fenceK = 1.5

	// minFields and minRows gate the computation both before and after
	// outlier removal.
	minFields = 2
	minRows   = 2
)

// Frame is the tabular view the engine reads. Column reports false when the
// named column is not present; cells with Valid=false are missing values.
type Frame interface {
	Column(name string) ([]Cell, bool)
}

// Compute calculates the cleaned correlation matrix for the given fields over
// the frame. The second return value is false when the frame cannot produce a
// matrix (too few fields or rows, or no usable data after cleaning); that is
// an expected non-result, not an error.
//
// Order of operations:
//  1. Intersect fields with the columns present in the frame.
//  2. Drop every row missing a value in any selected column.
//  3. Compute per-field Tukey fences from the surviving rows, once, then drop
//     each row that breaches the fence of any selected field.
//  4. Compute pairwise Pearson correlation over the cleaned rows; fields with
//     zero variance yield no-value entries instead of numbers.
func Compute(frame Frame, fields []string) (*Result, bool) {
	headers, columns := selectColumns(frame, fields)
	if len(headers) < minFields {
		return nil, false
	}

	rows := completeRows(columns)
	if len(rows) < minRows {
		return nil, false
	}

	cleaned := removeOutliers(rows)
	if len(cleaned) == 0 || usableFields(cleaned) < minFields {
		return nil, false
	}

	return &Result{
		Matrix:  pearsonMatrix(cleaned, len(headers)),
		Headers: headers,
	}, true
}

// selectColumns intersects the requested fields with the columns the frame
// actually has, preserving the requested order.
func selectColumns(frame Frame, fields []string) ([]string, [][]Cell) {
	var headers []string
	var columns [][]Cell
	for _, f := range fields {
		col, ok := frame.Column(f)
		if !ok {
			continue
		}
		headers = append(headers, f)
		columns = append(columns, col)
	}
	return headers, columns
}

// completeRows performs complete-case filtering: a row survives only when it
// has a value in every selected column.
func completeRows(columns [][]Cell) [][]float64 {
	if len(columns) == 0 {
		return nil
	}

	var rows [][]float64
	for i := range columns[0] {
		row := make([]float64, len(columns))
		complete := true
		for j, col := range columns {
			if !col[i].Valid {
				complete = false
				break
			}
			row[j] = col[i].Value
		}
		if complete {
			rows = append(rows, row)
		}
	}
	return rows
}

// removeOutliers drops every row holding an outlier in any field, using the
// classic Tukey fence rule. The fences are computed once per field from the
// incoming distribution, not recomputed as rows are removed, so re-running
// the pass on its own output removes nothing further.
func removeOutliers(rows [][]float64) [][]float64 {
	numFields := len(rows[0])

	lower := make([]float64, numFields)
	upper := make([]float64, numFields)
	values := make([]float64, len(rows))

	for j := 0; j < numFields; j++ {
		for i, row := range rows {
			values[i] = row[j]
		}
		sort.Float64s(values)

		q1 := Quantile(values, 0.25)
		q3 := Quantile(values, 0.75)
		iqr := q3 - q1

		lower[j] = q1 - fenceK*iqr
		upper[j] = q3 + fenceK*iqr
	}

	var cleaned [][]float64
	for _, row := range rows {
		inside := true
		for j, v := range row {
			if v < lower[j] || v > upper[j] {
				inside = false
				break
			}
		}
		if inside {
			cleaned = append(cleaned, row)
		}
	}
	return cleaned
}

// usableFields counts fields that still vary across the cleaned rows. A
// constant field cannot correlate with anything.
func usableFields(rows [][]float64) int {
	usable := 0
	for j := range rows[0] {
		first := rows[0][j]
		for _, row := range rows[1:] {
			if row[j] != first {
				usable++
				break
			}
		}
	}
	return usable
}

// pearsonMatrix builds the symmetric correlation matrix over the cleaned
// rows. Undefined coefficients become no-value cells.
func pearsonMatrix(rows [][]float64, numFields int) [][]Cell {
	cols := make([][]float64, numFields)
	for j := 0; j < numFields; j++ {
		col := make([]float64, len(rows))
		for i, row := range rows {
			col[i] = row[j]
		}
		cols[j] = col
	}

	matrix := make([][]Cell, numFields)
	for i := range matrix {
		matrix[i] = make([]Cell, numFields)
	}

	for i := 0; i < numFields; i++ {
		for j := i; j < numFields; j++ {
			cell := None()
			if r, ok := pearson(cols[i], cols[j]); ok {
				cell = Some(r)
			}
			matrix[i][j] = cell
			matrix[j][i] = cell
		}
	}
	return matrix
}
