package correlation

import "encoding/json"

// Cell is a single correlation matrix entry. A cell with Valid=false carries
// no value (zero variance or otherwise undefined) and serializes to JSON null,
// never to NaN.
type Cell struct {
	Value float64
	Valid bool
}

// Some returns a defined cell.
func Some(v float64) Cell {
	return Cell{Value: v, Valid: true}
}

// None returns an undefined cell.
func None() Cell {
	return Cell{}
}

// MarshalJSON renders the cell as a number, or null when undefined.
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON accepts a number or null.
func (c *Cell) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Cell{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = Cell{Value: v, Valid: true}
	return nil
}

// Result is the correlation matrix for one (sector, indicator group) pair.
// Matrix is square and symmetric; Headers names the fields in matrix
// row/column order.
type Result struct {
	Matrix  [][]Cell `json:"matrix"`
	Headers []string `json:"headers"`
}
