package ledger

import (
	"fmt"

	"payminder/internal/core"
)

// Grid is the cell image of one ledger: a header row followed by data
// rows. Adapters load a Grid, operate on it and persist what changed.
type Grid struct {
	Header []string
	Rows   [][]Value
}

// Column returns the index of the canonical column name, or -1.
func (g *Grid) Column(name string) int {
	for i, h := range g.Header {
		if c, ok := CanonicalColumn(h); ok && c == name {
			return i
		}
	}
	return -1
}

// EnsureColumn returns the index of name, appending it to the header
// when the ledger lacks it.
func (g *Grid) EnsureColumn(name string) int {
	if i := g.Column(name); i >= 0 {
		return i
	}
	g.Header = append(g.Header, name)
	return len(g.Header) - 1
}

// Cell returns the value at data row pos, column col.
func (g *Grid) Cell(pos, col int) Value {
	if pos < 0 || pos >= len(g.Rows) || col < 0 || col >= len(g.Rows[pos]) {
		return Value{}
	}
	return g.Rows[pos][col]
}

// Set stores v at data row pos, column col, growing the row if needed.
func (g *Grid) Set(pos, col int, v Value) {
	for len(g.Rows[pos]) <= col {
		g.Rows[pos] = append(g.Rows[pos], Value{})
	}
	g.Rows[pos][col] = v
}

// Entries validates the header and returns every non-blank data row with
// its key assigned.
func (g *Grid) Entries(ledger string) ([]Row, error) {
	if err := ValidateHeader(ledger, g.Header); err != nil {
		return nil, err
	}
	// A repeated header maps to its first occurrence, the same column
	// Column picks for writes.
	cols := make(map[string]int, len(g.Header))
	for i, h := range g.Header {
		if c, ok := CanonicalColumn(h); ok {
			if _, seen := cols[c]; !seen {
				cols[c] = i
			}
		}
	}
	rows := make([]Row, 0, len(g.Rows))
	for pos := range g.Rows {
		row := Row{Position: pos, Cells: make(map[string]Value, len(cols))}
		for c, i := range cols {
			row.Cells[c] = g.Cell(pos, i)
		}
		if row.IsBlank() {
			continue
		}
		rows = append(rows, row)
	}
	AssignRowKeys(rows)
	return rows, nil
}

// Resolve finds the current position of the row identified by loc.Key.
// Without a key it falls back to loc.Position when that row still exists.
func (g *Grid) Resolve(loc core.Locator) (int, error) {
	rows, err := g.Entries(loc.Ledger)
	if err != nil {
		return -1, err
	}
	if loc.Key == "" {
		if loc.Position >= 0 && loc.Position < len(g.Rows) {
			return loc.Position, nil
		}
		return -1, fmt.Errorf("%w: %s", core.ErrRowNotFound, loc)
	}
	i, ok := FindKey(rows, loc.Key)
	if !ok {
		return -1, fmt.Errorf("%w: %s", core.ErrRowNotFound, loc)
	}
	return rows[i].Position, nil
}

// Apply writes u into data row pos and returns the indexes of the
// columns it touched.
func (g *Grid) Apply(pos int, u Update) []int {
	var changed []int
	set := func(name string, v Value) {
		col := g.EnsureColumn(name)
		g.Set(pos, col, v)
		changed = append(changed, col)
	}
	if u.AmountRemaining.Valid {
		set(ColAmount, Number(u.AmountRemaining.Decimal.InexactFloat64()))
	}
	if u.Status != "" {
		set(ColStatus, Text(u.Status.String()))
	}
	if !u.DueDate.IsZero() {
		set(ColDueDate, Text(u.DueDate.String()))
	}
	if !u.PaymentDate.IsZero() {
		set(ColPaymentDate, Text(u.PaymentDate.String()))
	}
	if u.AppendRemarks != "" {
		col := g.Column(ColRemarks)
		set(ColRemarks, Text(AppendRemarks(g.Cell(pos, col).String(), u.AppendRemarks)))
	}
	return changed
}

// StampIDs fills empty ID cells on non-blank rows using newID and returns
// the data row positions it stamped.
func (g *Grid) StampIDs(ledger string, newID func() string) ([]int, error) {
	rows, err := g.Entries(ledger)
	if err != nil {
		return nil, err
	}
	col := g.EnsureColumn(ColID)
	var stamped []int
	for _, r := range rows {
		if !g.Cell(r.Position, col).IsEmpty() {
			continue
		}
		g.Set(r.Position, col, Text(newID()))
		stamped = append(stamped, r.Position)
	}
	return stamped, nil
}

// TemplateGrid returns a ledger with the canonical columns and one
// example row due today.
func TemplateGrid(today core.Date, id string) *Grid {
	return &Grid{
		Header: append([]string(nil), Columns...),
		Rows: [][]Value{{
			Text(id),
			Text("John Doe"),
			Number(1000),
			Text(today.String()),
			Text("john.doe@example.com"),
			Text(core.StatusUnpaid.String()),
			Text("Initial invoice"),
			Empty(),
		}},
	}
}
