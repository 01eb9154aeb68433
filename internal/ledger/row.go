package ledger

import (
	"strings"

	"payminder/internal/core"
)

// Row is one raw data row keyed by canonical column name. Columns the
// ledger does not have are simply absent.
type Row struct {
	Position int
	Key      core.RowKey
	Cells    map[string]Value
}

// Get returns the cell for col, or an empty Value.
func (r Row) Get(col string) Value {
	return r.Cells[col]
}

// IsBlank reports whether every cell is empty.
func (r Row) IsBlank() bool {
	for _, v := range r.Cells {
		if !v.IsEmpty() {
			return false
		}
	}
	return true
}

// AssignRowKeys sets Key on every row: the ID cell when present, otherwise
// a content key over name and email with an occurrence counter so that
// duplicate rows still get distinct keys.
func AssignRowKeys(rows []Row) {
	seen := make(map[string]int)
	for i := range rows {
		if id := rows[i].Get(ColID).String(); id != "" {
			rows[i].Key = core.RowKey(id)
			continue
		}
		name := rows[i].Get(ColName).String()
		email := rows[i].Get(ColEmail).String()
		pair := strings.ToLower(strings.TrimSpace(name)) + "\x00" + strings.ToLower(strings.TrimSpace(email))
		rows[i].Key = core.ContentKey(name, email, seen[pair])
		seen[pair]++
	}
}

// FindKey returns the index in rows of the row with key k.
func FindKey(rows []Row, k core.RowKey) (int, bool) {
	for i, r := range rows {
		if r.Key == k {
			return i, true
		}
	}
	return -1, false
}
