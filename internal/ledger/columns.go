package ledger

import (
	"strings"

	"payminder/internal/core"
)

// Canonical column names.
const (
	ColID          = "ID"
	ColName        = "Name"
	ColAmount      = "Amount"
	ColDueDate     = "Due Date"
	ColEmail       = "Email"
	ColStatus      = "Status"
	ColRemarks     = "Remarks"
	ColPaymentDate = "Payment Date"
)

// Columns is the canonical column set in template order.
var Columns = []string{ColID, ColName, ColAmount, ColDueDate, ColEmail, ColStatus, ColRemarks, ColPaymentDate}

// RequiredColumns must be present for a ledger to be read at all.
var RequiredColumns = []string{ColName, ColAmount, ColDueDate}

// CanonicalColumn maps a header cell to its canonical name. Matching is
// case-insensitive and ignores surrounding whitespace.
func CanonicalColumn(header string) (string, bool) {
	h := strings.TrimSpace(header)
	for _, c := range Columns {
		if strings.EqualFold(h, c) {
			return c, true
		}
	}
	return "", false
}

// MissingRequired lists required columns absent from header.
func MissingRequired(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		if c, ok := CanonicalColumn(h); ok {
			present[c] = true
		}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// ValidateHeader returns a *core.SchemaError when required columns are missing.
func ValidateHeader(ledger string, header []string) error {
	if missing := MissingRequired(header); len(missing) > 0 {
		return &core.SchemaError{Ledger: ledger, Missing: missing}
	}
	return nil
}
