package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"payminder/internal/core"
)

// RemarksSeparator joins successive remark entries.
const RemarksSeparator = "; "

// Update is a partial row update. Zero fields are left untouched.
type Update struct {
	AmountRemaining decimal.NullDecimal
	Status          core.Status
	DueDate         core.Date
	PaymentDate     core.Date
	AppendRemarks   string
}

// IsEmpty reports whether applying u would change nothing.
func (u Update) IsEmpty() bool {
	return !u.AmountRemaining.Valid &&
		u.Status == "" &&
		u.DueDate.IsZero() &&
		u.PaymentDate.IsZero() &&
		strings.TrimSpace(u.AppendRemarks) == ""
}

// AppendRemarks adds addition to existing remarks.
func AppendRemarks(existing, addition string) string {
	addition = strings.TrimSpace(addition)
	if addition == "" {
		return existing
	}
	if strings.TrimSpace(existing) == "" {
		return addition
	}
	return existing + RemarksSeparator + addition
}
