package services

import (
	"strings"

	"payminder/internal/core"
)

// Status filter values.
const (
	FilterAll    = ""
	FilterPaid   = "paid"
	FilterUnpaid = "unpaid"
)

// Filter narrows a payment listing. Zero values match everything.
type Filter struct {
	Search string
	City   string
	Status string
}

// Match reports whether r passes every set criterion. Search is a
// case-insensitive substring match over the visible fields.
func (f Filter) Match(r core.PaymentRecord) bool {
	if f.City != "" && !strings.EqualFold(f.City, r.City) {
		return false
	}
	switch strings.ToLower(f.Status) {
	case FilterPaid:
		if r.Status != core.StatusPaid {
			return false
		}
	case FilterUnpaid:
		if r.Status == core.StatusPaid {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		haystack := strings.ToLower(strings.Join([]string{
			r.Name, r.Email, r.Remarks, r.City,
			core.FormatAmount(r.AmountRemaining), r.DueDate.String(),
		}, "\x00"))
		if !strings.Contains(haystack, q) {
			return false
		}
	}
	return true
}

// Apply returns the records that match, in input order.
func (f Filter) Apply(records []core.PaymentRecord) []core.PaymentRecord {
	out := make([]core.PaymentRecord, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
