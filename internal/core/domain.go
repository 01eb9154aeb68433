package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Payment states as written in the Status column.
const (
	StatusUnpaid      Status = "Unpaid"
	StatusPartial     Status = "Partial"
	StatusPaid        Status = "Paid"
	StatusRescheduled Status = "Rescheduled"
)

// Priority tiers for overdue payments.
const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Query modes a ClassifiedPayment can come from.
const (
	ClassDue      Classification = "due"
	ClassUpcoming Classification = "upcoming"
)

type (
	Status         string
	Priority       string
	Classification string

	// PaymentRecord is the canonical form of one ledger row. A zero DueDate
	// means the row had no usable due date.
	PaymentRecord struct {
		Name            string
		AmountRemaining decimal.Decimal
		DueDate         Date
		Status          Status
		Email           string
		Remarks         string
		PaymentDate     string
		City            string
		Source          Locator
	}

	// ClassifiedPayment is a record annotated by one classification query.
	// Due results carry DaysOverdue and Priority, upcoming results carry
	// DaysUntilDue. The other fields stay zero.
	ClassifiedPayment struct {
		PaymentRecord
		Kind         Classification
		DaysOverdue  int
		DaysUntilDue int
		Priority     Priority
	}

	// Source is one ledger to scan plus the city it belongs to.
	Source struct {
		Ledger string
		City   string
	}
)

// ParseStatus maps a Status cell to a Status. Matching is case-insensitive;
// blank or unknown values are Unpaid.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid":
		return StatusPaid
	case "partial":
		return StatusPartial
	case "rescheduled":
		return StatusRescheduled
	default:
		return StatusUnpaid
	}
}

func (s Status) String() string {
	return string(s)
}

// Settled reports whether nothing is owed any more.
func (s Status) Settled() bool {
	return s == StatusPaid
}

// IsValid reports whether s is one of the known states.
func (s Status) IsValid() bool {
	switch s {
	case StatusUnpaid, StatusPartial, StatusPaid, StatusRescheduled:
		return true
	}
	return false
}

// HasDueDate reports whether the record can take part in date classification.
func (r PaymentRecord) HasDueDate() bool {
	return !r.DueDate.IsZero()
}

// Outstanding returns the amount still owed, zero for settled records.
func (r PaymentRecord) Outstanding() decimal.Decimal {
	if r.Status.Settled() {
		return decimal.Zero
	}
	return r.AmountRemaining
}

// Equal compares two records field by field.
func (r PaymentRecord) Equal(o PaymentRecord) bool {
	return r.Name == o.Name &&
		r.AmountRemaining.Equal(o.AmountRemaining) &&
		r.DueDate.Equal(o.DueDate.Time) &&
		r.Status == o.Status &&
		r.Email == o.Email &&
		r.Remarks == o.Remarks &&
		r.PaymentDate == o.PaymentDate &&
		r.City == o.City &&
		r.Source == o.Source
}
