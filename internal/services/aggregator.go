package services

import (
	"github.com/shopspring/decimal"

	"payminder/internal/core"
)

// Summarize folds records into summary counters. Rescheduled and Unpaid
// both count as unpaid. Records without a due date count toward status
// totals and the amount due but not toward the date buckets.
func Summarize(records []core.PaymentRecord, today core.Date) core.PaymentSummary {
	s := core.PaymentSummary{TotalAmountDue: decimal.Zero}
	for _, r := range records {
		s.TotalPayments++
		switch r.Status {
		case core.StatusPaid:
			s.PaidPayments++
			continue
		case core.StatusPartial:
			s.PartialPayments++
		default:
			s.UnpaidPayments++
		}
		s.TotalAmountDue = s.TotalAmountDue.Add(r.AmountRemaining)

		if !r.HasDueDate() {
			continue
		}
		switch {
		case r.DueDate.Before(today):
			s.OverduePayments++
		case r.DueDate.Same(today):
			s.DueToday++
		default:
			s.UpcomingPayments++
		}
	}
	return s
}
