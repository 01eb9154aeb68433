package core

import "github.com/shopspring/decimal"

// PaymentSummary holds the aggregate counters for one or more ledgers.
type PaymentSummary struct {
	TotalPayments    int
	PaidPayments     int
	PartialPayments  int
	UnpaidPayments   int
	TotalAmountDue   decimal.Decimal
	OverduePayments  int
	DueToday         int
	UpcomingPayments int
}

// Add returns the counter-wise sum of s and o.
func (s PaymentSummary) Add(o PaymentSummary) PaymentSummary {
	return PaymentSummary{
		TotalPayments:    s.TotalPayments + o.TotalPayments,
		PaidPayments:     s.PaidPayments + o.PaidPayments,
		PartialPayments:  s.PartialPayments + o.PartialPayments,
		UnpaidPayments:   s.UnpaidPayments + o.UnpaidPayments,
		TotalAmountDue:   s.TotalAmountDue.Add(o.TotalAmountDue),
		OverduePayments:  s.OverduePayments + o.OverduePayments,
		DueToday:         s.DueToday + o.DueToday,
		UpcomingPayments: s.UpcomingPayments + o.UpcomingPayments,
	}
}

// Equal compares every counter, using decimal equality for the amount.
func (s PaymentSummary) Equal(o PaymentSummary) bool {
	return s.TotalPayments == o.TotalPayments &&
		s.PaidPayments == o.PaidPayments &&
		s.PartialPayments == o.PartialPayments &&
		s.UnpaidPayments == o.UnpaidPayments &&
		s.TotalAmountDue.Equal(o.TotalAmountDue) &&
		s.OverduePayments == o.OverduePayments &&
		s.DueToday == o.DueToday &&
		s.UpcomingPayments == o.UpcomingPayments
}
