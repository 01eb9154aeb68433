package services

import (
	"sort"

	"payminder/internal/core"
)

// FindDue returns every unsettled record due on or before today, most
// overdue first. Records with equal days overdue keep their input order.
func FindDue(records []core.PaymentRecord, today core.Date) []core.ClassifiedPayment {
	var out []core.ClassifiedPayment
	for _, r := range records {
		if r.Status.Settled() || !r.HasDueDate() || r.DueDate.After(today) {
			continue
		}
		days := r.DueDate.DaysUntil(today)
		out = append(out, core.ClassifiedPayment{
			PaymentRecord: r,
			Kind:          core.ClassDue,
			DaysOverdue:   days,
			Priority:      PriorityFor(days),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysOverdue > out[j].DaysOverdue
	})
	return out
}

// FindUpcoming returns every unsettled record due strictly after today and
// no later than today+horizonDays, soonest first. A negative horizon is
// treated as zero. Ties keep their input order.
func FindUpcoming(records []core.PaymentRecord, today core.Date, horizonDays int) []core.ClassifiedPayment {
	if horizonDays < 0 {
		horizonDays = 0
	}
	limit := today.AddDays(horizonDays)
	var out []core.ClassifiedPayment
	for _, r := range records {
		if r.Status.Settled() || !r.HasDueDate() {
			continue
		}
		if !r.DueDate.After(today) || r.DueDate.After(limit) {
			continue
		}
		out = append(out, core.ClassifiedPayment{
			PaymentRecord: r,
			Kind:          core.ClassUpcoming,
			DaysUntilDue:  today.DaysUntil(r.DueDate),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out
}
