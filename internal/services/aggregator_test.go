package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"payminder/internal/core"
)

func TestSummarize_Scenario(t *testing.T) {
	today, records := scenario()

	got := Summarize(records, today)
	want := core.PaymentSummary{
		TotalPayments:    4,
		PaidPayments:     1,
		UnpaidPayments:   3,
		TotalAmountDue:   decimal.NewFromInt(225),
		OverduePayments:  1,
		DueToday:         1,
		UpcomingPayments: 1,
	}
	assert.True(t, want.Equal(got), "got %+v", got)
}

func TestSummarize_StatusBuckets(t *testing.T) {
	today := core.NewDate(2024, 3, 15)
	records := []core.PaymentRecord{
		rec("partial", 20, today.AddDays(-1), core.StatusPartial),
		rec("rescheduled", 5, today.AddDays(3), core.StatusRescheduled),
		rec("undated", 7, core.Date{}, core.StatusUnpaid),
	}

	got := Summarize(records, today)
	assert.Equal(t, 3, got.TotalPayments)
	assert.Equal(t, 1, got.PartialPayments)
	assert.Equal(t, 2, got.UnpaidPayments)
	assert.Equal(t, 1, got.OverduePayments)
	assert.Equal(t, 0, got.DueToday)
	assert.Equal(t, 1, got.UpcomingPayments)
	assert.True(t, decimal.NewFromInt(32).Equal(got.TotalAmountDue))
}

func TestSummarize_Additive(t *testing.T) {
	today, records := scenario()
	a, b := records[:2], records[2:]

	whole := Summarize(records, today)
	parts := Summarize(a, today).Add(Summarize(b, today))
	assert.True(t, whole.Equal(parts), "whole %+v parts %+v", whole, parts)
}

func TestSummarize_Empty(t *testing.T) {
	got := Summarize(nil, core.NewDate(2024, 1, 1))
	assert.Zero(t, got.TotalPayments)
	assert.True(t, got.TotalAmountDue.IsZero())
}
