// Package services provides the payment classification engine and the
// orchestration around it.
//
// This file turns raw ledger rows into canonical payment records. It is a
// pure function of its inputs; the Normalizer wrapper only adds logging.
package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"payminder/internal/core"
	"payminder/internal/ledger"
	"payminder/internal/log"
)

// dueDateLayouts are tried in order against text due dates. Month-first
// slash dates win over day-first ones when both would parse.
var dueDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/1/2",
	"1/2/2006",
	"2/1/2006",
	"2.1.2006",
	"2-Jan-2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"20060102",
}

// Excel serial day numbers accepted as dates: 1900-01-01 through 9999-12-31.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// NormalizeRow converts one raw row into a PaymentRecord. It never fails:
// unusable cells fall back to their zero value and are reported as
// *core.FieldError warnings alongside the record.
func NormalizeRow(row ledger.Row, ledgerName, city string) (core.PaymentRecord, []error) {
	src := core.Locator{Ledger: ledgerName, Position: row.Position, Key: row.Key}
	rec := core.PaymentRecord{
		Name:        strings.TrimSpace(row.Get(ledger.ColName).String()),
		Status:      core.ParseStatus(row.Get(ledger.ColStatus).String()),
		Email:       strings.TrimSpace(row.Get(ledger.ColEmail).String()),
		Remarks:     row.Get(ledger.ColRemarks).String(),
		PaymentDate: row.Get(ledger.ColPaymentDate).String(),
		City:        city,
		Source:      src,
	}

	var warnings []error
	amount, err := coerceAmount(row.Get(ledger.ColAmount))
	if err != nil {
		warnings = append(warnings, &core.FieldError{Source: src, Field: ledger.ColAmount, Value: row.Get(ledger.ColAmount).String(), Err: err})
	}
	rec.AmountRemaining = amount

	due, err := coerceDate(row.Get(ledger.ColDueDate))
	if err != nil {
		warnings = append(warnings, &core.FieldError{Source: src, Field: ledger.ColDueDate, Value: row.Get(ledger.ColDueDate).String(), Err: err})
	}
	rec.DueDate = due

	return rec, warnings
}

func coerceAmount(v ledger.Value) (decimal.Decimal, error) {
	switch v.Kind() {
	case ledger.KindNumber:
		f, _ := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return decimal.Zero, core.ErrInvalidAmount
		}
		return decimal.NewFromFloat(f), nil
	case ledger.KindText:
		return core.ParseAmount(v.String())
	default:
		return decimal.Zero, core.ErrInvalidAmount
	}
}

// coerceDate extracts the calendar date of a cell. An empty cell is an
// absent date, not an error.
func coerceDate(v ledger.Value) (core.Date, error) {
	switch v.Kind() {
	case ledger.KindEmpty:
		return core.Date{}, nil
	case ledger.KindTime:
		t, _ := v.TimeValue()
		return core.DateOf(t), nil
	case ledger.KindNumber:
		f, _ := v.Float()
		return dateFromNumber(f)
	default:
		return parseDateText(v.String())
	}
}

func dateFromNumber(f float64) (core.Date, error) {
	if f == math.Trunc(f) && f >= 19000101 && f <= 99991231 {
		if t, err := time.Parse("20060102", fmt.Sprintf("%.0f", f)); err == nil {
			return core.DateOf(t), nil
		}
	}
	if f < minExcelSerial || f > maxExcelSerial {
		return core.Date{}, fmt.Errorf("%w: serial %v out of range", core.ErrDateParse, f)
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %v", core.ErrDateParse, err)
	}
	return core.DateOf(t), nil
}

func parseDateText(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t), nil
		}
	}
	return core.Date{}, fmt.Errorf("%w: %q", core.ErrDateParse, s)
}

// Normalizer normalizes whole ledgers and logs field warnings with enough
// context to find the offending cell.
type Normalizer struct {
	logger *log.Logger
}

func NewNormalizer(logger *log.Logger) *Normalizer {
	return &Normalizer{logger: log.OrDiscard(logger).WithComponent(log.ComponentEngine)}
}

// Normalize converts every row of one ledger. The second result counts
// rows that produced warnings.
func (n *Normalizer) Normalize(ctx context.Context, rows []ledger.Row, ledgerName, city string) ([]core.PaymentRecord, int) {
	records := make([]core.PaymentRecord, 0, len(rows))
	warned := 0
	for _, row := range rows {
		rec, warnings := NormalizeRow(row, ledgerName, city)
		if len(warnings) > 0 {
			warned++
		}
		for _, w := range warnings {
			fields := log.NewFields().
				WithSource(ledgerName, city, row.Position).
				WithOperation(log.OpNormalize).
				WithError(w)
			n.logger.WarnContext(ctx, "Unusable ledger cell", fields.ToSlice()...)
		}
		records = append(records, rec)
	}
	return records, warned
}
