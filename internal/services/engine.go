package services

import (
	"context"
	"fmt"

	"payminder/internal/core"
	"payminder/internal/ledger"
	"payminder/internal/log"
)

// SkippedSource records a source that could not be read during a scan.
type SkippedSource struct {
	Source core.Source
	Err    error
}

// ScanReport describes what one multi-source scan actually covered.
type ScanReport struct {
	Scanned  int
	Records  int
	Warnings int
	Skipped  []SkippedSource
}

// Complete reports whether every source was read.
func (r ScanReport) Complete() bool {
	return len(r.Skipped) == 0
}

// Engine runs classification and aggregation over a list of ledgers. Every
// call re-reads its sources; there is no cache between calls.
type Engine struct {
	reader     ledger.Reader
	normalizer *Normalizer
	logger     *log.Logger
}

func NewEngine(reader ledger.Reader, logger *log.Logger) *Engine {
	logger = log.OrDiscard(logger)
	return &Engine{
		reader:     reader,
		normalizer: NewNormalizer(logger),
		logger:     logger.WithComponent(log.ComponentEngine),
	}
}

// Load reads and normalizes every source in order. A source that fails to
// read is logged and skipped; the others still contribute.
func (e *Engine) Load(ctx context.Context, sources []core.Source) ([]core.PaymentRecord, ScanReport) {
	var (
		all    []core.PaymentRecord
		report ScanReport
	)
	e.eachSource(ctx, sources, &report, func(_ core.Source, records []core.PaymentRecord) {
		all = append(all, records...)
	})
	return all, report
}

// FindDue returns the due-list across all sources.
func (e *Engine) FindDue(ctx context.Context, sources []core.Source, today core.Date) ([]core.ClassifiedPayment, ScanReport) {
	records, report := e.Load(ctx, sources)
	due := FindDue(records, today)
	e.logger.InfoContext(ctx, "Classified due payments",
		log.FieldOperation, log.OpClassify,
		log.FieldToday, today.String(),
		log.FieldCount, len(due))
	return due, report
}

// FindUpcoming returns the upcoming-list across all sources.
func (e *Engine) FindUpcoming(ctx context.Context, sources []core.Source, today core.Date, horizonDays int) ([]core.ClassifiedPayment, ScanReport) {
	records, report := e.Load(ctx, sources)
	upcoming := FindUpcoming(records, today, horizonDays)
	e.logger.InfoContext(ctx, "Classified upcoming payments",
		log.FieldOperation, log.OpClassify,
		log.FieldToday, today.String(),
		log.FieldCount, len(upcoming))
	return upcoming, report
}

// Summarize sums per-source summaries.
func (e *Engine) Summarize(ctx context.Context, sources []core.Source, today core.Date) (core.PaymentSummary, ScanReport) {
	total := Summarize(nil, today)
	var report ScanReport
	e.eachSource(ctx, sources, &report, func(_ core.Source, records []core.PaymentRecord) {
		total = total.Add(Summarize(records, today))
	})
	e.logger.InfoContext(ctx, "Summarized payments",
		log.FieldOperation, log.OpSummarize,
		log.FieldToday, today.String(),
		log.FieldCount, total.TotalPayments)
	return total, report
}

func (e *Engine) eachSource(ctx context.Context, sources []core.Source, report *ScanReport, fn func(core.Source, []core.PaymentRecord)) {
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			report.Skipped = append(report.Skipped, SkippedSource{Source: src, Err: err})
			continue
		}
		rows, err := e.reader.ReadEntries(ctx, src.Ledger)
		if err != nil {
			fields := log.NewFields().
				WithOperation(log.OpRead).
				WithSource(src.Ledger, src.City, -1).
				WithError(err)
			e.logger.WarnContext(ctx, "Skipping unreadable ledger", fields.ToSlice()...)
			report.Skipped = append(report.Skipped, SkippedSource{Source: src, Err: fmt.Errorf("read %s: %w", src.Ledger, err)})
			continue
		}
		records, warned := e.normalizer.Normalize(ctx, rows, src.Ledger, src.City)
		report.Scanned++
		report.Records += len(records)
		report.Warnings += warned
		fn(src, records)
	}
}
