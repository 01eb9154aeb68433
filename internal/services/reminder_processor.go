package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"payminder/internal/core"
	"payminder/internal/log"
	"payminder/internal/notify"
)

// ReminderNotifier is a Notifier that also remembers what it has sent.
type ReminderNotifier interface {
	Notifier
	AlreadySent(ctx context.Context, n core.Notification) (bool, error)
}

// ReminderResult counts the outcome of one reminder run.
type ReminderResult struct {
	Sent    int
	Skipped int
	Failed  int
}

// ReminderProcessor emails every due or overdue customer at most once per
// row per day.
type ReminderProcessor struct {
	engine   *Engine
	notifier ReminderNotifier
	company  string
	logger   *log.Logger
}

func NewReminderProcessor(engine *Engine, notifier ReminderNotifier, company string, logger *log.Logger) *ReminderProcessor {
	return &ReminderProcessor{
		engine:   engine,
		notifier: notifier,
		company:  company,
		logger:   log.OrDiscard(logger).WithComponent(log.ComponentWorker),
	}
}

// Run scans sources and sends reminders for the due-list. Rows without an
// e-mail or already reminded today are skipped. A failed send is counted
// and the run continues.
func (p *ReminderProcessor) Run(ctx context.Context, sources []core.Source, today core.Date) (ReminderResult, ScanReport, error) {
	var res ReminderResult
	if p.engine == nil || p.notifier == nil {
		return res, ScanReport{}, fmt.Errorf("reminder processor not properly initialized")
	}

	due, report := p.engine.FindDue(ctx, sources, today)
	p.logger.InfoContext(ctx, "Processing payment reminders",
		log.FieldOperation, log.OpRemind,
		log.FieldToday, today.String(),
		log.FieldCount, len(due))

	for _, payment := range due {
		if err := ctx.Err(); err != nil {
			return res, report, err
		}

		if strings.TrimSpace(payment.Email) == "" {
			res.Skipped++
			continue
		}

		n := core.Notification{Kind: core.NotifyReminder, Source: payment.Source, Day: today}
		sent, err := p.notifier.AlreadySent(ctx, n)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to check notification log",
				log.FieldRowKey, payment.Source.Key.String(),
				log.FieldError, err)
			res.Failed++
			continue
		}
		if sent {
			res.Skipped++
			continue
		}

		msg, err := notify.Render(core.NotifyReminder, payment.PaymentRecord, payment.AmountRemaining, core.Date{}, "", p.company)
		if err != nil {
			res.Failed++
			continue
		}
		if err := p.notifier.Dispatch(ctx, n, msg); err != nil {
			p.logger.WarnContext(ctx, "Reminder not delivered",
				log.FieldRecipient, msg.Recipient,
				log.FieldDaysOverdue, payment.DaysOverdue,
				log.FieldError, err)
			res.Failed++
			continue
		}

		res.Sent++
		p.logger.InfoContext(ctx, "Reminder sent",
			log.FieldRecipient, msg.Recipient,
			log.FieldAmount, core.FormatAmount(payment.AmountRemaining),
			log.FieldDueDate, payment.DueDate.String(),
			log.FieldDaysOverdue, payment.DaysOverdue)
	}

	p.logger.InfoContext(ctx, "Reminder run complete",
		"sent", res.Sent,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"skipped_sources", len(report.Skipped))
	return res, report, nil
}

// SourceFunc returns the ledgers to scan. It is called on every run so
// newly imported files are picked up.
type SourceFunc func(ctx context.Context) ([]core.Source, error)

// RunNow resolves sources and runs reminders for the current day.
func (p *ReminderProcessor) RunNow(ctx context.Context, sources SourceFunc, now time.Time) (ReminderResult, ScanReport, error) {
	list, err := sources(ctx)
	if err != nil {
		return ReminderResult{}, ScanReport{}, fmt.Errorf("list sources: %w", err)
	}
	return p.Run(ctx, list, core.DateOf(now))
}
