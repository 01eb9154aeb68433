package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"payminder/internal/core"
	"payminder/internal/ledger"
	"payminder/internal/log"
	"payminder/internal/notify"
)

// noteTimeLayout prefixes every note appended to a row's remarks.
const noteTimeLayout = "2006-01-02 15:04"

// Notifier delivers a rendered message about a ledger row.
// *notify.Dispatcher satisfies it.
type Notifier interface {
	Dispatch(ctx context.Context, n core.Notification, m notify.Message) error
}

// PaymentService applies payments, reschedules and notes to ledger rows
// and tells the customer afterwards. The ledger write is the source of
// truth: a failed notification is logged and never undoes it.
type PaymentService struct {
	store    ledger.Store
	notifier Notifier
	company  string
	logger   *log.Logger
	now      func() time.Time
}

func NewPaymentService(store ledger.Store, notifier Notifier, company string, logger *log.Logger) *PaymentService {
	return &PaymentService{
		store:    store,
		notifier: notifier,
		company:  company,
		logger:   log.OrDiscard(logger).WithComponent(log.ComponentPayment),
		now:      time.Now,
	}
}

// Find reads the ledger and returns the current record at loc.
func (s *PaymentService) Find(ctx context.Context, loc core.Locator, city string) (core.PaymentRecord, error) {
	rows, err := s.store.ReadEntries(ctx, loc.Ledger)
	if err != nil {
		return core.PaymentRecord{}, err
	}
	i := -1
	if loc.Key != "" {
		i, _ = ledger.FindKey(rows, loc.Key)
	} else {
		for j, r := range rows {
			if r.Position == loc.Position {
				i = j
				break
			}
		}
	}
	if i < 0 {
		return core.PaymentRecord{}, fmt.Errorf("%w: %s", core.ErrRowNotFound, loc)
	}
	rec, _ := NormalizeRow(rows[i], loc.Ledger, city)
	return rec, nil
}

// RecordPayment books amount against the row. Paying at least the
// remaining balance settles it; anything less leaves it Partial.
func (s *PaymentService) RecordPayment(ctx context.Context, loc core.Locator, amount decimal.Decimal) (core.PaymentRecord, error) {
	if !amount.IsPositive() {
		return core.PaymentRecord{}, fmt.Errorf("%w: payment must be positive, got %s", core.ErrInvalidAmount, amount)
	}
	rec, err := s.Find(ctx, loc, "")
	if err != nil {
		return core.PaymentRecord{}, err
	}

	now := s.now()
	today := core.DateOf(now)
	remaining := rec.AmountRemaining.Sub(amount)
	status := core.StatusPartial
	if !remaining.IsPositive() {
		remaining = decimal.Zero
		status = core.StatusPaid
	}

	u := ledger.Update{
		AmountRemaining: decimal.NewNullDecimal(remaining),
		Status:          status,
		PaymentDate:     today,
		AppendRemarks:   note(now, "Payment of "+notify.FormatMoney(amount)+" received"),
	}
	if err := s.write(ctx, rec.Source, u, log.OpUpdate); err != nil {
		return core.PaymentRecord{}, err
	}

	rec.AmountRemaining = remaining
	rec.Status = status
	rec.PaymentDate = today.String()
	rec.Remarks = ledger.AppendRemarks(rec.Remarks, u.AppendRemarks)

	s.notify(ctx, core.NotifyConfirmation, rec, amount, today, "")
	return rec, nil
}

// Reschedule moves the due date and marks the row Rescheduled.
func (s *PaymentService) Reschedule(ctx context.Context, loc core.Locator, due core.Date, remark string) (core.PaymentRecord, error) {
	if due.IsZero() {
		return core.PaymentRecord{}, fmt.Errorf("%w: new due date is required", core.ErrDateParse)
	}
	rec, err := s.Find(ctx, loc, "")
	if err != nil {
		return core.PaymentRecord{}, err
	}

	now := s.now()
	entry := "Rescheduled to " + due.String()
	if r := strings.TrimSpace(remark); r != "" {
		entry += ": " + r
	}
	u := ledger.Update{
		Status:        core.StatusRescheduled,
		DueDate:       due,
		AppendRemarks: note(now, entry),
	}
	if err := s.write(ctx, rec.Source, u, log.OpUpdate); err != nil {
		return core.PaymentRecord{}, err
	}

	rec.Status = core.StatusRescheduled
	rec.DueDate = due
	rec.Remarks = ledger.AppendRemarks(rec.Remarks, u.AppendRemarks)

	s.notify(ctx, core.NotifyReschedule, rec, rec.AmountRemaining, core.Date{}, strings.TrimSpace(remark))
	return rec, nil
}

// AddNote appends a timestamped message to the row's remarks.
func (s *PaymentService) AddNote(ctx context.Context, loc core.Locator, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return errors.New("note is empty")
	}
	return s.write(ctx, loc, ledger.Update{AppendRemarks: note(s.now(), message)}, log.OpUpdate)
}

func (s *PaymentService) write(ctx context.Context, loc core.Locator, u ledger.Update, op string) error {
	if err := s.store.WriteUpdate(ctx, loc, u); err != nil {
		s.logger.ErrorContext(ctx, "Ledger update failed",
			log.NewFields().
				WithOperation(op).
				WithSource(loc.Ledger, "", loc.Position).
				WithError(err).
				ToSlice()...)
		return err
	}
	s.logger.InfoContext(ctx, "Ledger row updated",
		log.FieldOperation, op,
		log.FieldLedger, loc.Ledger,
		log.FieldRowKey, loc.Key.String(),
		log.FieldStatus, string(u.Status))
	return nil
}

func (s *PaymentService) notify(ctx context.Context, kind core.NotificationKind, rec core.PaymentRecord, amount decimal.Decimal, paidOn core.Date, remark string) {
	if s.notifier == nil || strings.TrimSpace(rec.Email) == "" {
		return
	}
	msg, err := notify.Render(kind, rec, amount, paidOn, remark, s.company)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to render notification", log.FieldError, err)
		return
	}
	n := core.Notification{Kind: kind, Source: rec.Source, Day: core.DateOf(s.now())}
	if err := s.notifier.Dispatch(ctx, n, msg); err != nil {
		s.logger.WarnContext(ctx, "Notification not delivered",
			log.FieldOperation, log.OpNotify,
			log.FieldRecipient, msg.Recipient,
			log.FieldRowKey, rec.Source.Key.String(),
			log.FieldError, err)
	}
}

func note(now time.Time, message string) string {
	return "[" + now.Format(noteTimeLayout) + "] " + message
}
