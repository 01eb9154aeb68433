package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payminder/internal/core"
	"payminder/internal/ledger"
	"payminder/internal/ledger/memory"
	"payminder/internal/log"
	"payminder/internal/notify"
)

type dispatched struct {
	n core.Notification
	m notify.Message
}

type fakeNotifier struct {
	calls []dispatched
	err   error
	sent  map[core.RowKey]bool
}

func (f *fakeNotifier) Dispatch(_ context.Context, n core.Notification, m notify.Message) error {
	f.calls = append(f.calls, dispatched{n, m})
	if f.err != nil {
		return f.err
	}
	if f.sent == nil {
		f.sent = make(map[core.RowKey]bool)
	}
	f.sent[n.Source.Key] = true
	return nil
}

func (f *fakeNotifier) AlreadySent(_ context.Context, n core.Notification) (bool, error) {
	return f.sent[n.Source.Key], nil
}

var serviceNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func newPaymentFixture(t *testing.T, notifier Notifier) (*PaymentService, *memory.Store, core.Locator) {
	t.Helper()
	store := memory.New()
	store.Put("mem:rome", append(testHeader, ledger.ColRemarks), [][]ledger.Value{
		append(paymentRow("Alice", 100, "2024-02-10", "Unpaid"), ledger.Text("first contact")),
		append(paymentRow("Bob", 50, "2024-03-15", ""), ledger.Empty()),
	})

	svc := NewPaymentService(store, notifier, "Acme", log.Discard())
	svc.now = func() time.Time { return serviceNow }

	rows, err := store.ReadEntries(context.Background(), "mem:rome")
	require.NoError(t, err)
	return svc, store, core.Locator{Ledger: "mem:rome", Position: rows[0].Position, Key: rows[0].Key}
}

func TestRecordPayment_PartialThenPaid(t *testing.T) {
	ctx := context.Background()
	notifier := &fakeNotifier{}
	svc, _, loc := newPaymentFixture(t, notifier)

	rec, err := svc.RecordPayment(ctx, loc, decimal.NewFromInt(40))
	require.NoError(t, err)
	assert.Equal(t, core.StatusPartial, rec.Status)
	assert.True(t, decimal.NewFromInt(60).Equal(rec.AmountRemaining))

	stored, err := svc.Find(ctx, loc, "")
	require.NoError(t, err)
	assert.Equal(t, core.StatusPartial, stored.Status)
	assert.True(t, decimal.NewFromInt(60).Equal(stored.AmountRemaining))
	assert.Equal(t, "2024-03-15", stored.PaymentDate)
	assert.Equal(t, "first contact; [2024-03-15 10:30] Payment of $40.00 received", stored.Remarks)

	rec, err = svc.RecordPayment(ctx, loc, decimal.NewFromInt(75))
	require.NoError(t, err)
	assert.Equal(t, core.StatusPaid, rec.Status)
	assert.True(t, rec.AmountRemaining.IsZero())

	require.Len(t, notifier.calls, 2)
	first := notifier.calls[0]
	assert.Equal(t, core.NotifyConfirmation, first.n.Kind)
	assert.Equal(t, loc.Key, first.n.Source.Key)
	assert.Equal(t, "Alice@example.com", first.m.Recipient)
	assert.Equal(t, "Payment Confirmation - $40.00 received", first.m.Subject)
}

func TestRecordPayment_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _, loc := newPaymentFixture(t, nil)

	_, err := svc.RecordPayment(ctx, loc, decimal.Zero)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = svc.RecordPayment(ctx, loc, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	missing := core.Locator{Ledger: "mem:rome", Key: "h:doesnotexist0000"}
	_, err = svc.RecordPayment(ctx, missing, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, core.ErrRowNotFound)
	assert.ErrorIs(t, err, core.ErrWriteConflict)

	_, err = svc.RecordPayment(ctx, core.Locator{Ledger: "mem:nowhere", Key: "x"}, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, core.ErrSourceUnavailable)
}

func TestRecordPayment_NotificationFailureDoesNotUndoWrite(t *testing.T) {
	ctx := context.Background()
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	svc, _, loc := newPaymentFixture(t, notifier)

	rec, err := svc.RecordPayment(ctx, loc, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, core.StatusPaid, rec.Status)
	assert.Len(t, notifier.calls, 1)

	stored, err := svc.Find(ctx, loc, "")
	require.NoError(t, err)
	assert.Equal(t, core.StatusPaid, stored.Status)
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()
	notifier := &fakeNotifier{}
	svc, _, loc := newPaymentFixture(t, notifier)
	newDue := core.NewDate(2024, 4, 1)

	_, err := svc.Reschedule(ctx, loc, core.Date{}, "")
	assert.ErrorIs(t, err, core.ErrDateParse)

	rec, err := svc.Reschedule(ctx, loc, newDue, "travelling")
	require.NoError(t, err)
	assert.Equal(t, core.StatusRescheduled, rec.Status)

	stored, err := svc.Find(ctx, loc, "")
	require.NoError(t, err)
	assert.Equal(t, core.StatusRescheduled, stored.Status)
	assert.True(t, stored.DueDate.Same(newDue))
	assert.Contains(t, stored.Remarks, "[2024-03-15 10:30] Rescheduled to 2024-04-01: travelling")

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, core.NotifyReschedule, notifier.calls[0].n.Kind)
	assert.Equal(t, "Payment Rescheduled - $100.00 now due on 2024-04-01", notifier.calls[0].m.Subject)
}

func TestAddNote(t *testing.T) {
	ctx := context.Background()
	notifier := &fakeNotifier{}
	svc, _, loc := newPaymentFixture(t, notifier)

	assert.Error(t, svc.AddNote(ctx, loc, "   "))
	require.NoError(t, svc.AddNote(ctx, loc, "called, no answer"))

	stored, err := svc.Find(ctx, loc, "")
	require.NoError(t, err)
	assert.Equal(t, "first contact; [2024-03-15 10:30] called, no answer", stored.Remarks)
	assert.Empty(t, notifier.calls)
}

func TestFind_ByPositionWithoutKey(t *testing.T) {
	svc, _, loc := newPaymentFixture(t, nil)

	rec, err := svc.Find(context.Background(), core.Locator{Ledger: loc.Ledger, Position: 1}, "Rome")
	require.NoError(t, err)
	assert.Equal(t, "Bob", rec.Name)
	assert.Equal(t, "Rome", rec.City)
}
