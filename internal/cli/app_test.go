package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payminder/internal/backend"
	"payminder/internal/config"
	"payminder/internal/core"
	"payminder/internal/ledger/excel"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()
	require.NoError(t, excel.New().CreateTemplate(ctx, filepath.Join(dir, "data", "rome", "payments.xlsx")))

	cfg := &config.Config{
		DataBackend:         config.BackendMemory,
		DataDir:             filepath.Join(dir, "data"),
		UpcomingHorizonDays: 7,
		SQLiteDBPath:        filepath.Join(dir, "db", "payminder.db"),
		SMTPServer:          "smtp.example.com",
		SMTPPort:            587,
		CompanyName:         "Acme",
	}
	a, err := NewApp(ctx, cfg, backend.NewFactory(nil), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestApp_ReadAndPay(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	sources, err := a.Backend.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "rome", sources[0].City)

	due, report := a.Engine.FindDue(ctx, sources, core.Today())
	require.True(t, report.Complete())
	require.Len(t, due, 1)
	assert.Equal(t, "John Doe", due[0].Name)

	rec, err := a.Payments(false).RecordPayment(ctx, due[0].Source, decimal.NewFromInt(400))
	require.NoError(t, err)
	assert.Equal(t, core.StatusPartial, rec.Status)
	assert.Equal(t, "600.00", core.FormatAmount(rec.AmountRemaining))
}

func TestApp_RemindersRecordFailedDelivery(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	sources, err := a.Backend.Sources(ctx)
	require.NoError(t, err)

	res, _, err := a.Reminders().Run(ctx, sources, core.Today())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed, "no SMTP credentials configured")

	repo, err := a.NotificationLog()
	require.NoError(t, err)
	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, core.DeliveryFailed, recent[0].Status)
	assert.Equal(t, "john.doe@example.com", recent[0].Recipient)
}

func TestApp_DispatcherIsShared(t *testing.T) {
	a := newTestApp(t)
	assert.Same(t, a.Dispatcher(), a.Dispatcher())

	pub, err := a.Publisher()
	require.NoError(t, err)
	assert.Nil(t, pub)
}

func TestApp_CloseIsIdempotent(t *testing.T) {
	a := newTestApp(t)
	_, err := a.NotificationLog()
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}
