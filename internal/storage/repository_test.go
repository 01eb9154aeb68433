package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payminder/internal/core"
	"payminder/internal/log"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "payminder.db"), log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")

	v1, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v1)

	v2, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestAlreadySent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	day := core.NewDate(2024, 3, 15)
	loc := core.Locator{Ledger: "rome.xlsx", Key: "h:0011223344556677"}

	sent, err := repo.AlreadySent(ctx, loc.Key, core.NotifyReminder, day)
	require.NoError(t, err)
	assert.False(t, sent)

	_, err = repo.RecordNotification(ctx, core.Notification{
		Kind: core.NotifyReminder, Source: loc, Recipient: "a@example.com",
		Day: day, Status: core.DeliveryFailed, Error: "smtp down",
	})
	require.NoError(t, err)

	sent, err = repo.AlreadySent(ctx, loc.Key, core.NotifyReminder, day)
	require.NoError(t, err)
	assert.False(t, sent, "failed attempts must not suppress a retry")

	_, err = repo.RecordNotification(ctx, core.Notification{
		Kind: core.NotifyReminder, Source: loc, Recipient: "a@example.com",
		Day: day, Status: core.DeliverySent,
	})
	require.NoError(t, err)

	sent, err = repo.AlreadySent(ctx, loc.Key, core.NotifyReminder, day)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = repo.AlreadySent(ctx, loc.Key, core.NotifyReminder, day.AddDays(1))
	require.NoError(t, err)
	assert.False(t, sent, "dedupe is per day")

	sent, err = repo.AlreadySent(ctx, loc.Key, core.NotifyConfirmation, day)
	require.NoError(t, err)
	assert.False(t, sent, "dedupe is per kind")
}

func TestListRecentAndMarkDelivery(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	base := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	for i, recipient := range []string{"first@example.com", "second@example.com", "third@example.com"} {
		_, err := repo.RecordNotification(ctx, core.Notification{
			Kind:      core.NotifyConfirmation,
			Source:    core.Locator{Ledger: "mem:x", Key: core.RowKey(recipient)},
			Recipient: recipient,
			Subject:   "Payment Confirmation",
			Status:    core.DeliveryQueued,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third@example.com", recent[0].Recipient)
	assert.Equal(t, "second@example.com", recent[1].Recipient)
	assert.True(t, recent[0].Day.Same(core.NewDate(2024, 3, 15)))
	assert.Equal(t, core.DeliveryQueued, recent[0].Status)

	require.NoError(t, repo.MarkDelivery(ctx, recent[0].ID, core.DeliveryFailed, errors.New("mailbox full")))

	recent, err = repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, core.DeliveryFailed, recent[0].Status)
	assert.Equal(t, "mailbox full", recent[0].Error)
}
