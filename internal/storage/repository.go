// Package storage keeps the local notification log in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"payminder/internal/core"
	"payminder/internal/log"

	_ "modernc.org/sqlite"
)

// createdAtLayout has a fixed width so that created_at sorts as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = log.OrDiscard(logger).WithComponent(log.ComponentStorage)
	logger.Debug("Notification log ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// RecordNotification appends one delivery attempt and returns its ID.
func (r *SQLiteRepository) RecordNotification(ctx context.Context, n core.Notification) (int64, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}
	if n.Day.IsZero() {
		n.Day = core.DateOf(n.CreatedAt)
	}
	id, err := r.queries.InsertNotification(ctx, InsertNotificationParams{
		Kind:      string(n.Kind),
		Ledger:    n.Source.Ledger,
		RowKey:    n.Source.Key.String(),
		Recipient: n.Recipient,
		Subject:   n.Subject,
		Day:       n.Day.String(),
		Status:    string(n.Status),
		Error:     n.Error,
		CreatedAt: n.CreatedAt.UTC().Format(createdAtLayout),
	})
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}

	r.logger.DebugContext(ctx, "Notification recorded",
		"id", id,
		log.FieldRowKey, n.Source.Key.String(),
		log.FieldStatus, string(n.Status))
	return id, nil
}

// MarkDelivery updates the outcome of a previously recorded attempt, used
// when a queued message is finally sent or rejected.
func (r *SQLiteRepository) MarkDelivery(ctx context.Context, id int64, status core.DeliveryStatus, deliveryErr error) error {
	msg := ""
	if deliveryErr != nil {
		msg = deliveryErr.Error()
	}
	if err := r.queries.UpdateNotificationStatus(ctx, UpdateNotificationStatusParams{
		Status: string(status),
		Error:  msg,
		ID:     id,
	}); err != nil {
		return fmt.Errorf("update notification %d: %w", id, err)
	}
	return nil
}

// AlreadySent reports whether a notification of kind for key was sent or
// queued on day. Failed attempts do not count.
func (r *SQLiteRepository) AlreadySent(ctx context.Context, key core.RowKey, kind core.NotificationKind, day core.Date) (bool, error) {
	n, err := r.queries.CountSentNotifications(ctx, CountSentNotificationsParams{
		RowKey: key.String(),
		Kind:   string(kind),
		Day:    day.String(),
	})
	if err != nil {
		return false, fmt.Errorf("count notifications: %w", err)
	}
	return n > 0, nil
}

// ListRecent returns up to limit notifications, newest first.
func (r *SQLiteRepository) ListRecent(ctx context.Context, limit int) ([]core.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.queries.ListRecentNotifications(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]core.Notification, 0, len(rows))
	for _, row := range rows {
		n, err := toNotification(row)
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping malformed notification row", "id", row.ID, log.FieldError, err)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func toNotification(row NotificationRow) (core.Notification, error) {
	day, err := core.ParseDate(row.Day)
	if err != nil {
		return core.Notification{}, err
	}
	created, err := time.Parse(createdAtLayout, row.CreatedAt)
	if err != nil {
		return core.Notification{}, fmt.Errorf("parse created_at: %w", err)
	}
	return core.Notification{
		ID:        row.ID,
		Kind:      core.NotificationKind(row.Kind),
		Source:    core.Locator{Ledger: row.Ledger, Position: -1, Key: core.RowKey(row.RowKey)},
		Recipient: row.Recipient,
		Subject:   row.Subject,
		Day:       day,
		Status:    core.DeliveryStatus(row.Status),
		Error:     row.Error,
		CreatedAt: created,
	}, nil
}
