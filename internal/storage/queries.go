package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// NotificationRow mirrors one row of the notifications table.
type NotificationRow struct {
	ID        int64
	Kind      string
	Ledger    string
	RowKey    string
	Recipient string
	Subject   string
	Day       string
	Status    string
	Error     string
	CreatedAt string
}

const insertNotification = `-- name: InsertNotification :one
INSERT INTO notifications (kind, ledger, row_key, recipient, subject, day, status, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type InsertNotificationParams struct {
	Kind      string
	Ledger    string
	RowKey    string
	Recipient string
	Subject   string
	Day       string
	Status    string
	Error     string
	CreatedAt string
}

func (q *Queries) InsertNotification(ctx context.Context, arg InsertNotificationParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertNotification,
		arg.Kind,
		arg.Ledger,
		arg.RowKey,
		arg.Recipient,
		arg.Subject,
		arg.Day,
		arg.Status,
		arg.Error,
		arg.CreatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const countSentNotifications = `-- name: CountSentNotifications :one
SELECT COUNT(*) FROM notifications
WHERE row_key = ? AND kind = ? AND day = ? AND status IN ('sent', 'queued')
`

type CountSentNotificationsParams struct {
	RowKey string
	Kind   string
	Day    string
}

func (q *Queries) CountSentNotifications(ctx context.Context, arg CountSentNotificationsParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countSentNotifications, arg.RowKey, arg.Kind, arg.Day)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const updateNotificationStatus = `-- name: UpdateNotificationStatus :exec
UPDATE notifications SET status = ?, error = ? WHERE id = ?
`

type UpdateNotificationStatusParams struct {
	Status string
	Error  string
	ID     int64
}

func (q *Queries) UpdateNotificationStatus(ctx context.Context, arg UpdateNotificationStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateNotificationStatus, arg.Status, arg.Error, arg.ID)
	return err
}

const listRecentNotifications = `-- name: ListRecentNotifications :many
SELECT id, kind, ledger, row_key, recipient, subject, day, status, error, created_at
FROM notifications
ORDER BY created_at DESC, id DESC
LIMIT ?
`

func (q *Queries) ListRecentNotifications(ctx context.Context, limit int64) ([]NotificationRow, error) {
	rows, err := q.db.QueryContext(ctx, listRecentNotifications, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []NotificationRow
	for rows.Next() {
		var i NotificationRow
		if err := rows.Scan(
			&i.ID,
			&i.Kind,
			&i.Ledger,
			&i.RowKey,
			&i.Recipient,
			&i.Subject,
			&i.Day,
			&i.Status,
			&i.Error,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
