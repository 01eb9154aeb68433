package core

import "time"

// NotificationKind identifies which message template a notification used.
type NotificationKind string

const (
	NotifyReminder     NotificationKind = "reminder"
	NotifyConfirmation NotificationKind = "confirmation"
	NotifyReschedule   NotificationKind = "reschedule"
)

// DeliveryStatus is the outcome of one notification attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryQueued DeliveryStatus = "queued"
	DeliveryFailed DeliveryStatus = "failed"
)

// Notification is one outbound message about a ledger row.
type Notification struct {
	ID        int64
	Kind      NotificationKind
	Source    Locator
	Recipient string
	Subject   string
	Day       Date
	Status    DeliveryStatus
	Error     string
	CreatedAt time.Time
}
