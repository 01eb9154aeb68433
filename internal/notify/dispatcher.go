package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payminder/internal/amqp"
	"payminder/internal/core"
	"payminder/internal/log"
)

// Log persists delivery attempts. *storage.SQLiteRepository satisfies it.
type Log interface {
	RecordNotification(ctx context.Context, n core.Notification) (int64, error)
	MarkDelivery(ctx context.Context, id int64, status core.DeliveryStatus, deliveryErr error) error
	AlreadySent(ctx context.Context, key core.RowKey, kind core.NotificationKind, day core.Date) (bool, error)
}

// Publisher hands a message to the queue. *amqp.Client satisfies it.
type Publisher interface {
	PublishNotification(ctx context.Context, msg *amqp.NotificationMessage) error
}

// Dispatcher routes notifications. With a Publisher it queues them for the
// notifier worker and falls back to inline delivery when the broker is
// unreachable; without one it sends inline. Every attempt is logged when a
// Log is set.
type Dispatcher struct {
	sender    Sender
	publisher Publisher
	log       Log
	logger    *log.Logger
	now       func() time.Time
}

type DispatcherOption func(*Dispatcher)

func WithPublisher(p Publisher) DispatcherOption {
	return func(d *Dispatcher) { d.publisher = p }
}

func WithLog(l Log) DispatcherOption {
	return func(d *Dispatcher) { d.log = l }
}

func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(sender Sender, logger *log.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sender: sender,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentNotify),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers m about n. Failures wrap core.ErrNotificationFailed,
// core.ErrInvalidRecipient or core.ErrNotConfigured.
func (d *Dispatcher) Dispatch(ctx context.Context, n core.Notification, m Message) error {
	now := d.now()
	if n.Day.IsZero() {
		n.Day = core.DateOf(now)
	}
	n.CreatedAt = now
	n.Recipient = m.Recipient
	n.Subject = m.Subject

	if err := ValidateRecipient(m.Recipient); err != nil {
		d.record(ctx, n, core.DeliveryFailed, err)
		return err
	}

	if d.publisher != nil {
		id := d.record(ctx, n, core.DeliveryQueued, nil)
		err := d.publisher.PublishNotification(ctx, amqp.NewNotificationMessage(id, n, m.Text, m.HTML))
		if err == nil {
			return nil
		}
		d.logger.WarnContext(ctx, "Queueing notification failed, sending inline",
			log.FieldRecipient, m.Recipient,
			log.FieldError, err)
		sendErr := d.send(ctx, m)
		d.mark(ctx, id, sendErr)
		return sendErr
	}

	sendErr := d.send(ctx, m)
	status := core.DeliverySent
	if sendErr != nil {
		status = core.DeliveryFailed
	}
	d.record(ctx, n, status, sendErr)
	return sendErr
}

// Deliver sends a queued message and records the outcome. Permanent
// failures are recorded and swallowed so the message is not redelivered;
// transient ones are returned so the queue can retry.
func (d *Dispatcher) Deliver(ctx context.Context, msg *amqp.NotificationMessage) error {
	err := d.send(ctx, Message{
		Recipient: msg.Recipient,
		Subject:   msg.Subject,
		Text:      msg.Text,
		HTML:      msg.HTML,
	})
	d.mark(ctx, msg.LogID, err)
	if err != nil && Permanent(err) {
		d.logger.WarnContext(ctx, "Dropping undeliverable notification",
			"log_id", msg.LogID,
			log.FieldRecipient, msg.Recipient,
			log.FieldError, err)
		return nil
	}
	return err
}

// Permanent reports whether retrying err cannot succeed.
func Permanent(err error) bool {
	return errors.Is(err, core.ErrInvalidRecipient) || errors.Is(err, core.ErrNotConfigured)
}

func (d *Dispatcher) send(ctx context.Context, m Message) error {
	if d.sender == nil {
		return core.ErrNotConfigured
	}
	if err := d.sender.Send(ctx, m); err != nil {
		if errors.Is(err, core.ErrNotificationFailed) || Permanent(err) {
			return err
		}
		return fmt.Errorf("%w: %v", core.ErrNotificationFailed, err)
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, n core.Notification, status core.DeliveryStatus, err error) int64 {
	if d.log == nil {
		return 0
	}
	n.Status = status
	if err != nil {
		n.Error = err.Error()
	}
	id, logErr := d.log.RecordNotification(ctx, n)
	if logErr != nil {
		d.logger.ErrorContext(ctx, "Failed to record notification", log.FieldError, logErr)
	}
	return id
}

func (d *Dispatcher) mark(ctx context.Context, id int64, sendErr error) {
	if d.log == nil || id == 0 {
		return
	}
	status := core.DeliverySent
	if sendErr != nil {
		status = core.DeliveryFailed
	}
	if err := d.log.MarkDelivery(ctx, id, status, sendErr); err != nil {
		d.logger.ErrorContext(ctx, "Failed to update notification status", "log_id", id, log.FieldError, err)
	}
}

// AlreadySent reports whether n's kind was already delivered for its row
// on its day. Without a Log nothing is ever considered sent.
func (d *Dispatcher) AlreadySent(ctx context.Context, n core.Notification) (bool, error) {
	if d.log == nil {
		return false, nil
	}
	day := n.Day
	if day.IsZero() {
		day = core.DateOf(d.now())
	}
	return d.log.AlreadySent(ctx, n.Source.Key, n.Kind, day)
}
