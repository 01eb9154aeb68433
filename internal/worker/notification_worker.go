// Package worker runs the background half of payminder: it consumes queued
// notifications from AMQP and fires the periodic reminder scan.
package worker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"payminder/internal/amqp"
	"payminder/internal/log"
)

// Consumer feeds queued messages to a handler until ctx is done.
type Consumer interface {
	ConsumeNotifications(ctx context.Context, handler amqp.Handler) error
}

// Deliverer sends one queued message. A returned error means "retry later".
type Deliverer interface {
	Deliver(ctx context.Context, msg *amqp.NotificationMessage) error
}

// Scheduler is the periodic reminder loop.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

const (
	defaultRetryDelay   = 5 * time.Second
	defaultStopDeadline = 30 * time.Second
)

// NotificationWorker delivers queued notifications and drives the reminder
// scheduler. Either half may be nil.
type NotificationWorker struct {
	consumer  Consumer
	deliverer Deliverer
	scheduler Scheduler
	logger    *log.Logger

	// RetryDelay throttles requeues after a transient delivery failure.
	RetryDelay time.Duration
	// StopDeadline bounds how long Run waits for the scheduler to stop.
	StopDeadline time.Duration
}

func NewNotificationWorker(consumer Consumer, deliverer Deliverer, scheduler Scheduler, logger *log.Logger) *NotificationWorker {
	return &NotificationWorker{
		consumer:     consumer,
		deliverer:    deliverer,
		scheduler:    scheduler,
		logger:       log.OrDiscard(logger).WithComponent(log.ComponentWorker),
		RetryDelay:   defaultRetryDelay,
		StopDeadline: defaultStopDeadline,
	}
}

// Run blocks until ctx is cancelled or the consumer fails for good.
// Cancellation is a clean exit and returns nil.
func (w *NotificationWorker) Run(ctx context.Context) error {
	if (w.consumer == nil || w.deliverer == nil) && w.scheduler == nil {
		w.logger.WarnContext(ctx, "Notification worker has nothing to do, idling until shutdown")
		<-ctx.Done()
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)

	if w.consumer != nil && w.deliverer != nil {
		g.Go(func() error {
			w.logger.InfoContext(ctx, "Consuming queued notifications")
			err := w.consumer.ConsumeNotifications(ctx, w.HandleMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		w.logger.InfoContext(ctx, "Skipping AMQP consumption - no consumer configured")
	}

	if w.scheduler != nil {
		if err := w.scheduler.Start(ctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), w.StopDeadline)
			defer cancel()
			return w.scheduler.Stop(stopCtx)
		})
	}

	err := g.Wait()
	w.logger.Info("Notification worker stopped")
	return err
}

// HandleMessage delivers msg. On a transient failure it waits RetryDelay
// before returning the error so the broker does not redeliver in a tight
// loop.
func (w *NotificationWorker) HandleMessage(ctx context.Context, msg *amqp.NotificationMessage) error {
	w.logger.InfoContext(ctx, "Processing notification message",
		"log_id", msg.LogID,
		log.FieldRecipient, msg.Recipient,
		"kind", msg.Kind)

	err := w.deliverer.Deliver(ctx, msg)
	if err == nil {
		return nil
	}

	w.logger.WarnContext(ctx, "Delivery failed, message will be retried",
		"log_id", msg.LogID,
		log.FieldError, err,
		"retry_delay", w.RetryDelay.String())

	select {
	case <-ctx.Done():
	case <-time.After(w.RetryDelay):
	}
	return err
}
