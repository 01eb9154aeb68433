package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payminder/internal/amqp"
	"payminder/internal/log"
)

type fakeConsumer struct {
	msgs    []*amqp.NotificationMessage
	results chan error
	err     error
}

func (c *fakeConsumer) ConsumeNotifications(ctx context.Context, handler amqp.Handler) error {
	for _, m := range c.msgs {
		c.results <- handler(ctx, m)
	}
	if c.err != nil {
		return c.err
	}
	<-ctx.Done()
	return ctx.Err()
}

type fakeDeliverer struct {
	mu   sync.Mutex
	seen []int64
	fail map[int64]error
}

func (d *fakeDeliverer) Deliver(_ context.Context, msg *amqp.NotificationMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, msg.LogID)
	return d.fail[msg.LogID]
}

type fakeScheduler struct {
	mu      sync.Mutex
	started bool
	stopped bool
}

func (s *fakeScheduler) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return nil
}

func (s *fakeScheduler) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func TestRunDeliversAndStops(t *testing.T) {
	transient := errors.New("smtp timeout")
	consumer := &fakeConsumer{
		msgs:    []*amqp.NotificationMessage{{LogID: 1}, {LogID: 2}},
		results: make(chan error, 2),
	}
	deliverer := &fakeDeliverer{fail: map[int64]error{2: transient}}
	scheduler := &fakeScheduler{}

	w := NewNotificationWorker(consumer, deliverer, scheduler, log.Discard())
	w.RetryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.NoError(t, <-consumer.results)
	assert.ErrorIs(t, <-consumer.results, transient)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Equal(t, []int64{1, 2}, deliverer.seen)
	assert.True(t, scheduler.started)
	assert.True(t, scheduler.stopped)
}

func TestRunConsumerFailureStopsScheduler(t *testing.T) {
	boom := errors.New("access refused")
	consumer := &fakeConsumer{results: make(chan error), err: boom}
	scheduler := &fakeScheduler{}

	w := NewNotificationWorker(consumer, &fakeDeliverer{}, scheduler, nil)
	err := w.Run(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.True(t, scheduler.stopped)
}

func TestRunIdleWithoutWork(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	w := NewNotificationWorker(nil, nil, nil, nil)
	assert.NoError(t, w.Run(ctx))
}

func TestHandleMessageRetryDelayHonoursContext(t *testing.T) {
	deliverer := &fakeDeliverer{fail: map[int64]error{7: errors.New("down")}}
	w := NewNotificationWorker(nil, deliverer, nil, nil)
	w.RetryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := w.HandleMessage(ctx, &amqp.NotificationMessage{LogID: 7})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
