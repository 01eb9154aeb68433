package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"payminder/internal/log"
)

// ReminderSchedulerConfig controls the periodic reminder loop.
type ReminderSchedulerConfig struct {
	// Interval between runs (default: 24h)
	Interval time.Duration

	// RunOnStart triggers a run as soon as the scheduler starts (default: true)
	RunOnStart bool
}

func DefaultReminderSchedulerConfig() ReminderSchedulerConfig {
	return ReminderSchedulerConfig{
		Interval:   24 * time.Hour,
		RunOnStart: true,
	}
}

// ReminderScheduler runs a ReminderProcessor on a ticker until stopped.
type ReminderScheduler struct {
	processor *ReminderProcessor
	sources   SourceFunc
	config    ReminderSchedulerConfig
	logger    *log.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	last    ReminderResult
}

func NewReminderScheduler(processor *ReminderProcessor, sources SourceFunc, config ReminderSchedulerConfig, logger *log.Logger) *ReminderScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultReminderSchedulerConfig().Interval
	}
	return &ReminderScheduler{
		processor: processor,
		sources:   sources,
		config:    config,
		logger:    log.OrDiscard(logger).WithComponent(log.ComponentWorker),
		now:       time.Now,
	}
}

// Start begins the loop. Returns an error if already running.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("reminder scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	s.logger.InfoContext(ctx, "Reminder scheduler started",
		"interval", s.config.Interval.String(),
		"run_on_start", s.config.RunOnStart)
	return nil
}

// Stop signals the loop and waits for the current run to finish.
func (s *ReminderScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		s.logger.InfoContext(ctx, "Reminder scheduler stopped gracefully")
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Reminder scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *ReminderScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastResult returns the counts from the most recent completed run.
func (s *ReminderScheduler) LastResult() ReminderResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *ReminderScheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RunOnStart {
		s.runOnce(ctx)
	}

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *ReminderScheduler) runOnce(ctx context.Context) {
	res, _, err := s.processor.RunNow(ctx, s.sources, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "Reminder run failed", log.FieldError, err)
		return
	}
	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
}
