package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"payminder/internal/amqp"
	"payminder/internal/backend"
	"payminder/internal/config"
	"payminder/internal/log"
	"payminder/internal/notify"
	"payminder/internal/services"
	"payminder/internal/storage"
)

// App is the wired set of components one process works with. The
// notification log and AMQP publisher are opened on first use so commands
// that only read ledgers never touch them.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Backend *backend.Backend
	Engine  *services.Engine

	mu         sync.Mutex
	notifLog   *storage.SQLiteRepository
	notifErr   error
	logOpened  bool
	publisher  *amqp.Client
	dispatcher *notify.Dispatcher
	closers    []func() error
}

// NewApp builds the ledger backend for cfg and the engine on top of it.
func NewApp(ctx context.Context, cfg *config.Config, factory backend.Factory, logger *log.Logger) (*App, error) {
	logger = log.OrDiscard(logger)
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Backend: res.Backend,
		Engine:  services.NewEngine(res.Backend.Store, logger),
	}
	if res.Cleanup != nil {
		a.closers = append(a.closers, res.Cleanup)
	}
	return a, nil
}

// NotificationLog opens the SQLite delivery log once.
func (a *App) NotificationLog() (*storage.SQLiteRepository, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.logOpened {
		a.logOpened = true
		a.notifLog, a.notifErr = InitSQLite(a.Logger, a.Config.SQLiteDBPath)
		if a.notifErr == nil {
			a.closers = append(a.closers, a.notifLog.Close)
		}
	}
	return a.notifLog, a.notifErr
}

// SMTPSender builds the mail sender, taking the password from the
// environment or the OS keychain.
func (a *App) SMTPSender() *notify.SMTPSender {
	password, err := notify.ResolvePassword(a.Config.SenderEmail, a.Config.EmailAppPassword)
	if err != nil {
		a.Logger.Warn("Keychain lookup failed, e-mail disabled", log.FieldError, err)
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Server:      a.Config.SMTPServer,
		Port:        a.Config.SMTPPort,
		SenderEmail: a.Config.SenderEmail,
		Password:    password,
		CompanyName: a.Config.CompanyName,
	}, a.Logger)
}

// Publisher dials the broker when AMQP_URL is set. It returns nil, nil
// when no broker is configured.
func (a *App) Publisher() (*amqp.Client, error) {
	if a.Config.AMQPURL == "" {
		return nil, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.publisher != nil {
		return a.publisher, nil
	}
	c, err := amqp.NewClient(a.Config.AMQPURL, a.Config.AMQPExchange, a.Config.AMQPQueue, a.Logger)
	if err != nil {
		return nil, err
	}
	a.publisher = c
	a.closers = append(a.closers, c.Close)
	return c, nil
}

// Dispatcher returns the shared notification dispatcher. A broker or log
// that cannot be opened is logged and left out: the dispatcher then sends
// inline or without history.
func (a *App) Dispatcher() *notify.Dispatcher {
	a.mu.Lock()
	d := a.dispatcher
	a.mu.Unlock()
	if d != nil {
		return d
	}

	var opts []notify.DispatcherOption
	if repo, err := a.NotificationLog(); err != nil {
		a.Logger.Warn("Notification history disabled", log.FieldError, err)
	} else {
		opts = append(opts, notify.WithLog(repo))
	}
	if pub, err := a.Publisher(); err != nil {
		a.Logger.Warn("AMQP unavailable, sending notifications inline", log.FieldError, err)
	} else if pub != nil {
		opts = append(opts, notify.WithPublisher(pub))
	}
	d = notify.NewDispatcher(a.SMTPSender(), a.Logger, opts...)

	a.mu.Lock()
	if a.dispatcher == nil {
		a.dispatcher = d
	}
	d = a.dispatcher
	a.mu.Unlock()
	return d
}

// Payments builds the write service. With withEmail false customers are
// not e-mailed about the change.
func (a *App) Payments(withEmail bool) *services.PaymentService {
	var n services.Notifier
	if withEmail {
		n = a.Dispatcher()
	}
	return services.NewPaymentService(a.Backend.Store, n, a.Config.CompanyName, a.Logger)
}

// Reminders builds the reminder processor over the shared dispatcher.
func (a *App) Reminders() *services.ReminderProcessor {
	return services.NewReminderProcessor(a.Engine, a.Dispatcher(), a.Config.CompanyName, a.Logger)
}

// Close releases everything the App opened, newest first.
func (a *App) Close() error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close: %w", errors.Join(errs...))
	}
	return nil
}
