package main

import (
	"context"
	"os"

	"payminder/internal/backend"
	"payminder/internal/cli"
	"payminder/internal/log"
	"payminder/internal/services"
	"payminder/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stdout, os.Getenv("LOG_LEVEL"))
	logger.Info("Starting payminder-notifier", log.FieldOperation, log.OpStartup)

	if err := run(context.Background(), logger); err != nil {
		logger.Error("Notifier stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Notifier exited")
}

func run(parent context.Context, logger *log.Logger) error {
	cfg, err := cli.LoadAndValidateConfig(logger)
	if err != nil {
		return err
	}

	ctx, stop := cli.GracefulShutdown(parent, logger)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, backend.NewFactory(logger), logger)
	if err != nil {
		return err
	}
	defer app.Close()

	// The notification log is required here: it is how queued messages
	// are marked delivered.
	if _, err := app.NotificationLog(); err != nil {
		return err
	}
	dispatcher := app.Dispatcher()

	var (
		consumer  worker.Consumer
		deliverer worker.Deliverer
	)
	if cfg.AMQPURL == "" {
		logger.Info("AMQP_URL not set, queued delivery disabled")
	} else {
		client, err := app.Publisher()
		if err != nil {
			return err
		}
		consumer, deliverer = client, dispatcher
	}

	scheduler := services.NewReminderScheduler(app.Reminders(), app.Backend.Sources, services.ReminderSchedulerConfig{
		Interval:   cfg.ReminderInterval,
		RunOnStart: true,
	}, logger)

	return worker.NewNotificationWorker(consumer, deliverer, scheduler, logger).Run(ctx)
}
