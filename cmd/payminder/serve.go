package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"payminder/internal/cli"
	apphttp "payminder/internal/http"
	"payminder/internal/log"
	"payminder/internal/services"
	"payminder/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	var (
		port      string
		reminders bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API",
		Long:  "Run the JSON API. With --reminders the daily reminder scan runs in the same process.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if port == "" {
				port = a.Config.Port
			}

			deps := apphttp.Dependencies{
				Scanner:     a.Engine,
				Payments:    a.Payments(true),
				Sources:     a.Backend,
				HorizonDays: a.Config.UpcomingHorizonDays,
				Logger:      a.Logger,
			}
			if repo, err := a.NotificationLog(); err != nil {
				a.Logger.Warn("Notification history unavailable", log.FieldError, err)
			} else {
				deps.Notifications = repo
			}
			srv := apphttp.NewServer(":"+port, deps)

			ctx, stop := cli.GracefulShutdown(cmd.Context(), a.Logger)
			defer stop()
			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				a.Logger.Info("Starting HTTP server",
					"addr", srv.Addr,
					"backend", a.Config.DataBackend,
					log.FieldOperation, log.OpStartup)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.Logger.Error("Server shutdown error", log.FieldError, err)
					return err
				}
				a.Logger.Info("Server exited")
				return nil
			})

			if reminders {
				sched := services.NewReminderScheduler(a.Reminders(), a.Backend.Sources, services.ReminderSchedulerConfig{
					Interval:   a.Config.ReminderInterval,
					RunOnStart: true,
				}, a.Logger)
				w := worker.NewNotificationWorker(nil, nil, sched, a.Logger)
				g.Go(func() error { return w.Run(gctx) })
			}

			return g.Wait()
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (default from PORT)")
	cmd.Flags().BoolVar(&reminders, "reminders", false, "Also run the periodic reminder scan")
	return cmd
}
