package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"payminder/internal/cli"
	"payminder/internal/core"
	"payminder/internal/notify"
)

func newRemindCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "E-mail every customer with a due or overdue payment",
		Long:  "E-mail every customer on the due-list. A row is reminded at most once per day; rows without an e-mail are skipped.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			today, err := opts.today()
			if err != nil {
				return err
			}
			sources, err := a.Backend.SourcesFor(cmd.Context(), opts.city)
			if err != nil {
				return err
			}
			res, report, err := a.Reminders().Run(cmd.Context(), sources, today)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, res)
			}
			fmt.Fprint(out, cli.RenderTable(cli.Table{
				Title: fmt.Sprintf("Reminders for %s", today),
				Rows: [][]string{
					{"Sent", cli.FormatNumber(int64(res.Sent))},
					{"Skipped", cli.FormatNumber(int64(res.Skipped))},
					{"Failed", cli.FormatNumber(int64(res.Failed))},
				},
			}))
			fmt.Fprint(out, cli.RenderReport(report))
			if res.Failed > 0 {
				return fmt.Errorf("%d reminders failed", res.Failed)
			}
			return nil
		},
	}
}

func newNotificationsCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show recent e-mail delivery attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			repo, err := a.NotificationLog()
			if err != nil {
				return err
			}
			recent, err := repo.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, recent)
			}
			if len(recent) == 0 {
				fmt.Fprintln(out, "  No notifications recorded.")
				return nil
			}
			fmt.Fprint(out, cli.RenderTable(notificationsTable(recent)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Number of entries")
	return cmd
}

func notificationsTable(ns []core.Notification) cli.Table {
	t := cli.Table{
		Headers:     []string{"When", "Kind", "Recipient", "Status", "Subject"},
		LeftAligned: map[int]bool{1: true, 2: true, 3: true, 4: true},
	}
	for _, n := range ns {
		status := string(n.Status)
		if n.Error != "" {
			status += ": " + cli.Truncate(n.Error, 30)
		}
		t.Rows = append(t.Rows, []string{
			n.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(n.Kind),
			n.Recipient,
			status,
			cli.Truncate(n.Subject, 40),
		})
	}
	return t
}

func newSMTPLoginCmd(opts *options) *cobra.Command {
	var fromStdin bool
	cmd := &cobra.Command{
		Use:   "smtp-login",
		Short: "Store the sender's app password in the OS keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.SenderEmail == "" {
				return errors.New("SENDER_EMAIL is not set")
			}

			var password string
			if fromStdin {
				password, err = readLine(cmd.InOrStdin())
			} else {
				password, err = promptPassword(cfg.SenderEmail)
			}
			if err != nil {
				return err
			}
			if err := notify.StorePassword(cfg.SenderEmail, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password stored for %s\n", cfg.SenderEmail)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "password-stdin", false, "Read the password from standard input")
	return cmd
}

func newSMTPLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "smtp-logout",
		Short: "Remove the sender's app password from the OS keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := notify.ForgetPassword(cfg.SenderEmail); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password removed for %s\n", cfg.SenderEmail)
			return nil
		},
	}
}

func newSMTPTestCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "smtp-test",
		Short: "Connect and authenticate to the SMTP server without sending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			a := &cli.App{Config: cfg, Logger: logger}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err := a.SMTPSender().TestConnection(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "SMTP login to %s:%d as %s succeeded\n", cfg.SMTPServer, cfg.SMTPPort, cfg.SenderEmail)
			return nil
		},
	}
}

func promptPassword(sender string) (string, error) {
	var password string
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("App password for " + sender).
			EchoMode(huh.EchoModePassword).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("password is required")
				}
				return nil
			}).
			Value(&password),
	)).Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(password), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("empty password on stdin")
	}
	return line, nil
}
