package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"payminder/internal/cli"
	"payminder/internal/config"
)

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write the configuration file",
	}
	cmd.AddCommand(newConfigShowCmd(opts), newConfigInitCmd(opts))
	return cmd
}

func newConfigShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			file := cfg.ConfigFile
			if file == "" {
				file = config.ConfigPath() + " (not found)"
			}
			amqpURL := "(inline delivery)"
			if cfg.AMQPURL != "" {
				amqpURL = cfg.AMQPExchange + " / " + cfg.AMQPQueue
			}
			sender := cfg.SenderEmail
			if sender == "" {
				sender = "(not set)"
			}

			fmt.Fprint(cmd.OutOrStdout(), cli.RenderTable(cli.Table{
				Title:       "Configuration",
				LeftAligned: map[int]bool{1: true},
				Rows: [][]string{
					{"Config file", file},
					{"Backend", cfg.DataBackend},
					{"Data directory", cfg.DataDir},
					{"Sheets ledgers", strconv.Itoa(len(cfg.Sheets))},
					{"Upcoming horizon", cli.FormatDays(cfg.UpcomingHorizonDays)},
					cli.Separator,
					{"Notification log", cfg.SQLiteDBPath},
					{"Queue", amqpURL},
					{"SMTP server", fmt.Sprintf("%s:%d", cfg.SMTPServer, cfg.SMTPPort)},
					{"Sender", sender},
					{"Company", cfg.CompanyName},
					{"Reminder interval", cfg.ReminderInterval.String()},
				},
			}))
			return nil
		},
	}
}

func newConfigInitCmd(opts *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current file-backed settings to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			path := config.ConfigPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
