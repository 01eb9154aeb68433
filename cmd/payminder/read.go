package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"payminder/internal/cli"
	"payminder/internal/core"
	"payminder/internal/services"
)

func newDueCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "List overdue and due-today payments",
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
			items, report := a.Engine.FindDue(cmd.Context(), sources, today)

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, items)
			}
			printList(out, fmt.Sprintf("DUE PAYMENTS  %s", today), cli.DueTable(items), "No payments are due.", report)
			return nil
		},
	}
}

func newUpcomingCmd(opts *options) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List payments falling due within the horizon",
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
			horizon := a.Config.UpcomingHorizonDays
			if cmd.Flags().Changed("days") {
				if days < 0 {
					return fmt.Errorf("--days must not be negative")
				}
				horizon = days
			}
			sources, err := a.Backend.SourcesFor(cmd.Context(), opts.city)
			if err != nil {
				return err
			}
			items, report := a.Engine.FindUpcoming(cmd.Context(), sources, today, horizon)

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, items)
			}
			title := fmt.Sprintf("UPCOMING  next %s from %s", cli.FormatDays(horizon), today)
			printList(out, title, cli.UpcomingTable(items), "Nothing falls due in this window.", report)
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "n", 0, "Horizon in days (default from config)")
	return cmd
}

func newSummaryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Payment counters per city",
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

			byCity := make(map[string][]core.Source)
			var cities []string
			for _, s := range sources {
				if _, ok := byCity[s.City]; !ok {
					cities = append(cities, s.City)
				}
				byCity[s.City] = append(byCity[s.City], s)
			}
			sort.Strings(cities)

			var (
				rows   []cli.CitySummary
				total  = services.Summarize(nil, today)
				report services.ScanReport
			)
			for _, city := range cities {
				sum, r := a.Engine.Summarize(cmd.Context(), byCity[city], today)
				rows = append(rows, cli.CitySummary{City: city, Summary: sum})
				total = total.Add(sum)
				report.Scanned += r.Scanned
				report.Records += r.Records
				report.Warnings += r.Warnings
				report.Skipped = append(report.Skipped, r.Skipped...)
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, struct {
					Today  core.Date
					Cities []cli.CitySummary
					Total  core.PaymentSummary
				}{today, rows, total})
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, cli.RenderTitle(fmt.Sprintf("PAYMENT SUMMARY  %s", today)))
			fmt.Fprintln(out)
			if len(cities) == 0 {
				fmt.Fprintln(out, "  No ledgers found.")
				return nil
			}
			fmt.Fprint(out, cli.RenderTable(cli.SummaryTable(rows, total)))
			fmt.Fprint(out, cli.RenderReport(report))
			return nil
		},
	}
}

func newListCmd(opts *options) *cobra.Command {
	var filter services.Filter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger rows with their row keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch filter.Status {
			case services.FilterAll, services.FilterPaid, services.FilterUnpaid:
			default:
				return fmt.Errorf("--status must be %q or %q", services.FilterPaid, services.FilterUnpaid)
			}

			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sources, err := a.Backend.SourcesFor(cmd.Context(), opts.city)
			if err != nil {
				return err
			}
			records, report := a.Engine.Load(cmd.Context(), sources)
			records = filter.Apply(records)

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, records)
			}
			printList(out, fmt.Sprintf("PAYMENTS  %d rows", len(records)), cli.PaymentsTable(records), "No matching rows.", report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter.Search, "search", "s", "", "Substring to match in any field")
	cmd.Flags().StringVar(&filter.Status, "status", "", "paid or unpaid")
	return cmd
}

func newCitiesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cities",
		Short: "List the cities with ledgers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			cities, err := a.Backend.Cities(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, cities)
			}
			for _, c := range cities {
				fmt.Fprintln(out, c)
			}
			return nil
		},
	}
}

func newFilesCmd(opts *options) *cobra.Command {
	var latest bool
	cmd := &cobra.Command{
		Use:   "files CITY",
		Short: "List the workbooks stored for a city",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Backend.Library == nil {
				return fmt.Errorf("the %s backend has no file library", a.Backend.Type)
			}

			var paths []string
			if latest {
				p, err := a.Backend.Library.LatestByCity(args[0])
				if err != nil {
					return err
				}
				paths = []string{p}
			} else if paths, err = a.Backend.Library.CityFiles(args[0]); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, paths)
			}
			for _, p := range paths {
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "Only the most recently modified workbook")
	return cmd
}

func printList(out io.Writer, title string, t cli.Table, empty string, report services.ScanReport) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle(title))
	fmt.Fprintln(out)
	if len(t.Rows) == 0 {
		fmt.Fprintln(out, "  "+empty)
	} else {
		fmt.Fprint(out, cli.RenderTable(t))
	}
	fmt.Fprint(out, cli.RenderReport(report))
}
