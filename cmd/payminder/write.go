package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"payminder/internal/cli"
	"payminder/internal/core"
	"payminder/internal/log"
)

func newPayCmd(opts *options) *cobra.Command {
	var noEmail bool
	cmd := &cobra.Command{
		Use:   "pay LEDGER ROW AMOUNT",
		Short: "Record a payment against a row",
		Long: "Record a payment against a row. ROW is a row key as shown by 'list', or #N for the N-th data row.\n" +
			"Paying the full balance marks the row Paid; less leaves it Partial.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := parseRow(args[0], args[1])
			if err != nil {
				return err
			}
			amount, err := core.ParsePositiveAmount(args[2])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[2], err)
			}

			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.Payments(!noEmail).RecordPayment(cmd.Context(), loc, amount)
			if err != nil {
				return err
			}
			return printRecord(cmd.OutOrStdout(), opts.json, rec)
		},
	}
	cmd.Flags().BoolVar(&noEmail, "no-email", false, "Do not e-mail a confirmation")
	return cmd
}

func newRescheduleCmd(opts *options) *cobra.Command {
	var noEmail bool
	cmd := &cobra.Command{
		Use:   "reschedule LEDGER ROW DATE [REMARK...]",
		Short: "Move a row's due date",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := parseRow(args[0], args[1])
			if err != nil {
				return err
			}
			due, err := core.ParseDate(args[2])
			if err != nil {
				return err
			}

			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.Payments(!noEmail).Reschedule(cmd.Context(), loc, due, strings.Join(args[3:], " "))
			if err != nil {
				return err
			}
			return printRecord(cmd.OutOrStdout(), opts.json, rec)
		},
	}
	cmd.Flags().BoolVar(&noEmail, "no-email", false, "Do not e-mail the customer")
	return cmd
}

func newNoteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "note LEDGER ROW MESSAGE...",
		Short: "Append a timestamped note to a row's remarks",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := parseRow(args[0], args[1])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Payments(false).AddNote(cmd.Context(), loc, strings.Join(args[2:], " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Note added.")
			return nil
		},
	}
}

func newTemplateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "template LEDGER",
		Short: "Create an empty ledger with the expected columns",
		Long:  "Create an empty ledger with the expected columns and one example row. LEDGER is a .xlsx path or a sheets:ID/TAB name.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Backend.Store.CreateTemplate(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template created: %s\n", args[0])
			return nil
		},
	}
}

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE CITY",
		Short: "Copy a workbook into a city's ledger folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Backend.Library == nil {
				return fmt.Errorf("import needs the excel backend, not %s", a.Backend.Type)
			}
			dst, err := a.Backend.Library.Import(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", dst)
			return nil
		},
	}
}

func newAssignIDsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "assign-ids [LEDGER...]",
		Short: "Give every row without an ID a stable one",
		Long:  "Add an ID column if missing and fill blank IDs, so rows keep their identity when the ledger is re-sorted. Without arguments every scanned ledger is processed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			names := args
			if len(names) == 0 {
				sources, err := a.Backend.SourcesFor(cmd.Context(), opts.city)
				if err != nil {
					return err
				}
				for _, s := range sources {
					names = append(names, s.Ledger)
				}
			}

			out := cmd.OutOrStdout()
			t := cli.Table{Headers: []string{"Ledger", "IDs assigned"}}
			var failed int
			for _, name := range names {
				n, err := a.Backend.Store.AssignKeys(cmd.Context(), name)
				if err != nil {
					failed++
					a.Logger.Error("Assigning row IDs failed", log.FieldLedger, name, log.FieldError, err)
					t.Rows = append(t.Rows, []string{name, "error: " + err.Error()})
					continue
				}
				t.Rows = append(t.Rows, []string{name, cli.FormatNumber(int64(n))})
			}
			fmt.Fprint(out, cli.RenderTable(t))
			if failed > 0 {
				return fmt.Errorf("%d of %d ledgers failed", failed, len(names))
			}
			return nil
		},
	}
}

func printRecord(out io.Writer, asJSON bool, rec core.PaymentRecord) error {
	if asJSON {
		return printJSON(out, rec)
	}
	fmt.Fprint(out, cli.RenderTable(cli.PaymentsTable([]core.PaymentRecord{rec})))
	return nil
}
