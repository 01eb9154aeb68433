package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"payminder/internal/core"
	"payminder/internal/services"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorYellow    = lipgloss.Color("#D0A215")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorText).Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(ColorText)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorTextMuted)
	dimStyle    = lipgloss.NewStyle().Foreground(ColorTextDim)
	okStyle     = lipgloss.NewStyle().Foreground(ColorGreen)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorOrange)

	priorityStyles = map[core.Priority]lipgloss.Style{
		core.PriorityHigh:   lipgloss.NewStyle().Bold(true).Foreground(ColorRed),
		core.PriorityMedium: lipgloss.NewStyle().Foreground(ColorOrange),
		core.PriorityLow:    lipgloss.NewStyle().Foreground(ColorYellow),
	}
)

// Separator is a row that renders as a horizontal rule.
var Separator = []string{"---"}

// Table is a bordered text table. The first column is left-aligned and the
// rest right-aligned unless LeftAligned marks them. Cells may carry ANSI
// styling; widths are measured on the visible text.
type Table struct {
	Title       string
	Headers     []string
	Rows        [][]string
	LeftAligned map[int]bool
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(titleStyle.Render(title))
}

// RenderTable renders t, or "" when it has neither headers nor rows.
func RenderTable(t Table) string {
	cols := len(t.Headers)
	for _, row := range t.Rows {
		if !isSeparator(row) && len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	measure := func(row []string) {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.Headers)
	for _, row := range t.Rows {
		if !isSeparator(row) {
			measure(row)
		}
	}

	rule := func(left, mid, right string) string {
		var b strings.Builder
		b.WriteString(left)
		for i, w := range widths {
			b.WriteString(strings.Repeat("─", w+2))
			if i < cols-1 {
				b.WriteString(mid)
			}
		}
		b.WriteString(right)
		return dimStyle.Render(b.String()) + "\n"
	}
	line := func(row []string, style lipgloss.Style) string {
		var b strings.Builder
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			left := i == 0 || t.LeftAligned[i]
			b.WriteString(style.Render(" " + pad(cell, widths[i], left) + " "))
			b.WriteString(dimStyle.Render("│"))
		}
		return b.String() + "\n"
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}
	b.WriteString(rule("╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(line(t.Headers, headerStyle))
		b.WriteString(rule("├", "┼", "┤"))
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			b.WriteString(rule("├", "┼", "┤"))
			continue
		}
		b.WriteString(line(row, valueStyle))
	}
	b.WriteString(rule("╰", "┴", "╯"))
	return b.String()
}

func isSeparator(row []string) bool {
	return len(row) == 1 && row[0] == Separator[0]
}

func pad(s string, width int, left bool) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if left {
		return s + strings.Repeat(" ", gap)
	}
	return strings.Repeat(" ", gap) + s
}

// DueTable lists overdue and due-today payments, most overdue first as
// the engine returned them.
func DueTable(items []core.ClassifiedPayment) Table {
	t := Table{
		Headers:     []string{"Name", "City", "Amount", "Due", "Overdue", "Priority", "Email"},
		LeftAligned: map[int]bool{1: true, 5: true, 6: true},
	}
	for _, p := range items {
		t.Rows = append(t.Rows, []string{
			Truncate(p.Name, 28),
			orDash(p.City),
			FormatMoney(p.AmountRemaining),
			FormatDate(p.DueDate),
			FormatDays(p.DaysOverdue),
			PriorityLabel(p.Priority),
			orDash(p.Email),
		})
	}
	return t
}

// UpcomingTable lists payments falling due within the horizon.
func UpcomingTable(items []core.ClassifiedPayment) Table {
	t := Table{
		Headers:     []string{"Name", "City", "Amount", "Due", "In", "Email"},
		LeftAligned: map[int]bool{1: true, 5: true},
	}
	for _, p := range items {
		t.Rows = append(t.Rows, []string{
			Truncate(p.Name, 28),
			orDash(p.City),
			FormatMoney(p.AmountRemaining),
			FormatDate(p.DueDate),
			FormatDays(p.DaysUntilDue),
			orDash(p.Email),
		})
	}
	return t
}

// PaymentsTable lists records with the row key needed by pay, reschedule
// and note.
func PaymentsTable(records []core.PaymentRecord) Table {
	t := Table{
		Headers:     []string{"Key", "Name", "City", "Amount", "Due", "Status", "Remarks"},
		LeftAligned: map[int]bool{1: true, 2: true, 5: true, 6: true},
	}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			string(r.Source.Key),
			Truncate(r.Name, 28),
			orDash(r.City),
			FormatMoney(r.AmountRemaining),
			FormatDate(r.DueDate),
			StatusLabel(r.Status),
			Truncate(orDash(r.Remarks), 40),
		})
	}
	return t
}

// CitySummary pairs a city with its aggregate counters.
type CitySummary struct {
	City    string
	Summary core.PaymentSummary
}

// SummaryTable renders one column per city plus a total column.
func SummaryTable(cities []CitySummary, total core.PaymentSummary) Table {
	headers := []string{""}
	cols := make([]core.PaymentSummary, 0, len(cities)+1)
	for _, c := range cities {
		headers = append(headers, c.City)
		cols = append(cols, c.Summary)
	}
	headers = append(headers, "Total")
	cols = append(cols, total)

	row := func(label string, cell func(core.PaymentSummary) string) []string {
		out := []string{label}
		for _, s := range cols {
			out = append(out, cell(s))
		}
		return out
	}
	count := func(f func(core.PaymentSummary) int) func(core.PaymentSummary) string {
		return func(s core.PaymentSummary) string { return FormatNumber(int64(f(s))) }
	}

	return Table{
		Headers: headers,
		Rows: [][]string{
			row("Payments", count(func(s core.PaymentSummary) int { return s.TotalPayments })),
			row("Paid", count(func(s core.PaymentSummary) int { return s.PaidPayments })),
			row("Partial", count(func(s core.PaymentSummary) int { return s.PartialPayments })),
			row("Unpaid", count(func(s core.PaymentSummary) int { return s.UnpaidPayments })),
			Separator,
			row("Overdue", count(func(s core.PaymentSummary) int { return s.OverduePayments })),
			row("Due today", count(func(s core.PaymentSummary) int { return s.DueToday })),
			row("Upcoming", count(func(s core.PaymentSummary) int { return s.UpcomingPayments })),
			Separator,
			row("Amount due", func(s core.PaymentSummary) string { return FormatMoney(s.TotalAmountDue) }),
		},
	}
}

// PriorityLabel colors a priority tier.
func PriorityLabel(p core.Priority) string {
	if st, ok := priorityStyles[p]; ok {
		return st.Render(string(p))
	}
	return string(p)
}

// StatusLabel colors settled rows green and rescheduled ones muted.
func StatusLabel(s core.Status) string {
	switch {
	case s.Settled():
		return okStyle.Render(s.String())
	case s == core.StatusRescheduled:
		return mutedStyle.Render(s.String())
	default:
		return s.String()
	}
}

// RenderReport describes sources a scan could not read, or "" when every
// source was read.
func RenderReport(r services.ScanReport) string {
	if r.Complete() && r.Warnings == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range r.Skipped {
		b.WriteString(warnStyle.Render(fmt.Sprintf("  ! skipped %s (%s): %v", s.Source.Ledger, s.Source.City, s.Err)))
		b.WriteString("\n")
	}
	if r.Warnings > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s with unreadable cells, see log", pluralize(r.Warnings, "row", "rows"))))
		b.WriteString("\n")
	}
	return b.String()
}

// Muted renders s in the secondary text color.
func Muted(s string) string {
	return mutedStyle.Render(s)
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
