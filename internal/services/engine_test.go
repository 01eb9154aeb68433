package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payminder/internal/core"
	"payminder/internal/ledger"
	"payminder/internal/ledger/memory"
	"payminder/internal/log"
)

var testHeader = []string{ledger.ColName, ledger.ColAmount, ledger.ColDueDate, ledger.ColStatus, ledger.ColEmail}

func paymentRow(name string, amount float64, due, status string) []ledger.Value {
	return []ledger.Value{
		ledger.Text(name), ledger.Number(amount), ledger.Text(due), ledger.Text(status),
		ledger.Text(name + "@example.com"),
	}
}

func newScenarioStore() *memory.Store {
	store := memory.New()
	store.Put("mem:rome", testHeader, [][]ledger.Value{
		paymentRow("Alice", 100, "2024-02-10", "Unpaid"),
		paymentRow("Bob", 50, "2024-03-15", ""),
	})
	store.Put("mem:milan", testHeader, [][]ledger.Value{
		paymentRow("Carol", 75, "2024-03-20", "unpaid"),
		paymentRow("Dana", 30, "2024-01-01", "Paid"),
	})
	store.Put("mem:broken", []string{ledger.ColName, ledger.ColEmail}, [][]ledger.Value{
		{ledger.Text("Zed"), ledger.Text("zed@example.com")},
	})
	return store
}

var scenarioSources = []core.Source{
	{Ledger: "mem:rome", City: "Rome"},
	{Ledger: "mem:missing", City: "Nowhere"},
	{Ledger: "mem:milan", City: "Milan"},
	{Ledger: "mem:broken", City: "Turin"},
}

func newScenarioEngine() *Engine {
	mux := ledger.NewMux()
	mux.Handle(ledger.SchemeMemory, newScenarioStore())
	return NewEngine(mux, log.Discard())
}

func TestEngine_FindDueSkipsBadSources(t *testing.T) {
	today := core.NewDate(2024, 3, 15)

	due, report := newScenarioEngine().FindDue(context.Background(), scenarioSources, today)
	assert.Equal(t, []string{"Alice", "Bob"}, names(due))
	assert.Equal(t, "Rome", due[0].City)
	assert.Equal(t, "mem:rome", due[0].Source.Ledger)
	assert.NotEmpty(t, due[0].Source.Key)

	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 4, report.Records)
	assert.False(t, report.Complete())
	require.Len(t, report.Skipped, 2)
	assert.ErrorIs(t, report.Skipped[0].Err, core.ErrSourceUnavailable)
	assert.Equal(t, "Nowhere", report.Skipped[0].Source.City)
	assert.ErrorIs(t, report.Skipped[1].Err, core.ErrSchema)
}

func TestEngine_FindUpcoming(t *testing.T) {
	today := core.NewDate(2024, 3, 15)

	upcoming, _ := newScenarioEngine().FindUpcoming(context.Background(), scenarioSources, today, 7)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Carol", upcoming[0].Name)
	assert.Equal(t, "Milan", upcoming[0].City)
	assert.Equal(t, 5, upcoming[0].DaysUntilDue)
}

func TestEngine_SummarizeAddsSources(t *testing.T) {
	today := core.NewDate(2024, 3, 15)
	engine := newScenarioEngine()
	ctx := context.Background()

	all, report := engine.Summarize(ctx, scenarioSources, today)
	assert.Len(t, report.Skipped, 2)
	assert.Equal(t, 4, all.TotalPayments)
	assert.Equal(t, 1, all.PaidPayments)
	assert.Equal(t, 3, all.UnpaidPayments)
	assert.Equal(t, 1, all.OverduePayments)
	assert.Equal(t, 1, all.DueToday)
	assert.Equal(t, 1, all.UpcomingPayments)
	assert.True(t, decimal.NewFromInt(225).Equal(all.TotalAmountDue))

	rome, _ := engine.Summarize(ctx, scenarioSources[:1], today)
	milan, _ := engine.Summarize(ctx, scenarioSources[2:3], today)
	assert.True(t, all.Equal(rome.Add(milan)))
}

func TestEngine_CancelledContextSkipsAll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, report := newScenarioEngine().Load(ctx, scenarioSources)
	assert.Empty(t, records)
	assert.Len(t, report.Skipped, len(scenarioSources))
	assert.Zero(t, report.Scanned)
}
