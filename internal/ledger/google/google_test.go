package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"payminder/internal/core"
	"payminder/internal/ledger"
	"payminder/internal/log"
)

// fakeSheets serves the handful of Sheets API calls the client makes,
// backed by one in-memory tab per title.
type fakeSheets struct {
	mu   sync.Mutex
	tabs map[string][][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		rng := path[strings.Index(path, "/values/")+len("/values/"):]
		tab := strings.Trim(rng, "'")
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": f.tabs[tab]})
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/values:batchUpdate"):
		var req gsheet.BatchUpdateValuesRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, vr := range req.Data {
			f.write(vr.Range, vr.Values)
		}
		json.NewEncoder(w).Encode(map[string]any{})
	case r.Method == http.MethodGet:
		var sheets []map[string]any
		for title := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title}})
		}
		json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.tabs[rq.AddSheet.Properties.Title] = nil
			}
		}
		json.NewEncoder(w).Encode(map[string]any{})
	default:
		http.NotFound(w, r)
	}
}

// write stores values at an A1 range like 'Tab'!B3:E3.
func (f *fakeSheets) write(rng string, values [][]interface{}) {
	tab, cells, _ := strings.Cut(rng, "!")
	tab = strings.ReplaceAll(strings.Trim(tab, "'"), "''", "'")
	start, _, _ := strings.Cut(cells, ":")
	col, row, err := excelize.CellNameToCoordinates(start)
	if err != nil {
		return
	}
	grid := f.tabs[tab]
	for r, vals := range values {
		idx := row - 1 + r
		for len(grid) <= idx {
			grid = append(grid, nil)
		}
		for c, v := range vals {
			ci := col - 1 + c
			for len(grid[idx]) <= ci {
				grid[idx] = append(grid[idx], "")
			}
			grid[idx][ci] = v
		}
	}
	f.tabs[tab] = grid
}

func newTestClient(t *testing.T, tabs map[string][][]any) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{tabs: tabs}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	require.NoError(t, err)

	c := New(svc, log.New(log.DefaultConfig()))
	c.today = func() core.Date { return core.NewDate(2024, 3, 15) }
	return c, fake
}

func TestReadEntries(t *testing.T) {
	c, _ := newTestClient(t, map[string][][]any{
		"Payments": {
			{"Name", "Amount", "Due Date", "Status"},
			{"Alice", 100.0, "2024-02-10", "Unpaid"},
			{"Bob", 50.0, "3/15/2024"},
		},
	})

	rows, err := c.ReadEntries(context.Background(), Locator("abc", ""))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	amount, ok := rows[0].Get(ledger.ColAmount).Float()
	assert.True(t, ok)
	assert.Equal(t, 100.0, amount)
	assert.Equal(t, "3/15/2024", rows[1].Get(ledger.ColDueDate).String())
	assert.True(t, rows[1].Get(ledger.ColStatus).IsEmpty())
}

func TestWriteUpdate(t *testing.T) {
	c, fake := newTestClient(t, map[string][][]any{
		"Rome": {
			{"Name", "Amount", "Due Date"},
			{"Alice", 100.0, "2024-02-10"},
			{"Bob", 50.0, "2024-03-15"},
		},
	})
	ctx := context.Background()
	name := Locator("abc", "Rome")

	rows, err := c.ReadEntries(ctx, name)
	require.NoError(t, err)
	err = c.WriteUpdate(ctx, core.Locator{Ledger: name, Key: rows[1].Key}, ledger.Update{
		AmountRemaining: decimal.NewNullDecimal(decimal.Zero),
		Status:          core.StatusPaid,
		PaymentDate:     core.NewDate(2024, 3, 16),
	})
	require.NoError(t, err)

	tab := fake.tabs["Rome"]
	assert.Equal(t, []any{"Name", "Amount", "Due Date", "Status", "Payment Date"}, tab[0])
	assert.Equal(t, "Paid", tab[2][3])
	assert.Equal(t, "2024-03-16", tab[2][4])
	assert.Equal(t, 0.0, tab[2][1])
}

func TestWriteUpdateUnknownKey(t *testing.T) {
	c, _ := newTestClient(t, map[string][][]any{
		"Payments": {{"Name", "Amount", "Due Date"}, {"Alice", 1.0, "2024-01-01"}},
	})
	err := c.WriteUpdate(context.Background(),
		core.Locator{Ledger: Locator("abc", ""), Key: "missing"},
		ledger.Update{Status: core.StatusPaid})
	assert.ErrorIs(t, err, core.ErrRowNotFound)
}

func TestCreateTemplateAddsTab(t *testing.T) {
	c, fake := newTestClient(t, map[string][][]any{})
	c.newID = func() string { return "id-1" }

	require.NoError(t, c.CreateTemplate(context.Background(), Locator("abc", "Milan")))

	tab, ok := fake.tabs["Milan"]
	require.True(t, ok)
	require.Len(t, tab, 2)
	assert.Equal(t, "ID", tab[0][0])
	assert.Equal(t, "id-1", tab[1][0])
	assert.Equal(t, "2024-03-15", tab[1][3])
}

func TestAssignKeys(t *testing.T) {
	c, fake := newTestClient(t, map[string][][]any{
		"Payments": {{"Name", "Amount", "Due Date"}, {"Alice", 1.0, "2024-01-01"}},
	})
	c.newID = func() string { return "uuid-a" }

	n, err := c.AssignKeys(context.Background(), Locator("abc", ""))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "ID", fake.tabs["Payments"][0][3])
	assert.Equal(t, "uuid-a", fake.tabs["Payments"][1][3])
}

func TestParseLocator(t *testing.T) {
	ref, err := parseLocator("sheets:1AbC/Rome")
	require.NoError(t, err)
	assert.Equal(t, sheetRef{spreadsheetID: "1AbC", sheet: "Rome"}, ref)

	ref, err = parseLocator("sheets:1AbC")
	require.NoError(t, err)
	assert.Equal(t, DefaultSheet, ref.sheet)

	_, err = parseLocator("sheets:")
	assert.Error(t, err)
	_, err = parseLocator("file.xlsx")
	assert.Error(t, err)
}

func TestParseValues(t *testing.T) {
	g := parseValues([][]interface{}{
		{" Name ", "Amount", "Due Date"},
		{"Alice", 12.5, true},
		{},
	})
	assert.Equal(t, []string{"Name", "Amount", "Due Date"}, g.Header)
	require.Len(t, g.Rows, 2)
	assert.Equal(t, ledger.KindNumber, g.Rows[0][1].Kind())
	assert.Equal(t, "true", g.Rows[0][2].String())
	assert.Empty(t, g.Rows[1])
}
