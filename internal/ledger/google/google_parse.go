package google

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	gsheet "google.golang.org/api/sheets/v4"

	"payminder/internal/ledger"
)

type sheetRef struct {
	spreadsheetID string
	sheet         string
}

// parseLocator splits "sheets:<spreadsheet id>[/<tab>]".
func parseLocator(name string) (sheetRef, error) {
	prefix := ledger.SchemeSheets + ":"
	if !strings.HasPrefix(strings.ToLower(name), prefix) {
		return sheetRef{}, fmt.Errorf("not a sheets ledger: %q", name)
	}
	rest := name[len(prefix):]
	id, tab, _ := strings.Cut(rest, "/")
	id = strings.TrimSpace(id)
	if id == "" {
		return sheetRef{}, errors.New("missing spreadsheet id")
	}
	tab = strings.TrimSpace(tab)
	if tab == "" {
		tab = DefaultSheet
	}
	return sheetRef{spreadsheetID: id, sheet: tab}, nil
}

// parseValues converts a values matrix (as returned by the Sheets API with
// unformatted values) into a grid. Numbers arrive as float64.
func parseValues(values [][]interface{}) *ledger.Grid {
	g := &ledger.Grid{}
	if len(values) == 0 {
		return g
	}
	g.Header = toStrings(values[0])
	for _, raw := range values[1:] {
		cells := make([]ledger.Value, len(raw))
		for i, v := range raw {
			cells[i] = toValue(v)
		}
		g.Rows = append(g.Rows, cells)
	}
	return g
}

func toValue(v interface{}) ledger.Value {
	switch x := v.(type) {
	case nil:
		return ledger.Empty()
	case float64:
		return ledger.Number(x)
	case bool:
		return ledger.Text(strconv.FormatBool(x))
	case string:
		return ledger.Text(x)
	default:
		return ledger.Text(fmt.Sprint(x))
	}
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func quoteSheet(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

func headerRange(sheet string, header []string) *gsheet.ValueRange {
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	last, _ := excelize.ColumnNumberToName(len(header))
	return &gsheet.ValueRange{
		Range:  fmt.Sprintf("%s!A1:%s1", quoteSheet(sheet), last),
		Values: [][]any{row},
	}
}

// rowRange writes a full row; empty cells are sent as "" so they clear.
func rowRange(sheet string, rowNum int, cells []ledger.Value, width int) *gsheet.ValueRange {
	row := make([]any, width)
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			if v := cells[i].Interface(); v != nil {
				row[i] = v
			}
		}
	}
	last, _ := excelize.ColumnNumberToName(width)
	return &gsheet.ValueRange{
		Range:  fmt.Sprintf("%s!A%d:%s%d", quoteSheet(sheet), rowNum, last, rowNum),
		Values: [][]any{row},
	}
}
