// Package excel stores ledgers as .xlsx workbooks. The first worksheet
// holds the ledger: a header row followed by one payment per row.
package excel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"payminder/internal/core"
	"payminder/internal/ledger"
)

// TemplateSheet names the worksheet created for new ledgers.
const TemplateSheet = "Payments"

// Extensions lists the workbook formats this store can open.
var Extensions = []string{".xlsx", ".xlsm"}

var errUnsupportedFormat = errors.New("unsupported workbook format")

// Store reads and writes workbook ledgers on the local filesystem.
type Store struct {
	today func() core.Date
	newID func() string
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{today: core.Today, newID: uuid.NewString}
}

// Supported reports whether path has a workbook extension this store handles.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (s *Store) ReadEntries(ctx context.Context, path string) ([]ledger.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, sheet, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := readGrid(f, sheet)
	if err != nil {
		return nil, &core.SourceError{Ledger: path, Err: err}
	}
	return g.Entries(path)
}

func (s *Store) WriteUpdate(ctx context.Context, loc core.Locator, u ledger.Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, sheet, err := open(loc.Ledger)
	if err != nil {
		return err
	}
	defer f.Close()

	g, err := readGrid(f, sheet)
	if err != nil {
		return &core.SourceError{Ledger: loc.Ledger, Err: err}
	}
	pos, err := g.Resolve(loc)
	if err != nil {
		return err
	}

	width := len(g.Header)
	changed := g.Apply(pos, u)
	if err := writeHeader(f, sheet, g, width); err != nil {
		return err
	}
	for _, col := range changed {
		if err := writeCell(f, sheet, pos+2, col, g.Cell(pos, col)); err != nil {
			return err
		}
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save %s: %w", loc.Ledger, err)
	}
	return nil
}

func (s *Store) CreateTemplate(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !Supported(path) {
		return fmt.Errorf("%w: %s", errUnsupportedFormat, filepath.Ext(path))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create template directory: %w", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()
	index, err := f.NewSheet(TemplateSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	g := ledger.TemplateGrid(s.today(), s.newID())
	if err := writeHeader(f, TemplateSheet, g, 0); err != nil {
		return err
	}
	for col := range g.Header {
		if err := writeCell(f, TemplateSheet, 2, col, g.Cell(0, col)); err != nil {
			return err
		}
	}
	last, _ := excelize.ColumnNumberToName(len(g.Header))
	if err := f.SetColWidth(TemplateSheet, "A", last, 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save template %s: %w", path, err)
	}
	return nil
}

func (s *Store) AssignKeys(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, sheet, err := open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	g, err := readGrid(f, sheet)
	if err != nil {
		return 0, &core.SourceError{Ledger: path, Err: err}
	}
	width := len(g.Header)
	stamped, err := g.StampIDs(path, s.newID)
	if err != nil {
		return 0, err
	}
	if len(stamped) == 0 {
		return 0, nil
	}
	if err := writeHeader(f, sheet, g, width); err != nil {
		return 0, err
	}
	col := g.Column(ledger.ColID)
	for _, pos := range stamped {
		if err := writeCell(f, sheet, pos+2, col, g.Cell(pos, col)); err != nil {
			return 0, err
		}
	}
	if err := f.Save(); err != nil {
		return 0, fmt.Errorf("save %s: %w", path, err)
	}
	return len(stamped), nil
}

func open(path string) (*excelize.File, string, error) {
	if !Supported(path) {
		return nil, "", &core.SourceError{Ledger: path, Err: fmt.Errorf("%w: %s", errUnsupportedFormat, filepath.Ext(path))}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, "", &core.SourceError{Ledger: path, Err: err}
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", &core.SourceError{Ledger: path, Err: err}
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, "", &core.SourceError{Ledger: path, Err: errors.New("workbook has no sheets")}
	}
	return f, sheets[0], nil
}

// readGrid loads the sheet with raw cell values so that dates keep their
// serial numbers and amounts are not reformatted.
func readGrid(f *excelize.File, sheet string) (*ledger.Grid, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	g := &ledger.Grid{}
	if len(rows) == 0 {
		return g, nil
	}
	g.Header = rows[0]
	for r := 1; r < len(rows); r++ {
		cells := make([]ledger.Value, len(rows[r]))
		for c, raw := range rows[r] {
			if raw == "" {
				continue
			}
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(sheet, name)
			if err != nil {
				return nil, fmt.Errorf("cell type %s: %w", name, err)
			}
			cells[c] = cellValue(raw, typ)
		}
		g.Rows = append(g.Rows, cells)
	}
	return g, nil
}

func cellValue(raw string, typ excelize.CellType) ledger.Value {
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return ledger.Number(f)
		}
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return ledger.Time(t)
		}
	}
	return ledger.Text(raw)
}

// writeHeader writes header cells from index from onward.
func writeHeader(f *excelize.File, sheet string, g *ledger.Grid, from int) error {
	for col := from; col < len(g.Header); col++ {
		if err := writeCell(f, sheet, 1, col, ledger.Text(g.Header[col])); err != nil {
			return err
		}
	}
	return nil
}

func writeCell(f *excelize.File, sheet string, row, col int, v ledger.Value) error {
	name, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, name, v.Interface()); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}
