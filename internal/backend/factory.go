package backend

import (
	"context"
	"fmt"
	"path/filepath"

	"payminder/internal/core"
	"payminder/internal/files"
	"payminder/internal/ledger"
	"payminder/internal/ledger/excel"
	gsheet "payminder/internal/ledger/google"
	"payminder/internal/ledger/memory"
	"payminder/internal/log"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	sheets func(ctx context.Context, logger *log.Logger) (ledger.Store, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{
		logger: log.OrDiscard(logger).WithComponent(log.ComponentBackend),
		sheets: func(ctx context.Context, logger *log.Logger) (ledger.Store, error) {
			return gsheet.NewFromEnv(ctx, logger)
		},
	}
}

// CreateBackend implements Factory.CreateBackend. Every backend can also
// reach plain workbook paths and "mem:" ledgers, so templates and imports
// work regardless of where the scanned ledgers live.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	mux := ledger.NewMux()
	mux.Handle(ledger.SchemeFile, excel.New())
	mem := memory.New()
	mux.Handle(ledger.SchemeMemory, mem)

	b := &Backend{Type: config.Type, Store: mux}

	switch config.Type {
	case ExcelBackend:
		b.Library = files.NewLibrary(config.DataDirectory, f.logger)
		f.logger.Info("Initialized excel backend", "data_directory", config.DataDirectory)
	case SheetsBackend:
		if err := f.createSheetsBackend(ctx, b, config); err != nil {
			return nil, err
		}
	case MemoryBackend:
		if err := f.createMemoryBackend(ctx, b, mem, config); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	return &BackendResult{Backend: b}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, b *Backend, config Config) error {
	cli, err := f.sheets(ctx, f.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	b.Store.Handle(ledger.SchemeSheets, cli)
	for _, s := range config.Sheets {
		b.sources = append(b.sources, core.Source{
			Ledger: gsheet.Locator(s.SpreadsheetID, s.Sheet),
			City:   s.City,
		})
	}

	f.logger.Info("Initialized Google Sheets backend", "ledgers", len(b.sources))
	return nil
}

// createMemoryBackend snapshots the workbook library into memory. Writes
// then change the snapshot only, which makes it a dry-run mode.
func (f *DefaultFactory) createMemoryBackend(ctx context.Context, b *Backend, mem *memory.Store, config Config) error {
	b.Library = files.NewLibrary(config.DataDirectory, f.logger)
	sources, err := b.Library.Sources()
	if err != nil {
		return fmt.Errorf("failed to list workbooks: %w", err)
	}

	for _, src := range sources {
		rows, err := b.Store.ReadEntries(ctx, src.Ledger)
		if err != nil {
			f.logger.Warn("Skipping workbook in memory snapshot",
				log.FieldLedger, src.Ledger, log.FieldError, err)
			continue
		}
		name := MemoryLedgerName(src.City, filepath.Base(src.Ledger))
		mem.Put(name, ledger.Columns, snapshotRows(rows))
		b.sources = append(b.sources, core.Source{Ledger: name, City: src.City})
	}

	f.logger.Info("Initialized memory backend",
		"data_directory", config.DataDirectory,
		"ledgers", len(b.sources))
	return nil
}

// MemoryLedgerName names the in-memory copy of a city's workbook.
func MemoryLedgerName(city, file string) string {
	return ledger.SchemeMemory + ":" + city + "/" + file
}

func snapshotRows(rows []ledger.Row) [][]ledger.Value {
	out := make([][]ledger.Value, 0, len(rows))
	for _, r := range rows {
		cells := make([]ledger.Value, len(ledger.Columns))
		for i, c := range ledger.Columns {
			cells[i] = r.Get(c)
		}
		out = append(out, cells)
	}
	return out
}
