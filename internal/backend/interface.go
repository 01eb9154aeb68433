package backend

import (
	"context"

	"payminder/internal/config"
	"payminder/internal/core"
	"payminder/internal/files"
	"payminder/internal/ledger"
)

// Backend bundles the ledger store with the list of ledgers to scan.
type Backend struct {
	Type BackendType

	// Store routes every ledger name to its adapter.
	Store *ledger.Mux

	// Library is the per-city folder of workbooks. It is set for the
	// excel and memory backends.
	Library *files.Library

	// sources is the fixed ledger list of the sheets and memory backends.
	sources []core.Source
}

// Sources lists the ledgers the engine should scan. The excel backend
// re-lists the library on every call so new imports are picked up.
func (b *Backend) Sources(ctx context.Context) ([]core.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.Type == ExcelBackend {
		return b.Library.Sources()
	}
	return append([]core.Source(nil), b.sources...), nil
}

// SourcesFor narrows Sources to one city, or returns all when city is "".
func (b *Backend) SourcesFor(ctx context.Context, city string) ([]core.Source, error) {
	all, err := b.Sources(ctx)
	if err != nil || city == "" {
		return all, err
	}
	var out []core.Source
	for _, s := range all {
		if equalFold(s.City, city) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Cities lists the distinct cities of Sources in first-seen order.
func (b *Backend) Cities(ctx context.Context) ([]string, error) {
	all, err := b.Sources(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, s := range all {
		if !seen[s.City] {
			seen[s.City] = true
			out = append(out, s.City)
		}
	}
	return out, nil
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Excel and memory: root of the per-city workbook folders
	DataDirectory string

	// Google Sheets: one entry per tab
	Sheets []config.SheetLedger
}

// BackendType represents the type of backend
type BackendType string

const (
	ExcelBackend  BackendType = config.BackendExcel
	SheetsBackend BackendType = config.BackendSheets
	MemoryBackend BackendType = config.BackendMemory
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case ExcelBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
