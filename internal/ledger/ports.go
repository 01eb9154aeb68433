package ledger

import (
	"context"

	"payminder/internal/core"
)

// Ports for ledger adapters. Ledger names are opaque to callers; the Mux
// routes them to the adapter that understands their scheme.
type (
	// Reader loads every data row of one ledger. It fails with a
	// *core.SourceError when the ledger cannot be opened and with a
	// *core.SchemaError when a required column is missing.
	Reader interface {
		ReadEntries(ctx context.Context, ledger string) ([]Row, error)
	}

	// Writer applies a partial update to the row loc.Key identifies.
	// The key is resolved against a fresh read; a key that no longer
	// matches any row fails with core.ErrRowNotFound.
	Writer interface {
		WriteUpdate(ctx context.Context, loc core.Locator, u Update) error
	}

	// TemplateWriter emits an empty ledger with the canonical columns and
	// one example row.
	TemplateWriter interface {
		CreateTemplate(ctx context.Context, ledger string) error
	}

	// KeyAssigner writes a UUID into every row whose ID cell is empty and
	// returns how many rows it stamped.
	KeyAssigner interface {
		AssignKeys(ctx context.Context, ledger string) (int, error)
	}

	Store interface {
		Reader
		Writer
		TemplateWriter
		KeyAssigner
	}
)
