package ledger

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"payminder/internal/core"
)

// Ledger name schemes. Plain paths belong to SchemeFile.
const (
	SchemeFile   = "file"
	SchemeSheets = "sheets"
	SchemeMemory = "mem"
)

// SchemeOf returns the scheme prefix of a ledger name ("sheets:..." ->
// "sheets"). Names without one, including Windows drive paths, are files.
func SchemeOf(ledger string) string {
	i := strings.Index(ledger, ":")
	if i <= 1 {
		return SchemeFile
	}
	for _, r := range ledger[:i] {
		if !unicode.IsLetter(r) {
			return SchemeFile
		}
	}
	return strings.ToLower(ledger[:i])
}

// Mux dispatches ledger operations to the store registered for the
// ledger's scheme.
type Mux struct {
	stores map[string]Store
}

var _ Store = (*Mux)(nil)

func NewMux() *Mux {
	return &Mux{stores: make(map[string]Store)}
}

// Handle registers s for scheme, replacing any previous registration.
func (m *Mux) Handle(scheme string, s Store) {
	m.stores[scheme] = s
}

// Schemes lists the registered schemes.
func (m *Mux) Schemes() []string {
	out := make([]string, 0, len(m.stores))
	for k := range m.stores {
		out = append(out, k)
	}
	return out
}

func (m *Mux) route(ledger string) (Store, error) {
	scheme := SchemeOf(ledger)
	s, ok := m.stores[scheme]
	if !ok {
		return nil, &core.SourceError{Ledger: ledger, Err: fmt.Errorf("no ledger backend for scheme %q", scheme)}
	}
	return s, nil
}

func (m *Mux) ReadEntries(ctx context.Context, ledger string) ([]Row, error) {
	s, err := m.route(ledger)
	if err != nil {
		return nil, err
	}
	return s.ReadEntries(ctx, ledger)
}

func (m *Mux) WriteUpdate(ctx context.Context, loc core.Locator, u Update) error {
	s, err := m.route(loc.Ledger)
	if err != nil {
		return err
	}
	return s.WriteUpdate(ctx, loc, u)
}

func (m *Mux) CreateTemplate(ctx context.Context, ledger string) error {
	s, err := m.route(ledger)
	if err != nil {
		return err
	}
	return s.CreateTemplate(ctx, ledger)
}

func (m *Mux) AssignKeys(ctx context.Context, ledger string) (int, error) {
	s, err := m.route(ledger)
	if err != nil {
		return 0, err
	}
	return s.AssignKeys(ctx, ledger)
}
