package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"payminder/internal/core"
	"payminder/internal/ledger"
)

// Store keeps ledgers as in-process grids. Ledger names are free-form;
// the mux routes "mem:" names here.
type Store struct {
	mu      sync.Mutex
	ledgers map[string]*ledger.Grid
	today   func() core.Date
}

var _ ledger.Store = (*Store)(nil)

var errNoLedger = errors.New("no such ledger")

func New() *Store {
	return &Store{ledgers: make(map[string]*ledger.Grid), today: core.Today}
}

// Put replaces the named ledger with a copy of header and rows.
func (s *Store) Put(name string, header []string, rows [][]ledger.Value) {
	g := &ledger.Grid{Header: append([]string(nil), header...)}
	for _, r := range rows {
		g.Rows = append(g.Rows, append([]ledger.Value(nil), r...))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[name] = g
}

// Grid returns a copy of the named ledger for inspection.
func (s *Store) Grid(name string) (*ledger.Grid, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.ledgers[name]
	if !ok {
		return nil, false
	}
	return clone(g), true
}

// Names lists stored ledgers.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ledgers))
	for k := range s.ledgers {
		out = append(out, k)
	}
	return out
}

func (s *Store) ReadEntries(_ context.Context, name string) ([]ledger.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.ledgers[name]
	if !ok {
		return nil, &core.SourceError{Ledger: name, Err: errNoLedger}
	}
	return g.Entries(name)
}

func (s *Store) WriteUpdate(_ context.Context, loc core.Locator, u ledger.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.ledgers[loc.Ledger]
	if !ok {
		return &core.SourceError{Ledger: loc.Ledger, Err: errNoLedger}
	}
	pos, err := g.Resolve(loc)
	if err != nil {
		return err
	}
	g.Apply(pos, u)
	return nil
}

func (s *Store) CreateTemplate(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[name] = ledger.TemplateGrid(s.today(), uuid.NewString())
	return nil
}

func (s *Store) AssignKeys(_ context.Context, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.ledgers[name]
	if !ok {
		return 0, &core.SourceError{Ledger: name, Err: errNoLedger}
	}
	stamped, err := g.StampIDs(name, uuid.NewString)
	if err != nil {
		return 0, fmt.Errorf("assign keys: %w", err)
	}
	return len(stamped), nil
}

func clone(g *ledger.Grid) *ledger.Grid {
	out := &ledger.Grid{Header: append([]string(nil), g.Header...)}
	for _, r := range g.Rows {
		out.Rows = append(out.Rows, append([]ledger.Value(nil), r...))
	}
	return out
}
