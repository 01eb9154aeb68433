package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"payminder/internal/core"
	"payminder/internal/ledger"
)

func TestStoreReadAndUpdate(t *testing.T) {
	s := New()
	s.Put("mem:a", []string{"Name", "Amount", "Due Date"}, [][]ledger.Value{
		{ledger.Text("Alice"), ledger.Number(100), ledger.Text("2024-02-10")},
	})

	ctx := context.Background()
	rows, err := s.ReadEntries(ctx, "mem:a")
	if err != nil || len(rows) != 1 {
		t.Fatalf("unexpected read: rows=%v err=%v", rows, err)
	}

	loc := core.Locator{Ledger: "mem:a", Position: rows[0].Position, Key: rows[0].Key}
	err = s.WriteUpdate(ctx, loc, ledger.Update{
		AmountRemaining: decimal.NewNullDecimal(decimal.Zero),
		Status:          core.StatusPaid,
	})
	if err != nil {
		t.Fatalf("WriteUpdate: %v", err)
	}

	rows, _ = s.ReadEntries(ctx, "mem:a")
	if rows[0].Get(ledger.ColStatus).String() != "Paid" {
		t.Fatalf("status not written: %+v", rows[0].Cells)
	}
}

func TestStoreMissingLedger(t *testing.T) {
	s := New()
	_, err := s.ReadEntries(context.Background(), "mem:none")
	if !errors.Is(err, core.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
	err = s.WriteUpdate(context.Background(), core.Locator{Ledger: "mem:none", Key: "k"}, ledger.Update{Status: core.StatusPaid})
	if !errors.Is(err, core.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
}

func TestStoreTemplateAndKeys(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.CreateTemplate(ctx, "mem:tpl"); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	rows, err := s.ReadEntries(ctx, "mem:tpl")
	if err != nil || len(rows) != 1 {
		t.Fatalf("template read: rows=%v err=%v", rows, err)
	}
	if rows[0].Key.IsContentKey() {
		t.Fatalf("template row should carry an ID")
	}

	s.Put("mem:b", []string{"Name", "Amount", "Due Date"}, [][]ledger.Value{
		{ledger.Text("A"), ledger.Number(1), ledger.Text("2024-01-01")},
		{ledger.Text("B"), ledger.Number(2), ledger.Text("2024-01-02")},
	})
	n, err := s.AssignKeys(ctx, "mem:b")
	if err != nil || n != 2 {
		t.Fatalf("AssignKeys = %d, %v", n, err)
	}
	g, _ := s.Grid("mem:b")
	if g.Column(ledger.ColID) != 3 {
		t.Fatalf("ID column should be appended, header = %v", g.Header)
	}
}
