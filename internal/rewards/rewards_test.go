package rewards

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"respawnbradley.gg/internal/persistence/sqlitedb"
	"respawnbradley.gg/internal/respawn"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "plugins.db"))
	if err != nil {
		t.Fatalf("sqlitedb.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s, err := Open(db, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestStore_DebitCredit(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	var _ respawn.LedgerService = s

	if s.Debit("76561198000000001", 100) {
		t.Fatalf("debit on empty balance must fail")
	}
	if !s.Credit("76561198000000001", 150) {
		t.Fatalf("credit failed")
	}
	if !s.Debit("76561198000000001", 100) {
		t.Fatalf("debit with enough points failed")
	}
	bal, err := s.Balance(ctx, "76561198000000001")
	if err != nil || bal != 50 {
		t.Fatalf("expected balance 50, got %d err=%v", bal, err)
	}
	if s.Debit("76561198000000001", 51) {
		t.Fatalf("overdraft allowed")
	}
	if s.Debit("76561198000000001", -1) {
		t.Fatalf("negative debit allowed")
	}
	if !s.Debit("76561198000000001", 0) {
		t.Fatalf("zero debit must succeed")
	}
}

func TestStore_HistoryAndSet(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	if err := s.Set(ctx, "p1", 1000); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.TakePoints(ctx, "p1", 400); err != nil {
		t.Fatalf("TakePoints: %v", err)
	}
	if err := s.TakePoints(ctx, "p1", 700); !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
	hist, err := s.History(ctx, "p1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(hist))
	}
	if hist[0].Reason != ReasonTake || hist[0].Delta != -400 || hist[0].Balance != 600 {
		t.Fatalf("unexpected newest tx: %+v", hist[0])
	}
	if hist[1].Reason != ReasonAdmin || hist[1].Delta != 1000 {
		t.Fatalf("unexpected oldest tx: %+v", hist[1])
	}
}

func TestStore_EmptyPlayerRejected(t *testing.T) {
	s := openStore(t)
	if s.Credit("  ", 10) {
		t.Fatalf("credit to empty id must fail")
	}
}
