package plugins

import (
	"errors"
	"testing"

	"respawnbradley.gg/internal/respawn"
)

type ledgerPlugin struct{ name string }

func (p ledgerPlugin) Info() Info                      { return Info{Name: p.name, Version: "1.0.0"} }
func (ledgerPlugin) Debit(id string, amount int) bool  { return true }
func (ledgerPlugin) Credit(id string, amount int) bool { return true }

type plainPlugin struct{ name string }

func (p plainPlugin) Info() Info { return Info{Name: p.name} }

type failingInit struct{}

func (failingInit) Info() Info         { return Info{Name: "Broken"} }
func (failingInit) Init(h *Host) error { return errors.New("boom") }

func TestHost_LoadUnload(t *testing.T) {
	h := NewHost(nil)
	var events []Event
	h.Subscribe(func(ev Event) { events = append(events, ev) })

	if err := h.Load(plainPlugin{name: "A"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := h.Load(plainPlugin{name: "A"}); !errors.Is(err, ErrAlreadyLoaded) {
		t.Fatalf("expected ErrAlreadyLoaded, got %v", err)
	}
	if err := h.Load(plainPlugin{}); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if err := h.Load(failingInit{}); err == nil {
		t.Fatalf("expected init failure")
	}
	if _, ok := h.Get("Broken"); ok {
		t.Fatalf("failed plugin must not be registered")
	}
	if err := h.Unload("A"); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if err := h.Unload("A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(events) != 2 || events[0].Kind != EventLoaded || events[1].Kind != EventUnloaded {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestResolver_TracksLifecycle(t *testing.T) {
	h := NewHost(nil)
	r := NewResolver(h, "", "")

	if _, ok := r.Ledger(); ok {
		t.Fatalf("ledger resolved before load")
	}
	if err := h.Load(ledgerPlugin{name: DefaultLedgerPlugin}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	l, ok := r.Ledger()
	if !ok || l == nil {
		t.Fatalf("ledger not resolved after load")
	}
	if _, ok := r.Lock(); ok {
		t.Fatalf("lock resolved without plugin")
	}
	if err := h.Unload(DefaultLedgerPlugin); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if _, ok := r.Ledger(); ok {
		t.Fatalf("ledger still resolved after unload")
	}
}

func TestResolver_WrongShapeIsAbsent(t *testing.T) {
	h := NewHost(nil)
	r := NewResolver(h, "", "")
	if err := h.Load(plainPlugin{name: DefaultLedgerPlugin}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := r.Ledger(); ok {
		t.Fatalf("plugin without Debit/Credit must not resolve as ledger")
	}
	var _ respawn.Resolver = r
}
