package plugins

import (
	"sync"

	"respawnbradley.gg/internal/respawn"
)

const (
	DefaultLedgerPlugin = "ServerRewards"
	DefaultLockPlugin   = "LootLock"
)

// Resolver finds the ledger and lock plugins by name and caches the typed
// lookups until a plugin is loaded or unloaded.
type Resolver struct {
	host       *Host
	ledgerName string
	lockName   string

	mu        sync.Mutex
	valid     bool
	ledger    respawn.LedgerService
	hasLedger bool
	lock      respawn.LockService
	hasLock   bool
}

func NewResolver(h *Host, ledgerName, lockName string) *Resolver {
	if ledgerName == "" {
		ledgerName = DefaultLedgerPlugin
	}
	if lockName == "" {
		lockName = DefaultLockPlugin
	}
	r := &Resolver{host: h, ledgerName: ledgerName, lockName: lockName}
	h.Subscribe(func(ev Event) {
		if ev.Name == r.ledgerName || ev.Name == r.lockName {
			r.invalidate()
		}
	})
	return r
}

func (r *Resolver) invalidate() {
	r.mu.Lock()
	r.valid = false
	r.mu.Unlock()
}

func (r *Resolver) resolveLocked() {
	if r.valid {
		return
	}
	r.ledger, r.hasLedger = nil, false
	r.lock, r.hasLock = nil, false
	if p, ok := r.host.Get(r.ledgerName); ok {
		r.ledger, r.hasLedger = p.(respawn.LedgerService)
	}
	if p, ok := r.host.Get(r.lockName); ok {
		r.lock, r.hasLock = p.(respawn.LockService)
	}
	r.valid = true
}

func (r *Resolver) Ledger() (respawn.LedgerService, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolveLocked()
	return r.ledger, r.hasLedger
}

func (r *Resolver) Lock() (respawn.LockService, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolveLocked()
	return r.lock, r.hasLock
}
