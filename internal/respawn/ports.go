package respawn

// EncounterState is the host's view of the Bradley encounter.
type EncounterState interface {
	// IsActive reports a live APC, leftover debris, or a locked crate.
	IsActive() bool
	// ForceRespawn kills any live instance without side effects and spawns
	// a fresh one.
	ForceRespawn() (Instance, error)
}

type LedgerService interface {
	Debit(playerID string, amount int) bool
	Credit(playerID string, amount int) bool
}

type LockService interface {
	ApplyMaxDamageLock(inst Instance, attributedTo string)
}

// Resolver looks up the optional sibling plugins. ok=false means the plugin
// is not loaded, which is different from the plugin answering false.
type Resolver interface {
	Ledger() (LedgerService, bool)
	Lock() (LockService, bool)
}

type Directory interface {
	FindPlayerByID(id string) (Player, bool)
}

type Permissions interface {
	HasPermission(playerID, perm string) bool
}

type Messages interface {
	Get(key, playerID string) string
}

type Replier interface {
	Reply(playerID, text string)
}

type AuditSink interface {
	WriteInvocation(rec Record) error
}
