package respawn

import "errors"

const (
	PermUse    = "respawnbradley.use"
	PermNoLock = "respawnbradley.nolock"
)

var (
	// ErrDependencyMissing means a collaborator that is enabled in config is
	// not loaded. Operators can fix it, players cannot.
	ErrDependencyMissing = errors.New("dependency missing")
	// ErrLedgerRejected means the ledger answered but refused the debit/credit.
	ErrLedgerRejected = errors.New("ledger rejected")
	ErrNoSpawner      = errors.New("no bradley spawner found")
	ErrSpawnFailed    = errors.New("spawn request did not produce an instance")
)

type Kind int

const (
	KindDirect Kind = iota + 1
	KindIndirect
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "DIRECT"
	case KindIndirect:
		return "INDIRECT"
	default:
		return "UNKNOWN"
	}
}

type Outcome string

const (
	OutcomeDenied        Outcome = "DENIED"
	OutcomeAlreadyActive Outcome = "ALREADY_ACTIVE"
	OutcomeChargeFailed  Outcome = "CHARGE_FAILED"
	OutcomeRespawnFailed Outcome = "RESPAWN_FAILED"
	OutcomeSuccess       Outcome = "SUCCESS"
)

// Denial reasons.
const (
	ReasonNoPermission  = "no-permission"
	ReasonBadInvocation = "bad-invocation"
)

// Player is a command caller or fee target. IsServer marks the console/shop
// origin, which never holds permissions of its own.
type Player struct {
	ID       string
	Name     string
	IsServer bool
}

// Instance is the handle of a freshly spawned encounter entity.
type Instance struct {
	NetID  uint64
	Prefab string
}

type Result struct {
	Outcome  Outcome
	Reason   string
	Kind     Kind
	TargetID string

	Charged  bool
	Refunded bool
	Locked   bool

	Err       error
	RefundErr error
}

func (r Result) OK() bool { return r.Outcome == OutcomeSuccess }

// Config is the immutable per-invocation view of the plugin settings.
type Config struct {
	UseLedger bool

	ChargeOnDirect   bool
	ChargeOnIndirect bool
	RefundOnDirect   bool
	RefundOnIndirect bool

	LockOnRespawn bool

	Fee      int
	Currency string
}

func (c Config) chargeEnabled(k Kind) bool {
	if k == KindDirect {
		return c.ChargeOnDirect
	}
	return c.ChargeOnIndirect
}

func (c Config) refundEnabled(k Kind) bool {
	if k == KindDirect {
		return c.RefundOnDirect
	}
	return c.RefundOnIndirect
}

// Record is one audit line per invocation.
type Record struct {
	At       string   `json:"at"`
	CallerID string   `json:"caller_id"`
	Server   bool     `json:"server,omitempty"`
	Args     []string `json:"args,omitempty"`
	Kind     string   `json:"kind,omitempty"`
	TargetID string   `json:"target_id,omitempty"`
	Outcome  string   `json:"outcome"`
	Reason   string   `json:"reason,omitempty"`
	Fee      int      `json:"fee,omitempty"`
	Charged  bool     `json:"charged,omitempty"`
	Refunded bool     `json:"refunded,omitempty"`
	Locked   bool     `json:"locked,omitempty"`
	NetID    uint64   `json:"net_id,omitempty"`
	Error    string   `json:"error,omitempty"`
}
