package respawn

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"respawnbradley.gg/internal/lang"
)

type Deps struct {
	Encounter   EncounterState
	Plugins     Resolver
	Players     Directory
	Permissions Permissions
	Messages    Messages
	Replies     Replier
	Audit       AuditSink
	Logger      *log.Logger
	Now         func() time.Time
}

// Workflow runs the respawnbradley command once per Execute call. It holds no
// mutable state; build a new one whenever the config changes.
type Workflow struct {
	cfg  Config
	deps Deps
	log  *log.Logger
}

func New(cfg Config, deps Deps) *Workflow {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Workflow{cfg: cfg, deps: deps, log: logger}
}

func (w *Workflow) Config() Config { return w.cfg }

// invocation carries the plugin resolution for a single Execute call.
type invocation struct {
	target Player
	kind   Kind

	ledger    LedgerService
	hasLedger bool
	lock      LockService
	hasLock   bool

	netID uint64
}

func (w *Workflow) Execute(caller Player, args []string) Result {
	inv := &invocation{}
	res := w.execute(inv, caller, args)
	w.audit(caller, args, inv, res)
	return res
}

func (w *Workflow) execute(inv *invocation, caller Player, args []string) Result {
	if res, ok := w.resolveTarget(inv, caller, args); !ok {
		return res
	}
	res := Result{Kind: inv.kind, TargetID: inv.target.ID}

	if w.deps.Plugins != nil {
		inv.ledger, inv.hasLedger = w.deps.Plugins.Ledger()
		inv.lock, inv.hasLock = w.deps.Plugins.Lock()
	}

	if w.encounterActive() {
		res.Outcome = OutcomeAlreadyActive
		// Shop purchases are paid before the command runs.
		if inv.kind == KindIndirect {
			res.Refunded, res.RefundErr = w.refund(inv)
		}
		w.reply(inv.target.ID, lang.KeyUnableToRespawn)
		return res
	}

	charged, err := w.charge(inv)
	if err != nil {
		res.Outcome = OutcomeChargeFailed
		res.Err = err
		return res
	}
	res.Charged = charged

	instance, err := w.forceRespawn()
	if err != nil {
		w.log.Printf("respawn failed for %s: %v", inv.target.ID, err)
		res.Outcome = OutcomeRespawnFailed
		res.Err = err
		if charged {
			res.Refunded, res.RefundErr = w.refund(inv)
		}
		w.reply(inv.target.ID, lang.KeyRespawnFailed)
		return res
	}
	inv.netID = instance.NetID

	res.Locked = w.applyLock(inv, instance)
	res.Outcome = OutcomeSuccess
	w.reply(inv.target.ID, lang.KeyBradleyRespawned)
	if res.Locked {
		w.reply(inv.target.ID, lang.KeyBradleyLockedToYou)
	}
	return res
}

func (w *Workflow) resolveTarget(inv *invocation, caller Player, args []string) (Result, bool) {
	if !caller.IsServer {
		if w.deps.Permissions == nil || !w.deps.Permissions.HasPermission(caller.ID, PermUse) {
			w.reply(caller.ID, lang.KeyNoPermission)
			return Result{Outcome: OutcomeDenied, Reason: ReasonNoPermission, Kind: KindDirect, TargetID: caller.ID}, false
		}
		inv.target = caller
		inv.kind = KindDirect
		return Result{}, true
	}

	denied := Result{Outcome: OutcomeDenied, Reason: ReasonBadInvocation, Kind: KindIndirect}
	if len(args) != 1 {
		w.log.Printf("Erroneous invocation of respawnbradley command! Usage: respawnbradley <playerId>")
		return denied, false
	}
	id := strings.TrimSpace(args[0])
	var (
		target Player
		ok     bool
	)
	if id != "" && w.deps.Players != nil {
		target, ok = w.deps.Players.FindPlayerByID(id)
	}
	if !ok {
		w.log.Printf("Erroneous invocation of respawnbradley command! Unknown player id '%s'", args[0])
		return denied, false
	}
	inv.target = target
	inv.kind = KindIndirect
	return Result{}, true
}

func (w *Workflow) encounterActive() bool {
	if w.deps.Encounter == nil {
		return false
	}
	return w.deps.Encounter.IsActive()
}

func (w *Workflow) forceRespawn() (Instance, error) {
	if w.deps.Encounter == nil {
		return Instance{}, ErrNoSpawner
	}
	return w.deps.Encounter.ForceRespawn()
}

// charge reports whether points were actually taken. A disabled gate is not
// an error.
func (w *Workflow) charge(inv *invocation) (bool, error) {
	if !w.cfg.chargeEnabled(inv.kind) {
		return false, nil
	}
	if !w.cfg.UseLedger || !inv.hasLedger {
		w.log.Printf("unable to charge %s: no supported rewards plugin loaded or configured", inv.target.ID)
		w.replyAmount(inv.target.ID, lang.KeyUnableToCharge)
		return false, fmt.Errorf("charge %s: %w", inv.target.ID, ErrDependencyMissing)
	}
	if !inv.ledger.Debit(inv.target.ID, w.cfg.Fee) {
		w.replyAmount(inv.target.ID, lang.KeyUnableToCharge)
		return false, fmt.Errorf("charge %s %d: %w", inv.target.ID, w.cfg.Fee, ErrLedgerRejected)
	}
	w.replyAmount(inv.target.ID, lang.KeyPlayerCharged)
	return true, nil
}

// refund never changes the outcome the caller is about to return.
func (w *Workflow) refund(inv *invocation) (bool, error) {
	if !w.cfg.refundEnabled(inv.kind) {
		return false, nil
	}
	if !w.cfg.UseLedger || !inv.hasLedger {
		w.log.Printf("unable to refund %s: no supported rewards plugin loaded or configured", inv.target.ID)
		w.replyAmount(inv.target.ID, lang.KeyUnableToRefund)
		return false, fmt.Errorf("refund %s: %w", inv.target.ID, ErrDependencyMissing)
	}
	if !inv.ledger.Credit(inv.target.ID, w.cfg.Fee) {
		w.replyAmount(inv.target.ID, lang.KeyUnableToRefund)
		return false, fmt.Errorf("refund %s %d: %w", inv.target.ID, w.cfg.Fee, ErrLedgerRejected)
	}
	w.replyAmount(inv.target.ID, lang.KeyPlayerRefunded)
	return true, nil
}

func (w *Workflow) applyLock(inv *invocation, instance Instance) bool {
	if !w.cfg.LockOnRespawn {
		return false
	}
	if w.deps.Permissions != nil && w.deps.Permissions.HasPermission(inv.target.ID, PermNoLock) {
		return false
	}
	if !inv.hasLock {
		w.log.Printf("warning: lock_bradley_on_respawn is enabled but no loot lock plugin is loaded")
		return false
	}
	inv.lock.ApplyMaxDamageLock(instance, inv.target.ID)
	return true
}

func (w *Workflow) reply(playerID, key string) {
	if w.deps.Replies == nil || w.deps.Messages == nil {
		return
	}
	w.deps.Replies.Reply(playerID, w.deps.Messages.Get(key, playerID))
}

func (w *Workflow) replyAmount(playerID, key string) {
	if w.deps.Replies == nil || w.deps.Messages == nil {
		return
	}
	msg := strings.NewReplacer(
		"{amount}", strconv.Itoa(w.cfg.Fee),
		"{currency}", w.cfg.Currency,
	).Replace(w.deps.Messages.Get(key, playerID))
	w.deps.Replies.Reply(playerID, msg)
}

func (w *Workflow) audit(caller Player, args []string, inv *invocation, res Result) {
	if w.deps.Audit == nil {
		return
	}
	rec := Record{
		At:       w.deps.Now().UTC().Format(time.RFC3339Nano),
		CallerID: caller.ID,
		Server:   caller.IsServer,
		Args:     args,
		TargetID: res.TargetID,
		Outcome:  string(res.Outcome),
		Reason:   res.Reason,
		Charged:  res.Charged,
		Refunded: res.Refunded,
		Locked:   res.Locked,
		NetID:    inv.netID,
	}
	if res.Kind != 0 {
		rec.Kind = res.Kind.String()
	}
	if res.Charged || res.Refunded {
		rec.Fee = w.cfg.Fee
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	} else if res.RefundErr != nil {
		rec.Error = res.RefundErr.Error()
	}
	if err := w.deps.Audit.WriteInvocation(rec); err != nil {
		w.log.Printf("audit: %v", err)
	}
}
