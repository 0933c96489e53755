package respawn

import (
	"errors"
	"strings"
	"testing"
)

type fakeEncounter struct {
	active      bool
	respawnErr  error
	activeCalls int
	spawnCalls  int
}

func (f *fakeEncounter) IsActive() bool {
	f.activeCalls++
	return f.active
}

func (f *fakeEncounter) ForceRespawn() (Instance, error) {
	f.spawnCalls++
	if f.respawnErr != nil {
		return Instance{}, f.respawnErr
	}
	return Instance{NetID: 42, Prefab: "bradleyapc"}, nil
}

type fakeLedger struct {
	debitOK  bool
	creditOK bool
	debits   []string
	credits  []string
}

func (f *fakeLedger) Debit(id string, amount int) bool {
	f.debits = append(f.debits, id)
	return f.debitOK
}

func (f *fakeLedger) Credit(id string, amount int) bool {
	f.credits = append(f.credits, id)
	return f.creditOK
}

type fakeLock struct {
	locks []string
}

func (f *fakeLock) ApplyMaxDamageLock(inst Instance, attributedTo string) {
	f.locks = append(f.locks, attributedTo)
}

type fakeResolver struct {
	ledger *fakeLedger
	lock   *fakeLock
}

func (r fakeResolver) Ledger() (LedgerService, bool) {
	if r.ledger == nil {
		return nil, false
	}
	return r.ledger, true
}

func (r fakeResolver) Lock() (LockService, bool) {
	if r.lock == nil {
		return nil, false
	}
	return r.lock, true
}

type fakeDirectory map[string]Player

func (d fakeDirectory) FindPlayerByID(id string) (Player, bool) {
	p, ok := d[id]
	return p, ok
}

type fakePerms map[string]map[string]bool

func (p fakePerms) HasPermission(id, perm string) bool { return p[id][perm] }

type keyMessages struct{}

func (keyMessages) Get(key, playerID string) string { return key + " {amount} {currency}" }

type replies struct {
	got map[string][]string
}

func (r *replies) Reply(id, text string) {
	if r.got == nil {
		r.got = map[string][]string{}
	}
	r.got[id] = append(r.got[id], text)
}

type auditSink struct{ recs []Record }

func (a *auditSink) WriteInvocation(rec Record) error {
	a.recs = append(a.recs, rec)
	return nil
}

type harness struct {
	enc    *fakeEncounter
	ledger *fakeLedger
	lock   *fakeLock
	perms  fakePerms
	rep    *replies
	audit  *auditSink
}

func newHarness() *harness {
	return &harness{
		enc:    &fakeEncounter{},
		ledger: &fakeLedger{debitOK: true, creditOK: true},
		lock:   &fakeLock{},
		perms:  fakePerms{"76561198000000001": {PermUse: true}},
		rep:    &replies{},
		audit:  &auditSink{},
	}
}

func (h *harness) workflow(cfg Config) *Workflow {
	return New(cfg, Deps{
		Encounter:   h.enc,
		Plugins:     fakeResolver{ledger: h.ledger, lock: h.lock},
		Players:     fakeDirectory{"76561198000000001": {ID: "76561198000000001", Name: "alice"}, "76561198000000002": {ID: "76561198000000002", Name: "bob"}},
		Permissions: h.perms,
		Messages:    keyMessages{},
		Replies:     h.rep,
		Audit:       h.audit,
	})
}

var (
	alice   = Player{ID: "76561198000000001", Name: "alice"}
	bob     = Player{ID: "76561198000000002", Name: "bob"}
	console = Player{ID: "server", Name: "Server", IsServer: true}
)

func TestExecute_DirectWithoutPermissionIsDenied(t *testing.T) {
	h := newHarness()
	res := h.workflow(Config{UseLedger: true, ChargeOnDirect: true}).Execute(bob, nil)
	if res.Outcome != OutcomeDenied || res.Reason != ReasonNoPermission {
		t.Fatalf("expected no-permission denial, got %+v", res)
	}
	if h.enc.activeCalls != 0 || h.enc.spawnCalls != 0 || len(h.ledger.debits) != 0 {
		t.Fatalf("collaborators touched on denial: enc=%+v ledger=%+v", h.enc, h.ledger)
	}
	if got := h.rep.got[bob.ID]; len(got) != 1 || !strings.HasPrefix(got[0], "NoPermission") {
		t.Fatalf("expected NoPermission reply, got %v", got)
	}
}

func TestExecute_IndirectArgumentCount(t *testing.T) {
	for _, args := range [][]string{nil, {alice.ID, bob.ID}} {
		h := newHarness()
		res := h.workflow(Config{UseLedger: true, ChargeOnIndirect: true, RefundOnIndirect: true}).Execute(console, args)
		if res.Outcome != OutcomeDenied || res.Reason != ReasonBadInvocation {
			t.Fatalf("args=%v: expected bad invocation, got %+v", args, res)
		}
		if h.enc.activeCalls != 0 || len(h.ledger.debits) != 0 || len(h.ledger.credits) != 0 {
			t.Fatalf("args=%v: collaborators touched", args)
		}
		if len(h.rep.got) != 0 {
			t.Fatalf("args=%v: bad invocation must not reply, got %v", args, h.rep.got)
		}
	}
}

func TestExecute_IndirectUnknownPlayer(t *testing.T) {
	h := newHarness()
	res := h.workflow(Config{}).Execute(console, []string{"123"})
	if res.Outcome != OutcomeDenied || res.Reason != ReasonBadInvocation {
		t.Fatalf("expected bad invocation, got %+v", res)
	}
	if h.enc.activeCalls != 0 {
		t.Fatalf("encounter queried for unknown player")
	}
}

func TestExecute_DirectAlreadyActiveNeverCharges(t *testing.T) {
	h := newHarness()
	h.enc.active = true
	res := h.workflow(Config{UseLedger: true, ChargeOnDirect: true, RefundOnDirect: true}).Execute(alice, nil)
	if res.Outcome != OutcomeAlreadyActive {
		t.Fatalf("expected already active, got %+v", res)
	}
	if len(h.ledger.debits) != 0 || len(h.ledger.credits) != 0 {
		t.Fatalf("ledger touched: %+v", h.ledger)
	}
	if h.enc.spawnCalls != 0 {
		t.Fatalf("respawn attempted while active")
	}
}

func TestExecute_IndirectAlreadyActiveRefundsShopPurchase(t *testing.T) {
	h := newHarness()
	h.enc.active = true
	res := h.workflow(Config{UseLedger: true, RefundOnIndirect: true, Fee: 500, Currency: "RP"}).Execute(console, []string{bob.ID})
	if res.Outcome != OutcomeAlreadyActive || !res.Refunded {
		t.Fatalf("expected refunded already-active, got %+v", res)
	}
	if len(h.ledger.debits) != 0 || len(h.ledger.credits) != 1 || h.ledger.credits[0] != bob.ID {
		t.Fatalf("unexpected ledger calls: %+v", h.ledger)
	}
	got := h.rep.got[bob.ID]
	if len(got) != 2 || got[0] != "PlayerRefunded 500 RP" {
		t.Fatalf("unexpected replies: %v", got)
	}
}

func TestExecute_AlreadyActiveIsIdempotentWithGatesOff(t *testing.T) {
	h := newHarness()
	h.enc.active = true
	wf := h.workflow(Config{UseLedger: true})
	for i := 0; i < 3; i++ {
		if res := wf.Execute(alice, nil); res.Outcome != OutcomeAlreadyActive {
			t.Fatalf("direct run %d: %+v", i, res)
		}
		if res := wf.Execute(console, []string{alice.ID}); res.Outcome != OutcomeAlreadyActive {
			t.Fatalf("indirect run %d: %+v", i, res)
		}
	}
	if len(h.ledger.debits) != 0 || len(h.ledger.credits) != 0 {
		t.Fatalf("ledger mutated: %+v", h.ledger)
	}
}

func TestExecute_DebitRejectedNeverRefunds(t *testing.T) {
	h := newHarness()
	h.ledger.debitOK = false
	res := h.workflow(Config{UseLedger: true, ChargeOnDirect: true, RefundOnDirect: true, Fee: 10}).Execute(alice, nil)
	if res.Outcome != OutcomeChargeFailed || !errors.Is(res.Err, ErrLedgerRejected) {
		t.Fatalf("expected rejected charge, got %+v", res)
	}
	if len(h.ledger.credits) != 0 || h.enc.spawnCalls != 0 {
		t.Fatalf("unexpected follow-up: credits=%v spawns=%d", h.ledger.credits, h.enc.spawnCalls)
	}
}

func TestExecute_MissingLedgerIsDistinct(t *testing.T) {
	h := newHarness()
	wf := New(Config{UseLedger: true, ChargeOnDirect: true, Fee: 10}, Deps{
		Encounter:   h.enc,
		Plugins:     fakeResolver{},
		Permissions: h.perms,
		Messages:    keyMessages{},
		Replies:     h.rep,
	})
	res := wf.Execute(alice, nil)
	if res.Outcome != OutcomeChargeFailed || !errors.Is(res.Err, ErrDependencyMissing) {
		t.Fatalf("expected missing dependency, got %+v", res)
	}
	if errors.Is(res.Err, ErrLedgerRejected) {
		t.Fatalf("missing dependency reported as rejection")
	}

	h2 := newHarness()
	res = h2.workflow(Config{UseLedger: false, ChargeOnDirect: true}).Execute(alice, nil)
	if !errors.Is(res.Err, ErrDependencyMissing) || len(h2.ledger.debits) != 0 {
		t.Fatalf("use_ledger=false must not debit: %+v %+v", res, h2.ledger)
	}
}

func TestExecute_DirectSuccessWithoutCharging(t *testing.T) {
	h := newHarness()
	res := h.workflow(Config{UseLedger: true}).Execute(alice, nil)
	if !res.OK() || res.Charged {
		t.Fatalf("expected uncharged success, got %+v", res)
	}
	if len(h.ledger.debits)+len(h.ledger.credits) != 0 {
		t.Fatalf("ledger touched: %+v", h.ledger)
	}
	if h.enc.spawnCalls != 1 {
		t.Fatalf("expected one respawn, got %d", h.enc.spawnCalls)
	}
	if len(h.lock.locks) != 0 {
		t.Fatalf("lock applied while disabled")
	}
}

func TestExecute_IndirectRespawnFailureRefundsOnce(t *testing.T) {
	h := newHarness()
	h.enc.respawnErr = ErrNoSpawner
	res := h.workflow(Config{UseLedger: true, ChargeOnIndirect: true, RefundOnIndirect: true, Fee: 10000, Currency: "RP"}).Execute(console, []string{bob.ID})
	if res.Outcome != OutcomeRespawnFailed || !res.Refunded || !res.Charged {
		t.Fatalf("expected refunded respawn failure, got %+v", res)
	}
	if !errors.Is(res.Err, ErrNoSpawner) {
		t.Fatalf("expected ErrNoSpawner, got %v", res.Err)
	}
	if len(h.ledger.debits) != 1 || len(h.ledger.credits) != 1 || h.ledger.debits[0] != bob.ID || h.ledger.credits[0] != bob.ID {
		t.Fatalf("unexpected ledger calls: %+v", h.ledger)
	}
}

func TestExecute_RespawnFailureWithoutChargeSkipsRefund(t *testing.T) {
	h := newHarness()
	h.enc.respawnErr = ErrSpawnFailed
	res := h.workflow(Config{UseLedger: true, RefundOnIndirect: true}).Execute(console, []string{bob.ID})
	if res.Outcome != OutcomeRespawnFailed || res.Refunded {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(h.ledger.credits) != 0 {
		t.Fatalf("refund issued without a charge")
	}
}

func TestExecute_RefundFailureKeepsOutcome(t *testing.T) {
	h := newHarness()
	h.enc.respawnErr = ErrNoSpawner
	h.ledger.creditOK = false
	res := h.workflow(Config{UseLedger: true, ChargeOnDirect: true, RefundOnDirect: true, Fee: 5, Currency: "RP"}).Execute(alice, nil)
	if res.Outcome != OutcomeRespawnFailed || res.Refunded {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !errors.Is(res.RefundErr, ErrLedgerRejected) {
		t.Fatalf("expected refund rejection, got %v", res.RefundErr)
	}
	found := false
	for _, msg := range h.rep.got[alice.ID] {
		if msg == "UnableToRefund 5 RP" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected UnableToRefund notice, got %v", h.rep.got[alice.ID])
	}
}

func TestExecute_NilEncounterIsRespawnFailure(t *testing.T) {
	h := newHarness()
	wf := New(Config{UseLedger: true, ChargeOnDirect: true, RefundOnDirect: true}, Deps{
		Plugins:     fakeResolver{ledger: h.ledger},
		Permissions: h.perms,
	})
	res := wf.Execute(alice, nil)
	if res.Outcome != OutcomeRespawnFailed || !res.Refunded {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestExecute_LockOnRespawn(t *testing.T) {
	h := newHarness()
	res := h.workflow(Config{LockOnRespawn: true}).Execute(alice, nil)
	if !res.OK() || !res.Locked || len(h.lock.locks) != 1 || h.lock.locks[0] != alice.ID {
		t.Fatalf("expected lock for alice: %+v %+v", res, h.lock)
	}

	h = newHarness()
	h.perms[alice.ID][PermNoLock] = true
	res = h.workflow(Config{LockOnRespawn: true}).Execute(alice, nil)
	if !res.OK() || res.Locked || len(h.lock.locks) != 0 {
		t.Fatalf("exempt player locked: %+v", res)
	}

	h = newHarness()
	wf := New(Config{LockOnRespawn: true}, Deps{
		Encounter:   h.enc,
		Plugins:     fakeResolver{},
		Permissions: h.perms,
	})
	if res := wf.Execute(alice, nil); !res.OK() || res.Locked {
		t.Fatalf("missing lock plugin must not fail: %+v", res)
	}
}

func TestExecute_AuditRecord(t *testing.T) {
	h := newHarness()
	_ = h.workflow(Config{UseLedger: true, ChargeOnIndirect: true, Fee: 7}).Execute(console, []string{bob.ID})
	if len(h.audit.recs) != 1 {
		t.Fatalf("expected one audit record, got %d", len(h.audit.recs))
	}
	rec := h.audit.recs[0]
	if rec.Outcome != string(OutcomeSuccess) || rec.Kind != "INDIRECT" || rec.TargetID != bob.ID || !rec.Charged || rec.Fee != 7 || rec.NetID != 42 {
		t.Fatalf("unexpected audit record: %+v", rec)
	}
}
