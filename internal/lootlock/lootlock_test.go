package lootlock

import (
	"testing"

	"respawnbradley.gg/internal/encounter"
	"respawnbradley.gg/internal/respawn"
)

func TestPlugin_LockFollowsLootOnKill(t *testing.T) {
	w := encounter.NewWorld()
	st := encounter.NewState(w, encounter.NewSpawner(w))
	p := New(nil)
	w.OnKill(p.HandleKill)

	inst, err := st.ForceRespawn()
	if err != nil {
		t.Fatalf("ForceRespawn: %v", err)
	}
	p.ApplyMaxDamageLock(inst, "p1")
	if owner, ok := p.Owner(inst.NetID); !ok || owner != "p1" {
		t.Fatalf("expected p1 lock, got %q ok=%v", owner, ok)
	}
	if p.CanLoot(inst.NetID, "p2") {
		t.Fatalf("p2 must not damage a locked APC")
	}

	st.Destroy()
	if _, ok := p.Owner(inst.NetID); ok {
		t.Fatalf("lock on destroyed APC should be released")
	}
	crates := w.FindByKind(encounter.KindCrate)
	if len(crates) == 0 {
		t.Fatalf("expected crates after gib")
	}
	for _, c := range crates {
		if !p.CanLoot(c.NetID, "p1") || p.CanLoot(c.NetID, "p2") {
			t.Fatalf("crate %d not locked to p1", c.NetID)
		}
	}
	for _, d := range w.FindByKind(encounter.KindDebris) {
		if _, ok := p.Owner(d.NetID); ok {
			t.Fatalf("debris must not be locked")
		}
	}
}

func TestPlugin_ReleaseAndUnload(t *testing.T) {
	p := New(nil)
	var _ respawn.LockService = p
	p.ApplyMaxDamageLock(respawn.Instance{NetID: 9, Prefab: "bradleyapc"}, "p1")
	p.ApplyMaxDamageLock(respawn.Instance{}, "p1")
	if len(p.Locks()) != 1 {
		t.Fatalf("expected one lock, got %d", len(p.Locks()))
	}
	if !p.Release(9) || p.Release(9) {
		t.Fatalf("release should succeed exactly once")
	}
	p.ApplyMaxDamageLock(respawn.Instance{NetID: 10}, "p1")
	_ = p.Unload()
	if len(p.Locks()) != 0 {
		t.Fatalf("unload should drop locks")
	}
}
