package encounter

import (
	"sort"
	"sync"
)

type Kind string

const (
	KindAPC    Kind = "apc"
	KindDebris Kind = "debris"
	KindCrate  Kind = "crate"
)

// Prefabs left behind by a destroyed APC.
const (
	PrefabAPC    = "bradleyapc"
	PrefabDebris = "servergibs_bradley"
	PrefabCrate  = "bradley_crate"
)

const (
	gibDebrisCount = 2
	gibCrateCount  = 3
)

type DestroyMode int

const (
	// DestroyNone removes the entity without leaving anything behind.
	DestroyNone DestroyMode = iota
	// DestroyGib leaves debris and loot crates like a combat kill.
	DestroyGib
)

type Entity struct {
	NetID           uint64
	Kind            Kind
	ShortPrefabName string
}

type KillEvent struct {
	Victim Entity
	Mode   DestroyMode
	Spawns []Entity
}

// World is the live entity registry the host owns. Only the entity kinds the
// encounter cares about are modelled.
type World struct {
	mu       sync.Mutex
	nextID   uint64
	entities map[uint64]Entity
	subs     []func(KillEvent)
}

func NewWorld() *World {
	return &World{entities: map[uint64]Entity{}}
}

func (w *World) Spawn(kind Kind, prefab string) Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spawnLocked(kind, prefab)
}

func (w *World) spawnLocked(kind Kind, prefab string) Entity {
	w.nextID++
	e := Entity{NetID: w.nextID, Kind: kind, ShortPrefabName: prefab}
	w.entities[e.NetID] = e
	return e
}

func (w *World) Get(netID uint64) (Entity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[netID]
	return e, ok
}

// Kill removes the entity. Gibbing an APC spawns its debris and crates.
// Subscribers are notified after the world lock is released.
func (w *World) Kill(netID uint64, mode DestroyMode) bool {
	w.mu.Lock()
	e, ok := w.entities[netID]
	if !ok {
		w.mu.Unlock()
		return false
	}
	delete(w.entities, netID)
	ev := KillEvent{Victim: e, Mode: mode}
	if mode == DestroyGib && e.Kind == KindAPC {
		for i := 0; i < gibDebrisCount; i++ {
			ev.Spawns = append(ev.Spawns, w.spawnLocked(KindDebris, PrefabDebris))
		}
		for i := 0; i < gibCrateCount; i++ {
			ev.Spawns = append(ev.Spawns, w.spawnLocked(KindCrate, PrefabCrate))
		}
	}
	subs := append([]func(KillEvent){}, w.subs...)
	w.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
	return true
}

func (w *World) OnKill(fn func(KillEvent)) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.subs = append(w.subs, fn)
	w.mu.Unlock()
}

// FindByKind returns live entities of kind ordered by net ID.
func (w *World) FindByKind(kind Kind) []Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Entity, 0, 4)
	for _, e := range w.entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NetID < out[j].NetID })
	return out
}

// Cleanup despawns all debris and crates. Returns the number removed.
func (w *World) Cleanup() int {
	n := 0
	for _, kind := range []Kind{KindDebris, KindCrate} {
		for _, e := range w.FindByKind(kind) {
			if w.Kill(e.NetID, DestroyNone) {
				n++
			}
		}
	}
	return n
}

func (w *World) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entities)
}
