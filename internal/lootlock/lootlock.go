package lootlock

import (
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"respawnbradley.gg/internal/encounter"
	"respawnbradley.gg/internal/plugins"
	"respawnbradley.gg/internal/respawn"
)

type Lock struct {
	NetID    uint64    `json:"net_id"`
	PlayerID string    `json:"player_id"`
	Prefab   string    `json:"prefab"`
	At       time.Time `json:"at"`
}

// Plugin attributes max damage on an entity to one player. When a locked APC
// is destroyed, the lock moves to the crates it drops.
type Plugin struct {
	log *log.Logger
	now func() time.Time

	mu    sync.Mutex
	locks map[uint64]Lock
}

func New(logger *log.Logger) *Plugin {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Plugin{log: logger, now: time.Now, locks: map[uint64]Lock{}}
}

func (p *Plugin) Info() plugins.Info {
	return plugins.Info{
		Name:        plugins.DefaultLockPlugin,
		Author:      "respawnbradley",
		Version:     "1.0.0",
		Description: "Locks Bradley damage and loot to one player",
	}
}

func (p *Plugin) Unload() error {
	p.mu.Lock()
	p.locks = map[uint64]Lock{}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) ApplyMaxDamageLock(inst respawn.Instance, attributedTo string) {
	if inst.NetID == 0 || attributedTo == "" {
		return
	}
	p.mu.Lock()
	p.locks[inst.NetID] = Lock{NetID: inst.NetID, PlayerID: attributedTo, Prefab: inst.Prefab, At: p.now()}
	p.mu.Unlock()
	p.log.Printf("lootlock: %s (%d) locked to %s", inst.Prefab, inst.NetID, attributedTo)
}

func (p *Plugin) Owner(netID uint64) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[netID]
	return l.PlayerID, ok
}

// CanLoot reports whether playerID may damage or loot the entity.
func (p *Plugin) CanLoot(netID uint64, playerID string) bool {
	owner, ok := p.Owner(netID)
	return !ok || owner == playerID
}

func (p *Plugin) Release(netID uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.locks[netID]; !ok {
		return false
	}
	delete(p.locks, netID)
	return true
}

func (p *Plugin) Locks() []Lock {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Lock, 0, len(p.locks))
	for _, l := range p.locks {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NetID < out[j].NetID })
	return out
}

// HandleKill is registered with encounter.World.OnKill.
func (p *Plugin) HandleKill(ev encounter.KillEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[ev.Victim.NetID]
	if !ok {
		return
	}
	delete(p.locks, ev.Victim.NetID)
	for _, e := range ev.Spawns {
		if e.Kind != encounter.KindCrate {
			continue
		}
		p.locks[e.NetID] = Lock{NetID: e.NetID, PlayerID: l.PlayerID, Prefab: e.ShortPrefabName, At: p.now()}
	}
}
