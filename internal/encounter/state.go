package encounter

import (
	"strings"

	"respawnbradley.gg/internal/respawn"
)

const encounterTag = "bradley"

// State adapts the world registry to respawn.EncounterState. A nil spawner
// models a map without a Bradley spawn point.
type State struct {
	world   *World
	spawner *Spawner
}

func NewState(w *World, sp *Spawner) *State {
	return &State{world: w, spawner: sp}
}

func (s *State) IsActive() bool {
	if s.spawner != nil {
		if _, alive := s.spawner.Spawned(); alive {
			return true
		}
	}
	for _, kind := range []Kind{KindDebris, KindCrate} {
		for _, e := range s.world.FindByKind(kind) {
			if strings.Contains(e.ShortPrefabName, encounterTag) {
				return true
			}
		}
	}
	return false
}

func (s *State) ForceRespawn() (respawn.Instance, error) {
	if s.spawner == nil {
		return respawn.Instance{}, respawn.ErrNoSpawner
	}
	if e, alive := s.spawner.Spawned(); alive {
		s.world.Kill(e.NetID, DestroyNone)
	}
	s.spawner.ClearSpawned()
	e, ok := s.spawner.DoRespawn()
	if !ok {
		return respawn.Instance{}, respawn.ErrSpawnFailed
	}
	return respawn.Instance{NetID: e.NetID, Prefab: e.ShortPrefabName}, nil
}

type Snapshot struct {
	Active   bool     `json:"active"`
	APC      uint64   `json:"apc,omitempty"`
	Debris   []uint64 `json:"debris,omitempty"`
	Crates   []uint64 `json:"crates,omitempty"`
	Spawner  bool     `json:"spawner"`
	Entities int      `json:"entities"`
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{Active: s.IsActive(), Spawner: s.spawner != nil, Entities: s.world.Count()}
	if s.spawner != nil {
		if e, alive := s.spawner.Spawned(); alive {
			snap.APC = e.NetID
		}
	}
	for _, e := range s.world.FindByKind(KindDebris) {
		snap.Debris = append(snap.Debris, e.NetID)
	}
	for _, e := range s.world.FindByKind(KindCrate) {
		snap.Crates = append(snap.Crates, e.NetID)
	}
	return snap
}

// Destroy kills the live APC as if it were defeated in combat.
func (s *State) Destroy() bool {
	if s.spawner == nil {
		return false
	}
	e, alive := s.spawner.Spawned()
	if !alive {
		return false
	}
	return s.world.Kill(e.NetID, DestroyGib)
}

func (s *State) World() *World { return s.world }
