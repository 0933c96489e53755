package encounter

import "sync"

// Spawner is the host's Bradley singleton: it tracks at most one APC.
type Spawner struct {
	world  *World
	prefab string

	mu      sync.Mutex
	spawned uint64
}

func NewSpawner(w *World) *Spawner {
	return &Spawner{world: w, prefab: PrefabAPC}
}

// Spawned returns the tracked APC if it is still alive.
func (s *Spawner) Spawned() (Entity, bool) {
	s.mu.Lock()
	id := s.spawned
	s.mu.Unlock()
	if id == 0 {
		return Entity{}, false
	}
	return s.world.Get(id)
}

func (s *Spawner) ClearSpawned() {
	s.mu.Lock()
	s.spawned = 0
	s.mu.Unlock()
}

// DoRespawn spawns a new APC unless one is already tracked and alive.
func (s *Spawner) DoRespawn() (Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spawned != 0 {
		if _, alive := s.world.Get(s.spawned); alive {
			return Entity{}, false
		}
	}
	e := s.world.Spawn(KindAPC, s.prefab)
	s.spawned = e.NetID
	return e, true
}
