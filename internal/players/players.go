package players

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"respawnbradley.gg/internal/persistence/sqlitedb"
	"respawnbradley.gg/internal/respawn"
)

const (
	ServerID   = "server"
	ServerName = "Server"
)

type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Lang   string `json:"lang,omitempty"`
	Online bool   `json:"online"`
}

// Sink delivers a chat reply to a connected client. It must not block.
type Sink func(text string)

// Directory knows every player that has ever connected. Without a db it
// only remembers players seen since startup.
type Directory struct {
	log *log.Logger
	db  *sql.DB

	mu      sync.RWMutex
	players map[string]Player
	sinks   map[string]session
	nextSID uint64
}

type session struct {
	id   uint64
	sink Sink
}

func NewDirectory(logger *log.Logger) *Directory {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Directory{log: logger, players: map[string]Player{}, sinks: map[string]session{}}
}

// OpenDirectory loads known players from db and writes every Upsert back.
func OpenDirectory(db *sql.DB, logger *log.Logger) (*Directory, error) {
	if db == nil {
		return nil, fmt.Errorf("players: nil db")
	}
	if err := sqlitedb.Exec(db, schema); err != nil {
		return nil, fmt.Errorf("players schema: %w", err)
	}
	d := NewDirectory(logger)
	d.db = db
	rows, err := db.Query(`SELECT id, name, lang FROM players`)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Lang); err != nil {
			return nil, fmt.Errorf("load players: %w", err)
		}
		d.players[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	return d, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		lang TEXT NOT NULL DEFAULT '',
		last_seen TEXT NOT NULL
	);`,
}

// ValidID accepts the 17 digit platform ids.
func ValidID(id string) bool {
	if len(id) != 17 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

func (d *Directory) Upsert(p Player) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return
	}
	d.mu.Lock()
	old, ok := d.players[p.ID]
	if ok {
		if p.Name == "" {
			p.Name = old.Name
		}
		if p.Lang == "" {
			p.Lang = old.Lang
		}
	}
	if _, live := d.sinks[p.ID]; live {
		p.Online = true
	}
	d.players[p.ID] = p
	d.mu.Unlock()

	if d.db == nil {
		return
	}
	_, err := d.db.Exec(`INSERT INTO players (id, name, lang, last_seen) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, lang = excluded.lang, last_seen = excluded.last_seen`,
		p.ID, p.Name, p.Lang, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		d.log.Printf("players: save %s: %v", p.ID, err)
	}
}

// Connect attaches sink to the player and returns the session id that
// Disconnect needs. A newer session for the same id takes over replies.
func (d *Directory) Connect(p Player, sink Sink) uint64 {
	p.ID = strings.TrimSpace(p.ID)
	p.Online = true
	d.Upsert(p)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextSID++
	d.sinks[p.ID] = session{id: d.nextSID, sink: sink}
	return d.nextSID
}

// Disconnect ends session sid. It is a no-op when a newer session already
// replaced it.
func (d *Directory) Disconnect(id string, sid uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.sinks[id]; !ok || cur.id != sid {
		return
	}
	delete(d.sinks, id)
	if p, ok := d.players[id]; ok {
		p.Online = false
		d.players[id] = p
	}
}

func (d *Directory) Get(id string) (Player, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.players[id]
	return p, ok
}

// FindPlayerByID resolves known players, online or not.
func (d *Directory) FindPlayerByID(id string) (respawn.Player, bool) {
	p, ok := d.Get(strings.TrimSpace(id))
	if !ok {
		return respawn.Player{}, false
	}
	return respawn.Player{ID: p.ID, Name: p.Name}, true
}

func (d *Directory) Lang(id string) string {
	p, _ := d.Get(id)
	return p.Lang
}

func (d *Directory) Connected() []Player {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Player, 0, len(d.sinks))
	for id := range d.sinks {
		if p, ok := d.players[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reply sends text to a connected player. Offline players and the console
// get the text in the server log instead.
func (d *Directory) Reply(id, text string) {
	d.mu.RLock()
	sink := d.sinks[id].sink
	d.mu.RUnlock()
	if sink != nil {
		sink(text)
		return
	}
	d.log.Printf("reply %s: %s", id, text)
}

func Console() respawn.Player {
	return respawn.Player{ID: ServerID, Name: ServerName, IsServer: true}
}
