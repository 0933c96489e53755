package perms

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"respawnbradley.gg/internal/persistence/sqlitedb"
)

var (
	ErrUnknownPermission = errors.New("unknown permission")
	ErrInvalidPermission = errors.New("invalid permission name")
)

// Built-in groups. Every player is implicitly a member of GroupDefault.
const (
	GroupDefault = "default"
	GroupAdmin   = "admin"
)

// Registry is the permission system plugins register against. Registrations
// live in memory; grants are persisted.
type Registry struct {
	db *sql.DB

	mu         sync.RWMutex
	registered map[string]string
}

func Open(db *sql.DB) (*Registry, error) {
	if db == nil {
		return nil, fmt.Errorf("perms: nil db")
	}
	if err := sqlitedb.Exec(db, schema); err != nil {
		return nil, fmt.Errorf("perms schema: %w", err)
	}
	return &Registry{db: db, registered: map[string]string{}}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS user_permissions (
		player_id TEXT NOT NULL,
		perm TEXT NOT NULL,
		PRIMARY KEY (player_id, perm)
	);`,
	`CREATE TABLE IF NOT EXISTS group_permissions (
		group_name TEXT NOT NULL,
		perm TEXT NOT NULL,
		PRIMARY KEY (group_name, perm)
	);`,
	`CREATE TABLE IF NOT EXISTS group_members (
		group_name TEXT NOT NULL,
		player_id TEXT NOT NULL,
		PRIMARY KEY (group_name, player_id)
	);`,
}

// Register adds a permission owned by a plugin. Names are lower case and
// must start with the owner's lower-cased name and a dot.
func (r *Registry) Register(name, owner string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	prefix := strings.ToLower(strings.TrimSpace(owner)) + "."
	if owner == "" || !strings.HasPrefix(name, prefix) || len(name) == len(prefix) {
		return fmt.Errorf("register %q for %q: %w", name, owner, ErrInvalidPermission)
	}
	r.mu.Lock()
	r.registered[name] = owner
	r.mu.Unlock()
	return nil
}

func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.registered[strings.ToLower(name)]
	return ok
}

func (r *Registry) Registered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.registered))
	for name := range r.registered {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) normalize(perm string) (string, error) {
	perm = strings.ToLower(strings.TrimSpace(perm))
	if !r.IsRegistered(perm) {
		return "", fmt.Errorf("%q: %w", perm, ErrUnknownPermission)
	}
	return perm, nil
}

func (r *Registry) Grant(playerID, perm string) error {
	perm, err := r.normalize(perm)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`INSERT OR IGNORE INTO user_permissions(player_id, perm) VALUES(?,?)`, playerID, perm)
	return err
}

func (r *Registry) Revoke(playerID, perm string) error {
	perm = strings.ToLower(strings.TrimSpace(perm))
	_, err := r.db.Exec(`DELETE FROM user_permissions WHERE player_id=? AND perm=?`, playerID, perm)
	return err
}

func (r *Registry) GrantGroup(group, perm string) error {
	perm, err := r.normalize(perm)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`INSERT OR IGNORE INTO group_permissions(group_name, perm) VALUES(?,?)`, strings.ToLower(group), perm)
	return err
}

func (r *Registry) RevokeGroup(group, perm string) error {
	_, err := r.db.Exec(`DELETE FROM group_permissions WHERE group_name=? AND perm=?`, strings.ToLower(group), strings.ToLower(perm))
	return err
}

func (r *Registry) AddToGroup(group, playerID string) error {
	_, err := r.db.Exec(`INSERT OR IGNORE INTO group_members(group_name, player_id) VALUES(?,?)`, strings.ToLower(group), playerID)
	return err
}

func (r *Registry) RemoveFromGroup(group, playerID string) error {
	_, err := r.db.Exec(`DELETE FROM group_members WHERE group_name=? AND player_id=?`, strings.ToLower(group), playerID)
	return err
}

// Has reports a direct grant, a grant to one of the player's groups, or a
// grant to the default group. Unregistered permissions are never held.
func (r *Registry) Has(playerID, perm string) (bool, error) {
	perm = strings.ToLower(strings.TrimSpace(perm))
	if !r.IsRegistered(perm) {
		return false, nil
	}
	var n int
	err := r.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM user_permissions WHERE player_id=? AND perm=?) +
			(SELECT COUNT(*) FROM group_permissions gp
				WHERE gp.perm=? AND (gp.group_name=? OR gp.group_name IN
					(SELECT group_name FROM group_members WHERE player_id=?)))
	`, playerID, perm, perm, GroupDefault, playerID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasPermission is Has with storage errors treated as "not granted".
func (r *Registry) HasPermission(playerID, perm string) bool {
	ok, err := r.Has(playerID, perm)
	return err == nil && ok
}

// UserPermissions lists direct grants for a player.
func (r *Registry) UserPermissions(playerID string) ([]string, error) {
	rows, err := r.db.Query(`SELECT perm FROM user_permissions WHERE player_id=? ORDER BY perm`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
