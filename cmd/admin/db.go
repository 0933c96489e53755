package main

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"respawnbradley.gg/internal/commands"
	"respawnbradley.gg/internal/perms"
	"respawnbradley.gg/internal/persistence/sqlitedb"
	"respawnbradley.gg/internal/rewards"
)

// stores opens the same sqlite file the server uses. The server keeps a
// single connection, so run write commands while it is idle or stopped.
type stores struct {
	db      *sql.DB
	rewards *rewards.Store
	perms   *perms.Registry
}

func openStores(dataDir string) (*stores, error) {
	path := filepath.Join(dataDir, "plugins.sqlite")
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sqlitedb.Open(path)
	if err != nil {
		return nil, err
	}
	st := &stores{db: db}
	if st.rewards, err = rewards.Open(db, nil); err != nil {
		_ = db.Close()
		return nil, err
	}
	if st.perms, err = perms.Open(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := commands.RegisterPermissions(st.perms); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *stores) Close() error {
	if s == nil || s.db == nil {
		return errors.New("stores not open")
	}
	return s.db.Close()
}
