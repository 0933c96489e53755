package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"respawnbradley.gg/internal/commands"
	"respawnbradley.gg/internal/config"
	"respawnbradley.gg/internal/encounter"
	"respawnbradley.gg/internal/lang"
	"respawnbradley.gg/internal/lootlock"
	"respawnbradley.gg/internal/perms"
	persistlog "respawnbradley.gg/internal/persistence/log"
	"respawnbradley.gg/internal/persistence/sqlitedb"
	"respawnbradley.gg/internal/players"
	"respawnbradley.gg/internal/plugins"
	"respawnbradley.gg/internal/protocol"
	"respawnbradley.gg/internal/respawn"
	"respawnbradley.gg/internal/rewards"
	"respawnbradley.gg/internal/transport/ws"
)

type appOptions struct {
	DataDir      string
	LangDir      string
	ConsoleToken string
	PlayerSecret string
	SpawnOnStart bool
	Config       config.Config

	Logger       *log.Logger
	PluginLogger *log.Logger
}

// app is everything one server process owns. It is built once at startup;
// only the config snapshot in holder changes while running.
type app struct {
	log *log.Logger

	holder   *config.Holder
	catalog  *lang.Catalog
	db       *sql.DB
	perms    *perms.Registry
	rewards  *rewards.Store
	lootlock *lootlock.Plugin
	host     *plugins.Host
	world    *encounter.World
	state    *encounter.State
	players  *players.Directory
	table    *commands.Table
	audit    *persistlog.AuditLogger
	ws       *ws.Server
}

func newApp(opts appOptions) (*app, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	pluginLog := opts.PluginLogger
	if pluginLog == nil {
		pluginLog = logger
	}
	a := &app{log: logger, holder: config.NewHolder(opts.Config)}

	a.catalog = lang.Default()
	if opts.LangDir != "" {
		if err := a.catalog.LoadDir(opts.LangDir); err != nil {
			return nil, fmt.Errorf("load lang: %w", err)
		}
	}

	db, err := sqlitedb.Open(filepath.Join(opts.DataDir, "plugins.sqlite"))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.db = db
	if a.perms, err = perms.Open(db); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := commands.RegisterPermissions(a.perms); err != nil {
		_ = a.Close()
		return nil, err
	}
	if a.rewards, err = rewards.Open(db, pluginLog); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.lootlock = lootlock.New(pluginLog)

	a.host = plugins.NewHost(logger)
	resolver := plugins.NewResolver(a.host, plugins.DefaultLedgerPlugin, plugins.DefaultLockPlugin)
	for _, p := range []plugins.Plugin{a.rewards, a.lootlock} {
		if err := a.host.Load(p); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("load plugin %s: %w", p.Info().Name, err)
		}
	}

	a.world = encounter.NewWorld()
	spawner := encounter.NewSpawner(a.world)
	a.state = encounter.NewState(a.world, spawner)
	a.world.OnKill(a.lootlock.HandleKill)
	if opts.SpawnOnStart {
		if e, ok := spawner.DoRespawn(); ok {
			logger.Printf("encounter: spawned %s net_id=%d", e.ShortPrefabName, e.NetID)
		}
	}

	if a.players, err = players.OpenDirectory(db, logger); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.audit = persistlog.NewAuditLogger(opts.DataDir)

	a.table = commands.NewTable()
	handler := commands.NewRespawnBradley(a.holder, a.catalog, a.players.Lang, respawn.Deps{
		Encounter:   a.state,
		Plugins:     resolver,
		Players:     a.players,
		Permissions: a.perms,
		Replies:     a.players,
		Audit:       a.audit,
		Logger:      pluginLog,
	})
	if err := a.table.Register(commands.RespawnBradley, handler); err != nil {
		_ = a.Close()
		return nil, err
	}

	schemas, err := protocol.LoadSchemas()
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("load schemas: %w", err)
	}
	a.ws = ws.NewServer(ws.Options{
		Table:        a.table,
		Players:      a.players,
		Schemas:      schemas,
		ConsoleToken: opts.ConsoleToken,
		PlayerSecret: opts.PlayerSecret,
		Logger:       logger,
	})
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if a.host != nil {
		errs = append(errs, a.host.UnloadAll())
	}
	if a.audit != nil {
		errs = append(errs, a.audit.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
