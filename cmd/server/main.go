package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"respawnbradley.gg/internal/config"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "http listen address")
		dataDir      = flag.String("data", "./data", "runtime data directory (sqlite, audit log)")
		configPath   = flag.String("config", "./configs/respawnbradley.yaml", "plugin config path (created with defaults if missing)")
		langDir      = flag.String("lang", "./configs/lang", "message override directory (<tag>.yaml)")
		consoleToken = flag.String("console_token", "", "token for console websocket sessions (empty disables console sessions)")
		playerSecret = flag.String("player_secret", "", "key for player HELLO tokens (empty disables player sessions)")
		spawnOnStart = flag.Bool("spawn_on_start", true, "spawn the APC at startup like the monument spawner")
		watchConfig  = flag.Bool("watch_config", true, "reload the config file when it changes")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	pluginLog := log.New(os.Stdout, "[RespawnBradley] ", log.LstdFlags|log.Lmicroseconds)

	deployEnv := os.Getenv("DEPLOY_ENV")
	senv := serverEnv{
		Addr:         *addr,
		DataDir:      *dataDir,
		ConfigPath:   *configPath,
		LangDir:      *langDir,
		ConsoleToken: *consoleToken,
		PlayerSecret: *playerSecret,
		AdminHTTP:    defaultEnableAdminHTTP(deployEnv),
		DeployEnv:    deployEnv,
	}
	if err := parseEnv(&senv); err != nil {
		logger.Fatalf("%v", err)
	}

	if err := run(senv, *spawnOnStart, *watchConfig, logger, pluginLog); err != nil {
		logger.Fatalf("%v", err)
	}
}

// run owns every resource the server opens so they are closed before main
// exits, including on startup and listen errors.
func run(senv serverEnv, spawnOnStart, watchConfig bool, logger, pluginLog *log.Logger) error {
	cfg, err := config.LoadOrCreate(senv.ConfigPath, pluginLog)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := newApp(appOptions{
		DataDir:      senv.DataDir,
		LangDir:      senv.LangDir,
		ConsoleToken: strings.TrimSpace(senv.ConsoleToken),
		PlayerSecret: strings.TrimSpace(senv.PlayerSecret),
		SpawnOnStart: spawnOnStart,
		Config:       cfg,
		Logger:       logger,
		PluginLogger: pluginLog,
	})
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Printf("close: %v", err)
		}
	}()

	if watchConfig {
		watcher, err := config.Watch(senv.ConfigPath, a.holder.Set, pluginLog)
		if err != nil {
			logger.Printf("config watch disabled: %v", err)
		} else {
			defer watcher.Close()
		}
	}
	if strings.TrimSpace(senv.PlayerSecret) == "" {
		logger.Printf("player sessions disabled (RB_PLAYER_SECRET unset)")
	}

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		a.writeMetrics(rw)
	})
	if senv.AdminHTTP {
		a.registerAdminHandlers(mux)
	} else {
		logger.Printf("admin endpoints disabled (RB_ENABLE_ADMIN_HTTP=false)")
	}
	if senv.PprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", a.ws.Handler())

	srv := &http.Server{
		Addr:              senv.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (data=%s config=%s)", senv.Addr, filepath.Clean(senv.DataDir), senv.ConfigPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
