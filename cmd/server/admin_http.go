package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"

	"respawnbradley.gg/internal/encounter"
	"respawnbradley.gg/internal/lootlock"
	"respawnbradley.gg/internal/players"
	"respawnbradley.gg/internal/plugins"
	"respawnbradley.gg/internal/transport/ws"
)

type adminCommandReq struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

type encounterResp struct {
	encounter.Snapshot
	Locks []lootlock.Lock `json:"locks"`
}

// registerAdminHandlers adds the local-only operator endpoints. Commands sent
// here run with console origin.
func (a *app) registerAdminHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/admin/v1/command", loopbackOnly(http.MethodPost, func(rw http.ResponseWriter, r *http.Request) {
		var req adminCommandReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Command) == "" {
			http.Error(rw, "bad request", http.StatusBadRequest)
			return
		}
		res := a.table.Dispatch(players.Console(), req.Command, req.Args)
		writeJSON(rw, http.StatusOK, ws.ResultMessage("", res))
	}))
	mux.HandleFunc("/admin/v1/encounter", loopbackOnly(http.MethodGet, func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, encounterResp{Snapshot: a.state.Snapshot(), Locks: a.lootlock.Locks()})
	}))
	mux.HandleFunc("/admin/v1/encounter/destroy", loopbackOnly(http.MethodPost, func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, map[string]any{"ok": a.state.Destroy()})
	}))
	mux.HandleFunc("/admin/v1/encounter/cleanup", loopbackOnly(http.MethodPost, func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, map[string]any{"removed": a.world.Cleanup()})
	}))
	mux.HandleFunc("/admin/v1/plugins", loopbackOnly(http.MethodGet, func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, map[string][]plugins.Info{"plugins": a.host.Infos()})
	}))
	mux.HandleFunc("/admin/v1/players", loopbackOnly(http.MethodGet, func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, map[string][]players.Player{"players": a.players.Connected()})
	}))
}

func (a *app) writeMetrics(rw http.ResponseWriter) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	snap := a.state.Snapshot()
	active := 0
	if snap.Active {
		active = 1
	}

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP respawnbradley_encounter_active Whether the APC encounter is active.\n")
	fmt.Fprintf(rw, "# TYPE respawnbradley_encounter_active gauge\n")
	fmt.Fprintf(rw, "respawnbradley_encounter_active %d\n", active)

	fmt.Fprintf(rw, "# HELP respawnbradley_encounter_entities Encounter entities in the world.\n")
	fmt.Fprintf(rw, "# TYPE respawnbradley_encounter_entities gauge\n")
	fmt.Fprintf(rw, "respawnbradley_encounter_entities{kind=%q} %d\n", "debris", len(snap.Debris))
	fmt.Fprintf(rw, "respawnbradley_encounter_entities{kind=%q} %d\n", "crate", len(snap.Crates))

	fmt.Fprintf(rw, "# HELP respawnbradley_sessions Current websocket sessions.\n")
	fmt.Fprintf(rw, "# TYPE respawnbradley_sessions gauge\n")
	fmt.Fprintf(rw, "respawnbradley_sessions %d\n", a.ws.Sessions())

	fmt.Fprintf(rw, "# HELP respawnbradley_plugins_loaded Loaded plugins.\n")
	fmt.Fprintf(rw, "# TYPE respawnbradley_plugins_loaded gauge\n")
	fmt.Fprintf(rw, "respawnbradley_plugins_loaded %d\n", len(a.host.Names()))

	fmt.Fprintf(rw, "# HELP respawnbradley_commands_total Command invocations by result.\n")
	fmt.Fprintf(rw, "# TYPE respawnbradley_commands_total counter\n")
	stats := a.table.Stats()
	cmds := make([]string, 0, len(stats))
	for c := range stats {
		cmds = append(cmds, c)
	}
	sort.Strings(cmds)
	for _, c := range cmds {
		results := make([]string, 0, len(stats[c]))
		for r := range stats[c] {
			results = append(results, r)
		}
		sort.Strings(results)
		for _, r := range results {
			fmt.Fprintf(rw, "respawnbradley_commands_total{command=%q,result=%q} %d\n", c, r, stats[c][r])
		}
	}
}

func loopbackOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
