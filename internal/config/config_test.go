package config

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadOrCreate_WritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "respawnbradley.yaml")
	var buf bytes.Buffer
	cfg, err := LoadOrCreate(path, log.New(&buf, "", 0))
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if cfg != Defaults() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if !strings.Contains(buf.String(), "creating a new configuration file") {
		t.Fatalf("missing notice: %q", buf.String())
	}
}

func TestLoadOrCreate_MigratesLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "respawnbradley.yaml")
	legacy := `messaging:
  msg_color: "<color=#ffffff>"
options:
  use_server_rewards: false
  charge_on_player_command: true
  refund_on_server_command: false
  respawn_costs: 250
  currency_symbol: "$"
`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var buf bytes.Buffer
	cfg, err := LoadOrCreate(path, log.New(&buf, "", 0))
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if cfg.Version != Version {
		t.Fatalf("expected version %s, got %q", Version, cfg.Version)
	}
	o := cfg.Options
	if o.UseServerRewards || !o.ChargeOnPlayerCommand || o.RefundOnServerCommand || o.RespawnCosts != 250 || o.CurrencySymbol != "$" {
		t.Fatalf("legacy values lost: %+v", o)
	}
	if o.LockBradleyOnRespawn {
		t.Fatalf("new field must start disabled")
	}
	if cfg.Messaging.MsgColor != "<color=#ffffff>" || cfg.Messaging.ErrColor != "<color=red>" {
		t.Fatalf("unexpected messaging: %+v", cfg.Messaging)
	}
	if !strings.Contains(buf.String(), "updated") {
		t.Fatalf("missing migration notice: %q", buf.String())
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if again != cfg {
		t.Fatalf("migrated config not persisted: %+v", again)
	}
}

func TestMigrate_RejectsNewer(t *testing.T) {
	cfg := Defaults()
	cfg.Version = "9.0.0"
	if _, _, err := Migrate(cfg); !errors.Is(err, ErrNewerVersion) {
		t.Fatalf("expected ErrNewerVersion, got %v", err)
	}
	cfg.Version = Version
	if _, changed, err := Migrate(cfg); err != nil || changed {
		t.Fatalf("current version must be a no-op: changed=%v err=%v", changed, err)
	}
}

func TestLoad_Validate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("options:\n  respawn_costs: -5\n"), 0o644)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestHolder(t *testing.T) {
	h := NewHolder(Defaults())
	cfg := h.Current()
	cfg.Options.RespawnCosts = 1
	if h.Current().Options.RespawnCosts != 10000 {
		t.Fatalf("holder returned shared state")
	}
	h.Set(cfg)
	if h.Current().Options.RespawnCosts != 1 {
		t.Fatalf("holder not updated")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "respawnbradley.yaml")
	if err := Save(path, Defaults()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got := make(chan Config, 4)
	w, err := Watch(path, func(c Config) { got <- c }, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	cfg := Defaults()
	cfg.Options.RespawnCosts = 42
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	select {
	case c := <-got:
		if c.Options.RespawnCosts != 42 {
			t.Fatalf("unexpected reloaded config: %+v", c.Options)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no reload observed")
	}
}

func TestLoad_RejectsMissingOptions(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"empty.yaml":     "",
		"blank.yaml":     "  \n\n",
		"messaging.yaml": "messaging:\n  msg_color: \"<color=#ffffff>\"\n",
	} {
		path := filepath.Join(dir, name)
		_ = os.WriteFile(path, []byte(body), 0o644)
		if _, err := Load(path); !errors.Is(err, ErrNoOptions) {
			t.Fatalf("%s: expected ErrNoOptions, got %v", name, err)
		}
	}
}

func TestWatch_TruncateThenWriteKeepsNewValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "respawnbradley.yaml")
	cfg := Defaults()
	cfg.Options.RespawnCosts = 7
	cfg.Options.ChargeOnPlayerCommand = true
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cfg.Options.RespawnCosts = 42
	next := filepath.Join(t.TempDir(), "next.yaml")
	if err := Save(next, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	body, err := os.ReadFile(next)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	got := make(chan Config, 8)
	w, err := Watch(path, func(c Config) { got <- c }, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	if err := os.Truncate(path, 0); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var last Config
	select {
	case last = <-got:
	case <-time.After(5 * time.Second):
		t.Fatalf("no reload observed")
	}
	settle := time.After(3 * reloadDebounce)
	for done := false; !done; {
		select {
		case last = <-got:
		case <-settle:
			done = true
		}
	}
	if last.Options.RespawnCosts != 42 || !last.Options.ChargeOnPlayerCommand {
		t.Fatalf("reload lost values: %+v", last.Options)
	}
}
