package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Version is the config layout written by this build.
const Version = "0.2.0"

var (
	ErrNewerVersion = errors.New("config written by a newer version")
	ErrNoOptions    = errors.New("config has no options section")
)

type Config struct {
	Version   string    `yaml:"version"`
	Messaging Messaging `yaml:"messaging"`
	Options   Options   `yaml:"options"`
}

type Messaging struct {
	MsgColor string `yaml:"msg_color"`
	HilColor string `yaml:"hil_color"`
	ErrColor string `yaml:"err_color"`
}

type Options struct {
	UseServerRewards      bool   `yaml:"use_server_rewards"`
	ChargeOnServerCommand bool   `yaml:"charge_on_server_command"`
	ChargeOnPlayerCommand bool   `yaml:"charge_on_player_command"`
	RefundOnServerCommand bool   `yaml:"refund_on_server_command"`
	RefundOnPlayerCommand bool   `yaml:"refund_on_player_command"`
	LockBradleyOnRespawn  bool   `yaml:"lock_bradley_on_respawn"`
	RespawnCosts          int    `yaml:"respawn_costs"`
	CurrencySymbol        string `yaml:"currency_symbol"`
}

func Defaults() Config {
	return Config{
		Version: Version,
		Messaging: Messaging{
			MsgColor: "<color=#939393>",
			HilColor: "<color=orange>",
			ErrColor: "<color=red>",
		},
		Options: Options{
			UseServerRewards:      true,
			ChargeOnServerCommand: false,
			ChargeOnPlayerCommand: false,
			RefundOnServerCommand: true,
			RefundOnPlayerCommand: false,
			LockBradleyOnRespawn:  false,
			RespawnCosts:          10000,
			CurrencySymbol:        "RP",
		},
	}
}

func (c Config) Validate() error {
	if c.Options.RespawnCosts < 0 {
		return fmt.Errorf("options.respawn_costs must be >= 0")
	}
	if strings.TrimSpace(c.Options.CurrencySymbol) == "" {
		return fmt.Errorf("options.currency_symbol must not be empty")
	}
	return nil
}

// Load parses path over the defaults, so fields missing from older files
// keep their default values. It does not migrate or write.
func Load(path string) (Config, error) {
	cfg := Defaults()
	cfg.Version = ""
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	// An empty or half-written file would otherwise load as all defaults.
	var top map[string]yaml.Node
	if err := yaml.Unmarshal(raw, &top); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if _, ok := top["options"]; !ok {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), ErrNoOptions)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// LoadOrCreate writes defaults when path is missing and migrates older
// layouts in place. Both cases are reported on logger.
func LoadOrCreate(path string, logger *log.Logger) (Config, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
		cfg = Defaults()
		logger.Printf("creating a new configuration file %s", path)
		return cfg, Save(path, cfg)
	}
	migrated, changed, err := Migrate(cfg)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if changed {
		if err := Save(path, migrated); err != nil {
			return migrated, err
		}
		logger.Printf("config file %s updated from version %q to %s", path, cfg.Version, Version)
	}
	return migrated, nil
}

// Migrate upgrades cfg to Version. Values already present are kept; the
// migrations only fill in fields that older layouts could not express.
func Migrate(cfg Config) (Config, bool, error) {
	if cfg.Version == Version {
		return cfg, false, nil
	}
	if cfg.Version != "" && compareVersions(cfg.Version, Version) > 0 {
		return cfg, false, fmt.Errorf("%w: %s > %s", ErrNewerVersion, cfg.Version, Version)
	}
	for _, m := range migrations {
		if cfg.Version == "" || compareVersions(cfg.Version, m.to) < 0 {
			m.apply(&cfg)
			cfg.Version = m.to
		}
	}
	cfg.Version = Version
	return cfg, true, nil
}

type migration struct {
	to    string
	apply func(*Config)
}

var migrations = []migration{
	// 0.1.x files had no version and carried only messaging/options.
	{to: "0.1.1", apply: func(c *Config) {
		d := Defaults()
		if c.Messaging.MsgColor == "" {
			c.Messaging.MsgColor = d.Messaging.MsgColor
		}
		if c.Messaging.HilColor == "" {
			c.Messaging.HilColor = d.Messaging.HilColor
		}
		if c.Messaging.ErrColor == "" {
			c.Messaging.ErrColor = d.Messaging.ErrColor
		}
	}},
	// 0.2.0 added lock_bradley_on_respawn; it starts disabled.
	{to: "0.2.0", apply: func(c *Config) {}},
}

func compareVersions(a, b string) int {
	pa, pb := splitVersion(a), splitVersion(b)
	for i := 0; i < 3; i++ {
		if pa[i] != pb[i] {
			if pa[i] < pb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func splitVersion(v string) [3]int {
	var out [3]int
	parts := strings.SplitN(strings.TrimPrefix(strings.TrimSpace(v), "v"), ".", 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err == nil {
			out[i] = n
		}
	}
	return out
}

// Save writes cfg atomically (temp file + rename).
func Save(path string, cfg Config) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Holder publishes the current config to concurrent readers.
type Holder struct {
	v atomic.Pointer[Config]
}

func NewHolder(cfg Config) *Holder {
	h := &Holder{}
	h.Set(cfg)
	return h
}

func (h *Holder) Current() Config {
	if c := h.v.Load(); c != nil {
		return *c
	}
	return Defaults()
}

func (h *Holder) Set(cfg Config) {
	h.v.Store(&cfg)
}
